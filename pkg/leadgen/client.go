package leadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/leadpilot/outreach-backend/pkg/client"
)

// Client queries the external lead generation service. The upstream
// exposes a PostgREST-style API: filters go in the query string and
// results come back as a JSON array.
type Client struct {
	baseURL string
	apiKey  string
	http    *client.HTTPClient
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    client.NewHTTPClient("leadgen", 30*time.Second),
	}
}

// IsConfigured reports whether the upstream is reachable by config
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// SearchParams narrows a company search
type SearchParams struct {
	Segment  string
	City     string
	State    string
	MinScore int
	Limit    int
}

// Company is a prospect returned by the lead generation service
type Company struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Segment string `json:"segment"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	Score   int    `json:"score"`
	Source  string `json:"source"`
}

// SearchCompanies fetches prospect companies matching the filters
func (c *Client) SearchCompanies(ctx context.Context, params SearchParams) ([]Company, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("leadgen client not configured")
	}

	q := url.Values{}
	if params.Segment != "" {
		q.Set("segment", "eq."+params.Segment)
	}
	if params.City != "" {
		q.Set("city", "eq."+params.City)
	}
	if params.State != "" {
		q.Set("state", "eq."+params.State)
	}
	if params.MinScore > 0 {
		q.Set("score", "gte."+strconv.Itoa(params.MinScore))
	}
	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "score.desc")

	endpoint := c.baseURL + "/companies?" + q.Encode()

	resp, err := c.http.Get(ctx, endpoint, map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query leadgen service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leadgen API error: %s (status %d)", string(body), resp.StatusCode)
	}

	var companies []Company
	if err := json.Unmarshal(body, &companies); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return companies, nil
}

// GetCompany fetches a single prospect by id
func (c *Client) GetCompany(ctx context.Context, id string) (*Company, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("leadgen client not configured")
	}

	endpoint := c.baseURL + "/companies?id=eq." + url.QueryEscape(id) + "&limit=1"

	resp, err := c.http.Get(ctx, endpoint, map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query leadgen service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leadgen API error: %s (status %d)", string(body), resp.StatusCode)
	}

	var companies []Company
	if err := json.Unmarshal(body, &companies); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(companies) == 0 {
		return nil, nil
	}

	return &companies[0], nil
}
