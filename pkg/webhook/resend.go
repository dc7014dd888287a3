package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Resend webhooks are signed svix-style: the signed content is
// "<msg-id>.<timestamp>.<payload>", keyed with the base64 secret that
// follows the "whsec_" prefix. The svix-signature header can carry
// several space-separated "v1,<sig>" candidates during key rotation.
// If secret is empty, verification is skipped (for development/testing)
func VerifyResendSignature(secret, msgID, timestamp, signatureHeader string, payload []byte) error {
	if secret == "" {
		return nil
	}

	if msgID == "" || timestamp == "" || signatureHeader == "" {
		return fmt.Errorf("signature headers missing")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	// Reject stale or future-dated deliveries (replay protection)
	now := time.Now().Unix()
	if now-ts > 300 || ts-now > 300 {
		return fmt.Errorf("timestamp outside tolerance")
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return fmt.Errorf("invalid webhook secret: %w", err)
	}

	signedContent := fmt.Sprintf("%s.%s.%s", msgID, timestamp, payload)
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(signedContent))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Split(signatureHeader, " ") {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(expected), []byte(parts[1])) {
			return nil
		}
	}

	return fmt.Errorf("invalid signature")
}
