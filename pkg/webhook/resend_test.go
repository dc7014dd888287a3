package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"
)

func sign(t *testing.T, secret, msgID, timestamp string, payload []byte) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(fmt.Sprintf("%s.%s.%s", msgID, timestamp, payload)))
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyResendSignature(t *testing.T) {
	rawSecret := base64.StdEncoding.EncodeToString([]byte("test-signing-key"))
	secret := "whsec_" + rawSecret
	payload := []byte(`{"type":"email.delivered","data":{"email_id":"abc"}}`)
	msgID := "msg_2KWPBgLlAfxdpx2AI54pPJ85f4W"
	ts := fmt.Sprintf("%d", time.Now().Unix())

	valid := sign(t, rawSecret, msgID, ts, payload)

	t.Run("valid signature", func(t *testing.T) {
		if err := VerifyResendSignature(secret, msgID, ts, valid, payload); err != nil {
			t.Errorf("expected valid signature, got error: %v", err)
		}
	})

	t.Run("multiple candidates", func(t *testing.T) {
		header := "v1,bogus " + valid
		if err := VerifyResendSignature(secret, msgID, ts, header, payload); err != nil {
			t.Errorf("expected one valid candidate to pass, got error: %v", err)
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		tampered := []byte(`{"type":"email.bounced"}`)
		if err := VerifyResendSignature(secret, msgID, ts, valid, tampered); err == nil {
			t.Error("expected error for tampered payload")
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		old := fmt.Sprintf("%d", time.Now().Add(-10*time.Minute).Unix())
		sig := sign(t, rawSecret, msgID, old, payload)
		if err := VerifyResendSignature(secret, msgID, old, sig, payload); err == nil {
			t.Error("expected error for stale timestamp")
		}
	})

	t.Run("missing headers", func(t *testing.T) {
		if err := VerifyResendSignature(secret, "", ts, valid, payload); err == nil {
			t.Error("expected error for missing message id")
		}
	})

	t.Run("empty secret skips verification", func(t *testing.T) {
		if err := VerifyResendSignature("", msgID, ts, "garbage", payload); err != nil {
			t.Errorf("expected skip with empty secret, got: %v", err)
		}
	})
}
