package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

func base64Signature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func stripeSignature(body []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyShopify(t *testing.T) {
	body := []byte(`{"id":1001}`)
	secret := "shpss_test"

	if !VerifyShopify(body, secret, base64Signature(body, secret)) {
		t.Error("valid signature rejected")
	}
	if VerifyShopify(body, secret, base64Signature(body, "other-secret")) {
		t.Error("wrong-secret signature accepted")
	}
	if VerifyShopify([]byte(`{"id":1002}`), secret, base64Signature(body, secret)) {
		t.Error("signature over different body accepted")
	}
	if VerifyShopify(body, secret, "") {
		t.Error("empty header accepted")
	}
	if VerifyShopify(body, "", base64Signature(body, "")) {
		t.Error("empty secret accepted")
	}
}

func TestVerifyWooCommerce(t *testing.T) {
	body := []byte(`{"id":42,"status":"completed"}`)
	secret := "wc-connector-secret"

	if !VerifyWooCommerce(body, secret, base64Signature(body, secret)) {
		t.Error("valid signature rejected")
	}
	if VerifyWooCommerce(body, secret, "not-base64-hmac") {
		t.Error("garbage header accepted")
	}
}

func TestVerifyStripe(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	secret := "whsec_test"
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, stripeSignature(body, secret, ts))
	if err := VerifyStripe(body, secret, header, now, StripeTolerance); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
}

func TestVerifyStripeMultipleV1(t *testing.T) {
	// Stripe sends multiple v1 entries during secret rotation. One match
	// is enough.
	body := []byte(`{"id":"evt_2"}`)
	secret := "whsec_new"
	now := time.Now()
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s,v1=%s",
		ts, stripeSignature(body, "whsec_old", ts), stripeSignature(body, secret, ts))
	if err := VerifyStripe(body, secret, header, now, StripeTolerance); err != nil {
		t.Errorf("rotated signature rejected: %v", err)
	}
}

func TestVerifyStripeMismatch(t *testing.T) {
	body := []byte(`{"id":"evt_3"}`)
	now := time.Now()
	ts := now.Unix()

	header := fmt.Sprintf("t=%d,v1=%s", ts, stripeSignature(body, "whsec_wrong", ts))
	err := VerifyStripe(body, "whsec_right", header, now, StripeTolerance)
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Errorf("got %v, want ErrSignatureMismatch", err)
	}
}

func TestVerifyStripeTimestampTolerance(t *testing.T) {
	body := []byte(`{"id":"evt_4"}`)
	secret := "whsec_test"
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   int64
		want error
	}{
		{"at tolerance edge", now.Add(-StripeTolerance).Unix(), nil},
		{"just past tolerance", now.Add(-StripeTolerance - time.Second).Unix(), ErrTimestampTooOld},
		{"future beyond tolerance", now.Add(StripeTolerance + time.Second).Unix(), ErrTimestampTooOld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := fmt.Sprintf("t=%d,v1=%s", tt.ts, stripeSignature(body, secret, tt.ts))
			err := VerifyStripe(body, secret, header, now, StripeTolerance)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyStripeMalformedHeader(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()

	for _, header := range []string{
		"",
		"v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		"t=notanumber,v1=deadbeef",
	} {
		err := VerifyStripe(body, "whsec_test", header, now, StripeTolerance)
		if !errors.Is(err, ErrSignatureFormat) {
			t.Errorf("header %q: got %v, want ErrSignatureFormat", header, err)
		}
	}
}
