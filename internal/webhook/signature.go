package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StripeTolerance is the replay-attack window for Stripe signatures.
const StripeTolerance = 300 * time.Second

var (
	// ErrSignatureMismatch means the computed HMAC does not match the header.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrSignatureFormat means the signature header could not be parsed.
	ErrSignatureFormat = errors.New("malformed signature header")
	// ErrTimestampTooOld means a Stripe signature fell outside the replay window.
	ErrTimestampTooOld = errors.New("signature timestamp outside tolerance")
)

// VerifyShopify checks the x-shopify-hmac-sha256 header: base64-encoded
// HMAC-SHA256 over the raw body with the app's shared secret.
func VerifyShopify(body []byte, secret, header string) bool {
	return verifyBase64HMAC(body, secret, header)
}

// VerifyWooCommerce checks the x-wc-webhook-signature header: base64-encoded
// HMAC-SHA256 over the raw body with the per-connector secret.
func VerifyWooCommerce(body []byte, secret, header string) bool {
	return verifyBase64HMAC(body, secret, header)
}

func verifyBase64HMAC(body []byte, secret, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

// VerifyStripe checks a stripe-signature header of the form
// "t=<timestamp>,v1=<hexhmac>[,v1=...]": hex HMAC-SHA256 over
// "<timestamp>.<rawBody>", with the timestamp required to be within
// tolerance of now.
func VerifyStripe(body []byte, secret, header string, now time.Time, tolerance time.Duration) error {
	if header == "" {
		return ErrSignatureFormat
	}

	var ts int64
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrSignatureFormat)
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrSignatureFormat
	}

	age := now.Sub(time.Unix(ts, 0))
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return ErrTimestampTooOld
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrSignatureMismatch
}
