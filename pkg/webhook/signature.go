package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
)

// VerifySignature verifies the voice provider's webhook HMAC signature.
// The provider sends the signature in the X-Twilio-Signature header.
// The signed payload is the full request URL followed by every POST
// parameter name and value concatenated in name order.
// If secret is empty, verification is skipped (for development/testing).
func VerifySignature(secret, requestURL string, formValues url.Values, signature string) error {
	if secret == "" {
		return nil
	}

	if signature == "" {
		return fmt.Errorf("signature header missing")
	}

	var keys []string
	for k := range formValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := requestURL
	for _, k := range keys {
		for _, v := range formValues[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// Constant-time comparison
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}

	return nil
}
