package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"testing"
)

func sign(secret, requestURL string, formValues url.Values) string {
	payload := requestURL
	keys := make([]string, 0, len(formValues))
	for k := range formValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range formValues[k] {
			payload += k + v
		}
	}
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureValid(t *testing.T) {
	form := url.Values{
		"CallSid":      {"CA100"},
		"SpeechResult": {"sou cabeleireira"},
		"Digits":       {""},
	}
	requestURL := "https://agent.example.com/voice/turn"

	// Known-good vector for secret "test-secret".
	if err := VerifySignature("test-secret", requestURL, form, "/axXDgp4eSMf754y6DuJlWxBtJc="); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// The helper must agree with the verifier for arbitrary inputs.
	form2 := url.Values{
		"CallSid":    {"CA200"},
		"CallStatus": {"completed"},
	}
	sig := sign("test-secret", "https://agent.example.com/voice/status", form2)
	if err := VerifySignature("test-secret", "https://agent.example.com/voice/status", form2, sig); err != nil {
		t.Fatalf("computed signature rejected: %v", err)
	}
}

func TestVerifySignatureInvalid(t *testing.T) {
	form := url.Values{"CallSid": {"CA100"}}
	requestURL := "https://agent.example.com/voice/turn"

	if err := VerifySignature("test-secret", requestURL, form, "bogus"); err == nil {
		t.Fatal("bogus signature accepted")
	}

	// Tampered parameter invalidates a previously valid signature.
	sig := sign("test-secret", requestURL, form)
	form.Set("CallSid", "CA999")
	if err := VerifySignature("test-secret", requestURL, form, sig); err == nil {
		t.Fatal("tampered payload accepted")
	}

	// Wrong secret.
	sig = sign("other-secret", requestURL, form)
	if err := VerifySignature("test-secret", requestURL, form, sig); err == nil {
		t.Fatal("signature under the wrong secret accepted")
	}
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	if err := VerifySignature("test-secret", "https://x/voice/turn", url.Values{}, ""); err == nil {
		t.Fatal("missing signature accepted")
	}
}

func TestVerifySignatureSkippedWithoutSecret(t *testing.T) {
	if err := VerifySignature("", "https://x/voice/turn", url.Values{}, ""); err != nil {
		t.Fatalf("empty secret should skip verification: %v", err)
	}
}
