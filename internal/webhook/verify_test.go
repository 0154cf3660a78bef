package webhook

import (
	"encoding/base64"
	"testing"
)

func TestVerify_RoundTrip(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":123,"total_price":"150.00"}`)

	sig := Sign(secret, body)
	if !Verify(secret, body, sig) {
		t.Fatalf("expected signature to verify")
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":123}`)
	sig := Sign(secret, body)

	for i := range body {
		tampered := append([]byte(nil), body...)
		tampered[i] ^= 0x01
		if Verify(secret, tampered, sig) {
			t.Fatalf("expected verification to fail with byte %d flipped", i)
		}
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	secret := "shpss_test_secret"
	body := []byte(`{"id":123}`)

	raw, err := base64.StdEncoding.DecodeString(Sign(secret, body))
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	for i := range raw {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		if Verify(secret, body, base64.StdEncoding.EncodeToString(tampered)) {
			t.Fatalf("expected verification to fail with signature byte %d flipped", i)
		}
	}
}

func TestVerify_Rejects(t *testing.T) {
	body := []byte(`{}`)
	cases := []struct {
		name   string
		secret string
		sig    string
	}{
		{"empty signature", "secret", ""},
		{"empty secret", "", Sign("secret", body)},
		{"not base64", "secret", "!!not-base64!!"},
		{"wrong length", "secret", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"wrong secret", "secret", Sign("other", body)},
	}
	for _, tc := range cases {
		if Verify(tc.secret, body, tc.sig) {
			t.Fatalf("%s: expected verification to fail", tc.name)
		}
	}
}
