package crypto

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := New("master-secret", "salt-v1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	plaintext := "sk-live-abcdef0123456789"
	token, err := box.EncryptString(plaintext)
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}
	if strings.Contains(token, plaintext) {
		t.Error("token leaks plaintext")
	}

	got, err := box.DecryptString(token)
	if err != nil {
		t.Fatalf("DecryptString() error = %v", err)
	}
	if got != plaintext {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	box, err := New("master-secret", "salt-v1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, _ := box.EncryptString("same input")
	b, _ := box.EncryptString("same input")
	if a == b {
		t.Error("two encryptions of the same input must differ (random nonce)")
	}
}

func TestDecryptWrongSecret(t *testing.T) {
	box1, _ := New("secret-one", "salt")
	box2, _ := New("secret-two", "salt")

	token, err := box1.EncryptString("confidential")
	if err != nil {
		t.Fatalf("EncryptString() error = %v", err)
	}

	if _, err := box2.DecryptString(token); err == nil {
		t.Error("decryption with a different secret must fail")
	}
}

func TestDecryptGarbage(t *testing.T) {
	box, _ := New("secret", "salt")

	tests := []string{
		"not base64!!!",
		"",
		"QQ==", // valid base64, too short for a nonce
	}
	for _, input := range tests {
		if _, err := box.Decrypt(input); err == nil {
			t.Errorf("Decrypt(%q) expected error", input)
		}
	}
}

func TestEmptyMasterSecret(t *testing.T) {
	if _, err := New("", "salt"); err == nil {
		t.Error("New() with empty master secret must fail")
	}
}

func TestEncryptDecryptJSON(t *testing.T) {
	box, _ := New("secret", "salt")

	payload := map[string]string{
		"gemini_key": "AIza-test",
		"openai_key": "sk-test",
	}

	token, err := box.EncryptJSON(payload)
	if err != nil {
		t.Fatalf("EncryptJSON() error = %v", err)
	}

	var got map[string]string
	if err := box.DecryptJSON(token, &got); err != nil {
		t.Fatalf("DecryptJSON() error = %v", err)
	}
	if got["gemini_key"] != "AIza-test" || got["openai_key"] != "sk-test" {
		t.Errorf("DecryptJSON() = %v, want %v", got, payload)
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	b, _ := GenerateSecret(32)
	if a == b {
		t.Error("two generated secrets must differ")
	}

	// Non-positive length falls back to 32 bytes
	c, err := GenerateSecret(0)
	if err != nil {
		t.Fatalf("GenerateSecret(0) error = %v", err)
	}
	if c == "" {
		t.Error("GenerateSecret(0) returned empty secret")
	}
}
