package secrets

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	publicKey, privateKey, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc, err := NewService(&Config{PublicKey: publicKey, PrivateKey: privateKey}, logger)
	if err != nil {
		t.Fatalf("failed to create secrets service: %v", err)
	}
	return svc
}

func TestEncryptionRoundTrip(t *testing.T) {
	svc := newTestService(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("encrypt then decrypt returns the original value", prop.ForAll(
		func(plaintext []byte) bool {
			ctx := context.Background()

			ciphertext, err := svc.Encrypt(ctx, plaintext)
			if err != nil {
				t.Logf("encryption failed: %v", err)
				return false
			}
			decrypted, err := svc.Decrypt(ctx, ciphertext)
			if err != nil {
				t.Logf("decryption failed: %v", err)
				return false
			}
			return bytes.Equal(plaintext, decrypted)
		},
		gen.SliceOf(gen.UInt8()).Map(func(vals []uint8) []byte {
			result := make([]byte, len(vals))
			for i, v := range vals {
				result[i] = byte(v)
			}
			return result
		}),
	))

	properties.Property("ciphertext differs from non-empty plaintext", prop.ForAll(
		func(plaintext []byte) bool {
			ciphertext, err := svc.Encrypt(context.Background(), plaintext)
			if err != nil {
				return false
			}
			return !bytes.Equal(plaintext, ciphertext)
		},
		gen.SliceOfN(16, gen.UInt8()).Map(func(vals []uint8) []byte {
			result := make([]byte, len(vals))
			for i, v := range vals {
				result[i] = byte(v)
			}
			return result
		}),
	))

	properties.TestingRun(t)
}

func TestVarsRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	vars := map[string]string{
		"DATABASE_URL": "postgres://localhost/app",
		"API_KEY":      "sk_live_abc123",
		"EMPTY":        "",
	}

	encrypted, err := svc.EncryptVars(ctx, vars)
	if err != nil {
		t.Fatalf("EncryptVars failed: %v", err)
	}
	if len(encrypted) != len(vars) {
		t.Fatalf("encrypted %d vars, want %d", len(encrypted), len(vars))
	}
	for name, ciphertext := range encrypted {
		if string(ciphertext) == vars[name] && vars[name] != "" {
			t.Errorf("variable %s stored in plaintext", name)
		}
	}

	decrypted, err := svc.DecryptVars(ctx, encrypted)
	if err != nil {
		t.Fatalf("DecryptVars failed: %v", err)
	}
	for name, want := range vars {
		if decrypted[name] != want {
			t.Errorf("variable %s = %q after round trip, want %q", name, decrypted[name], want)
		}
	}
}

func TestEncryptOnlyService(t *testing.T) {
	publicKey, _, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("failed to generate key pair: %v", err)
	}

	svc, err := NewService(&Config{PublicKey: publicKey}, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if !svc.CanEncrypt() || svc.CanDecrypt() {
		t.Fatalf("encrypt-only service capabilities wrong: encrypt=%v decrypt=%v", svc.CanEncrypt(), svc.CanDecrypt())
	}

	ciphertext, err := svc.Encrypt(context.Background(), []byte("secret"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if _, err := svc.Decrypt(context.Background(), ciphertext); !errors.Is(err, ErrNoPrivateKey) {
		t.Fatalf("Decrypt err = %v, want ErrNoPrivateKey", err)
	}
}

func TestServiceRequiresAKey(t *testing.T) {
	if _, err := NewService(&Config{}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("NewService with no keys err = %v, want ErrInvalidKey", err)
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	if _, err := NewService(&Config{PublicKey: "not-a-key"}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("invalid public key err = %v, want ErrInvalidKey", err)
	}
	if _, err := NewService(&Config{PrivateKey: "not-a-key"}, nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("invalid private key err = %v, want ErrInvalidKey", err)
	}
}
