// Package secrets encrypts environment variable values with age so the
// database only ever holds ciphertext. The API server needs the public key;
// the private key is only required where values must be read back out.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
)

var (
	// ErrNoPublicKey is returned when encryption is attempted without a public key.
	ErrNoPublicKey = errors.New("no public key configured for encryption")
	// ErrNoPrivateKey is returned when decryption is attempted without a private key.
	ErrNoPrivateKey = errors.New("no private key configured for decryption")
	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrEncryptionFailed is returned when encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrInvalidKey is returned when a key does not parse.
	ErrInvalidKey = errors.New("invalid key format")
)

// Service encrypts and decrypts environment variable values. Either side of
// the key pair may be absent; the corresponding operation then fails with a
// sentinel error.
type Service struct {
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	logger    *slog.Logger
}

// Config holds the age keys for the service.
type Config struct {
	// PublicKey encrypts values. Format: age1... (Bech32 encoded).
	PublicKey string
	// PrivateKey decrypts values. Format: AGE-SECRET-KEY-1... (Bech32 encoded).
	PrivateKey string
}

// NewService parses the configured keys. At least one key must be provided.
func NewService(cfg *Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PublicKey == "" && cfg.PrivateKey == "" {
		return nil, fmt.Errorf("%w: no keys configured", ErrInvalidKey)
	}

	svc := &Service{logger: logger}

	if cfg.PublicKey != "" {
		recipient, err := age.ParseX25519Recipient(cfg.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid public key: %v", ErrInvalidKey, err)
		}
		svc.recipient = recipient
	}

	if cfg.PrivateKey != "" {
		identity, err := age.ParseX25519Identity(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key: %v", ErrInvalidKey, err)
		}
		svc.identity = identity
	}

	return svc, nil
}

// Encrypt returns the age ciphertext of plaintext.
func (s *Service) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if s.recipient == nil {
		return nil, ErrNoPublicKey
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return buf.Bytes(), nil
}

// Decrypt returns the plaintext of an age ciphertext.
func (s *Service) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if s.identity == nil {
		return nil, ErrNoPrivateKey
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), s.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// EncryptVars encrypts every value in vars, keyed by variable name.
func (s *Service) EncryptVars(ctx context.Context, vars map[string]string) (map[string][]byte, error) {
	encrypted := make(map[string][]byte, len(vars))
	for name, value := range vars {
		ciphertext, err := s.Encrypt(ctx, []byte(value))
		if err != nil {
			return nil, fmt.Errorf("encrypt %s: %w", name, err)
		}
		encrypted[name] = ciphertext
	}
	return encrypted, nil
}

// DecryptVars decrypts every value in vars, keyed by variable name.
func (s *Service) DecryptVars(ctx context.Context, vars map[string][]byte) (map[string]string, error) {
	decrypted := make(map[string]string, len(vars))
	for name, ciphertext := range vars {
		plaintext, err := s.Decrypt(ctx, ciphertext)
		if err != nil {
			return nil, fmt.Errorf("decrypt %s: %w", name, err)
		}
		decrypted[name] = string(plaintext)
	}
	return decrypted, nil
}

// CanEncrypt reports whether a public key is configured.
func (s *Service) CanEncrypt() bool {
	return s.recipient != nil
}

// CanDecrypt reports whether a private key is configured.
func (s *Service) CanDecrypt() bool {
	return s.identity != nil
}

// GenerateKeyPair creates a fresh age key pair.
func GenerateKeyPair() (publicKey, privateKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate age key pair: %w", err)
	}
	return identity.Recipient().String(), identity.String(), nil
}
