package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/sessiontable/pkg/domain"
	"github.com/aretw0/sessiontable/pkg/ports"
)

// EnvelopeKey holds the base64 ciphertext inside an encrypted payload.
const EnvelopeKey = "__encrypted__"

// ErrInvalidKey is returned when a key is not 32 bytes long.
var ErrInvalidKey = errors.New("encryption key must be 32 bytes (AES-256)")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	passthrough
	config EncryptionConfig
}

// NewEncryptionMiddleware creates a middleware that encrypts payloads using AES-GCM (Envelope Encryption).
//
// The stored envelope keeps the max-age hint in clear text so the wrapped store
// still computes the right expiration.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, ErrInvalidKey
	}
	for _, k := range config.FallbackKeys {
		if len(k) != 32 {
			return nil, ErrInvalidKey
		}
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			passthrough: passthrough{next: next},
			config:      config,
		}
	}, nil
}

func (m *encryptionMiddleware) Set(ctx context.Context, sessionID string, payload domain.Payload) error {
	envelope, err := m.seal(payload)
	if err != nil {
		return err
	}
	return m.next.Set(ctx, sessionID, envelope)
}

func (m *encryptionMiddleware) Get(ctx context.Context, sessionID string) (domain.Payload, error) {
	envelope, err := m.next.Get(ctx, sessionID)
	if err != nil || envelope == nil {
		return nil, err
	}

	payload, err := m.open(envelope)
	if err != nil {
		return nil, domain.NewError("get", domain.KindSerialization, err)
	}
	return payload, nil
}

func (m *encryptionMiddleware) All(ctx context.Context) ([]domain.Payload, error) {
	envelopes, err := m.next.All(ctx)
	if err != nil {
		return nil, err
	}

	payloads := make([]domain.Payload, 0, len(envelopes))
	for _, envelope := range envelopes {
		payload, err := m.open(envelope)
		if err != nil {
			return nil, domain.NewError("all", domain.KindSerialization, err)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// seal serializes and encrypts payload into an opaque envelope.
func (m *encryptionMiddleware) seal(payload domain.Payload) (domain.Payload, error) {
	if err := payload.Validate(); err != nil {
		return nil, domain.NewError("set", domain.KindInvalidArgument, err)
	}

	maxAge, hasMaxAge, err := payload.MaxAge()
	if err != nil {
		return nil, domain.NewError("set", domain.KindInvalidArgument, err)
	}

	plainText, err := payload.Marshal()
	if err != nil {
		return nil, domain.NewError("set", domain.KindSerialization, err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, domain.NewError("set", domain.KindSerialization, fmt.Errorf("failed to encrypt payload: %w", err))
	}

	envelope := domain.Payload{
		EnvelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	if hasMaxAge {
		envelope[domain.MaxAgeKey] = maxAge
	}
	return envelope, nil
}

func (m *encryptionMiddleware) open(envelope domain.Payload) (domain.Payload, error) {
	encryptedStr, ok := envelope[EnvelopeKey].(string)
	if !ok {
		// Fail secure: plain payloads are never returned once encryption is on.
		return nil, errors.New("payload is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt payload: %w", err)
	}

	return domain.UnmarshalPayload(plainText)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
