package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize = 32
	ivSize   = 16
	keySize  = 32

	// scrypt cost parameters. Deliberately slow and memory-hard so a
	// leaked ciphertext cannot be brute-forced cheaply.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var (
	// ErrInvalidFormat means the blob is not salt:iv:ciphertext hex segments.
	ErrInvalidFormat = errors.New("invalid encrypted format")
	// ErrDecryptFailed means authentication or decryption failed (wrong
	// key, or the blob was tampered with).
	ErrDecryptFailed = errors.New("decryption failed")
)

// Engine encrypts and decrypts credential strings. Every Encrypt call
// derives a fresh key from the master secret and a random salt, so no
// two encryptions reuse a key or produce the same blob.
type Engine struct {
	masterSecret []byte
}

// New returns an Engine for the given master secret. The secret must be
// non-empty; config.Load guarantees a real value in production.
func New(masterSecret string) (*Engine, error) {
	if masterSecret == "" {
		return nil, errors.New("crypto: master secret is required")
	}
	return &Engine{masterSecret: []byte(masterSecret)}, nil
}

func (e *Engine) deriveKey(salt []byte) ([]byte, error) {
	return scrypt.Key(e.masterSecret, salt, scryptN, scryptR, scryptP, keySize)
}

// Encrypt returns hex(salt):hex(iv):hex(ciphertext). The blob is
// self-describing: decryption needs only the blob and the master secret.
func (e *Engine) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("crypto: failed to generate iv: %w", err)
	}

	key, err := e.deriveKey(salt)
	if err != nil {
		return "", fmt.Errorf("crypto: key derivation failed: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, iv, []byte(plaintext), nil)

	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Any segment count other than three is a
// format error; a tampered ciphertext fails authentication rather than
// decrypting to garbage.
func (e *Engine) Decrypt(blob string) (string, error) {
	parts := strings.Split(blob, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("crypto: %w: expected 3 segments, got %d", ErrInvalidFormat, len(parts))
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) != saltSize {
		return "", fmt.Errorf("crypto: %w: bad salt segment", ErrInvalidFormat)
	}
	iv, err := hex.DecodeString(parts[1])
	if err != nil || len(iv) != ivSize {
		return "", fmt.Errorf("crypto: %w: bad iv segment", ErrInvalidFormat)
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("crypto: %w: bad ciphertext segment", ErrInvalidFormat)
	}

	key, err := e.deriveKey(salt)
	if err != nil {
		return "", fmt.Errorf("crypto: key derivation failed: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: %w", ErrDecryptFailed)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return gcm, nil
}

const maskMarker = "••••••••"

// Mask returns a display-only redacted form of s: first four and last
// four characters around a fixed marker. Strings of eight characters or
// fewer are returned unchanged. Masked values must never be persisted.
func Mask(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:4] + maskMarker + s[len(s)-4:]
}
