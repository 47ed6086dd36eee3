// Package codec renders display fields of waste items that ingestion may
// have stored encrypted.
//
// Encrypted values are stored as "enc:v1:<base64(nonce+ciphertext)>" and
// coexist with plaintext values.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/hkdf"
)

const prefix = "enc:v1:"

// Decoder is what read paths need from the codec.
type Decoder interface {
	Decrypt(stored string) (string, error)
}

// FieldCodec encrypts and decrypts string fields with AES-256-GCM. Safe for
// concurrent use.
type FieldCodec struct {
	gcm cipher.AEAD
}

// New derives the field key from masterSecret with HKDF-SHA256.
func New(masterSecret []byte) (*FieldCodec, error) {
	if len(masterSecret) == 0 {
		return nil, errors.New("codec: empty master secret")
	}
	r := hkdf.New(sha256.New, masterSecret, []byte("ecosort-field-encryption"), []byte("waste-display"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("codec: hkdf: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return &FieldCodec{gcm: gcm}, nil
}

func (c *FieldCodec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("codec: nonce: %w", err)
	}
	sealed := c.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt returns plaintext values unchanged.
func (c *FieldCodec) Decrypt(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return stored, nil
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil {
		return "", fmt.Errorf("codec: invalid base64: %w", err)
	}
	n := c.gcm.NonceSize()
	if len(data) < n {
		return "", errors.New("codec: ciphertext too short")
	}
	plain, err := c.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("codec: decrypt: %w", err)
	}
	return string(plain), nil
}

func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, prefix)
}

// Plain is the decoder used when no master secret is configured. Encrypted
// values cannot be read and render as absent.
type Plain struct{}

func (Plain) Decrypt(stored string) (string, error) {
	if IsEncrypted(stored) {
		return "", errors.New("codec: no key configured")
	}
	return stored, nil
}

// Field decodes one stored value. Empty or undecryptable values yield nil.
func Field(d Decoder, stored string) *string {
	if stored == "" {
		return nil
	}
	if d == nil {
		d = Plain{}
	}
	v, err := d.Decrypt(stored)
	if err != nil || v == "" {
		return nil
	}
	return &v
}

// Number decodes a numeric display value such as a confidence score.
func Number(d Decoder, stored string) *decimal.Decimal {
	s := Field(d, stored)
	if s == nil {
		return nil
	}
	v, err := decimal.NewFromString(strings.TrimSpace(*s))
	if err != nil {
		return nil
	}
	return &v
}
