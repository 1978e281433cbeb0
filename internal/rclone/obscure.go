package rclone

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// obscureKey is rclone's fixed, publicly known obscuring key. Tokens produced
// here are interchangeable with `rclone obscure` output; this is format
// compatibility, not secrecy.
var obscureKey = []byte{
	0x9c, 0x93, 0x5b, 0x48, 0x73, 0x0a, 0x55, 0x4d,
	0x6b, 0xfd, 0x7c, 0x63, 0xc8, 0x86, 0xa9, 0x2b,
	0xd3, 0x90, 0x19, 0x8e, 0xb8, 0x12, 0x8a, 0xfb,
	0xf4, 0xde, 0x16, 0x2b, 0x8b, 0x95, 0xf6, 0x38,
}

// Obscure encrypts plaintext with AES-CTR under the fixed key, prefixes the
// random IV, and encodes the result as unpadded base64url. Two calls with the
// same input produce different tokens; both reveal to the same plaintext.
func Obscure(plaintext string) (string, error) {
	block, err := aes.NewCipher(obscureKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	buf := make([]byte, aes.BlockSize+len(plaintext))
	iv := buf[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(buf[aes.BlockSize:], []byte(plaintext))

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Reveal inverts Obscure. The tool performs its own reveal when reading the
// generated config; this side only needs it for diagnostics and tests.
func Reveal(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid obscured token: %w", err)
	}
	if len(raw) < aes.BlockSize {
		return "", fmt.Errorf("invalid obscured token: too short")
	}

	block, err := aes.NewCipher(obscureKey)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(plain, ciphertext)

	return string(plain), nil
}
