package pushbullet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// End-to-end payload layout after base64 decoding: one version byte,
// a 16-byte auth tag, a 12-byte IV, then the ciphertext. The key is
// PBKDF2-HMAC-SHA256 over the passphrase with the account iden as salt.
const (
	cipherVersion   = '1'
	tagSize         = 16
	ivSize          = 12
	keySize         = 32
	kdfIterations   = 30000
	minCipherLength = 1 + tagSize + ivSize
)

// Decrypt decodes and decrypts one encrypted push payload. Calling it
// with no configured passphrase is a configuration error surfaced here,
// not at startup.
func (a *Account) Decrypt(ciphertext string) ([]byte, error) {
	if a.password == "" {
		return nil, fmt.Errorf("no encryption password configured")
	}
	if err := a.deriveKey(); err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %v", err)
	}
	if len(raw) < minCipherLength {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(raw))
	}
	if raw[0] != cipherVersion {
		return nil, fmt.Errorf("unsupported encryption version %q", raw[0])
	}
	tag := raw[1 : 1+tagSize]
	iv := raw[1+tagSize : 1+tagSize+ivSize]
	sealed := raw[1+tagSize+ivSize:]

	block, err := aes.NewCipher(a.key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %v", err)
	}

	// GCM wants ciphertext||tag, the wire format carries the tag first.
	combined := make([]byte, 0, len(sealed)+tagSize)
	combined = append(combined, sealed...)
	combined = append(combined, tag...)

	plain, err := gcm.Open(nil, iv, combined, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt push: %v", err)
	}
	return plain, nil
}

// deriveKey fetches the account iden on first use and derives the
// symmetric key from the passphrase.
func (a *Account) deriveKey() error {
	if a.key != nil {
		return nil
	}
	if a.userIden == "" {
		iden, err := a.fetchUserIden()
		if err != nil {
			return fmt.Errorf("failed to fetch account iden for key derivation: %v", err)
		}
		a.userIden = iden
	}
	a.key = pbkdf2.Key([]byte(a.password), []byte(a.userIden), kdfIterations, keySize, sha256.New)
	return nil
}
