// Package cryptox handles at-rest encryption of hosting access tokens.
// Keys are derived from the server secret with argon2id using a per-user
// random salt, and payloads are sealed with AES-GCM.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

const (
	nonceSize = 12
	saltSize  = 16
	keySize   = 32
)

var ErrDecryptFailed = errors.New("decrypt failed")

// Box seals and opens credential strings with a key derived from the
// server secret and a per-record salt.
type Box struct {
	secret []byte
}

func NewBox(secret string) *Box {
	return &Box{secret: []byte(secret)}
}

func deriveKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, keySize)
}

// Seal encrypts plaintext and returns the ciphertext together with the
// freshly generated nonce and salt. All three must be stored to open the
// payload later.
func (b *Box) Seal(plaintext string) (ciphertext, nonce, salt []byte, err error) {
	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, nil, err
	}

	nonce = make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, err
	}

	block, err := aes.NewCipher(deriveKey(b.secret, salt))
	if err != nil {
		return nil, nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, salt, nil
}

// Open decrypts a payload sealed by Seal. A tampered ciphertext, a wrong
// secret or mismatched salt/nonce all surface as ErrDecryptFailed.
func (b *Box) Open(ciphertext, nonce, salt []byte) (string, error) {
	if len(nonce) != nonceSize || len(salt) == 0 {
		return "", ErrDecryptFailed
	}

	block, err := aes.NewCipher(deriveKey(b.secret, salt))
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}

	return string(plaintext), nil
}
