package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Credential blobs sit on disk next to the database; tokens grant write
// access to league spreadsheets, so they are sealed with AES-256-GCM under
// an argon2id key derived from the configured passphrase.
const (
	blobMagic = "SKCRED1\x00"

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	keyLength    = 32
	saltLength   = 32
)

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyLength)
}

// seal encrypts plaintext as magic + salt + nonce + ciphertext.
func seal(plaintext []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(blobMagic)+saltLength+len(nonce)+len(plaintext)+gcm.Overhead())
	out = append(out, blobMagic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

// open decrypts a sealed blob.
func open(blob []byte, passphrase string) ([]byte, error) {
	if len(blob) < len(blobMagic)+saltLength {
		return nil, fmt.Errorf("credential blob too short")
	}
	if string(blob[:len(blobMagic)]) != blobMagic {
		return nil, fmt.Errorf("not a credential blob")
	}
	blob = blob[len(blobMagic):]

	salt := blob[:saltLength]
	blob = blob[saltLength:]

	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	if len(blob) < gcm.NonceSize() {
		return nil, fmt.Errorf("credential blob truncated")
	}

	plaintext, err := gcm.Open(nil, blob[:gcm.NonceSize()], blob[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential blob: %w", err)
	}
	return plaintext, nil
}
