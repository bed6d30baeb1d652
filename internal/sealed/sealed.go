// Package sealed encrypts service config and file payloads to a set of age
// X25519 recipients, so that only members holding one of the identities can
// read them while the ring gossips the ciphertext around.
package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

var (
	ErrNoRecipients = errors.New("sealed: at least one recipient is required")
)

// GenerateIdentity returns a new private key (AGE-SECRET-KEY-1...) and its
// public key (age1...).
func GenerateIdentity() (privateKey, publicKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("sealed: failed to generate identity: %w", err)
	}

	return identity.String(), identity.Recipient().String(), nil
}

// Encrypt encrypts the plaintext to every recipient public key.
func Encrypt(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, ErrNoRecipients
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))

	for _, key := range recipientKeys {
		r, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("sealed: invalid recipient %q: %w", key, err)
		}

		recipients = append(recipients, r)
	}

	var buf bytes.Buffer

	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to create encryptor: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: failed to encrypt: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sealed: failed to encrypt: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts a ciphertext produced by Encrypt using the private key.
func Decrypt(ciphertext []byte, privateKey string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sealed: invalid private key: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to decrypt: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sealed: failed to decrypt: %w", err)
	}

	return plaintext, nil
}
