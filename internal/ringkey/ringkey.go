// Package ringkey implements symmetric encryption of the gossip traffic. All
// members of a ring share the same key; datagrams and rumor batches sealed
// with a different key fail to open and are dropped.
//
// A sealed message has the following layout:
//
//	[version: 1 byte][nonce: 24 bytes][ciphertext+tag]
//
// The version byte and the key name are authenticated as additional data.
package ringkey

import (
	"bufio"
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// Version is prepended to every sealed message.
	Version byte = 0x01

	// Overhead is the number of bytes added by Seal.
	Overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

	// Size is the size of the secret in bytes.
	Size = chacha20poly1305.KeySize

	fileHeader = "SYM-SEC-1"
)

var (
	ErrTooShort       = errors.New("ringkey: message too short")
	ErrVersion        = errors.New("ringkey: unsupported message version")
	ErrInvalidKeyFile = errors.New("ringkey: invalid key file")
)

type Key struct {
	name   string
	secret []byte
	aead   cipher.AEAD
}

// New creates a ring key from its name and a 32 byte secret.
func New(name string, secret []byte) (*Key, error) {
	if name == "" {
		return nil, errors.New("ringkey: empty name")
	}

	aead, err := chacha20poly1305.NewX(secret)
	if err != nil {
		return nil, fmt.Errorf("ringkey: %w", err)
	}

	return &Key{
		name:   name,
		secret: append([]byte(nil), secret...),
		aead:   aead,
	}, nil
}

// Generate creates a new random ring key.
func Generate(name string) (*Key, error) {
	secret := make([]byte, Size)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("ringkey: failed to generate secret: %w", err)
	}

	return New(name, secret)
}

func (k *Key) Name() string {
	return k.name
}

func (k *Key) aad(version byte) []byte {
	aad := make([]byte, 0, 1+len(k.name))
	aad = append(aad, version)
	aad = append(aad, k.name...)

	return aad
}

// Seal encrypts the message.
func (k *Key) Seal(plaintext []byte) ([]byte, error) {
	out := make([]byte, 1+chacha20poly1305.NonceSizeX, Overhead+len(plaintext))
	out[0] = Version

	nonce := out[1 : 1+chacha20poly1305.NonceSizeX]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ringkey: failed to generate nonce: %w", err)
	}

	return k.aead.Seal(out, nonce, plaintext, k.aad(Version)), nil
}

// Open decrypts a message produced by Seal with the same key.
func (k *Key) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, ErrTooShort
	}

	if sealed[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, sealed[0])
	}

	nonce := sealed[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := sealed[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := k.aead.Open(nil, nonce, ciphertext, k.aad(sealed[0]))
	if err != nil {
		return nil, fmt.Errorf("ringkey: failed to open message: %w", err)
	}

	return plaintext, nil
}

// Marshal returns the key in the key file format:
//
//	SYM-SEC-1
//	<name>
//
//	<base64 secret>
func (k *Key) Marshal() []byte {
	var buf bytes.Buffer

	buf.WriteString(fileHeader + "\n")
	buf.WriteString(k.name + "\n\n")
	buf.WriteString(base64.StdEncoding.EncodeToString(k.secret))
	buf.WriteString("\n")

	return buf.Bytes()
}

// Parse reads a key in the format produced by Marshal.
func Parse(data []byte) (*Key, error) {
	var lines []string

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}

	if len(lines) < 4 || lines[0] != fileHeader || lines[2] != "" {
		return nil, ErrInvalidKeyFile
	}

	secret, err := base64.StdEncoding.DecodeString(lines[3])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}

	return New(lines[1], secret)
}
