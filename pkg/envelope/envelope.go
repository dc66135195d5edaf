// Copyright 2026 © The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package envelope seals serialized audit records with deterministic
// symmetric encryption plus an integrity digest. The id and timestamp
// stay in the clear so indexing never needs the key.
package envelope

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/jllopis/agora/pkg/errors"
)

const hkdfInfo = "agora-envelope-v1"

// Envelope is the persisted form of an encrypted record. Hash is the
// hex SHA-256 of the plaintext, Data the base64 ciphertext.
type Envelope struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Encrypted bool      `json:"encrypted"`
	Hash      string    `json:"hash"`
	Data      string    `json:"data"`
}

// Sealer encrypts and decrypts envelopes under a key supplied by a
// KeyProvider. Key and nonce are both derived from the provider's
// secret, so sealing is deterministic for a given secret and plaintext.
type Sealer struct {
	keys KeyProvider
}

// NewSealer creates a Sealer backed by the given key provider.
func NewSealer(keys KeyProvider) *Sealer {
	return &Sealer{keys: keys}
}

// Seal encrypts plaintext and returns the envelope carrying id and
// timestamp in the clear.
func (s *Sealer) Seal(id string, timestamp time.Time, plaintext []byte) (Envelope, error) {
	aead, nonce, err := s.cipher()
	if err != nil {
		return Envelope{}, err
	}
	digest := sha256.Sum256(plaintext)
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return Envelope{
		ID:        id,
		Timestamp: timestamp,
		Encrypted: true,
		Hash:      hex.EncodeToString(digest[:]),
		Data:      base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open decrypts an envelope and verifies the integrity digest over the
// recovered plaintext. Any mismatch fails closed: no partially
// decrypted content is ever returned.
func (s *Sealer) Open(env Envelope) ([]byte, error) {
	aead, nonce, err := s.cipher()
	if err != nil {
		return nil, err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, errors.New(errors.CodeIntegrity, "malformed envelope data", err).
			WithContext("id", env.ID)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New(errors.CodeIntegrity, "decryption failed: wrong key or tampered ciphertext", nil).
			WithContext("id", env.ID)
	}
	digest := sha256.Sum256(plaintext)
	if hex.EncodeToString(digest[:]) != env.Hash {
		return nil, errors.New(errors.CodeIntegrity, "integrity digest mismatch", nil).
			WithContext("id", env.ID)
	}
	return plaintext, nil
}

// cipher derives the AEAD and nonce from the current secret via
// HKDF-SHA256.
func (s *Sealer) cipher() (cipher.AEAD, []byte, error) {
	secret, err := s.keys.CurrentKey()
	if err != nil {
		return nil, nil, err
	}
	reader := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo))
	material := make([]byte, chacha20poly1305.KeySize+chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(reader, material); err != nil {
		return nil, nil, errors.New(errors.CodeInternal, "key derivation failed", err)
	}
	aead, err := chacha20poly1305.New(material[:chacha20poly1305.KeySize])
	if err != nil {
		return nil, nil, errors.New(errors.CodeInternal, "cipher construction failed", err)
	}
	return aead, material[chacha20poly1305.KeySize:], nil
}
