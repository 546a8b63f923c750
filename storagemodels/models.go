/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AccountHashLength is the size in bytes of an account identifier.
const AccountHashLength = 32

// formattedAccountPrefix is accepted by ParseAccountHash in front of the hex form.
const formattedAccountPrefix = "account-hash-"

// AccountHash identifies an account. It is comparable and used only as a lookup key.
type AccountHash [AccountHashLength]byte

// String returns the canonical textual form: 64 lowercase hex characters.
func (a AccountHash) String() string {
	return hex.EncodeToString(a[:])
}

// Formatted returns the "account-hash-<hex>" form.
func (a AccountHash) Formatted() string {
	return formattedAccountPrefix + a.String()
}

// ParseAccountHash accepts either the canonical hex form or the formatted form.
func ParseAccountHash(s string) (AccountHash, error) {
	var a AccountHash
	s = strings.TrimPrefix(strings.TrimSpace(s), formattedAccountPrefix)
	if len(s) != 2*AccountHashLength {
		return a, fmt.Errorf("account hash must be %d hex characters, got %d", 2*AccountHashLength, len(s))
	}
	if strings.ToLower(s) != s {
		return a, fmt.Errorf("account hash must be lowercase hex")
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("decode account hash: %w", err)
	}
	return a, nil
}

// AccountHashFromPublicKey derives the account hash owned by key:
// blake2b-256(lower(algorithm name) || 0x00 || raw key bytes).
func AccountHashFromPublicKey(key PublicKey) AccountHash {
	name := strings.ToLower(key.Algorithm().String())
	preimage := make([]byte, 0, len(name)+1+len(key.raw))
	preimage = append(preimage, name...)
	preimage = append(preimage, 0)
	preimage = append(preimage, key.raw...)
	return AccountHash(blake2b.Sum256(preimage))
}

// Algorithm is the signature scheme tag of a PublicKey.
type Algorithm byte

const (
	AlgorithmEd25519   Algorithm = 0x01
	AlgorithmSecp256k1 Algorithm = 0x02
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmEd25519:
		return "ED25519"
	case AlgorithmSecp256k1:
		return "SECP256K1"
	default:
		return fmt.Sprintf("Algorithm(%d)", byte(a))
	}
}

// keyLength returns the raw key size for the algorithm, or 0 if unknown.
func (a Algorithm) keyLength() int {
	switch a {
	case AlgorithmEd25519:
		return 32
	case AlgorithmSecp256k1:
		return 33
	default:
		return 0
	}
}

// PublicKey is a guardian identity: an algorithm tag plus raw key bytes.
// The zero value is not a valid key.
type PublicKey struct {
	algorithm Algorithm
	raw       []byte
}

// NewPublicKey validates raw against the algorithm's key size and copies it.
func NewPublicKey(algorithm Algorithm, raw []byte) (PublicKey, error) {
	want := algorithm.keyLength()
	if want == 0 {
		return PublicKey{}, fmt.Errorf("unsupported key algorithm tag 0x%02x", byte(algorithm))
	}
	if len(raw) != want {
		return PublicKey{}, fmt.Errorf("%s key must be %d bytes, got %d", algorithm, want, len(raw))
	}
	return PublicKey{algorithm: algorithm, raw: bytes.Clone(raw)}, nil
}

// PublicKeyFromBytes parses the tagged form tag || raw.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) == 0 {
		return PublicKey{}, fmt.Errorf("empty public key")
	}
	return NewPublicKey(Algorithm(b[0]), b[1:])
}

// ParsePublicKey parses the lowercase hex of tag || raw.
func ParsePublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return PublicKey{}, fmt.Errorf("decode public key: %w", err)
	}
	return PublicKeyFromBytes(b)
}

// Algorithm returns the key's signature scheme.
func (k PublicKey) Algorithm() Algorithm {
	return k.algorithm
}

// Raw returns a copy of the untagged key bytes.
func (k PublicKey) Raw() []byte {
	return bytes.Clone(k.raw)
}

// Bytes returns the tagged form tag || raw.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, 0, 1+len(k.raw))
	out = append(out, byte(k.algorithm))
	return append(out, k.raw...)
}

// String returns the lowercase hex of the tagged form.
func (k PublicKey) String() string {
	return hex.EncodeToString(k.Bytes())
}

// Equal reports whether both keys have the same algorithm and raw bytes.
func (k PublicKey) Equal(other PublicKey) bool {
	return k.algorithm == other.algorithm && bytes.Equal(k.raw, other.raw)
}

// IsZero reports whether k is the zero value.
func (k PublicKey) IsZero() bool {
	return k.algorithm == 0 && len(k.raw) == 0
}

// MarshalText implements encoding.TextMarshaler.
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ContainsKey reports whether key is one of guardians.
func ContainsKey(guardians []PublicKey, key PublicKey) bool {
	for _, g := range guardians {
		if g.Equal(key) {
			return true
		}
	}
	return false
}
