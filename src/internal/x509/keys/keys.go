// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/cfssl/helpers"
)

// MinBits is the smallest modulus accepted by the digital cinema profile.
const MinBits = 2048

// DefaultBits is the modulus size used by the reference profile.
const DefaultBits = 2048

const pemBlockType = "RSA PRIVATE KEY"

var (
	// ErrKeySize indicates that the requested modulus is below [MinBits].
	ErrKeySize = errors.New("keys: key size below profile minimum")

	// ErrGenerate indicates that the key pair could not be generated.
	ErrGenerate = errors.New("keys: failed to generate RSA key")

	// ErrParseKey indicates that the PEM data does not hold a usable private key.
	ErrParseKey = errors.New("keys: failed to parse private key")

	// ErrNotRSA indicates that the private key is not an RSA key.
	ErrNotRSA = errors.New("keys: private key is not RSA")
)

// KeyPair is an RSA private/public key pair owned by a single tier.
type KeyPair struct {
	Private *rsa.PrivateKey
}

// Generate produces a new RSA key pair with the given modulus size using crypto/rand.
func Generate(bits int) (*KeyPair, error) {
	return GenerateWithReader(rand.Reader, bits)
}

// GenerateWithReader produces a new RSA key pair reading entropy from r.
//
// Parameters:
//   - r: Entropy source
//   - bits: Modulus size, at least [MinBits]
//
// Returns:
//   - *KeyPair: Generated key pair
//   - error: [ErrKeySize] or a wrapped [ErrGenerate]
func GenerateWithReader(r io.Reader, bits int) (*KeyPair, error) {
	if bits < MinBits {
		return nil, fmt.Errorf("%w: %d < %d", ErrKeySize, bits, MinBits)
	}

	priv, err := rsa.GenerateKey(r, bits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerate, err)
	}

	return &KeyPair{Private: priv}, nil
}

// Public returns the public half of the key pair.
func (kp *KeyPair) Public() *rsa.PublicKey { return &kp.Private.PublicKey }

// Bits returns the modulus size in bits.
func (kp *KeyPair) Bits() int { return kp.Private.N.BitLen() }

// EncodePEM encodes the private key as a PKCS#1 PEM block.
func (kp *KeyPair) EncodePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemBlockType,
		Bytes: x509.MarshalPKCS1PrivateKey(kp.Private),
	})
}

// ParsePEM decodes a PEM encoded RSA private key in PKCS#1 or PKCS#8 form.
func ParsePEM(data []byte) (*KeyPair, error) {
	signer, err := helpers.ParsePrivateKeyPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseKey, err)
	}

	priv, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrNotRSA
	}

	return &KeyPair{Private: priv}, nil
}
