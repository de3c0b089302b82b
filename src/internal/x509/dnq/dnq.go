// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package dnq

import (
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ReferenceHeaderLen is the SubjectPublicKeyInfo header length of a 2048-bit RSA key.
const ReferenceHeaderLen = 24

// EncodedLen is the length of a derived qualifier (base64 of a 20 byte digest).
const EncodedLen = 28

// OID is the dnQualifier attribute type (id-at-dnQualifier).
var OID = asn1.ObjectIdentifier{2, 5, 4, 46}

var (
	// ErrMalformedKey indicates that the public key could not be encoded or its encoding
	// does not have the SubjectPublicKeyInfo shape.
	ErrMalformedKey = errors.New("dnq: malformed public key encoding")

	// ErrMissing indicates that a certificate subject carries no dnQualifier.
	ErrMissing = errors.New("dnq: subject has no dnQualifier")

	// ErrMismatch indicates that a certificate's dnQualifier was not derived from its key.
	ErrMismatch = errors.New("dnq: dnQualifier does not match public key")
)

// Qualifier is a derived dnQualifier in its raw (unescaped) base64 form.
type Qualifier string

// String returns the raw base64 form.
func (q Qualifier) String() string { return string(q) }

// Escaped returns the qualifier with every "/" written as "\/" so it can be embedded in a
// slash-delimited distinguished name string.
func (q Qualifier) Escaped() string { return Escape(string(q)) }

// Escape prefixes every "/" in s with a backslash. No other character is altered.
func Escape(s string) string { return strings.ReplaceAll(s, "/", `\/`) }

// Unescape reverses [Escape].
func Unescape(s string) string { return strings.ReplaceAll(s, `\/`, "/") }

// Derive computes the dnQualifier for pub.
//
// Parameters:
//   - pub: Public key (typically *rsa.PublicKey)
//
// Returns:
//   - Qualifier: Raw base64 of the SHA-1 digest over the key bit string
//   - error: Wrapped [ErrMalformedKey] if the key cannot be encoded
func Derive(pub crypto.PublicKey) (Qualifier, error) {
	id, err := KeyIdentifier(pub)
	if err != nil {
		return "", err
	}
	return Qualifier(base64.StdEncoding.EncodeToString(id)), nil
}

// DeriveFromSPKI computes the dnQualifier from a DER SubjectPublicKeyInfo, such as
// x509.Certificate.RawSubjectPublicKeyInfo.
func DeriveFromSPKI(der []byte) (Qualifier, error) {
	bits, _, err := splitSPKI(der)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(bits)
	return Qualifier(base64.StdEncoding.EncodeToString(sum[:])), nil
}

// KeyIdentifier returns the 20 byte SHA-1 digest over the raw public key bit string.
// This is also the value OpenSSL uses for "subjectKeyIdentifier = hash".
func KeyIdentifier(pub crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	bits, _, err := splitSPKI(der)
	if err != nil {
		return nil, err
	}

	sum := sha1.Sum(bits)
	return sum[:], nil
}

// HeaderLen returns how many leading bytes of the SubjectPublicKeyInfo encoding of pub
// precede the raw key bit string. It is [ReferenceHeaderLen] for 2048-bit RSA keys.
func HeaderLen(pub crypto.PublicKey) (int, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}

	_, n, err := splitSPKI(der)
	return n, err
}

// FromName returns the dnQualifier attribute of a parsed name.
func FromName(name pkix.Name) (string, bool) {
	for _, atv := range name.Names {
		if atv.Type.Equal(OID) {
			s, ok := atv.Value.(string)
			return s, ok
		}
	}
	return "", false
}

// Check reports whether cert's subject dnQualifier was derived from cert's own key.
func Check(cert *x509.Certificate) error {
	found, ok := FromName(cert.Subject)
	if !ok {
		return ErrMissing
	}

	want, err := DeriveFromSPKI(cert.RawSubjectPublicKeyInfo)
	if err != nil {
		return err
	}
	if found != want.String() {
		return fmt.Errorf("%w: subject has %q, key derives %q", ErrMismatch, found, want)
	}
	return nil
}

// splitSPKI returns the raw key bit string of a SubjectPublicKeyInfo and the length of
// everything that precedes it.
func splitSPKI(der []byte) ([]byte, int, error) {
	input := cryptobyte.String(der)

	var spki, algorithm, bitString cryptobyte.String
	if !input.ReadASN1(&spki, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, 0, ErrMalformedKey
	}
	if !spki.ReadASN1(&algorithm, cryptobyte_asn1.SEQUENCE) {
		return nil, 0, ErrMalformedKey
	}
	if !spki.ReadASN1(&bitString, cryptobyte_asn1.BIT_STRING) || !spki.Empty() {
		return nil, 0, ErrMalformedKey
	}

	// First content octet is the unused-bits count, which must be zero for key material.
	if len(bitString) < 2 || bitString[0] != 0 {
		return nil, 0, ErrMalformedKey
	}

	raw := []byte(bitString[1:])
	return raw, len(der) - len(raw), nil
}
