// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package issuer

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// Extension identifiers encoded by this package.
var (
	OIDBasicConstraints       = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
)

// ErrMalformedAKI indicates an authorityKeyIdentifier that cannot be decoded.
var ErrMalformedAKI = errors.New("issuer: malformed authorityKeyIdentifier")

var (
	tagKeyIdentifier = cryptobyte_asn1.Tag(0).ContextSpecific()
	tagCertIssuer    = cryptobyte_asn1.Tag(1).ContextSpecific().Constructed()
	tagCertSerial    = cryptobyte_asn1.Tag(2).ContextSpecific()
	tagDirectoryName = cryptobyte_asn1.Tag(4).ContextSpecific().Constructed()
)

// AuthorityKeyIdentifier is the decoded content of the authorityKeyIdentifier extension.
type AuthorityKeyIdentifier struct {
	KeyID []byte
	// Issuer is the DER encoded directoryName of authorityCertIssuer, if present.
	Issuer []byte
	Serial *big.Int
}

// IssuerName decodes the authorityCertIssuer directory name.
func (a *AuthorityKeyIdentifier) IssuerName() (pkix.Name, error) {
	var name pkix.Name
	if a.Issuer == nil {
		return name, nil
	}
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(a.Issuer, &rdns)
	if err != nil {
		return name, err
	}
	if len(rest) != 0 {
		return name, ErrMalformedAKI
	}
	name.FillFromRDNSequence(&rdns)
	return name, nil
}

// marshalBasicConstraints builds a critical basicConstraints extension. cA is omitted
// when false (DER default); a negative pathLen omits pathLenConstraint.
func marshalBasicConstraints(isCA bool, pathLen int) (pkix.Extension, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		if isCA {
			b.AddASN1Boolean(true)
		}
		if pathLen >= 0 {
			b.AddASN1Int64(int64(pathLen))
		}
	})

	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: OIDBasicConstraints, Critical: true, Value: value}, nil
}

// marshalAuthorityKeyIdentifier builds the extension value. issuerName and serial are
// included together or not at all.
func marshalAuthorityKeyIdentifier(keyID, issuerName []byte, serial *big.Int) (pkix.Extension, error) {
	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		if len(keyID) > 0 {
			b.AddASN1(tagKeyIdentifier, func(b *cryptobyte.Builder) {
				b.AddBytes(keyID)
			})
		}
		if issuerName != nil && serial != nil {
			b.AddASN1(tagCertIssuer, func(b *cryptobyte.Builder) {
				b.AddASN1(tagDirectoryName, func(b *cryptobyte.Builder) {
					b.AddBytes(issuerName)
				})
			})
			b.AddASN1(tagCertSerial, func(b *cryptobyte.Builder) {
				b.AddBytes(integerContent(serial))
			})
		}
	})

	value, err := b.Bytes()
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: OIDAuthorityKeyIdentifier, Value: value}, nil
}

// integerContent returns the DER content octets of a non-negative INTEGER.
func integerContent(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) == 0 || b[0]&0x80 != 0 {
		b = append([]byte{0}, b...)
	}
	return b
}

// ParseAuthorityKeyIdentifier decodes an authorityKeyIdentifier extension value.
func ParseAuthorityKeyIdentifier(value []byte) (*AuthorityKeyIdentifier, error) {
	input := cryptobyte.String(value)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, ErrMalformedAKI
	}

	out := &AuthorityKeyIdentifier{}
	if seq.PeekASN1Tag(tagKeyIdentifier) {
		var kid cryptobyte.String
		if !seq.ReadASN1(&kid, tagKeyIdentifier) {
			return nil, ErrMalformedAKI
		}
		out.KeyID = []byte(kid)
	}
	if seq.PeekASN1Tag(tagCertIssuer) {
		// directoryName is explicitly tagged, so its content is the complete Name.
		var names, dn cryptobyte.String
		if !seq.ReadASN1(&names, tagCertIssuer) || !names.ReadASN1(&dn, tagDirectoryName) {
			return nil, ErrMalformedAKI
		}
		out.Issuer = []byte(dn)
	}
	if seq.PeekASN1Tag(tagCertSerial) {
		var serial cryptobyte.String
		if !seq.ReadASN1(&serial, tagCertSerial) || len(serial) == 0 {
			return nil, ErrMalformedAKI
		}
		out.Serial = new(big.Int).SetBytes(serial)
	}
	if !seq.Empty() {
		return nil, ErrMalformedAKI
	}

	return out, nil
}

// FindAuthorityKeyIdentifier locates and decodes the authorityKeyIdentifier of cert.
func FindAuthorityKeyIdentifier(cert *x509.Certificate) (*AuthorityKeyIdentifier, bool, error) {
	for _, ext := range cert.Extensions {
		if ext.Id.Equal(OIDAuthorityKeyIdentifier) {
			aki, err := ParseAuthorityKeyIdentifier(ext.Value)
			return aki, err == nil, err
		}
	}
	return nil, false, nil
}
