// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/cloudflare/cfssl/crypto/pkcs7"
)

const (
	// BlockCertificate is the PEM type of certificates.
	BlockCertificate = "CERTIFICATE"

	// BlockCertificateRequest is the PEM type written by "openssl req".
	BlockCertificateRequest = "CERTIFICATE REQUEST"

	// blockLegacyRequest is the older request type some tools still write.
	blockLegacyRequest = "NEW CERTIFICATE REQUEST"
)

var (
	// ErrInvalidPEMBlock indicates that the provided data does not contain a valid PEM block.
	ErrInvalidPEMBlock = errors.New("x509certs: invalid PEM block")

	// ErrInvalidBlockType indicates that the PEM block type is not the expected type.
	ErrInvalidBlockType = errors.New("x509certs: invalid block type")

	// ErrParseCertificate indicates a failure to parse the certificate from the provided data.
	ErrParseCertificate = errors.New("x509certs: failed to parse certificate")

	// ErrParseRequest indicates a failure to parse a certificate signing request.
	ErrParseRequest = errors.New("x509certs: failed to parse certificate request")

	// ErrParsePKCS7 indicates a failure to parse PKCS7 formatted data.
	ErrParsePKCS7 = errors.New("x509certs: failed to parse PKCS7 data")

	// ErrNoCertificates indicates input that decoded to zero certificates.
	ErrNoCertificates = errors.New("x509certs: no certificates found")
)

// Certificate decodes and encodes [X.509] certificates and signing requests.
//
// [X.509]: https://en.wikipedia.org/wiki/X.509
type Certificate struct {
	certBlockType string
	csrBlockType  string
}

// New creates a new Certificate with default settings.
func New() *Certificate {
	return &Certificate{
		certBlockType: BlockCertificate,
		csrBlockType:  BlockCertificateRequest,
	}
}

// IsPEM checks if the data is in PEM format.
func (c *Certificate) IsPEM(data []byte) bool {
	block, _ := pem.Decode(data)
	return block != nil
}

// DecodeMultiple decodes every certificate in data. PEM bundles, concatenated DER and
// PKCS#7 (degenerate signed-data, as written by "openssl crl2pkcs7") are accepted.
//
// Parameters:
//   - data: Encoded certificates
//
// Returns:
//   - []*x509.Certificate: Certificates in input order
//   - error: Decoding error, or ErrNoCertificates for empty input
func (c *Certificate) DecodeMultiple(data []byte) ([]*x509.Certificate, error) {
	if c.IsPEM(data) {
		var certs []*x509.Certificate

		for len(data) > 0 {
			block, rest := pem.Decode(data)
			if block == nil {
				break
			}
			if block.Type != c.certBlockType {
				return nil, ErrInvalidBlockType
			}

			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, ErrParseCertificate
			}

			certs = append(certs, cert)
			data = rest
		}

		return certs, nil
	}

	certs, err := x509.ParseCertificates(data)
	if err == nil {
		if len(certs) == 0 {
			return nil, ErrNoCertificates
		}
		return certs, nil
	}

	certs, err = c.decodePKCS7(data)
	if errors.Is(err, ErrParsePKCS7) {
		return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
	}
	return certs, err
}

// Decode decodes a single certificate from data.
func (c *Certificate) Decode(data []byte) (*x509.Certificate, error) {
	if c.IsPEM(data) {
		block, _ := pem.Decode(data)
		if block.Type != c.certBlockType {
			return nil, ErrInvalidBlockType
		}
		data = block.Bytes
	}

	cert, err := x509.ParseCertificate(data)
	if err == nil {
		return cert, nil
	}

	certs, err := c.decodePKCS7(data)
	if errors.Is(err, ErrParsePKCS7) {
		return nil, fmt.Errorf("%w: %w", ErrParseCertificate, err)
	}
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// decodePKCS7 extracts the certificate set of a PKCS#7 signed-data structure using
// Cloudflare's parser.
func (c *Certificate) decodePKCS7(data []byte) ([]*x509.Certificate, error) {
	p, err := pkcs7.ParsePKCS7(data)
	if err != nil {
		return nil, ErrParsePKCS7
	}
	if len(p.Content.SignedData.Certificates) == 0 {
		return nil, ErrNoCertificates
	}
	return p.Content.SignedData.Certificates, nil
}

// DecodeRequest decodes a PEM or DER certificate signing request. The request's
// self-signature is not checked here.
func (c *Certificate) DecodeRequest(data []byte) (*x509.CertificateRequest, error) {
	if c.IsPEM(data) {
		block, _ := pem.Decode(data)
		if block.Type != c.csrBlockType && block.Type != blockLegacyRequest {
			return nil, ErrInvalidBlockType
		}
		data = block.Bytes
	} else if len(data) == 0 {
		return nil, ErrInvalidPEMBlock
	}

	csr, err := x509.ParseCertificateRequest(data)
	if err != nil {
		return nil, ErrParseRequest
	}
	return csr, nil
}

// EncodePEM encodes a certificate to PEM format.
func (c *Certificate) EncodePEM(cert *x509.Certificate) []byte {
	block := pem.Block{
		Type:  c.certBlockType,
		Bytes: cert.Raw,
	}
	return pem.EncodeToMemory(&block)
}

// EncodeRequestPEM encodes a certificate signing request to PEM format.
func (c *Certificate) EncodeRequestPEM(csr *x509.CertificateRequest) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: c.csrBlockType, Bytes: csr.Raw})
}

// EncodeDER encodes a certificate to DER format.
func (c *Certificate) EncodeDER(cert *x509.Certificate) []byte { return cert.Raw }

// EncodeMultiplePEM encodes multiple certificates to PEM format.
func (c *Certificate) EncodeMultiplePEM(certs []*x509.Certificate) []byte {
	var data []byte

	for _, cert := range certs {
		data = append(data, c.EncodePEM(cert)...)
	}

	return data
}
