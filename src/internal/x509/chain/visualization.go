// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudflare/cfssl/helpers"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/dnq"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

// RenderASCIITree renders the chain as an ASCII tree, root at the top.
//
// Each node is marked ✓ when the certificate's dnQualifier matches its public key
// and ✗ otherwise.
//
// Returns:
//   - string: ASCII tree representation of the certificate chain
//
// Thread Safety: Safe for concurrent use.
func (f *File) RenderASCIITree() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.certs) == 0 {
		return "No certificates in chain"
	}

	var result strings.Builder
	for i, cert := range f.certs {
		if i > 0 {
			result.WriteString(strings.Repeat("    ", i-1))
			result.WriteString("└── ")
		}

		certInfo := fmt.Sprintf("[%s] %s", qualifierIcon(cert), cert.Subject.CommonName)
		if role := f.certificateRole(i); role != "" {
			certInfo += fmt.Sprintf(" (%s)", role)
		}

		result.WriteString(certInfo + "\n")
	}

	return result.String()
}

// RenderTable renders the chain as a markdown table.
//
// It lists role, subject, issuer, serial, validity end, key size, signature algorithm,
// basic constraints and dnQualifier status using tablewriter.
//
// Returns:
//   - string: Markdown table representation of the certificate chain
//
// Thread Safety: Safe for concurrent use.
func (f *File) RenderTable() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.certs) == 0 {
		return "No certificates to display"
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)

	headers := []string{"#", "Role", "Subject", "Issuer", "Serial", "Valid Until", "Key Size", "Signature", "Constraints", "dnQualifier"}
	table.Header(headers)

	var rows [][]string
	for i, cert := range f.certs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			f.certificateRole(i),
			cert.Subject.CommonName,
			cert.Issuer.CommonName,
			cert.SerialNumber.String(),
			cert.NotAfter.Format("2006-01-02"),
			fmt.Sprintf("%d-bit %s", helpers.KeyLength(cert.PublicKey), cert.PublicKeyAlgorithm),
			helpers.SignatureString(cert.SignatureAlgorithm),
			constraints(cert),
			qualifierStatus(cert),
		})
	}

	table.Bulk(rows)
	table.Render()
	return buf.String()
}

// CertificateVizData is the JSON form of one certificate.
type CertificateVizData struct {
	Index              int       `json:"index"`
	Role               string    `json:"role"`
	Subject            string    `json:"subject"`
	Issuer             string    `json:"issuer"`
	SerialNumber       string    `json:"serialNumber"`
	SignatureAlgorithm string    `json:"signatureAlgorithm"`
	PublicKeyAlgorithm string    `json:"publicKeyAlgorithm"`
	KeySize            int       `json:"keySize"`
	NotBefore          time.Time `json:"notBefore"`
	NotAfter           time.Time `json:"notAfter"`
	IsCA               bool      `json:"isCA"`
	MaxPathLen         int       `json:"maxPathLen"`
	KeyUsage           []string  `json:"keyUsage"`
	DNQualifier        string    `json:"dnQualifier"`
	DNQualifierStatus  string    `json:"dnQualifierStatus"`
}

// RelationshipData links a certificate to the certificate that signed it.
type RelationshipData struct {
	FromIndex int    `json:"fromIndex"`
	ToIndex   int    `json:"toIndex"`
	Type      string `json:"type"`
}

// VisualizationData is the document produced by [File.ToVisualizationJSON].
type VisualizationData struct {
	Timestamp     string               `json:"timestamp"`
	ChainLength   int                  `json:"chainLength"`
	Certificates  []CertificateVizData `json:"certificates"`
	Relationships []RelationshipData   `json:"relationships"`
}

// ToVisualizationJSON converts the chain to structured JSON for external tools.
//
// Subjects and issuers are rendered in OpenSSL slash form. Each certificate after the
// first has a "signed_by" relationship to its predecessor.
//
// Returns:
//   - []byte: JSON representation of the certificate chain
//   - error: Error if JSON marshaling fails
//
// Thread Safety: Safe for concurrent use.
func (f *File) ToVisualizationJSON() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data := VisualizationData{
		Timestamp:     f.clock.Now().UTC().Format(time.RFC3339),
		ChainLength:   len(f.certs),
		Certificates:  make([]CertificateVizData, len(f.certs)),
		Relationships: make([]RelationshipData, 0, len(f.certs)),
	}

	for i, cert := range f.certs {
		q, _ := dnq.FromName(cert.Subject)
		data.Certificates[i] = CertificateVizData{
			Index:              i,
			Role:               f.certificateRole(i),
			Subject:            profile.FormatName(cert.Subject.Names),
			Issuer:             profile.FormatName(cert.Issuer.Names),
			SerialNumber:       cert.SerialNumber.String(),
			SignatureAlgorithm: helpers.SignatureString(cert.SignatureAlgorithm),
			PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
			KeySize:            helpers.KeyLength(cert.PublicKey),
			NotBefore:          cert.NotBefore,
			NotAfter:           cert.NotAfter,
			IsCA:               cert.IsCA,
			MaxPathLen:         cert.MaxPathLen,
			KeyUsage:           profile.KeyUsageNames(cert.KeyUsage),
			DNQualifier:        q,
			DNQualifierStatus:  qualifierStatus(cert),
		}
	}

	// Root first: certificate i is signed by certificate i-1.
	for i := 1; i < len(f.certs); i++ {
		data.Relationships = append(data.Relationships, RelationshipData{
			FromIndex: i,
			ToIndex:   i - 1,
			Type:      "signed_by",
		})
	}

	return json.MarshalIndent(data, "", "  ")
}

// certificateRole names the role of the certificate at index in a root-first chain.
func (f *File) certificateRole(index int) string {
	total := len(f.certs)
	switch {
	case total == 1:
		return "Self-Signed Certificate"
	case index == 0:
		return "Root CA Certificate"
	case index == total-1 && !f.certs[index].IsCA:
		return "Leaf (Content Signer) Certificate"
	default:
		return "Intermediate CA Certificate"
	}
}

func constraints(cert *x509.Certificate) string {
	if !cert.BasicConstraintsValid {
		return "-"
	}
	return fmt.Sprintf("CA:%t,pathlen:%d", cert.IsCA, cert.MaxPathLen)
}

func qualifierStatus(cert *x509.Certificate) string {
	switch err := dnq.Check(cert); {
	case err == nil:
		return "ok"
	case errors.Is(err, dnq.ErrMissing):
		return "missing"
	default:
		return "mismatch"
	}
}

func qualifierIcon(cert *x509.Certificate) string {
	if dnq.Check(cert) != nil {
		return "✗"
	}
	return "✓"
}
