// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package profile

import (
	"crypto/x509"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// ErrUnknownTier indicates a tier outside Root, Intermediate and Leaf.
var ErrUnknownTier = errors.New("profile: unknown tier")

// KeyIDMode controls the keyIdentifier field of authorityKeyIdentifier.
type KeyIDMode int

const (
	// KeyIDIfPresent copies the issuer's subjectKeyIdentifier when it has one ("keyid").
	KeyIDIfPresent KeyIDMode = iota
	// KeyIDAlways requires the issuer's key identifier ("keyid:always").
	KeyIDAlways
)

// AKIMode describes how authorityKeyIdentifier is populated.
type AKIMode struct {
	KeyID KeyIDMode
	// IssuerAlways adds authorityCertIssuer and authorityCertSerialNumber ("issuer:always").
	IssuerAlways bool
}

// String renders the mode in OpenSSL extension syntax.
func (m AKIMode) String() string {
	parts := []string{"keyid"}
	if m.KeyID == KeyIDAlways {
		parts[0] = "keyid:always"
	}
	if m.IssuerAlways {
		parts = append(parts, "issuer:always")
	}
	return strings.Join(parts, ",")
}

// Policy is the fixed extension set of one tier.
type Policy struct {
	Tier       Tier
	IsCA       bool
	MaxPathLen int
	KeyUsage   x509.KeyUsage
	// AuthorityKeyID selects the authorityKeyIdentifier content.
	AuthorityKeyID AKIMode
}

var policies = [...]Policy{
	Root: {
		Tier:           Root,
		IsCA:           true,
		MaxPathLen:     3,
		KeyUsage:       x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		AuthorityKeyID: AKIMode{KeyID: KeyIDAlways, IssuerAlways: true},
	},
	Intermediate: {
		Tier:           Intermediate,
		IsCA:           true,
		MaxPathLen:     2,
		KeyUsage:       x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		AuthorityKeyID: AKIMode{KeyID: KeyIDAlways, IssuerAlways: true},
	},
	Leaf: {
		Tier:           Leaf,
		IsCA:           false,
		MaxPathLen:     0,
		KeyUsage:       x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		AuthorityKeyID: AKIMode{KeyID: KeyIDIfPresent, IssuerAlways: true},
	},
}

// PolicyFor returns the extension policy of t.
func PolicyFor(t Tier) (Policy, error) {
	if !t.Valid() {
		return Policy{}, fmt.Errorf("%w: %d", ErrUnknownTier, int(t))
	}
	return policies[t], nil
}

// MustPolicyFor is like [PolicyFor] but panics on an unknown tier.
func MustPolicyFor(t Tier) Policy {
	p, err := PolicyFor(t)
	if err != nil {
		panic(err)
	}
	return p
}

var keyUsageNames = []struct {
	usage x509.KeyUsage
	name  string
}{
	{x509.KeyUsageDigitalSignature, "digitalSignature"},
	{x509.KeyUsageContentCommitment, "nonRepudiation"},
	{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
	{x509.KeyUsageDataEncipherment, "dataEncipherment"},
	{x509.KeyUsageKeyAgreement, "keyAgreement"},
	{x509.KeyUsageCertSign, "keyCertSign"},
	{x509.KeyUsageCRLSign, "cRLSign"},
	{x509.KeyUsageEncipherOnly, "encipherOnly"},
	{x509.KeyUsageDecipherOnly, "decipherOnly"},
}

// KeyUsageNames returns the OpenSSL names of the bits set in ku, in bit order.
func KeyUsageNames(ku x509.KeyUsage) []string {
	var names []string
	for _, n := range keyUsageNames {
		if ku&n.usage != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

// BasicConstraints renders the basicConstraints extension in OpenSSL syntax.
func (p Policy) BasicConstraints() string {
	return fmt.Sprintf("critical,CA:%t,pathlen:%d", p.IsCA, p.MaxPathLen)
}

// KeyUsageString renders the keyUsage extension in OpenSSL syntax.
func (p Policy) KeyUsageString() string {
	return strings.Join(KeyUsageNames(p.KeyUsage), ",")
}

var descriptorTemplate = template.Must(template.New("cnf").Parse(`[ {{.Section}} ]
distinguished_name = req_distinguished_name
x509_extensions = v3_ca
[ v3_ca ]
basicConstraints = {{.Policy.BasicConstraints}}
keyUsage = {{.Policy.KeyUsageString}}
subjectKeyIdentifier = hash
authorityKeyIdentifier = {{.Policy.AuthorityKeyID}}
[ req_distinguished_name ]
O = Unique organization name
OU = Organization unit
CN = Entity and dnQualifier
`))

// OpenSSLConfig renders the tier's extension descriptor in OpenSSL configuration syntax.
// The output can be fed to "openssl x509 -req -extfile <file> -extensions v3_ca" to
// reproduce the same extension set with OpenSSL.
func (p Policy) OpenSSLConfig() string {
	section := "default"
	if p.Tier == Root {
		section = "req"
	}

	var b strings.Builder
	// Template and data are fixed; execution cannot fail.
	_ = descriptorTemplate.Execute(&b, struct {
		Section string
		Policy  Policy
	}{section, p})
	return b.String()
}
