// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package profile_test

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

func TestTiers(t *testing.T) {
	tests := []struct {
		tier         profile.Tier
		name, prefix string
		serial       int64
		parent       profile.Tier
		hasParent    bool
	}{
		{profile.Root, "root", "ca", 5, profile.Root, false},
		{profile.Intermediate, "intermediate", "intermediate", 6, profile.Root, true},
		{profile.Leaf, "leaf", "leaf", 7, profile.Intermediate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.tier.Valid())
			assert.Equal(t, tt.name, tt.tier.String())
			assert.Equal(t, tt.prefix, tt.tier.Prefix())
			assert.Equal(t, tt.serial, tt.tier.DefaultSerial())

			parent, ok := tt.tier.Parent()
			assert.Equal(t, tt.hasParent, ok)
			if ok {
				assert.Equal(t, tt.parent, parent)
			}
		})
	}

	assert.Equal(t, []profile.Tier{profile.Root, profile.Intermediate, profile.Leaf}, profile.Tiers())
	assert.False(t, profile.Tier(7).Valid())
	assert.Equal(t, "unknown", profile.Tier(-1).String())
}

func TestCommonName(t *testing.T) {
	assert.Equal(t, "dcstore.ROOT", profile.Root.CommonName("dcstore.ROOT"))
	assert.Equal(t, "dcstore.INTERMEDIATE", profile.Intermediate.CommonName("dcstore.INTERMEDIATE"))
	assert.Equal(t, "CS dcstore.LEAF", profile.Leaf.CommonName("dcstore.LEAF"))
	assert.Equal(t, "CS dcstore.LEAF", profile.Leaf.CommonName("CS dcstore.LEAF"), "prefix must not be doubled")
}

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		tier     profile.Tier
		isCA     bool
		pathLen  int
		usage    x509.KeyUsage
		usageStr string
		aki      string
	}{
		{profile.Root, true, 3, x509.KeyUsageCertSign | x509.KeyUsageCRLSign, "keyCertSign,cRLSign", "keyid:always,issuer:always"},
		{profile.Intermediate, true, 2, x509.KeyUsageCertSign | x509.KeyUsageCRLSign, "keyCertSign,cRLSign", "keyid:always,issuer:always"},
		{profile.Leaf, false, 0, x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment, "digitalSignature,keyEncipherment", "keyid,issuer:always"},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			p, err := profile.PolicyFor(tt.tier)
			require.NoError(t, err)

			assert.Equal(t, tt.tier, p.Tier)
			assert.Equal(t, tt.isCA, p.IsCA)
			assert.Equal(t, tt.pathLen, p.MaxPathLen)
			assert.Equal(t, tt.usage, p.KeyUsage)
			assert.Equal(t, tt.usageStr, p.KeyUsageString())
			assert.Equal(t, tt.aki, p.AuthorityKeyID.String())
		})
	}

	t.Run("Path Length Decreases", func(t *testing.T) {
		root := profile.MustPolicyFor(profile.Root)
		inter := profile.MustPolicyFor(profile.Intermediate)
		leaf := profile.MustPolicyFor(profile.Leaf)
		assert.Less(t, inter.MaxPathLen, root.MaxPathLen)
		assert.Less(t, leaf.MaxPathLen, inter.MaxPathLen)
	})

	t.Run("Unknown Tier", func(t *testing.T) {
		_, err := profile.PolicyFor(profile.Tier(42))
		assert.ErrorIs(t, err, profile.ErrUnknownTier)
		assert.Panics(t, func() { profile.MustPolicyFor(profile.Tier(42)) })
	})
}

func TestOpenSSLConfig(t *testing.T) {
	root := profile.MustPolicyFor(profile.Root).OpenSSLConfig()
	assert.Contains(t, root, "[ req ]\n")
	assert.Contains(t, root, "basicConstraints = critical,CA:true,pathlen:3\n")
	assert.Contains(t, root, "keyUsage = keyCertSign,cRLSign\n")
	assert.Contains(t, root, "subjectKeyIdentifier = hash\n")
	assert.Contains(t, root, "authorityKeyIdentifier = keyid:always,issuer:always\n")

	leaf := profile.MustPolicyFor(profile.Leaf).OpenSSLConfig()
	assert.Contains(t, leaf, "[ default ]\n")
	assert.Contains(t, leaf, "basicConstraints = critical,CA:false,pathlen:0\n")
	assert.Contains(t, leaf, "keyUsage = digitalSignature,keyEncipherment\n")
	assert.Contains(t, leaf, "authorityKeyIdentifier = keyid,issuer:always\n")
}

func TestSubject(t *testing.T) {
	s := profile.Subject{
		Organization:       "example.com",
		OrganizationalUnit: "csc.example.com",
		CommonName:         "dcstore.ROOT",
		DNQualifier:        "0Za8/aABE05Aroz7le1FOpEdFhk=",
	}

	t.Run("Attribute Order", func(t *testing.T) {
		var types []string
		for _, rdn := range s.Name().ToRDNSequence() {
			require.Len(t, rdn, 1)
			types = append(types, rdn[0].Type.String())
		}
		want := []string{"2.5.4.10", "2.5.4.11", "2.5.4.3", "2.5.4.46"}
		if diff := cmp.Diff(want, types); diff != "" {
			t.Errorf("RDN order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Slash Form", func(t *testing.T) {
		assert.Equal(t, `/O=example.com/OU=csc.example.com/CN=dcstore.ROOT/dnQualifier=0Za8\/aABE05Aroz7le1FOpEdFhk=`, s.String())
	})

	t.Run("Parse Round Trip", func(t *testing.T) {
		parsed, err := profile.ParseSubject(s.String())
		require.NoError(t, err)
		if diff := cmp.Diff(s, parsed); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Parse Any Order", func(t *testing.T) {
		parsed, err := profile.ParseSubject("/CN=CS dcstore.LEAF/O=example.com")
		require.NoError(t, err)
		assert.Equal(t, "/O=example.com/CN=CS dcstore.LEAF", parsed.String())
	})

	t.Run("Format Unknown OID", func(t *testing.T) {
		got := profile.FormatName([]pkix.AttributeTypeAndValue{
			{Type: asn1.ObjectIdentifier{2, 5, 4, 6}, Value: "GB"},
			{Type: asn1.ObjectIdentifier{1, 2, 3, 4}, Value: "x"},
		})
		assert.Equal(t, "/C=GB/1.2.3.4=x", got)
	})
}

func TestParseSubject_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"No Leading Slash", "O=example.com", profile.ErrSubjectSyntax},
		{"Missing Equals", "/O", profile.ErrSubjectSyntax},
		{"Unknown Attribute", "/C=GB", profile.ErrUnknownAttribute},
		{"Duplicate", "/O=a/O=b", profile.ErrDuplicateAttribute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := profile.ParseSubject(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
