// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package profile

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/dnq"
)

var (
	// ErrSubjectSyntax indicates a malformed slash-delimited name.
	ErrSubjectSyntax = errors.New("profile: malformed subject string")

	// ErrUnknownAttribute indicates a name attribute outside O, OU, CN and dnQualifier.
	ErrUnknownAttribute = errors.New("profile: unsupported subject attribute")

	// ErrDuplicateAttribute indicates an attribute given more than once.
	ErrDuplicateAttribute = errors.New("profile: duplicate subject attribute")
)

var (
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
)

// attributeShortNames maps attribute OIDs to the short names OpenSSL prints.
var attributeShortNames = map[string]string{
	"2.5.4.6":              "C",
	"2.5.4.8":              "ST",
	"2.5.4.7":              "L",
	"2.5.4.10":             "O",
	"2.5.4.11":             "OU",
	"2.5.4.3":              "CN",
	"2.5.4.5":              "serialNumber",
	"2.5.4.46":             "dnQualifier",
	"1.2.840.113549.1.9.1": "emailAddress",
}

// Subject is the ordered subject name of a profile certificate.
type Subject struct {
	Organization       string
	OrganizationalUnit string
	CommonName         string
	// DNQualifier is the raw (unescaped) qualifier value.
	DNQualifier string
}

// Name converts s to a pkix.Name whose encoded RDN sequence is exactly
// O, OU, CN, dnQualifier. Empty attributes are omitted.
func (s Subject) Name() pkix.Name {
	var atvs []pkix.AttributeTypeAndValue
	add := func(oid asn1.ObjectIdentifier, v string) {
		if v != "" {
			atvs = append(atvs, pkix.AttributeTypeAndValue{Type: oid, Value: v})
		}
	}

	add(oidOrganization, s.Organization)
	add(oidOrganizationalUnit, s.OrganizationalUnit)
	add(oidCommonName, s.CommonName)
	add(dnq.OID, s.DNQualifier)

	// ExtraNames are emitted verbatim and in order, and suppress the typed fields.
	return pkix.Name{ExtraNames: atvs}
}

// String renders s as an OpenSSL style slash-delimited name with "/" escaped in values.
func (s Subject) String() string { return FormatName(s.Name().ExtraNames) }

// FormatName renders attributes in their given order as "/K=V/K=V", escaping "/" in values.
// Pass a parsed certificate's Subject.Names to see the name as encoded.
func FormatName(atvs []pkix.AttributeTypeAndValue) string {
	var b strings.Builder
	for _, atv := range atvs {
		key, ok := attributeShortNames[atv.Type.String()]
		if !ok {
			key = atv.Type.String()
		}
		b.WriteByte('/')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(dnq.Escape(fmt.Sprint(atv.Value)))
	}
	return b.String()
}

// ParseSubject parses an OpenSSL style "/O=.../OU=.../CN=.../dnQualifier=..." string.
// A backslash escapes the following character. Attributes may appear in any order;
// the returned Subject always encodes in profile order.
func ParseSubject(str string) (Subject, error) {
	var s Subject
	if !strings.HasPrefix(str, "/") {
		return s, fmt.Errorf("%w: must start with '/'", ErrSubjectSyntax)
	}

	seen := make(map[string]bool)
	for _, part := range splitUnescaped(str[1:]) {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return s, fmt.Errorf("%w: %q has no '='", ErrSubjectSyntax, part)
		}
		if seen[key] {
			return s, fmt.Errorf("%w: %s", ErrDuplicateAttribute, key)
		}
		seen[key] = true

		value = unescapeValue(value)
		switch key {
		case "O":
			s.Organization = value
		case "OU":
			s.OrganizationalUnit = value
		case "CN":
			s.CommonName = value
		case "dnQualifier":
			s.DNQualifier = value
		default:
			return s, fmt.Errorf("%w: %s", ErrUnknownAttribute, key)
		}
	}

	return s, nil
}

// splitUnescaped splits on "/" characters that are not preceded by a backslash.
// Escapes are kept so values can be unescaped afterwards.
func splitUnescaped(s string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			cur.WriteByte(s[i])
			cur.WriteByte(s[i+1])
			i++
		case s[i] == '/':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(parts, cur.String())
}

func unescapeValue(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
