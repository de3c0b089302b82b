// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package profile

import "strings"

// Tier is a position in the three certificate chain.
type Tier int

const (
	// Root is the self-signed trust anchor.
	Root Tier = iota
	// Intermediate is signed by Root and signs Leaf.
	Intermediate
	// Leaf is the content signer, signed by Intermediate.
	Leaf
)

// ContentSignerRole is the common name prefix marking a leaf as a content signer.
const ContentSignerRole = "CS"

// Tiers returns every tier in issuance order.
func Tiers() []Tier { return []Tier{Root, Intermediate, Leaf} }

// Valid reports whether t is one of the three known tiers.
func (t Tier) Valid() bool { return t >= Root && t <= Leaf }

// String returns the lower-case tier name.
func (t Tier) String() string {
	switch t {
	case Root:
		return "root"
	case Intermediate:
		return "intermediate"
	case Leaf:
		return "leaf"
	default:
		return "unknown"
	}
}

// Parent returns the tier that signs t. Root has no parent.
func (t Tier) Parent() (Tier, bool) {
	switch t {
	case Intermediate:
		return Root, true
	case Leaf:
		return Intermediate, true
	default:
		return Root, false
	}
}

// Prefix returns the file name prefix of the tier's artifacts.
func (t Tier) Prefix() string {
	switch t {
	case Root:
		return "ca"
	case Intermediate:
		return "intermediate"
	case Leaf:
		return "leaf"
	default:
		return ""
	}
}

// DefaultSerial returns the serial number used by the reference profile.
func (t Tier) DefaultSerial() int64 {
	switch t {
	case Root:
		return 5
	case Intermediate:
		return 6
	case Leaf:
		return 7
	default:
		return 0
	}
}

// DefaultEntity returns the entity label used in the reference common names.
func (t Tier) DefaultEntity() string {
	switch t {
	case Root:
		return "dcstore.ROOT"
	case Intermediate:
		return "dcstore.INTERMEDIATE"
	case Leaf:
		return "dcstore.LEAF"
	default:
		return ""
	}
}

// CommonName applies the tier's role marker to an entity label.
// Root and intermediate use the plain entity name; leaf gets the content signer prefix.
func (t Tier) CommonName(entity string) string {
	if t != Leaf {
		return entity
	}
	if strings.HasPrefix(entity, ContentSignerRole+" ") {
		return entity
	}
	return ContentSignerRole + " " + entity
}

// Description returns the human label used when reporting the tier.
func (t Tier) Description() string {
	switch t {
	case Root:
		return "Self-signed CA certificate (issuer == subject)"
	case Intermediate:
		return "Intermediate certificate"
	case Leaf:
		return "Leaf certificate"
	default:
		return "Certificate"
	}
}
