// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package xsd validates XML documents against XML Schema 1.0 definitions.
//
// Documents are parsed into an etree DOM. Schemas are compiled from the DOM together
// with their xs:include and xs:import documents, which are located through relative
// schemaLocation values. Imports that cannot be resolved make their namespace lax.
//
// The supported subset covers what digital cinema packaging schemas use: global and
// local elements and attributes, named and anonymous types, sequence, choice and all
// groups with occurrence constraints, wildcards, attribute and model groups, simple and
// complex content derivation, and simple types with restriction, list and union and the
// common facets. Identity constraints, substitution groups and xs:redefine are not
// supported.
//
// Findings are worded like libxml2 so that reports read the same as those of xmllint:
//
//	res, err := xsd.Check("cpl.xml", "SMPTE-429-7-2006-CPL.xsd")
//	if err != nil {
//		return err
//	}
//	res.WriteTo(os.Stdout)
package xsd
