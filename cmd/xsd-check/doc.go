// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// xsd-check validates an XML document against an XML Schema.
//
// Exactly two files are expected; their order does not matter. The file whose root
// element is named schema is the schema, the other one the document. Findings are
// reported in libxml2 wording, one per line, followed by a verdict.
//
// # Usage
//
//	xsd-check FILE FILE
//
// # Exit Status
//
//	0  XML document is valid
//	1  XML document is not valid, is not well-formed, or the schema is broken
//	2  Usage error: wrong argument count, identical or unreadable files
//
// # Examples
//
//	xsd-check cpl.xml SMPTE-429-7-2006-CPL.xsd
//	xsd-check SMPTE-429-8-2006-PKL.xsd pkl.xml
//
// When the document root has no global declaration in the schema, the report also
// prints "Wrong XSD file?".
package main
