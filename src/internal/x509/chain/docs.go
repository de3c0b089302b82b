// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509chain assembles and validates the [X.509] certificate chain file and
// reports on the certificates in it.
//
// A chain [File] holds certificates root first. Every certificate is verified against
// the certificates already in the file before it is appended, the same incremental
// protocol as running "openssl verify -CAfile certificate_chain" before each
// "cat cert >> certificate_chain". Self-signed anchors act as trust roots and all
// other anchors as untrusted intermediates, so a leaf only validates once its
// intermediate is present.
//
// The reporting side renders a chain as the classic subject / "signed by" / issuer
// printout, as a markdown table, as an ASCII tree or as JSON for external tools.
//
// [X.509]: https://grokipedia.com/page/X.509
package x509chain
