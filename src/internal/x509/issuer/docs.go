// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package issuer issues the certificates of the digital cinema chain.
//
// The root is self-signed directly. Intermediate and leaf certificates are issued in
// two steps, the way "openssl req" followed by "openssl x509 -req" does it: a
// certificate signing request carrying only the subject and public key is created and
// self-verified, then the parent tier signs it while applying the tier's extension
// policy. The issuer name of a signed certificate is always copied from the parent
// certificate, so the chain's name linkage cannot drift.
//
// Each issuance returns an [Issued] value that is handed to the next tier as its parent.
package issuer
