// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// dc-cert-chain builds a three-tier digital cinema certificate chain.
//
// The root is self-signed; the intermediate is signed by the root and the content
// signing leaf by the intermediate. Every subject carries a dnQualifier, the base64
// SHA-1 digest of the subject public key, and each certificate is verified against
// the chain assembled so far before the next tier is built.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/dcinema-cert-chain/cmd/dc-cert-chain@latest
//
// # Usage
//
//	dc-cert-chain [FLAGS]
//
// # Flags
//
//	-c, --config     Chain profile in YAML or JSON (env DC_CERT_CHAIN_CONFIG)
//	-o, --out-dir    Output directory (env DC_CERT_CHAIN_OUT_DIR, default: .)
//	    --pkcs12     Also export leaf.p12 with the leaf key and its CA certificates
//	    --tree       Display the chain as an ASCII tree
//	    --table      Display the chain as a markdown table
//	    --json       Emit the chain as JSON
//	    --log-json   Write progress as JSON lines to stderr
//
// # Output
//
// The output directory receives ca.key, ca.self-signed.pem, intermediate.key,
// intermediate.csr, intermediate.signed.pem, leaf.key, leaf.csr, leaf.signed.pem, the
// tier extension descriptors (*.cnf) and the chain file certificate_chain. Artifacts of
// a previous run are removed first.
//
// # Examples
//
// Build into a dedicated directory:
//
//	dc-cert-chain -o ./dcp-signing
//
// Build with a custom profile and show the chain as a tree:
//
//	dc-cert-chain -c profile.yaml --tree
//
// Verify the result with OpenSSL:
//
//	openssl verify -CAfile dcp-signing/certificate_chain dcp-signing/leaf.signed.pem
package main
