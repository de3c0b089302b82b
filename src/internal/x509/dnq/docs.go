// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package dnq derives the subject dnQualifier used by the digital cinema certificate
// profile. The qualifier is the base64 rendering of a SHA-1 digest over the raw public
// key bit string, which ties a certificate's subject name to its own key.
//
// The derivation matches the classic OpenSSL pipeline:
//
//	openssl rsa -pubout -outform PEM -in key | openssl base64 -d | \
//	  dd bs=1 skip=24 | openssl sha1 -binary | openssl base64
//
// The 24 byte skip is the SubjectPublicKeyInfo header of a 2048-bit RSA key. This
// package locates the header by parsing the encoding, so other modulus sizes work as well.
package dnq
