// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package keys generates and encodes the [RSA] key pairs used by each tier of the
// certificate chain. Keys are written in the same PKCS#1 "RSA PRIVATE KEY" form
// that "openssl genrsa" produces, so existing digital cinema tooling can read them.
//
// [RSA]: https://grokipedia.com/page/RSA_cryptosystem
package keys
