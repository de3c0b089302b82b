// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the chain profile used by the dc-cert-chain command.
//
// A profile is a JSON or YAML file (chosen by extension: .json, .yaml, .yml). It is
// validated against an embedded [JSON Schema] before it is decoded, so unknown keys
// and wrongly typed values are reported with their location instead of being ignored.
//
// Configuration Priority:
//  1. Default values (the reference digital cinema profile)
//  2. File named by the --config flag, or by DC_CERT_CHAIN_CONFIG when the flag is empty
//  3. DC_CERT_CHAIN_OUT_DIR when the file does not set outputDir
//
// Example profile:
//
//	outputDir: ./out
//	organization: example.com
//	organizationalUnit: csc.example.com
//	root:
//	  commonName: dcstore.ROOT
//	  serial: 5
//	leaf:
//	  subject: /O=studio.example/OU=mastering/CN=CS signer.LEAF
//	  serial: 7
//	pkcs12: true
//
// [JSON Schema]: https://json-schema.org/
package config
