// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package artifacts writes the files produced by a chain build into an output directory.
//
// File names follow the tier prefix (ca, intermediate, leaf):
//
//	ca.key             ca.cnf             ca.self-signed.pem
//	intermediate.key   intermediate.cnf   intermediate.csr   intermediate.signed.pem
//	leaf.key           leaf.cnf           leaf.csr           leaf.signed.pem
//	certificate_chain  leaf.p12 (optional)
//
// Private keys are written with mode 0600 and everything else with 0644. Writes create
// or overwrite. [Store.Cleanup] removes the artifacts of a previous run before a new
// build starts.
package artifacts
