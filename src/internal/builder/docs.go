// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package builder runs a complete chain build: root, then intermediate signed by the
// root, then leaf signed by the intermediate.
//
// For each tier the builder generates a key, derives the dnQualifier from it, composes
// the subject, issues the certificate under the tier's extension policy, writes the
// artifacts and appends the certificate to the chain file, which verifies it against
// the tiers already present. Tiers run strictly in order on the calling goroutine and
// the issued material of one tier is handed explicitly to the next. The first failure
// stops the build and is returned as a [*TierError].
package builder
