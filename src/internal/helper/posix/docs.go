// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package posix provides [POSIX]-compliant helper functions for cross-platform compatibility.
//
// Key functions:
//   - ExecutableName: Returns the executable name without extension for CLI usage
//
// # Usage Examples
//
//	rootCmd := &cobra.Command{
//	    Use:   posix.ExecutableName("dc-cert-chain"),
//	    Short: "Digital cinema certificate chain builder",
//	}
//
// The name is derived the same way on every platform:
//
//   - Linux/macOS: "/usr/bin/dc-cert-chain" → "dc-cert-chain"
//   - Windows: "C:\bin\xsd-check.exe" → "xsd-check"
//   - Fallback: Empty args → the fallback passed by the caller
//
// [POSIX]: https://grokipedia.com/page/POSIX
package posix
