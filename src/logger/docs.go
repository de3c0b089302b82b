// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package logger provides abstraction and implementation for logging operations.
// It defines the Logger interface and provides two implementations: CLILogger for
// human-readable command-line output and JSONLogger, backed by [zap], for one JSON
// object per line when the output is consumed by other tools. Both implementations
// are safe for concurrent use.
//
// [zap]: https://pkg.go.dev/go.uber.org/zap
package logger
