// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package posix

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecutableName(t *testing.T) {
	const fallback = "dc-cert-chain"

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"Relative path", []string{"./xsd-check"}, "xsd-check"},
		{"Just filename", []string{"dc-cert-chain"}, "dc-cert-chain"},
		{"Empty args", []string{}, fallback},
		{"Empty first arg", []string{""}, fallback},
	}

	if runtime.GOOS == "windows" {
		tests = append(tests, []struct {
			name     string
			args     []string
			expected string
		}{
			{"Windows absolute path with .exe", []string{"C:\\Program Files\\xsd-check.exe"}, "xsd-check"},
			{"Windows absolute path without .exe", []string{"C:\\tools\\dc-cert-chain"}, "dc-cert-chain"},
		}...)
	} else {
		tests = append(tests, []struct {
			name     string
			args     []string
			expected string
		}{
			{"Unix absolute path", []string{"/usr/local/bin/dc-cert-chain"}, "dc-cert-chain"},
			{"Foreign windows path", []string{"C:\\windows\\style\\path\\xsd-check.exe"}, "xsd-check"},
		}...)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origArgs := os.Args
			os.Args = tt.args
			defer func() {
				os.Args = origArgs
			}()

			assert.Equal(t, tt.expected, ExecutableName(fallback))
		})
	}
}
