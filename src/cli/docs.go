// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interfaces of the digital cinema tools.
//
// [Execute] runs dc-cert-chain, which builds the root, intermediate and leaf
// certificates of a content signing chain into an output directory and prints a
// certificate report as plain text, an ASCII tree, a markdown table or JSON.
// [ExecuteValidator] runs xsd-check, which validates an XML document against an XML
// Schema and reports its findings with the exit status described by [ExitCode].
//
// Both commands are Cobra commands that honour context cancellation and write their
// progress through the logger package.
package cli
