// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/cli"
	verpkg "github.com/H0llyW00dzZ/dcinema-cert-chain/src/version"
)

var version string // set by ldflags or defaults to imported version

func init() {
	if version == "" {
		version = verpkg.Version
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- cli.ExecuteValidator(ctx, version, os.Stdout, os.Args[1:]...)
	}()

	select {
	case err := <-done:
		os.Exit(cli.ExitCode(err))
	case <-ctx.Done():
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
		os.Exit(130)
	}
}
