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
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/logger"
	verpkg "github.com/H0llyW00dzZ/dcinema-cert-chain/src/version"
)

var version string // set by ldflags or defaults to imported version

func init() {
	if version == "" {
		version = verpkg.Version
	}
}

func main() {
	log := logger.NewCLILogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- cli.Execute(ctx, version, log)
	}()

	select {
	case err := <-done:
		if err != nil {
			log.Printf("Chain build failed: %v", err)
			os.Exit(1)
		}
		if cli.OperationPerformed {
			log.Println("Digital cinema certificate chain built successfully.")
		}
	case <-ctx.Done():
		log.Println("Operation cancelled by signal. Exiting...")
		// The builder stops between tiers; give it a moment to return.
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
		os.Exit(130)
	}
}
