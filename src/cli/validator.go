// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/xsd"
)

// Exit statuses of xsd-check.
const (
	ExitValid   = 0
	ExitInvalid = 1
	ExitUsage   = 2
)

// ExitError carries a process exit status out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps the result of a command to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitValid
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitInvalid
}

// ExecuteValidator runs xsd-check with args, writing its report to out.
// The returned error maps to an exit status through [ExitCode].
func ExecuteValidator(ctx context.Context, version string, out io.Writer, args ...string) error {
	if args == nil {
		args = []string{}
	}

	cmd := NewValidatorCommand(version)
	cmd.SetOut(out)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewValidatorCommand creates the xsd-check command.
func NewValidatorCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   posix.ExecutableName("xsd-check") + " FILE FILE",
		Short: "Validate an XML document against an XML Schema",
		Long: `Validates an XML document against an XML Schema. The two files may be given in
either order; the one whose root element is named schema is taken as the schema.

Exit status is 0 for a valid document, 1 for an invalid or malformed one and 2 for
usage errors.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runValidator,
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln("Error:", err)
		return &ExitError{Code: ExitUsage, Err: err}
	})

	return cmd
}

func runValidator(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	res, err := xsd.Check(args...)
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, xsd.ErrArgCount):
			msg = xsd.MsgUsage
		case errors.Is(err, xsd.ErrIdentical):
			msg = xsd.MsgIdentical
		}
		fmt.Fprintln(out, msg)
		return &ExitError{Code: ExitUsage, Err: err}
	}

	if _, err := res.WriteTo(out); err != nil {
		return err
	}
	if !res.Valid() {
		return &ExitError{Code: ExitInvalid}
	}
	return nil
}
