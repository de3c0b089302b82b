// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"fmt"
	"io"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

// ReportHeader opens the certificate info printout.
const ReportHeader = "+++ Certificate info +++"

// Entry is one certificate in a report, with the label and file it is reported under.
type Entry struct {
	Label string
	File  string
	Cert  *x509.Certificate
}

// Report writes the subject and issuer of every entry in OpenSSL slash form:
//
//	<label> (<file>):
//	subject=/O=.../OU=.../CN=.../dnQualifier=...
//	   signed by
//	 issuer=/O=.../OU=.../CN=.../dnQualifier=...
//
// Names are printed in encoded attribute order, with "/" escaped in values.
func Report(w io.Writer, entries []Entry) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", ReportHeader); err != nil {
		return err
	}

	for _, e := range entries {
		if e.Cert == nil {
			return fmt.Errorf("%w: %s", ErrNilCertificate, e.Label)
		}

		_, err := fmt.Fprintf(w, "\n%s (%s):\nsubject=%s\n   signed by\n issuer=%s\n",
			e.Label,
			e.File,
			profile.FormatName(e.Cert.Subject.Names),
			profile.FormatName(e.Cert.Issuer.Names),
		)
		if err != nil {
			return err
		}
	}

	return nil
}
