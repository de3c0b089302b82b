// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509chain

import (
	"crypto/x509"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/certs"
)

var (
	// ErrNilCertificate indicates a nil certificate passed for verification.
	ErrNilCertificate = errors.New("x509chain: certificate is nil")

	// ErrVerify indicates a certificate that does not validate against the chain prefix.
	ErrVerify = errors.New("x509chain: verification failed")

	// ErrEmptyChain indicates a chain file with no certificates.
	ErrEmptyChain = errors.New("x509chain: chain is empty")
)

// Option configures a [File].
type Option func(*File)

// WithClock sets the clock whose time is used as the verification time.
func WithClock(c clockwork.Clock) Option { return func(f *File) { f.clock = c } }

// File is the ordered chain file, root first.
//
// Thread Safety: Safe for concurrent use.
type File struct {
	mu    sync.RWMutex
	certs []*x509.Certificate
	codec *x509certs.Certificate
	clock clockwork.Clock
}

// NewFile creates an empty chain file.
func NewFile(opts ...Option) *File {
	f := &File{
		codec: x509certs.New(),
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Append verifies cert against the certificates already in the file and appends it
// on success. The first certificate must be self-signed.
//
// Parameters:
//   - cert: Certificate to append
//
// Returns:
//   - error: ErrVerify wrapping the validation failure; the file is unchanged on error
//
// Thread Safety: Safe for concurrent use.
func (f *File) Append(cert *x509.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := verifyAt(f.certs, cert, f.clock); err != nil {
		return err
	}
	f.certs = append(f.certs, cert)
	return nil
}

// Certs returns a copy of the certificates in file order.
func (f *File) Certs() []*x509.Certificate {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*x509.Certificate(nil), f.certs...)
}

// Len returns the number of certificates in the file.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.certs)
}

// Bytes returns the PEM concatenation of the file's certificates.
//
// Thread Safety: Safe for concurrent use.
func (f *File) Bytes() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	for _, cert := range f.certs {
		_, _ = buf.Write(f.codec.EncodePEM(cert))
	}

	return append([]byte(nil), buf.Bytes()...)
}

// VerifyAll replays the incremental protocol over the whole file: each certificate is
// verified against the certificates before it.
func (f *File) VerifyAll() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.certs) == 0 {
		return ErrEmptyChain
	}
	for i, cert := range f.certs {
		if err := verifyAt(f.certs[:i], cert, f.clock); err != nil {
			return fmt.Errorf("certificate %d: %w", i+1, err)
		}
	}
	return nil
}

// Intermediates returns the certificates between the root and the last certificate.
func (f *File) Intermediates() []*x509.Certificate {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.certs) <= 2 {
		return nil
	}
	return append([]*x509.Certificate(nil), f.certs[1:len(f.certs)-1]...)
}

// ParseFile decodes a chain file (PEM, DER or PKCS#7) without verifying it.
// Call [File.VerifyAll] to check it.
func ParseFile(data []byte, opts ...Option) (*File, error) {
	f := NewFile(opts...)

	certs, err := f.codec.DecodeMultiple(data)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return nil, ErrEmptyChain
	}

	f.certs = certs
	return f, nil
}

// Verify validates cert against anchors using the current time.
// Self-signed anchors are trusted roots; every other anchor is an untrusted intermediate.
func Verify(anchors []*x509.Certificate, cert *x509.Certificate) error {
	return verifyAt(anchors, cert, clockwork.NewRealClock())
}

func verifyAt(anchors []*x509.Certificate, cert *x509.Certificate, clock clockwork.Clock) error {
	if cert == nil {
		return ErrNilCertificate
	}

	roots := x509.NewCertPool()
	intermediates := x509.NewCertPool()
	for _, a := range anchors {
		if IsSelfSigned(a) {
			roots.AddCert(a)
		} else {
			intermediates.AddCert(a)
		}
	}

	// An empty file accepts only a self-signed certificate, which anchors itself.
	if len(anchors) == 0 && IsSelfSigned(cert) {
		roots.AddCert(cert)
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   clock.Now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	if _, err := cert.Verify(opts); err != nil {
		// Keep the original error for its diagnostics (expiry, unknown authority).
		return fmt.Errorf("%w: %s: %w", ErrVerify, cert.Subject.CommonName, err)
	}

	return nil
}

// IsSelfSigned reports whether cert is signed by its own key under its own name.
func IsSelfSigned(cert *x509.Certificate) bool {
	if cert == nil || string(cert.RawIssuer) != string(cert.RawSubject) {
		return false
	}
	return cert.CheckSignatureFrom(cert) == nil
}
