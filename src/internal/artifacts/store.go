// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package artifacts

import (
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/certs"
	x509chain "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

const (
	// DefaultChainFile is the name of the assembled chain file.
	DefaultChainFile = "certificate_chain"

	// PKCS12File is the name of the optional leaf bundle.
	PKCS12File = "leaf.p12"

	// PKCS12Password protects the leaf bundle. It is the conventional interchange
	// password, not a secret.
	PKCS12Password = pkcs12.DefaultPassword

	keyPerm  fs.FileMode = 0o600
	filePerm fs.FileMode = 0o644
	dirPerm  fs.FileMode = 0o755
)

var (
	// ErrEmptyDir indicates a Store without an output directory.
	ErrEmptyDir = errors.New("artifacts: output directory is required")

	// ErrWrite indicates a failed artifact write.
	ErrWrite = errors.New("artifacts: write failed")

	// ErrRead indicates a failed artifact read.
	ErrRead = errors.New("artifacts: read failed")
)

// KeyFile returns the private key file name of t.
func KeyFile(t profile.Tier) string { return t.Prefix() + ".key" }

// PolicyFile returns the extension descriptor file name of t.
func PolicyFile(t profile.Tier) string { return t.Prefix() + ".cnf" }

// CSRFile returns the signing request file name of t. The root has none.
func CSRFile(t profile.Tier) string { return t.Prefix() + ".csr" }

// CertFile returns the certificate file name of t.
func CertFile(t profile.Tier) string {
	if t == profile.Root {
		return t.Prefix() + ".self-signed.pem"
	}
	return t.Prefix() + ".signed.pem"
}

// Option configures a [Store].
type Option func(*Store)

// WithChainFile sets the chain file name.
func WithChainFile(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.chainFile = name
		}
	}
}

// Store writes artifacts into one output directory.
type Store struct {
	dir       string
	chainFile string
	codec     *x509certs.Certificate
}

// New creates a Store for dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, ErrEmptyDir
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	s := &Store{
		dir:       dir,
		chainFile: DefaultChainFile,
		codec:     x509certs.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// ChainFile returns the chain file name.
func (s *Store) ChainFile() string { return s.chainFile }

// Path returns the full path of the named artifact.
func (s *Store) Path(name string) string { return filepath.Join(s.dir, name) }

// Cleanup removes artifacts of a previous run: every tier-prefixed file, the chain file
// and the PKCS#12 bundle. Other files in the directory are left alone.
//
// Returns:
//   - []string: Names of the removed files, sorted
//   - error: First removal error
func (s *Store) Cleanup() ([]string, error) {
	var removed []string

	// Tier prefixes are fixed; configured names are removed literally, never expanded.
	for _, t := range profile.Tiers() {
		matches, err := filepath.Glob(filepath.Join(s.dir, t.Prefix()+".*"))
		if err != nil {
			return removed, err
		}
		for _, m := range matches {
			ok, err := removeFile(m)
			if err != nil {
				return removed, err
			}
			if ok {
				removed = append(removed, filepath.Base(m))
			}
		}
	}

	for _, name := range []string{s.chainFile, PKCS12File} {
		ok, err := removeFile(s.Path(name))
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, name)
		}
	}

	slices.Sort(removed)
	return slices.Compact(removed), nil
}

// removeFile deletes path if it is a regular file or symlink and reports whether it did.
func removeFile(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil || info.IsDir() {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WriteKey writes kp as a PKCS#1 PEM private key, readable by the owner only.
func (s *Store) WriteKey(t profile.Tier, kp *keys.KeyPair) (string, error) {
	return s.write(KeyFile(t), kp.EncodePEM(), keyPerm)
}

// WritePolicy writes the tier's extension descriptor.
func (s *Store) WritePolicy(p profile.Policy) (string, error) {
	return s.write(PolicyFile(p.Tier), []byte(p.OpenSSLConfig()), filePerm)
}

// WriteCSR writes csr as PEM.
func (s *Store) WriteCSR(t profile.Tier, csr *x509.CertificateRequest) (string, error) {
	return s.write(CSRFile(t), s.codec.EncodeRequestPEM(csr), filePerm)
}

// WriteCert writes cert as PEM.
func (s *Store) WriteCert(t profile.Tier, cert *x509.Certificate) (string, error) {
	return s.write(CertFile(t), s.codec.EncodePEM(cert), filePerm)
}

// WriteChain writes the assembled chain file.
func (s *Store) WriteChain(f *x509chain.File) (string, error) {
	return s.write(s.chainFile, f.Bytes(), filePerm)
}

// WritePKCS12 bundles the leaf key and certificate with its CA certificates,
// protected with [PKCS12Password].
func (s *Store) WritePKCS12(kp *keys.KeyPair, leaf *x509.Certificate, cas []*x509.Certificate) (string, error) {
	pfx, err := pkcs12.Modern.Encode(kp.Private, leaf, cas, PKCS12Password)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, PKCS12File, err)
	}
	return s.write(PKCS12File, pfx, keyPerm)
}

// ReadCert reads back the certificate of t.
func (s *Store) ReadCert(t profile.Tier) (*x509.Certificate, error) {
	data, err := gc.ReadFile(s.Path(CertFile(t)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return s.codec.Decode(data)
}

// ReadKey reads back the private key of t.
func (s *Store) ReadKey(t profile.Tier) (*keys.KeyPair, error) {
	data, err := gc.ReadFile(s.Path(KeyFile(t)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return keys.ParsePEM(data)
}

// ReadChain reads back the chain file. The result is not verified.
func (s *Store) ReadChain(opts ...x509chain.Option) (*x509chain.File, error) {
	data, err := gc.ReadFile(s.Path(s.chainFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return x509chain.ParseFile(data, opts...)
}

// write creates or overwrites name with data and enforces perm even when the file
// already existed with a wider mode.
func (s *Store) write(name string, data []byte, perm fs.FileMode) (string, error) {
	path := s.Path(name)
	if err := os.WriteFile(path, data, perm); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
	}
	if err := os.Chmod(path, perm); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrWrite, name, err)
	}
	return path, nil
}
