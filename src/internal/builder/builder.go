// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package builder

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/config"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/artifacts"
	x509chain "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/dnq"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/issuer"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/logger"
)

// Operation names reported in a TierError.
const (
	OpGenerateKey     = "generate key"
	OpWriteKey        = "write key"
	OpWritePolicy     = "write policy"
	OpSubject         = "compose subject"
	OpDeriveQualifier = "derive qualifier"
	OpIssue           = "issue certificate"
	OpWriteRequest    = "write request"
	OpWriteCert       = "write certificate"
	OpVerify          = "verify against chain"
	OpExportPKCS12    = "export pkcs12"
)

var (
	// ErrNilConfig indicates a build without a configuration.
	ErrNilConfig = errors.New("builder: configuration is required")

	// ErrCleanup indicates that stale artifacts could not be removed.
	ErrCleanup = errors.New("builder: cleanup failed")

	// ErrChainFile indicates a failure writing or re-reading the chain file.
	ErrChainFile = errors.New("builder: chain file")
)

// TierError reports the tier and step at which a build stopped.
type TierError struct {
	Tier profile.Tier
	Op   string
	Err  error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("builder: %s: %s: %v", e.Tier, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TierError) Unwrap() error { return e.Err }

// KeyGenerator creates a key pair of the requested modulus size.
type KeyGenerator func(bits int) (*keys.KeyPair, error)

// Option configures a [Builder].
type Option func(*Builder)

// WithLogger sets the progress logger.
func WithLogger(l logger.Logger) Option { return func(b *Builder) { b.log = l } }

// WithClock sets the clock used for issuance and chain verification.
func WithClock(c clockwork.Clock) Option { return func(b *Builder) { b.clock = c } }

// WithKeyGenerator replaces RSA key generation.
func WithKeyGenerator(g KeyGenerator) Option { return func(b *Builder) { b.keygen = g } }

// Builder produces one chain from a configuration.
type Builder struct {
	cfg    *config.Config
	log    logger.Logger
	clock  clockwork.Clock
	keygen KeyGenerator
}

// New creates a Builder for cfg.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		log:    logger.NewCLILogger(),
		clock:  clockwork.NewRealClock(),
		keygen: keys.Generate,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a completed build.
type Result struct {
	Root         *issuer.Issued
	Intermediate *issuer.Issued
	Leaf         *issuer.Issued
	Chain        *x509chain.File
	Store        *artifacts.Store
	// Files lists every written artifact path in write order.
	Files []string
}

// Issued returns the issuance result of t.
func (r *Result) Issued(t profile.Tier) *issuer.Issued {
	switch t {
	case profile.Root:
		return r.Root
	case profile.Intermediate:
		return r.Intermediate
	default:
		return r.Leaf
	}
}

// Entries returns the report entries of the three tiers, root first.
func (r *Result) Entries() []x509chain.Entry {
	entries := make([]x509chain.Entry, 0, 3)
	for _, t := range profile.Tiers() {
		entries = append(entries, x509chain.Entry{
			Label: t.Description(),
			File:  artifacts.CertFile(t),
			Cert:  r.Issued(t).Cert,
		})
	}
	return entries
}

// Build runs the full chain build.
//
// Parameters:
//   - ctx: Checked before each tier; cancellation stops the build between tiers
//
// Returns:
//   - *Result: Issued tiers, verified chain file and written paths
//   - error: *TierError for tier failures, or ErrCleanup / ErrChainFile / ctx.Err()
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if b.cfg == nil {
		return nil, ErrNilConfig
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := artifacts.New(b.cfg.OutputDir, artifacts.WithChainFile(b.cfg.ChainFile))
	if err != nil {
		return nil, err
	}

	removed, err := store.Cleanup()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCleanup, err)
	}
	if len(removed) > 0 {
		b.info("Removed stale artifacts", zap.Strings("files", removed))
	}

	res := &Result{
		Chain: x509chain.NewFile(x509chain.WithClock(b.clock)),
		Store: store,
	}
	is := issuer.New(issuer.WithClock(b.clock), issuer.WithValidity(b.cfg.Validity()))

	var parent *issuer.Issued
	for _, t := range profile.Tiers() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		issued, err := b.buildTier(is, store, res, t, parent)
		if err != nil {
			return nil, err
		}

		switch t {
		case profile.Root:
			res.Root = issued
		case profile.Intermediate:
			res.Intermediate = issued
		case profile.Leaf:
			res.Leaf = issued
		}
		parent = issued
	}

	if err := b.writeChain(res); err != nil {
		return nil, err
	}

	if b.cfg.PKCS12 {
		path, err := store.WritePKCS12(res.Leaf.Key, res.Leaf.Cert, []*x509.Certificate{res.Intermediate.Cert, res.Root.Cert})
		if err != nil {
			return nil, &TierError{Tier: profile.Leaf, Op: OpExportPKCS12, Err: err}
		}
		res.Files = append(res.Files, path)
		b.info("Wrote PKCS#12 bundle", zap.String("path", path))
	}

	return res, nil
}

func (b *Builder) buildTier(is *issuer.Issuer, store *artifacts.Store, res *Result, t profile.Tier, parent *issuer.Issued) (*issuer.Issued, error) {
	fail := func(op string, err error) error { return &TierError{Tier: t, Op: op, Err: err} }
	tc := b.cfg.TierConfig(t)
	policy := profile.MustPolicyFor(t)

	kp, err := b.keygen(b.cfg.KeyBits)
	if err != nil {
		return nil, fail(OpGenerateKey, err)
	}
	if kp.Bits() < b.cfg.KeyBits {
		return nil, fail(OpGenerateKey, fmt.Errorf("%w: got %d bits, want %d", keys.ErrKeySize, kp.Bits(), b.cfg.KeyBits))
	}
	if err := b.record(res, t, "key", func() (string, error) { return store.WriteKey(t, kp) }); err != nil {
		return nil, fail(OpWriteKey, err)
	}

	if b.cfg.WritePolicyFiles {
		if err := b.record(res, t, "policy", func() (string, error) { return store.WritePolicy(policy) }); err != nil {
			return nil, fail(OpWritePolicy, err)
		}
	}

	subject, err := b.cfg.Subject(t)
	if err != nil {
		return nil, fail(OpSubject, err)
	}
	q, err := dnq.Derive(kp.Public())
	if err != nil {
		return nil, fail(OpDeriveQualifier, err)
	}
	subject.DNQualifier = q.String()

	serial := big.NewInt(tc.Serial)
	var issued *issuer.Issued
	if parent == nil {
		issued, err = is.IssueRoot(kp, subject, serial, policy)
	} else {
		issued, err = is.IssueSigned(kp, subject, serial, policy, parent)
	}
	if err != nil {
		return nil, fail(OpIssue, err)
	}

	if issued.CSR != nil {
		if err := b.record(res, t, "request", func() (string, error) { return store.WriteCSR(t, issued.CSR) }); err != nil {
			return nil, fail(OpWriteRequest, err)
		}
	}
	if err := b.record(res, t, "certificate", func() (string, error) { return store.WriteCert(t, issued.Cert) }); err != nil {
		return nil, fail(OpWriteCert, err)
	}

	if err := res.Chain.Append(issued.Cert); err != nil {
		return nil, fail(OpVerify, err)
	}
	b.info("Verified certificate against chain",
		zap.String("tier", t.String()),
		zap.String("subject", subject.String()),
		zap.Int("chain_length", res.Chain.Len()),
	)

	return issued, nil
}

// writeChain writes the chain file and verifies what landed on disk.
func (b *Builder) writeChain(res *Result) error {
	path, err := res.Store.WriteChain(res.Chain)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainFile, err)
	}
	res.Files = append(res.Files, path)

	onDisk, err := res.Store.ReadChain(x509chain.WithClock(b.clock))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainFile, err)
	}
	if err := onDisk.VerifyAll(); err != nil {
		return fmt.Errorf("%w: %w", ErrChainFile, err)
	}

	b.info("Wrote chain file", zap.String("path", path), zap.Int("certificates", onDisk.Len()))
	return nil
}

// record runs write, remembers the written path and logs it.
func (b *Builder) record(res *Result, t profile.Tier, kind string, write func() (string, error)) error {
	path, err := write()
	if err != nil {
		return err
	}
	res.Files = append(res.Files, path)
	b.info("Wrote "+kind, zap.String("tier", t.String()), zap.String("path", path))
	return nil
}

// info logs with fields when the logger supports them and as plain text otherwise.
func (b *Builder) info(msg string, fields ...zap.Field) {
	if sl, ok := b.log.(logger.StructuredLogger); ok {
		sl.Info(msg, fields...)
		return
	}
	b.log.Println(msg + formatFields(fields))
}

// formatFields renders fields as " key=value" pairs for plain text loggers.
func formatFields(fields []zap.Field) string {
	if len(fields) == 0 {
		return ""
	}

	enc := zapcore.NewMapObjectEncoder()
	var sb strings.Builder
	for _, f := range fields {
		f.AddTo(enc)
		fmt.Fprintf(&sb, " %s=%v", f.Key, enc.Fields[f.Key])
	}
	return sb.String()
}
