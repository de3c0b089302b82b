// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package builder_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/config"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/artifacts"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/builder"
	x509chain "github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/chain"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/dnq"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/logger"
)

var epoch = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// Key generation dominates test time, so a fixed set of keys is shared and handed out
// in tier order.
var testKeys = sync.OnceValues(func() ([]*keys.KeyPair, error) {
	out := make([]*keys.KeyPair, 3)
	for i := range out {
		kp, err := keys.Generate(keys.DefaultBits)
		if err != nil {
			return nil, err
		}
		out[i] = kp
	}
	return out, nil
})

func pooledKeys(t *testing.T) builder.KeyGenerator {
	t.Helper()

	pool, err := testKeys()
	require.NoError(t, err)

	var mu sync.Mutex
	next := 0
	return func(bits int) (*keys.KeyPair, error) {
		mu.Lock()
		defer mu.Unlock()
		kp := pool[next%len(pool)]
		next++
		return kp, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	return cfg
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer
	clock := clockwork.NewFakeClockAt(epoch)

	b := builder.New(cfg,
		builder.WithClock(clock),
		builder.WithKeyGenerator(pooledKeys(t)),
		builder.WithLogger(logger.NewJSONLogger(&logs)),
	)
	res, err := b.Build(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Artifacts Written",
			testFunc: func(t *testing.T) {
				want := []string{
					"ca.key", "ca.cnf", "ca.self-signed.pem",
					"intermediate.key", "intermediate.cnf", "intermediate.csr", "intermediate.signed.pem",
					"leaf.key", "leaf.cnf", "leaf.csr", "leaf.signed.pem",
					artifacts.DefaultChainFile,
				}
				var got []string
				for _, p := range res.Files {
					assert.Equal(t, cfg.OutputDir, filepath.Dir(p))
					got = append(got, filepath.Base(p))
				}
				assert.Equal(t, want, got)

				_, err := os.Stat(filepath.Join(cfg.OutputDir, "ca.csr"))
				assert.ErrorIs(t, err, os.ErrNotExist)
			},
		},
		{
			name: "Key Files Private",
			testFunc: func(t *testing.T) {
				if runtime.GOOS == "windows" {
					t.Skip("POSIX permissions")
				}
				for _, tier := range profile.Tiers() {
					info, err := os.Stat(res.Store.Path(artifacts.KeyFile(tier)))
					require.NoError(t, err)
					assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), tier.String())
				}
			},
		},
		{
			name: "Chain File Verifies",
			testFunc: func(t *testing.T) {
				onDisk, err := res.Store.ReadChain(x509chain.WithClock(clock))
				require.NoError(t, err)
				require.NoError(t, onDisk.VerifyAll())

				certs := onDisk.Certs()
				require.Len(t, certs, 3)
				assert.True(t, res.Root.Cert.Equal(certs[0]))
				assert.True(t, res.Intermediate.Cert.Equal(certs[1]))
				assert.True(t, res.Leaf.Cert.Equal(certs[2]))
			},
		},
		{
			name: "Certificates Match Stored Files",
			testFunc: func(t *testing.T) {
				for _, tier := range profile.Tiers() {
					cert, err := res.Store.ReadCert(tier)
					require.NoError(t, err)
					assert.True(t, res.Issued(tier).Cert.Equal(cert), tier.String())

					kp, err := res.Store.ReadKey(tier)
					require.NoError(t, err)
					assert.True(t, res.Issued(tier).Key.Private.Equal(kp.Private), tier.String())
				}
			},
		},
		{
			name: "Subjects And Qualifiers",
			testFunc: func(t *testing.T) {
				assert.Equal(t, "dcstore.ROOT", res.Root.Cert.Subject.CommonName)
				assert.Equal(t, "dcstore.INTERMEDIATE", res.Intermediate.Cert.Subject.CommonName)
				assert.Equal(t, "CS dcstore.LEAF", res.Leaf.Cert.Subject.CommonName)

				for _, tier := range profile.Tiers() {
					assert.NoError(t, dnq.Check(res.Issued(tier).Cert), tier.String())
				}
			},
		},
		{
			name: "Serials From Profile",
			testFunc: func(t *testing.T) {
				assert.EqualValues(t, 5, res.Root.Cert.SerialNumber.Int64())
				assert.EqualValues(t, 6, res.Intermediate.Cert.SerialNumber.Int64())
				assert.EqualValues(t, 7, res.Leaf.Cert.SerialNumber.Int64())
			},
		},
		{
			name: "Validity From Clock",
			testFunc: func(t *testing.T) {
				assert.Equal(t, epoch, res.Leaf.Cert.NotBefore)
				assert.Equal(t, epoch.Add(cfg.Validity()), res.Leaf.Cert.NotAfter)
			},
		},
		{
			name: "Report Entries",
			testFunc: func(t *testing.T) {
				entries := res.Entries()
				require.Len(t, entries, 3)
				assert.Equal(t, "Self-signed CA certificate (issuer == subject)", entries[0].Label)
				assert.Equal(t, "ca.self-signed.pem", entries[0].File)
				assert.Equal(t, "leaf.signed.pem", entries[2].File)
				assert.Same(t, res.Leaf.Cert, entries[2].Cert)
			},
		},
		{
			name: "Structured Progress Logged",
			testFunc: func(t *testing.T) {
				out := logs.String()
				assert.Contains(t, out, `"message":"Wrote chain file"`)
				assert.Contains(t, out, `"tier":"intermediate"`)
				assert.Contains(t, out, `"chain_length":3`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}

func TestBuild_Options(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Stale Artifacts Removed",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				stale := filepath.Join(cfg.OutputDir, "leaf.old")
				require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
				other := filepath.Join(cfg.OutputDir, "notes.txt")
				require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))

				var logs bytes.Buffer
				l := logger.NewCLILogger()
				l.SetOutput(&logs)

				_, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), builder.WithLogger(l)).
					Build(context.Background())
				require.NoError(t, err)

				_, err = os.Stat(stale)
				assert.ErrorIs(t, err, os.ErrNotExist)
				assert.FileExists(t, other)
				assert.Contains(t, logs.String(), "Removed stale artifacts files=[leaf.old]")
				assert.Contains(t, logs.String(), "Wrote certificate tier=leaf")
			},
		},
		{
			name: "Custom Chain File Keeps Unrelated Files",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.ChainFile = "dcp.chain"
				require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDir, "dcp.chain"), []byte("old"), 0o644))
				precious := filepath.Join(cfg.OutputDir, "precious.txt")
				require.NoError(t, os.WriteFile(precious, []byte("x"), 0o644))

				var logs bytes.Buffer
				l := logger.NewCLILogger()
				l.SetOutput(&logs)

				res, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), builder.WithLogger(l)).
					Build(context.Background())
				require.NoError(t, err)

				assert.FileExists(t, precious)
				assert.Contains(t, logs.String(), "Removed stale artifacts files=[dcp.chain]")
				assert.Contains(t, res.Files, filepath.Join(cfg.OutputDir, "dcp.chain"))
			},
		},
		{
			name: "Policy Files Optional",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.WritePolicyFiles = false

				res, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), builder.WithLogger(logger.NewJSONLogger(nil))).
					Build(context.Background())
				require.NoError(t, err)

				for _, tier := range profile.Tiers() {
					assert.NoFileExists(t, res.Store.Path(artifacts.PolicyFile(tier)))
				}
				assert.Len(t, res.Files, 9)
			},
		},
		{
			name: "PKCS12 Export",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.PKCS12 = true
				cfg.ChainFile = "chain.pem"

				res, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), builder.WithLogger(logger.NewJSONLogger(nil))).
					Build(context.Background())
				require.NoError(t, err)

				assert.Equal(t, artifacts.PKCS12File, filepath.Base(res.Files[len(res.Files)-1]))
				assert.FileExists(t, filepath.Join(cfg.OutputDir, "chain.pem"))

				data, err := os.ReadFile(res.Store.Path(artifacts.PKCS12File))
				require.NoError(t, err)
				key, leaf, cas, err := pkcs12.DecodeChain(data, artifacts.PKCS12Password)
				require.NoError(t, err)
				assert.True(t, res.Leaf.Key.Private.Equal(key))
				assert.True(t, res.Leaf.Cert.Equal(leaf))
				require.Len(t, cas, 2)
				assert.True(t, res.Intermediate.Cert.Equal(cas[0]))
				assert.True(t, res.Root.Cert.Equal(cas[1]))
			},
		},
		{
			name: "Subject Override",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.Intermediate.Subject = "/O=studio.example/OU=mastering/CN=mastering.INTERMEDIATE"

				res, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), builder.WithLogger(logger.NewJSONLogger(nil))).
					Build(context.Background())
				require.NoError(t, err)

				subject := res.Intermediate.Cert.Subject
				assert.Equal(t, []string{"studio.example"}, subject.Organization)
				assert.Equal(t, "mastering.INTERMEDIATE", subject.CommonName)
				assert.Equal(t, res.Intermediate.Cert.RawSubject, res.Leaf.Cert.RawIssuer)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}

func TestBuild_Errors(t *testing.T) {
	quiet := builder.WithLogger(logger.NewJSONLogger(nil))

	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Nil Config",
			testFunc: func(t *testing.T) {
				_, err := builder.New(nil).Build(context.Background())
				assert.ErrorIs(t, err, builder.ErrNilConfig)
			},
		},
		{
			name: "Invalid Config",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.Leaf.Serial = cfg.Root.Serial

				_, err := builder.New(cfg, quiet).Build(context.Background())
				assert.ErrorIs(t, err, config.ErrInvalid)
			},
		},
		{
			name: "Cancelled Before Start",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				_, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), quiet).Build(ctx)
				assert.ErrorIs(t, err, context.Canceled)
				assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "ca.key"))
			},
		},
		{
			name: "Cancelled Between Tiers",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()

				gen := pooledKeys(t)
				calls := 0
				cancelling := func(bits int) (*keys.KeyPair, error) {
					calls++
					if calls == 2 {
						cancel()
					}
					return gen(bits)
				}

				_, err := builder.New(cfg, builder.WithKeyGenerator(cancelling), quiet).Build(ctx)
				assert.ErrorIs(t, err, context.Canceled)
				assert.Equal(t, 2, calls)
				assert.FileExists(t, filepath.Join(cfg.OutputDir, "intermediate.signed.pem"))
				assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "leaf.key"))
				assert.NoFileExists(t, filepath.Join(cfg.OutputDir, artifacts.DefaultChainFile))
			},
		},
		{
			name: "Key Generation Failure",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				boom := errors.New("entropy exhausted")
				gen := func(int) (*keys.KeyPair, error) { return nil, boom }

				_, err := builder.New(cfg, builder.WithKeyGenerator(gen), quiet).Build(context.Background())
				require.Error(t, err)
				assert.ErrorIs(t, err, boom)

				var te *builder.TierError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, profile.Root, te.Tier)
				assert.Equal(t, builder.OpGenerateKey, te.Op)
				assert.EqualError(t, err, "builder: root: generate key: entropy exhausted")
			},
		},
		{
			name: "Qualifier In Override",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				cfg.Leaf.Subject = "/O=example.com/CN=x/dnQualifier=abc"

				_, err := builder.New(cfg, builder.WithKeyGenerator(pooledKeys(t)), quiet).Build(context.Background())
				require.Error(t, err)
				assert.ErrorIs(t, err, config.ErrInvalid)
			},
		},
		{
			name: "Undersized Key",
			testFunc: func(t *testing.T) {
				cfg := testConfig(t)
				gen := func(int) (*keys.KeyPair, error) {
					k, err := rsa.GenerateKey(rand.Reader, 1024)
					return &keys.KeyPair{Private: k}, err
				}

				_, err := builder.New(cfg, builder.WithKeyGenerator(gen), quiet).Build(context.Background())
				assert.ErrorIs(t, err, keys.ErrKeySize)

				var te *builder.TierError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, profile.Root, te.Tier)
				assert.NoFileExists(t, filepath.Join(cfg.OutputDir, "ca.key"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, tt.testFunc)
	}
}

// The chain file must reject a tier whose validity has not started by the time it is
// appended.
func TestBuild_VerifiesEachTier(t *testing.T) {
	cfg := testConfig(t)
	clock := clockwork.NewFakeClockAt(epoch)

	gen := pooledKeys(t)
	calls := 0
	skewing := func(bits int) (*keys.KeyPair, error) {
		calls++
		if calls == 3 {
			// Issued leaf starts after the intermediate expires.
			clock.Advance(cfg.Validity() + time.Hour)
		}
		return gen(bits)
	}

	_, err := builder.New(cfg,
		builder.WithClock(clock),
		builder.WithKeyGenerator(skewing),
		builder.WithLogger(logger.NewJSONLogger(nil)),
	).Build(context.Background())
	require.Error(t, err)

	var te *builder.TierError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, profile.Leaf, te.Tier)
	assert.Equal(t, builder.OpVerify, te.Op)
	assert.ErrorIs(t, err, x509chain.ErrVerify)
	assert.NoFileExists(t, filepath.Join(cfg.OutputDir, artifacts.DefaultChainFile))
}
