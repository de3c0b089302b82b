// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/config"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvOutputDir, "")

	c, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 2048, c.KeyBits)
	assert.Equal(t, 365, c.ValidityDays)
	assert.Equal(t, 365*24*time.Hour, c.Validity())
	assert.Equal(t, "example.com", c.Organization)
	assert.Equal(t, "csc.example.com", c.OrganizationalUnit)
	assert.Equal(t, config.Tier{CommonName: "dcstore.ROOT", Serial: 5}, c.Root)
	assert.Equal(t, config.Tier{CommonName: "dcstore.INTERMEDIATE", Serial: 6}, c.Intermediate)
	assert.Equal(t, config.Tier{CommonName: "dcstore.LEAF", Serial: 7}, c.Leaf)
	assert.True(t, c.WritePolicyFiles)
	assert.Equal(t, "certificate_chain", c.ChainFile)
	assert.False(t, c.PKCS12)
	assert.Empty(t, c.OutputDir)

	leaf, err := c.Subject(profile.Leaf)
	require.NoError(t, err)
	assert.Equal(t, "/O=example.com/OU=csc.example.com/CN=CS dcstore.LEAF", leaf.String())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		testFunc func(t *testing.T, c *config.Config, err error)
	}{
		{
			name: "YAML Overrides",
			file: "profile.yaml",
			content: `
outputDir: ./out
validityDays: 30
root:
  serial: 50
leaf:
  commonName: signer.LEAF
writePolicyFiles: false
pkcs12: true
`,
			testFunc: func(t *testing.T, c *config.Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "./out", c.OutputDir)
				assert.Equal(t, 30, c.ValidityDays)
				assert.Equal(t, config.Tier{CommonName: "dcstore.ROOT", Serial: 50}, c.Root)
				assert.Equal(t, int64(7), c.Leaf.Serial)
				assert.False(t, c.WritePolicyFiles)
				assert.True(t, c.PKCS12)
				assert.Equal(t, 2048, c.KeyBits)

				s, err := c.Subject(profile.Leaf)
				require.NoError(t, err)
				assert.Equal(t, "CS signer.LEAF", s.CommonName)
			},
		},
		{
			name:    "JSON Overrides",
			file:    "profile.json",
			content: `{"keyBits": 3072, "chainFile": "chain.pem", "intermediate": {"serial": 60}}`,
			testFunc: func(t *testing.T, c *config.Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, 3072, c.KeyBits)
				assert.Equal(t, "chain.pem", c.ChainFile)
				assert.Equal(t, int64(60), c.Intermediate.Serial)
				assert.Equal(t, "dcstore.INTERMEDIATE", c.Intermediate.CommonName)
			},
		},
		{
			name:    "Subject Override",
			file:    "profile.yml",
			content: "intermediate:\n  subject: /O=studio.example/OU=mastering/CN=studio.INTERMEDIATE\n",
			testFunc: func(t *testing.T, c *config.Config, err error) {
				require.NoError(t, err)
				s, err := c.Subject(profile.Intermediate)
				require.NoError(t, err)
				assert.Equal(t, profile.Subject{Organization: "studio.example", OrganizationalUnit: "mastering", CommonName: "studio.INTERMEDIATE"}, s)
			},
		},
		{
			name:    "Schema Rejects Unknown Key",
			file:    "profile.json",
			content: `{"passphrase": "secret"}`,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrSchema)
			},
		},
		{
			name:    "Schema Rejects Small Key",
			file:    "profile.yaml",
			content: "keyBits: 1024\n",
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrSchema)
				assert.Contains(t, err.Error(), "keyBits")
			},
		},
		{
			name:    "Schema Rejects Chain File Pattern",
			file:    "profile.json",
			content: `{"chainFile": "*"}`,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrSchema)
				assert.Contains(t, err.Error(), "chainFile")
			},
		},
		{
			name:    "Chain File Tier Prefix",
			file:    "profile.yaml",
			content: "chainFile: intermediate.chain\n",
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				var cfgErr *config.Error
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "chainFile", cfgErr.Field)
			},
		},
		{
			name:    "Schema Rejects Wrong Type",
			file:    "profile.json",
			content: `{"root": {"serial": "five"}}`,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrSchema)
			},
		},
		{
			name:    "Duplicate Serial",
			file:    "profile.json",
			content: `{"leaf": {"serial": 6}}`,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				var cfgErr *config.Error
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "leaf.serial", cfgErr.Field)
				assert.ErrorIs(t, err, config.ErrInvalid)
			},
		},
		{
			name:    "Override With Qualifier",
			file:    "profile.json",
			content: `{"root": {"subject": "/O=a/CN=b/dnQualifier=abc"}}`,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				var cfgErr *config.Error
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "root.subject", cfgErr.Field)
			},
		},
		{
			name:    "Malformed JSON",
			file:    "profile.json",
			content: `{"keyBits": `,
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrParse)
			},
		},
		{
			name:    "Malformed YAML",
			file:    "profile.yaml",
			content: "root: [unclosed\n",
			testFunc: func(t *testing.T, _ *config.Config, err error) {
				assert.ErrorIs(t, err, config.ErrParse)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(config.EnvOutputDir, "")
			c, err := config.Load(writeFile(t, tt.file, tt.content))
			tt.testFunc(t, c, err)
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	path := writeFile(t, "profile.yaml", "validityDays: 10\n")
	t.Setenv(config.EnvConfigFile, path)
	t.Setenv(config.EnvOutputDir, "/tmp/dc-out")

	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 10, c.ValidityDays)
	assert.Equal(t, "/tmp/dc-out", c.OutputDir)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, config.ErrRead)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		field  string
	}{
		{"Key Bits", func(c *config.Config) { c.KeyBits = 1024 }, "keyBits"},
		{"Validity", func(c *config.Config) { c.ValidityDays = 0 }, "validityDays"},
		{"Chain File Path", func(c *config.Config) { c.ChainFile = "../chain" }, "chainFile"},
		{"Chain File Wildcard", func(c *config.Config) { c.ChainFile = "*" }, "chainFile"},
		{"Chain File Class", func(c *config.Config) { c.ChainFile = "chain[0-9]" }, "chainFile"},
		{"Chain File Dot", func(c *config.Config) { c.ChainFile = ".." }, "chainFile"},
		{"Chain File Root Prefix", func(c *config.Config) { c.ChainFile = "ca.key" }, "chainFile"},
		{"Chain File Leaf Prefix", func(c *config.Config) { c.ChainFile = "leaf.signed.pem" }, "chainFile"},
		{"Serial Zero", func(c *config.Config) { c.Intermediate.Serial = 0 }, "intermediate.serial"},
		{"Serial Reused", func(c *config.Config) { c.Intermediate.Serial = 5 }, "intermediate.serial"},
		{"Common Name", func(c *config.Config) { c.Root.CommonName = "" }, "root.subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := config.Default()
			require.NoError(t, c.Validate())

			tt.mutate(c)
			var cfgErr *config.Error
			require.ErrorAs(t, c.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
