// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

const (
	// EnvConfigFile names the profile file when no path is given.
	EnvConfigFile = "DC_CERT_CHAIN_CONFIG"

	// EnvOutputDir supplies the output directory when the profile does not set one.
	EnvOutputDir = "DC_CERT_CHAIN_OUT_DIR"

	// DefaultChainFile is the chain file name of the reference profile.
	DefaultChainFile = "certificate_chain"

	// DefaultValidityDays is the certificate lifetime of the reference profile.
	DefaultValidityDays = 365
)

//go:embed schema.json
var schemaJSON []byte

var (
	// ErrRead indicates that the profile file could not be read.
	ErrRead = errors.New("config: failed to read config file")

	// ErrParse indicates a profile that is not valid JSON or YAML.
	ErrParse = errors.New("config: failed to parse config file")

	// ErrSchema indicates a profile that does not match the schema.
	ErrSchema = errors.New("config: schema validation failed")

	// ErrInvalid indicates a profile with inconsistent values.
	ErrInvalid = errors.New("config: invalid configuration")
)

// Error describes one invalid field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %s", e.Field, e.Reason) }

// Unwrap lets errors.Is match [ErrInvalid].
func (e *Error) Unwrap() error { return ErrInvalid }

// configFormat represents supported configuration file formats.
type configFormat int

const (
	// configFormatJSON represents JSON configuration format (.json)
	configFormatJSON configFormat = iota
	// configFormatYAML represents YAML configuration format (.yaml, .yml)
	configFormatYAML
)

// Tier holds the per-tier settings.
type Tier struct {
	// CommonName is the entity label; the leaf gets the content signer prefix added.
	CommonName string `json:"commonName,omitempty" yaml:"commonName,omitempty"`
	// Serial is the certificate serial number.
	Serial int64 `json:"serial,omitempty" yaml:"serial,omitempty"`
	// Subject overrides the composed subject with an OpenSSL slash form name. It must
	// not carry a dnQualifier, which is always derived from the key.
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// Config is the chain profile.
type Config struct {
	OutputDir          string `json:"outputDir,omitempty" yaml:"outputDir,omitempty"`
	KeyBits            int    `json:"keyBits" yaml:"keyBits"`
	ValidityDays       int    `json:"validityDays" yaml:"validityDays"`
	Organization       string `json:"organization" yaml:"organization"`
	OrganizationalUnit string `json:"organizationalUnit" yaml:"organizationalUnit"`
	Root               Tier   `json:"root" yaml:"root"`
	Intermediate       Tier   `json:"intermediate" yaml:"intermediate"`
	Leaf               Tier   `json:"leaf" yaml:"leaf"`
	WritePolicyFiles   bool   `json:"writePolicyFiles" yaml:"writePolicyFiles"`
	ChainFile          string `json:"chainFile" yaml:"chainFile"`
	PKCS12             bool   `json:"pkcs12" yaml:"pkcs12"`
}

// Default returns the reference profile.
func Default() *Config {
	c := &Config{
		KeyBits:            keys.DefaultBits,
		ValidityDays:       DefaultValidityDays,
		Organization:       "example.com",
		OrganizationalUnit: "csc.example.com",
		WritePolicyFiles:   true,
		ChainFile:          DefaultChainFile,
	}
	for _, t := range profile.Tiers() {
		*c.tier(t) = Tier{CommonName: t.DefaultEntity(), Serial: t.DefaultSerial()}
	}
	return c
}

// Load returns the profile at path merged over the defaults.
//
// Parameters:
//   - path: Profile file; when empty, DC_CERT_CHAIN_CONFIG is consulted, and when that
//     is empty too the defaults are returned
//
// Returns:
//   - *Config: Validated profile
//   - error: ErrRead, ErrParse, ErrSchema or an *Error
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		if err := c.decode(data, detectConfigFormat(path)); err != nil {
			return nil, err
		}
	}

	if c.OutputDir == "" {
		c.OutputDir = os.Getenv(EnvOutputDir)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// detectConfigFormat determines the configuration file format based on file extension.
func detectConfigFormat(configPath string) configFormat {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		return configFormatYAML
	default:
		return configFormatJSON
	}
}

// decode validates data against the schema and merges it over c.
func (c *Config) decode(data []byte, format configFormat) error {
	var doc gojsonschema.JSONLoader

	switch format {
	case configFormatYAML:
		var generic map[string]any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("%w: YAML: %w", ErrParse, err)
		}
		if generic == nil {
			generic = map[string]any{}
		}
		doc = gojsonschema.NewGoLoader(generic)
	default:
		if !json.Valid(data) {
			return fmt.Errorf("%w: JSON: malformed document", ErrParse)
		}
		doc = gojsonschema.NewBytesLoader(data)
	}

	if err := validateSchema(doc); err != nil {
		return err
	}

	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("%w: YAML: %w", ErrParse, err)
		}
	default:
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("%w: JSON: %w", ErrParse, err)
		}
	}
	return nil
}

func validateSchema(doc gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schemaJSON), doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}

// validateChainFile requires a plain name that cannot be mistaken for a pattern or a tier
// artifact.
func validateChainFile(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\*?[]`) {
		return &Error{Field: "chainFile", Reason: "must be a plain file name"}
	}
	for _, t := range profile.Tiers() {
		if strings.HasPrefix(name, t.Prefix()+".") {
			return &Error{Field: "chainFile", Reason: fmt.Sprintf("must not use the %s artifact prefix %q", t, t.Prefix()+".")}
		}
	}
	return nil
}

// Validate checks the cross-field rules the schema cannot express.
func (c *Config) Validate() error {
	if c.KeyBits < keys.MinBits {
		return &Error{Field: "keyBits", Reason: fmt.Sprintf("must be at least %d", keys.MinBits)}
	}
	if c.ValidityDays <= 0 {
		return &Error{Field: "validityDays", Reason: "must be positive"}
	}
	if err := validateChainFile(c.ChainFile); err != nil {
		return err
	}

	seen := make(map[int64]profile.Tier)
	for _, t := range profile.Tiers() {
		tc := c.tier(t)
		field := strings.ToLower(t.String())

		if tc.Serial <= 0 {
			return &Error{Field: field + ".serial", Reason: "must be positive"}
		}
		if prev, dup := seen[tc.Serial]; dup {
			return &Error{Field: field + ".serial", Reason: fmt.Sprintf("%d already used by %s", tc.Serial, prev)}
		}
		seen[tc.Serial] = t

		if _, err := c.Subject(t); err != nil {
			return &Error{Field: field + ".subject", Reason: err.Error()}
		}
	}
	return nil
}

// TierConfig returns the settings of t.
func (c *Config) TierConfig(t profile.Tier) Tier { return *c.tier(t) }

func (c *Config) tier(t profile.Tier) *Tier {
	switch t {
	case profile.Root:
		return &c.Root
	case profile.Intermediate:
		return &c.Intermediate
	default:
		return &c.Leaf
	}
}

// Subject returns the subject of t without its dnQualifier, which is added once the
// key exists.
func (c *Config) Subject(t profile.Tier) (profile.Subject, error) {
	tc := c.tier(t)

	if tc.Subject != "" {
		s, err := profile.ParseSubject(tc.Subject)
		if err != nil {
			return profile.Subject{}, err
		}
		if s.DNQualifier != "" {
			return profile.Subject{}, errors.New("dnQualifier is derived from the key and cannot be set")
		}
		if s.CommonName == "" {
			return profile.Subject{}, errors.New("CN is required")
		}
		s.CommonName = t.CommonName(s.CommonName)
		return s, nil
	}

	if tc.CommonName == "" {
		return profile.Subject{}, errors.New("commonName is required")
	}

	return profile.Subject{
		Organization:       c.Organization,
		OrganizationalUnit: c.OrganizationalUnit,
		CommonName:         t.CommonName(tc.CommonName),
	}, nil
}

// Validity returns the certificate lifetime.
func (c *Config) Validity() time.Duration {
	return time.Duration(c.ValidityDays) * 24 * time.Hour
}
