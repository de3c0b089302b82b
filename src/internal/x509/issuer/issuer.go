// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package issuer

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/dnq"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/keys"
	"github.com/H0llyW00dzZ/dcinema-cert-chain/src/internal/x509/profile"
)

// DefaultValidity is the certificate lifetime of the reference profile.
const DefaultValidity = 365 * 24 * time.Hour

// SignatureAlgorithm is used for every certificate and request.
const SignatureAlgorithm = x509.SHA256WithRSA

var (
	// ErrNilKey indicates a missing key pair.
	ErrNilKey = errors.New("issuer: key pair is required")

	// ErrNilParent indicates a signed issuance without issuer material.
	ErrNilParent = errors.New("issuer: parent certificate and key are required")

	// ErrInvalidSerial indicates a missing or non-positive serial number.
	ErrInvalidSerial = errors.New("issuer: serial number must be positive")

	// ErrSerialInUse indicates a serial number already used higher up the chain.
	ErrSerialInUse = errors.New("issuer: serial number already used in chain")

	// ErrTierMismatch indicates a policy that does not belong at this position in the chain.
	ErrTierMismatch = errors.New("issuer: policy tier does not match chain position")

	// ErrParentNotCA indicates a parent certificate that may not sign certificates.
	ErrParentNotCA = errors.New("issuer: parent certificate is not a CA")

	// ErrNoIssuerKeyID indicates that keyid:always was requested but the parent has no key identifier.
	ErrNoIssuerKeyID = errors.New("issuer: parent has no subject key identifier")

	// ErrCSRSignature indicates a signing request whose self-signature does not verify.
	ErrCSRSignature = errors.New("issuer: certificate request signature invalid")

	// ErrSign indicates that the certificate could not be created.
	ErrSign = errors.New("issuer: failed to sign certificate")
)

// Issued is the result of one tier's issuance. It carries everything the next tier needs
// to use this certificate as its issuer.
type Issued struct {
	Tier    profile.Tier
	Key     *keys.KeyPair
	Cert    *x509.Certificate
	Subject profile.Subject
	// CSR is the signing request the certificate was issued from; nil for the root.
	CSR *x509.CertificateRequest
	// Parent is the issuing tier; nil for the root.
	Parent *Issued
}

// DER returns the certificate's DER encoding.
func (i *Issued) DER() []byte { return i.Cert.Raw }

// Lineage returns the chain from the root down to i.
func (i *Issued) Lineage() []*Issued {
	var out []*Issued
	for cur := i; cur != nil; cur = cur.Parent {
		out = append([]*Issued{cur}, out...)
	}
	return out
}

// Option configures an [Issuer].
type Option func(*Issuer)

// WithClock sets the clock used for the validity period start.
func WithClock(c clockwork.Clock) Option { return func(is *Issuer) { is.clock = c } }

// WithValidity sets the certificate lifetime.
func WithValidity(d time.Duration) Option { return func(is *Issuer) { is.validity = d } }

// WithRand sets the randomness source used for signatures.
func WithRand(r io.Reader) Option { return func(is *Issuer) { is.rand = r } }

// Issuer creates certificates and signing requests for the chain tiers.
type Issuer struct {
	clock    clockwork.Clock
	validity time.Duration
	rand     io.Reader
}

// New creates an Issuer with the reference profile defaults.
func New(opts ...Option) *Issuer {
	is := &Issuer{
		clock:    clockwork.NewRealClock(),
		validity: DefaultValidity,
		rand:     rand.Reader,
	}
	for _, opt := range opts {
		opt(is)
	}
	return is
}

// IssueRoot creates the self-signed root certificate. Issuer and subject are identical.
//
// Parameters:
//   - kp: Root key pair
//   - subject: Root subject, including its dnQualifier
//   - serial: Positive serial number
//   - policy: Root extension policy
//
// Returns:
//   - *Issued: Root certificate and key, ready to act as a parent
//   - error: Validation or signing error
func (is *Issuer) IssueRoot(kp *keys.KeyPair, subject profile.Subject, serial *big.Int, policy profile.Policy) (*Issued, error) {
	if kp == nil {
		return nil, ErrNilKey
	}
	if err := checkSerial(serial, nil); err != nil {
		return nil, err
	}
	if policy.Tier != profile.Root {
		return nil, fmt.Errorf("%w: %s policy for root", ErrTierMismatch, policy.Tier)
	}

	rawSubject, err := asn1.Marshal(subject.Name().ToRDNSequence())
	if err != nil {
		return nil, fmt.Errorf("%w: encode subject: %w", ErrSign, err)
	}

	skid, err := dnq.KeyIdentifier(kp.Public())
	if err != nil {
		return nil, err
	}

	template, err := is.template(serial, policy, skid)
	if err != nil {
		return nil, err
	}
	template.RawSubject = rawSubject

	// Self-referential: the root's own key id, name and serial.
	var issuerName []byte
	if policy.AuthorityKeyID.IssuerAlways {
		issuerName = rawSubject
	}
	aki, err := marshalAuthorityKeyIdentifier(skid, issuerName, serial)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	template.ExtraExtensions = append(template.ExtraExtensions, aki)

	cert, err := is.sign(template, template, kp, kp)
	if err != nil {
		return nil, err
	}

	return &Issued{
		Tier:    profile.Root,
		Key:     kp,
		Cert:    cert,
		Subject: subject,
	}, nil
}

// CreateRequest builds and self-verifies a signing request for subject and kp.
// The request carries no extensions; those are applied when the parent signs it.
func (is *Issuer) CreateRequest(kp *keys.KeyPair, subject profile.Subject) (*x509.CertificateRequest, error) {
	if kp == nil {
		return nil, ErrNilKey
	}

	template := &x509.CertificateRequest{
		Subject:            subject.Name(),
		SignatureAlgorithm: SignatureAlgorithm,
	}

	der, err := x509.CreateCertificateRequest(is.rand, template, kp.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrSign, err)
	}

	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse request: %w", ErrSign, err)
	}

	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCSRSignature, err)
	}

	return csr, nil
}

// IssueSigned creates a signing request for kp and subject and has parent sign it.
//
// Parameters:
//   - kp: Key pair of the tier being issued
//   - subject: Subject of the tier being issued
//   - serial: Positive serial number, distinct from every ancestor's
//   - policy: Extension policy of the tier being issued
//   - parent: Issuing tier, as returned by the previous issuance
//
// Returns:
//   - *Issued: Signed certificate, key and request
//   - error: Validation or signing error
func (is *Issuer) IssueSigned(kp *keys.KeyPair, subject profile.Subject, serial *big.Int, policy profile.Policy, parent *Issued) (*Issued, error) {
	if kp == nil {
		return nil, ErrNilKey
	}

	csr, err := is.CreateRequest(kp, subject)
	if err != nil {
		return nil, err
	}

	cert, err := is.SignRequest(csr, serial, policy, parent)
	if err != nil {
		return nil, err
	}

	return &Issued{
		Tier:    policy.Tier,
		Key:     kp,
		Cert:    cert,
		Subject: subject,
		CSR:     csr,
		Parent:  parent,
	}, nil
}

// SignRequest signs csr with parent's key, applying policy. The subject is copied from the
// request byte for byte and the issuer name from the parent certificate.
func (is *Issuer) SignRequest(csr *x509.CertificateRequest, serial *big.Int, policy profile.Policy, parent *Issued) (*x509.Certificate, error) {
	if parent == nil || parent.Cert == nil || parent.Key == nil {
		return nil, ErrNilParent
	}
	if want, ok := policy.Tier.Parent(); !ok || want != parent.Tier {
		return nil, fmt.Errorf("%w: %s cannot be signed by %s", ErrTierMismatch, policy.Tier, parent.Tier)
	}
	if !parent.Cert.IsCA {
		return nil, ErrParentNotCA
	}
	if err := checkSerial(serial, parent); err != nil {
		return nil, err
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCSRSignature, err)
	}

	skid, err := dnq.KeyIdentifier(csr.PublicKey)
	if err != nil {
		return nil, err
	}

	template, err := is.template(serial, policy, skid)
	if err != nil {
		return nil, err
	}
	template.RawSubject = csr.RawSubject

	keyID := parent.Cert.SubjectKeyId
	if len(keyID) == 0 && policy.AuthorityKeyID.KeyID == profile.KeyIDAlways {
		return nil, ErrNoIssuerKeyID
	}

	// issuer:always names the parent's own issuer and carries the parent's serial.
	var issuerName []byte
	if policy.AuthorityKeyID.IssuerAlways {
		issuerName = parent.Cert.RawIssuer
	}
	aki, err := marshalAuthorityKeyIdentifier(keyID, issuerName, parent.Cert.SerialNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	template.ExtraExtensions = append(template.ExtraExtensions, aki)

	return is.signWithKey(template, parent.Cert, csr.PublicKey, parent.Key)
}

func (is *Issuer) template(serial *big.Int, policy profile.Policy, skid []byte) (*x509.Certificate, error) {
	notBefore := is.clock.Now().UTC().Truncate(time.Second)
	template := &x509.Certificate{
		SerialNumber:       new(big.Int).Set(serial),
		NotBefore:          notBefore,
		NotAfter:           notBefore.Add(is.validity),
		SignatureAlgorithm: SignatureAlgorithm,
		KeyUsage:           policy.KeyUsage,
		SubjectKeyId:       skid,
	}

	if policy.IsCA {
		template.BasicConstraintsValid = true
		template.IsCA = true
		template.MaxPathLen = policy.MaxPathLen
		template.MaxPathLenZero = policy.MaxPathLen == 0
		return template, nil
	}

	// crypto/x509 refuses a path length on non-CA templates, so the extension is
	// encoded by hand.
	bc, err := marshalBasicConstraints(false, policy.MaxPathLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	template.ExtraExtensions = append(template.ExtraExtensions, bc)
	return template, nil
}

func (is *Issuer) sign(template, parent *x509.Certificate, subjectKey, signerKey *keys.KeyPair) (*x509.Certificate, error) {
	return is.signWithKey(template, parent, subjectKey.Public(), signerKey)
}

func (is *Issuer) signWithKey(template, parent *x509.Certificate, pub any, signer *keys.KeyPair) (*x509.Certificate, error) {
	der, err := x509.CreateCertificate(is.rand, template, parent, pub, signer.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %w", ErrSign, err)
	}
	return cert, nil
}

// checkSerial rejects non-positive serials and serials used by parent or its ancestors.
func checkSerial(serial *big.Int, parent *Issued) error {
	if serial == nil || serial.Sign() <= 0 {
		return ErrInvalidSerial
	}
	for cur := parent; cur != nil; cur = cur.Parent {
		if cur.Cert != nil && cur.Cert.SerialNumber.Cmp(serial) == 0 {
			return fmt.Errorf("%w: %s by %s", ErrSerialInUse, serial, cur.Tier)
		}
	}
	return nil
}
