package attestation

import (
	"crypto/x509"
	"fmt"
)

// PolicyKind selects how the trust path of a verified attestation is judged.
type PolicyKind int

const (
	// PolicyNone accepts any trust path, including none. Signatures are
	// still verified.
	PolicyNone PolicyKind = iota
	// PolicyRequireChain requires the trust path to chain to one of the
	// caller-provided roots.
	PolicyRequireChain
	// PolicyCustom delegates the decision to the Validator callback.
	PolicyCustom
)

// TrustPolicy is applied to the trust path after the statement signature has
// been verified.
type TrustPolicy struct {
	Kind  PolicyKind
	Roots *x509.CertPool
	// Validator is consulted for PolicyCustom. It receives the trust path,
	// which is empty for self and none attestation.
	Validator func(trustPath []*x509.Certificate) error
}

func (p TrustPolicy) check(trustPath []*x509.Certificate) error {
	switch p.Kind {
	case PolicyNone:
		return nil
	case PolicyRequireChain:
		if len(trustPath) == 0 {
			return fmt.Errorf("%w: no attestation certificate to chain", ErrUntrustedAttestation)
		}
		if p.Roots == nil {
			return fmt.Errorf("%w: no trust anchors configured", ErrUntrustedAttestation)
		}

		intermediates := x509.NewCertPool()
		for _, cert := range trustPath[1:] {
			intermediates.AddCert(cert)
		}
		if _, err := trustPath[0].Verify(x509.VerifyOptions{
			Roots:         p.Roots,
			Intermediates: intermediates,
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		}); err != nil {
			return fmt.Errorf("%w: %s", ErrUntrustedAttestation, err)
		}
		return nil
	case PolicyCustom:
		if p.Validator == nil {
			return fmt.Errorf("%w: custom policy without validator", ErrUntrustedAttestation)
		}
		return p.Validator(trustPath)
	default:
		return fmt.Errorf("%w: unknown policy kind %d", ErrUntrustedAttestation, p.Kind)
	}
}
