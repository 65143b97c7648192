package attestation

import (
	"bytes"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/cosekey"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

// id-fido-gen-ce-aaguid, the certificate extension carrying the AAGUID.
var oidFIDOGenCeAAGUID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 45724, 1, 1, 4}

// packedVerifier implements the packed attestation statement format.
// https://www.w3.org/TR/webauthn-3/#sctn-packed-attestation
type packedVerifier struct{}

func (packedVerifier) Verify(obj *Object, policy TrustPolicy) (*Result, error) {
	var stmt webauthntypes.PackedAttestationStatementFormat
	if err := cbor.Unmarshal(obj.Statement, &stmt); err != nil {
		return nil, &StatementError{Format: obj.Format, Field: "attStmt", Msg: err.Error()}
	}
	if len(stmt.Signature) == 0 {
		return nil, &StatementError{Format: obj.Format, Field: "sig", Msg: "missing"}
	}
	if obj.AuthData.AttestedCredentialData == nil {
		return nil, &StatementError{Format: obj.Format, Field: "authData", Msg: "no attested credential data"}
	}

	signedData := slices.Concat(obj.AuthDataRaw, obj.ClientDataHash)

	// Self attestation: no certificate, the credential key signs for itself
	// and the declared alg must match it.
	if len(stmt.X509Chain) == 0 {
		credKey := obj.AuthData.AttestedCredentialData.CredentialPublicKey
		credAlg, err := cosekey.SignatureAlgorithm(credKey)
		if err != nil {
			return nil, err
		}
		if stmt.Algorithm != credAlg {
			return nil, &StatementError{
				Format: obj.Format,
				Field:  "alg",
				Msg:    fmt.Sprintf("statement alg %d does not match credential key alg %d", int(stmt.Algorithm), int(credAlg)),
			}
		}

		if err := cosekey.Verify(credKey, signedData, stmt.Signature); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
		}

		if err := policy.check(nil); err != nil {
			return nil, err
		}
		return &Result{Type: TypeSelf}, nil
	}

	// Basic attestation: the leaf certificate key signs.
	trustPath := make([]*x509.Certificate, 0, len(stmt.X509Chain))
	for i, der := range stmt.X509Chain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, &StatementError{
				Format: obj.Format,
				Field:  fmt.Sprintf("x5c[%d]", i),
				Msg:    err.Error(),
			}
		}
		trustPath = append(trustPath, cert)
	}
	leaf := trustPath[0]

	if err := checkPackedCertRequirements(obj, leaf); err != nil {
		return nil, err
	}

	if err := cosekey.VerifyWithPublicKey(leaf.PublicKey, stmt.Algorithm, signedData, stmt.Signature); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	if err := policy.check(trustPath); err != nil {
		return nil, err
	}

	return &Result{Type: TypeBasic, TrustPath: trustPath}, nil
}

// checkPackedCertRequirements enforces the attestation certificate
// requirements of the packed format.
// https://www.w3.org/TR/webauthn-3/#sctn-packed-attestation-cert-requirements
func checkPackedCertRequirements(obj *Object, cert *x509.Certificate) error {
	if cert.Version != 3 {
		return &StatementError{
			Format: obj.Format,
			Field:  "x5c[0].version",
			Msg:    fmt.Sprintf("must be 3, got %d", cert.Version),
		}
	}

	ou := cert.Subject.OrganizationalUnit
	if len(ou) != 1 || ou[0] != "Authenticator Attestation" {
		return &StatementError{
			Format: obj.Format,
			Field:  "x5c[0].subject.OU",
			Msg:    `must be exactly "Authenticator Attestation"`,
		}
	}

	if cert.IsCA {
		return &StatementError{
			Format: obj.Format,
			Field:  "x5c[0].basicConstraints",
			Msg:    "CA flag must be false",
		}
	}

	// When the certificate carries an AAGUID extension it must match the
	// AAGUID of the attested credential.
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidFIDOGenCeAAGUID) {
			continue
		}

		var aaguid []byte
		if _, err := asn1.Unmarshal(ext.Value, &aaguid); err != nil {
			return &StatementError{
				Format: obj.Format,
				Field:  "x5c[0].id-fido-gen-ce-aaguid",
				Msg:    err.Error(),
			}
		}
		if !bytes.Equal(aaguid, obj.AuthData.AttestedCredentialData.AAGUID[:]) {
			return &StatementError{
				Format: obj.Format,
				Field:  "x5c[0].id-fido-gen-ce-aaguid",
				Msg:    "does not match attested credential AAGUID",
			}
		}
	}

	return nil
}

func init() {
	RegisterFormat(webauthntypes.AttestationStatementFormatIdentifierPacked, packedVerifier{})
}
