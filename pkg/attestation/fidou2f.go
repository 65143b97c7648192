package attestation

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/cosekey"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

// fidou2fVerifier implements the fido-u2f attestation statement format used
// by CTAP1-era authenticators.
// https://www.w3.org/TR/webauthn-3/#sctn-fido-u2f-attestation
type fidou2fVerifier struct{}

func (fidou2fVerifier) Verify(obj *Object, policy TrustPolicy) (*Result, error) {
	var stmt webauthntypes.FIDOU2FAttestationStatementFormat
	if err := cbor.Unmarshal(obj.Statement, &stmt); err != nil {
		return nil, &StatementError{Format: obj.Format, Field: "attStmt", Msg: err.Error()}
	}
	if len(stmt.Signature) == 0 {
		return nil, &StatementError{Format: obj.Format, Field: "sig", Msg: "missing"}
	}
	if len(stmt.X509Chain) != 1 {
		return nil, &StatementError{
			Format: obj.Format,
			Field:  "x5c",
			Msg:    fmt.Sprintf("expected exactly 1 certificate, got %d", len(stmt.X509Chain)),
		}
	}
	if obj.AuthData.AttestedCredentialData == nil {
		return nil, &StatementError{Format: obj.Format, Field: "authData", Msg: "no attested credential data"}
	}

	cert, err := x509.ParseCertificate(stmt.X509Chain[0])
	if err != nil {
		return nil, &StatementError{Format: obj.Format, Field: "x5c[0]", Msg: err.Error()}
	}

	certPub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok || certPub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: fido-u2f requires a P-256 attestation certificate key", cosekey.ErrUnsupportedAlgorithm)
	}

	credPub, err := cosekey.PublicKey(obj.AuthData.AttestedCredentialData.CredentialPublicKey)
	if err != nil {
		return nil, err
	}
	credECDSA, ok := credPub.(*ecdsa.PublicKey)
	if !ok || credECDSA.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: fido-u2f requires a P-256 credential key", cosekey.ErrUnsupportedAlgorithm)
	}

	// ANSI X9.62 uncompressed point form of the credential key.
	publicKeyU2F := make([]byte, 0, 65)
	publicKeyU2F = append(publicKeyU2F, 0x04)
	publicKeyU2F = append(publicKeyU2F, credECDSA.X.FillBytes(make([]byte, 32))...)
	publicKeyU2F = append(publicKeyU2F, credECDSA.Y.FillBytes(make([]byte, 32))...)

	// 0x00 || rpIdHash || clientDataHash || credentialId || publicKeyU2F
	verificationData := slices.Concat(
		[]byte{0x00},
		obj.AuthData.RPIDHash,
		obj.ClientDataHash,
		obj.AuthData.AttestedCredentialData.CredentialID,
		publicKeyU2F,
	)

	if err := cert.CheckSignature(x509.ECDSAWithSHA256, verificationData, stmt.Signature); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	trustPath := []*x509.Certificate{cert}
	if err := policy.check(trustPath); err != nil {
		return nil, err
	}

	return &Result{Type: TypeBasic, TrustPath: trustPath}, nil
}

func init() {
	RegisterFormat(webauthntypes.AttestationStatementFormatIdentifierFIDOU2F, fidou2fVerifier{})
}
