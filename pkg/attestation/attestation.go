// Package attestation verifies the attestation object returned by
// MakeCredential. Verifiers are registered per attestation statement format;
// packed, fido-u2f and none ship built in. How far to trust a verified
// certificate chain is the caller's decision, expressed as a TrustPolicy.
package attestation

import (
	"crypto/x509"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

// Type classifies the attestation a verifier established.
type Type string

const (
	TypeBasic Type = "basic"
	TypeSelf  Type = "self"
	TypeNone  Type = "none"
)

// Object is the attestation object of one registration: the parsed
// authenticator data, the raw bytes the signature covers and the
// format-specific statement, still CBOR-encoded.
type Object struct {
	Format         webauthntypes.AttestationStatementFormatIdentifier
	AuthData       *ctaptypes.AuthData
	AuthDataRaw    []byte
	ClientDataHash []byte
	Statement      cbor.RawMessage
}

// NewObject builds an Object from a MakeCredential response.
func NewObject(resp *ctaptypes.AuthenticatorMakeCredentialResponse, clientDataHash []byte) (*Object, error) {
	authData := resp.AuthData
	if authData == nil {
		var err error
		authData, err = ctaptypes.ParseAuthData(resp.AuthDataRaw)
		if err != nil {
			return nil, err
		}
	}

	return &Object{
		Format:         resp.Format,
		AuthData:       authData,
		AuthDataRaw:    resp.AuthDataRaw,
		ClientDataHash: clientDataHash,
		Statement:      resp.AttestationStatement,
	}, nil
}

// Result is what a successful verification established.
type Result struct {
	Type      Type
	TrustPath []*x509.Certificate
}

// Verifier checks one attestation statement format.
type Verifier interface {
	Verify(obj *Object, policy TrustPolicy) (*Result, error)
}

var formats = map[webauthntypes.AttestationStatementFormatIdentifier]Verifier{}

// RegisterFormat installs a verifier for a format, replacing any previous
// registration.
func RegisterFormat(format webauthntypes.AttestationStatementFormatIdentifier, v Verifier) {
	formats[format] = v
}

// ForFormat returns the verifier registered for format.
func ForFormat(format webauthntypes.AttestationStatementFormatIdentifier) (Verifier, error) {
	v, ok := formats[format]
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	return v, nil
}

// Verify dispatches obj to the verifier registered for its format.
func Verify(obj *Object, policy TrustPolicy) (*Result, error) {
	v, err := ForFormat(obj.Format)
	if err != nil {
		return nil, err
	}
	return v.Verify(obj, policy)
}
