package ctaptypes

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

type AuthenticatorMakeCredentialRequest struct {
	ClientDataHash        []byte                                               `cbor:"1,keyasint"`
	RP                    webauthntypes.PublicKeyCredentialRpEntity            `cbor:"2,keyasint"`
	User                  webauthntypes.PublicKeyCredentialUserEntity          `cbor:"3,keyasint"`
	PubKeyCredParams      []webauthntypes.PublicKeyCredentialParameters        `cbor:"4,keyasint"`
	ExcludeList           []webauthntypes.PublicKeyCredentialDescriptor        `cbor:"5,keyasint,omitempty"`
	Extensions            map[webauthntypes.ExtensionIdentifier]any            `cbor:"6,keyasint,omitempty"`
	Options               map[Option]bool                                      `cbor:"7,keyasint,omitempty"`
	PinUvAuthParam        []byte                                               `cbor:"8,keyasint,omitempty"`
	PinUvAuthProtocol     PinUvAuthProtocol                                    `cbor:"9,keyasint,omitempty"`
	EnterpriseAttestation uint                                                 `cbor:"10,keyasint,omitempty"`
	AttestationFormats    []webauthntypes.AttestationStatementFormatIdentifier `cbor:"11,keyasint,omitempty"`
}

// AuthenticatorMakeCredentialResponse keeps the attestation statement as raw
// CBOR so format verifiers can decode it into their own statement types.
type AuthenticatorMakeCredentialResponse struct {
	Format                webauthntypes.AttestationStatementFormatIdentifier `cbor:"1,keyasint"`
	AuthDataRaw           []byte                                             `cbor:"2,keyasint"`
	AuthData              *AuthData                                          `cbor:"-"`
	AttestationStatement  cbor.RawMessage                                    `cbor:"3,keyasint,omitempty"`
	EnterpriseAttestation bool                                               `cbor:"4,keyasint,omitempty"`
	LargeBlobKey          []byte                                             `cbor:"5,keyasint,omitempty"`
}
