package ctaptypes

import (
	"github.com/google/uuid"
	"github.com/ldclabs/cose/key"
)

// AuthDataFlag is the flags byte of authenticator data.
type AuthDataFlag byte

const (
	AuthDataFlagUserPresent AuthDataFlag = 1 << iota
	_
	AuthDataFlagUserVerified
	_
	_
	_
	AuthDataFlagAttestedCredentialDataIncluded
	AuthDataFlagExtensionDataIncluded
)

func (f AuthDataFlag) UserPresent() bool {
	return f&AuthDataFlagUserPresent != 0
}
func (f AuthDataFlag) UserVerified() bool {
	return f&AuthDataFlagUserVerified != 0
}
func (f AuthDataFlag) AttestedCredentialDataIncluded() bool {
	return f&AuthDataFlagAttestedCredentialDataIncluded != 0
}
func (f AuthDataFlag) ExtensionDataIncluded() bool {
	return f&AuthDataFlagExtensionDataIncluded != 0
}

// AttestedCredentialData holds the credential an authenticator attests to
// during registration.
type AttestedCredentialData struct {
	AAGUID              uuid.UUID
	CredentialID        []byte
	CredentialPublicKey key.Key
}

// PinUvAuthProtocol is a PIN/UV auth protocol version number.
type PinUvAuthProtocol uint

const (
	PinUvAuthProtocolOne PinUvAuthProtocol = 1
	PinUvAuthProtocolTwo PinUvAuthProtocol = 2
)
