package ctaptypes

// Command represents a CTAP2 authenticator command byte.
type Command byte

const (
	AuthenticatorMakeCredential   Command = 0x01
	AuthenticatorGetAssertion     Command = 0x02
	AuthenticatorGetInfo          Command = 0x04
	AuthenticatorClientPIN        Command = 0x06
	AuthenticatorReset            Command = 0x07
	AuthenticatorGetNextAssertion Command = 0x08
	AuthenticatorSelection        Command = 0x0b
)

var commandStringMap = map[Command]string{
	AuthenticatorMakeCredential:   "AuthenticatorMakeCredential",
	AuthenticatorGetAssertion:     "AuthenticatorGetAssertion",
	AuthenticatorGetInfo:          "AuthenticatorGetInfo",
	AuthenticatorClientPIN:        "AuthenticatorClientPIN",
	AuthenticatorReset:            "AuthenticatorReset",
	AuthenticatorGetNextAssertion: "AuthenticatorGetNextAssertion",
	AuthenticatorSelection:        "AuthenticatorSelection",
}

func (c Command) String() string {
	if s, ok := commandStringMap[c]; ok {
		return s
	}
	return "UnknownCommand"
}

// ClientPINSubCommand represents the sub-command for AuthenticatorClientPIN.
type ClientPINSubCommand byte

const (
	ClientPINSubCommandGetPINRetries ClientPINSubCommand = iota + 1
	ClientPINSubCommandGetKeyAgreement
	ClientPINSubCommandSetPIN
	ClientPINSubCommandChangePIN
	ClientPINSubCommandGetPinToken
	ClientPINSubCommandGetPinUvAuthTokenUsingUvWithPermissions
	ClientPINSubCommandGetUVRetries
	_
	ClientPINSubCommandGetPinUvAuthTokenUsingPinWithPermissions
)

// Option is an authenticator option identifier as reported by authenticatorGetInfo
// and supplied in MakeCredential/GetAssertion requests.
type Option string

const (
	OptionPlatformDevice              Option = "plat"
	OptionResidentKeys                Option = "rk"
	OptionClientPIN                   Option = "clientPin"
	OptionUserPresence                Option = "up"
	OptionUserVerification            Option = "uv"
	OptionPinUvAuthToken              Option = "pinUvAuthToken"
	OptionEnterpriseAttestation       Option = "ep"
	OptionCredentialManagement        Option = "credMgmt"
	OptionMakeCredentialUvNotRequired Option = "makeCredUvNotRqd"
	OptionAlwaysUv                    Option = "alwaysUv"
)

// Permission represents permissions for a PinUvAuthToken.
type Permission byte

const (
	PermissionNone                 Permission = 0x00
	PermissionMakeCredential       Permission = 0x01
	PermissionGetAssertion         Permission = 0x02
	PermissionCredentialManagement Permission = 0x04
	PermissionBioEnrollment        Permission = 0x08
	PermissionLargeBlobWrite       Permission = 0x10
	PermissionAuthenticatorConfig  Permission = 0x20
)
