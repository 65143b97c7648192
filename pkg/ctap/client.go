// Package ctap implements the CTAP2 message layer: it encodes typed requests
// as CTAP2 canonical CBOR, sends them through a Transport and decodes typed
// responses. Exactly one request is in flight per call and nothing is retried;
// transport and authenticator errors surface to the caller verbatim.
package ctap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/go-ctap/fido2/pkg/options"
	"github.com/go-ctap/fido2/pkg/pinproto"
	"github.com/go-ctap/fido2/pkg/webauthntypes"
	"github.com/ldclabs/cose/key"
)

type Client struct {
	transport Transport
	logger    *slog.Logger
	encMode   cbor.EncMode
}

func NewClient(transport Transport, opts ...options.Option) *Client {
	oo := options.NewOptions(opts...)

	return &Client{
		transport: transport,
		logger:    oo.Logger,
		encMode:   oo.EncMode,
	}
}

// roundTrip marshals req (when non-nil), performs a single exchange and
// decodes the body into resp (when non-nil). A non-zero status byte is
// returned as *CTAPError without touching the body.
func (cl *Client) roundTrip(cmd ctaptypes.Command, req any, resp any) error {
	var payload []byte
	if req != nil {
		b, err := cl.encMode.Marshal(req)
		if err != nil {
			return fmt.Errorf("cannot marshal %s CBOR request: %w", cmd, err)
		}
		cl.logger.Debug(cmd.String()+" CBOR request", "hex", hex.EncodeToString(b))
		payload = b
	}

	raw, err := cl.transport.Exchange(cmd, payload)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return ErrEmptyResponse
	}
	if status := ctaptypes.StatusCode(raw[0]); status != ctaptypes.CTAP2_OK {
		return &CTAPError{Command: cmd, StatusCode: status}
	}

	body := raw[1:]
	cl.logger.Debug(cmd.String()+" CBOR response", "hex", hex.EncodeToString(body))

	if resp != nil {
		// An OK status with no body is malformed for commands that expect
		// one; the decoder reports it as an EOF error.
		if err := cbor.Unmarshal(body, resp); err != nil {
			return fmt.Errorf("cannot unmarshal %s CBOR response: %w", cmd, err)
		}
	}

	return nil
}

func (cl *Client) GetInfo() (*ctaptypes.AuthenticatorGetInfoResponse, error) {
	var resp *ctaptypes.AuthenticatorGetInfoResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorGetInfo, nil, &resp); err != nil {
		return nil, err
	}

	return resp, nil
}

func (cl *Client) MakeCredential(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	pinUvAuthToken []byte,
	clientDataHash []byte,
	rp webauthntypes.PublicKeyCredentialRpEntity,
	user webauthntypes.PublicKeyCredentialUserEntity,
	pubKeyCredParams []webauthntypes.PublicKeyCredentialParameters,
	excludeList []webauthntypes.PublicKeyCredentialDescriptor,
	extensions map[webauthntypes.ExtensionIdentifier]any,
	options map[ctaptypes.Option]bool,
	enterpriseAttestation uint,
	attestationFormats []webauthntypes.AttestationStatementFormatIdentifier,
) (*ctaptypes.AuthenticatorMakeCredentialResponse, error) {
	if len(clientDataHash) != sha256.Size {
		return nil, ErrInvalidClientDataHash
	}

	req := &ctaptypes.AuthenticatorMakeCredentialRequest{
		ClientDataHash:        clientDataHash,
		RP:                    rp,
		User:                  user,
		PubKeyCredParams:      pubKeyCredParams,
		ExcludeList:           excludeList,
		Extensions:            extensions,
		Options:               options,
		EnterpriseAttestation: enterpriseAttestation,
		AttestationFormats:    attestationFormats,
	}

	if pinUvAuthToken != nil {
		req.PinUvAuthParam = pinproto.Authenticate(pinUvAuthProtocol, pinUvAuthToken, clientDataHash)
		req.PinUvAuthProtocol = pinUvAuthProtocol
	}

	var resp *ctaptypes.AuthenticatorMakeCredentialResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorMakeCredential, req, &resp); err != nil {
		return nil, err
	}

	authData, err := ctaptypes.ParseAuthData(resp.AuthDataRaw)
	if err != nil {
		return nil, err
	}
	resp.AuthData = authData

	return resp, nil
}

// GetAssertion yields the first assertion and, when the authenticator reports
// more matching credentials, follows up with GetNextAssertion for each.
func (cl *Client) GetAssertion(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	pinUvAuthToken []byte,
	rpID string,
	clientDataHash []byte,
	allowList []webauthntypes.PublicKeyCredentialDescriptor,
	extensions map[webauthntypes.ExtensionIdentifier]any,
	options map[ctaptypes.Option]bool,
) iter.Seq2[*ctaptypes.AuthenticatorGetAssertionResponse, error] {
	return func(yield func(*ctaptypes.AuthenticatorGetAssertionResponse, error) bool) {
		if len(clientDataHash) != sha256.Size {
			yield(nil, ErrInvalidClientDataHash)
			return
		}

		req := &ctaptypes.AuthenticatorGetAssertionRequest{
			RPID:           rpID,
			ClientDataHash: clientDataHash,
			AllowList:      allowList,
			Extensions:     extensions,
			Options:        options,
		}

		if pinUvAuthToken != nil {
			req.PinUvAuthParam = pinproto.Authenticate(pinUvAuthProtocol, pinUvAuthToken, clientDataHash)
			req.PinUvAuthProtocol = pinUvAuthProtocol
		}

		var respBegin *ctaptypes.AuthenticatorGetAssertionResponse
		if err := cl.roundTrip(ctaptypes.AuthenticatorGetAssertion, req, &respBegin); err != nil {
			yield(nil, err)
			return
		}
		authData, err := ctaptypes.ParseAuthData(respBegin.AuthDataRaw)
		if err != nil {
			yield(nil, err)
			return
		}
		respBegin.AuthData = authData

		if !yield(respBegin, nil) {
			return
		}

		for i := uint(1); i < respBegin.NumberOfCredentials; i++ {
			var resp *ctaptypes.AuthenticatorGetAssertionResponse
			if err := cl.roundTrip(ctaptypes.AuthenticatorGetNextAssertion, nil, &resp); err != nil {
				yield(nil, err)
				return
			}
			authData, err := ctaptypes.ParseAuthData(resp.AuthDataRaw)
			if err != nil {
				yield(nil, err)
				return
			}
			resp.AuthData = authData

			if !yield(resp, nil) {
				return
			}
		}
	}
}

func (cl *Client) GetPINRetries(pinUvAuthProtocol ctaptypes.PinUvAuthProtocol) (uint, bool, error) {
	req := &ctaptypes.AuthenticatorClientPINRequest{
		// Unnecessary per the protocol, but some authenticators require it.
		PinUvAuthProtocol: pinUvAuthProtocol,
		SubCommand:        ctaptypes.ClientPINSubCommandGetPINRetries,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return 0, false, err
	}

	return resp.PinRetries, resp.PowerCycleState, nil
}

func (cl *Client) GetKeyAgreement(pinUvAuthProtocol ctaptypes.PinUvAuthProtocol) (key.Key, error) {
	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: pinUvAuthProtocol,
		SubCommand:        ctaptypes.ClientPINSubCommandGetKeyAgreement,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return nil, err
	}

	return resp.KeyAgreement, nil
}

func (cl *Client) SetPIN(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	keyAgreement key.Key,
	pin string,
) error {
	protocol, err := pinproto.New(pinUvAuthProtocol)
	if err != nil {
		return err
	}

	platformCoseKey, sharedSecret, err := protocol.Encapsulate(keyAgreement)
	if err != nil {
		return err
	}

	newPinEnc, err := protocol.Encrypt(sharedSecret, padPIN(pin))
	if err != nil {
		return err
	}

	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: protocol.Number,
		SubCommand:        ctaptypes.ClientPINSubCommandSetPIN,
		KeyAgreement:      platformCoseKey,
		NewPinEnc:         newPinEnc,
		PinUvAuthParam:    pinproto.Authenticate(pinUvAuthProtocol, sharedSecret, newPinEnc),
	}

	return cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, nil)
}

func (cl *Client) ChangePIN(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	keyAgreement key.Key,
	currentPin string,
	newPin string,
) error {
	protocol, err := pinproto.New(pinUvAuthProtocol)
	if err != nil {
		return err
	}

	platformCoseKey, sharedSecret, err := protocol.Encapsulate(keyAgreement)
	if err != nil {
		return err
	}

	pinHashEnc, err := protocol.Encrypt(sharedSecret, hashPIN(currentPin))
	if err != nil {
		return err
	}

	newPinEnc, err := protocol.Encrypt(sharedSecret, padPIN(newPin))
	if err != nil {
		return err
	}

	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: protocol.Number,
		SubCommand:        ctaptypes.ClientPINSubCommandChangePIN,
		KeyAgreement:      platformCoseKey,
		PinHashEnc:        pinHashEnc,
		NewPinEnc:         newPinEnc,
		PinUvAuthParam: pinproto.Authenticate(
			pinUvAuthProtocol,
			sharedSecret,
			slices.Concat(newPinEnc, pinHashEnc),
		),
	}

	return cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, nil)
}

// GetPinToken obtains a pinUvAuthToken using the PIN. Superseded by the
// permission-scoped sub-commands in CTAP 2.1, kept for compatibility with
// FIDO_2_0 authenticators.
func (cl *Client) GetPinToken(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	keyAgreement key.Key,
	pin string,
) ([]byte, error) {
	protocol, err := pinproto.New(pinUvAuthProtocol)
	if err != nil {
		return nil, err
	}

	platformCoseKey, sharedSecret, err := protocol.Encapsulate(keyAgreement)
	if err != nil {
		return nil, err
	}

	pinHashEnc, err := protocol.Encrypt(sharedSecret, hashPIN(pin))
	if err != nil {
		return nil, err
	}

	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: protocol.Number,
		SubCommand:        ctaptypes.ClientPINSubCommandGetPinToken,
		KeyAgreement:      platformCoseKey,
		PinHashEnc:        pinHashEnc,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return nil, err
	}

	return protocol.Decrypt(sharedSecret, resp.PinUvAuthToken)
}

// GetPinUvAuthTokenUsingUvWithPermissions obtains a pinUvAuthToken scoped to
// the given permissions using built-in user verification.
func (cl *Client) GetPinUvAuthTokenUsingUvWithPermissions(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	keyAgreement key.Key,
	permissions ctaptypes.Permission,
	rpID string,
) ([]byte, error) {
	protocol, err := pinproto.New(pinUvAuthProtocol)
	if err != nil {
		return nil, err
	}

	platformCoseKey, sharedSecret, err := protocol.Encapsulate(keyAgreement)
	if err != nil {
		return nil, err
	}

	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: protocol.Number,
		SubCommand:        ctaptypes.ClientPINSubCommandGetPinUvAuthTokenUsingUvWithPermissions,
		KeyAgreement:      platformCoseKey,
		Permissions:       permissions,
		RPID:              rpID,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return nil, err
	}

	return protocol.Decrypt(sharedSecret, resp.PinUvAuthToken)
}

// GetPinUvAuthTokenUsingPinWithPermissions obtains a pinUvAuthToken scoped to
// the given permissions using the PIN.
func (cl *Client) GetPinUvAuthTokenUsingPinWithPermissions(
	pinUvAuthProtocol ctaptypes.PinUvAuthProtocol,
	keyAgreement key.Key,
	pin string,
	permissions ctaptypes.Permission,
	rpID string,
) ([]byte, error) {
	protocol, err := pinproto.New(pinUvAuthProtocol)
	if err != nil {
		return nil, err
	}

	platformCoseKey, sharedSecret, err := protocol.Encapsulate(keyAgreement)
	if err != nil {
		return nil, err
	}

	pinHashEnc, err := protocol.Encrypt(sharedSecret, hashPIN(pin))
	if err != nil {
		return nil, err
	}

	req := &ctaptypes.AuthenticatorClientPINRequest{
		PinUvAuthProtocol: protocol.Number,
		SubCommand:        ctaptypes.ClientPINSubCommandGetPinUvAuthTokenUsingPinWithPermissions,
		KeyAgreement:      platformCoseKey,
		PinHashEnc:        pinHashEnc,
		Permissions:       permissions,
		RPID:              rpID,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return nil, err
	}

	return protocol.Decrypt(sharedSecret, resp.PinUvAuthToken)
}

func (cl *Client) GetUVRetries() (uint, error) {
	req := &ctaptypes.AuthenticatorClientPINRequest{
		SubCommand: ctaptypes.ClientPINSubCommandGetUVRetries,
	}

	var resp *ctaptypes.AuthenticatorClientPINResponse
	if err := cl.roundTrip(ctaptypes.AuthenticatorClientPIN, req, &resp); err != nil {
		return 0, err
	}

	return resp.UvRetries, nil
}

// Reset factory-resets the authenticator. Most authenticators require user
// presence within a few seconds of power-up.
func (cl *Client) Reset() error {
	return cl.roundTrip(ctaptypes.AuthenticatorReset, nil, nil)
}

// Selection asks the authenticator to prove user presence, used to pick one
// device when several are attached.
func (cl *Client) Selection() error {
	return cl.roundTrip(ctaptypes.AuthenticatorSelection, nil, nil)
}

// padPIN zero-pads the UTF-8 PIN to the fixed 64-byte plaintext length.
func padPIN(pin string) []byte {
	padded := make([]byte, 64)
	copy(padded, pin)
	return padded
}

// hashPIN returns the first 16 bytes of SHA-256 of the PIN.
func hashPIN(pin string) []byte {
	hash := sha256.Sum256([]byte(pin))
	return hash[:16]
}
