// Package pinproto implements CTAP2 PIN/UV auth protocols one and two:
// ECDH key agreement with the authenticator, the per-protocol KDF, AES-CBC
// encryption of PIN material and HMAC-based parameter authentication.
package pinproto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/ldclabs/cose/iana"
	"github.com/ldclabs/cose/key"
	coseecdh "github.com/ldclabs/cose/key/ecdh"
)

var ErrInvalidProtocol = errors.New("pinproto: invalid PIN/UV auth protocol number")

// Protocol holds a freshly generated platform key agreement key bound to a
// protocol number. A new Protocol should be created per ClientPIN exchange.
type Protocol struct {
	Number             ctaptypes.PinUvAuthProtocol
	platformPrivateKey *ecdh.PrivateKey
	platformCoseKey    key.Key
}

func New(number ctaptypes.PinUvAuthProtocol) (*Protocol, error) {
	if number != ctaptypes.PinUvAuthProtocolOne && number != ctaptypes.PinUvAuthProtocolTwo {
		return nil, ErrInvalidProtocol
	}

	platformPrivkey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cannot generate platform P-256 keypair: %w", err)
	}

	platformPubkey, err := coseecdh.KeyFromPublic(platformPrivkey.Public().(*ecdh.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("cannot convert platform public key to COSE_Key: %w", err)
	}
	if err := platformPubkey.Set(iana.KeyParameterAlg, -25); err != nil {
		return nil, fmt.Errorf("cannot set alg parameter for COSE_Key: %w", err)
	}

	// COSE_Key must contain only the required parameters; some authenticators
	// reject key agreement keys carrying extras.
	delete(platformPubkey, iana.KeyParameterKid)

	return &Protocol{
		Number:             number,
		platformPrivateKey: platformPrivkey,
		platformCoseKey:    platformPubkey,
	}, nil
}

// Encapsulate derives the shared secret from the authenticator's key
// agreement key and returns the platform COSE_Key to send alongside.
func (p *Protocol) Encapsulate(peerCoseKey key.Key) (key.Key, []byte, error) {
	peerPubkey, err := coseecdh.KeyToPublic(peerCoseKey)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot convert peer public key to Go *ecdh.PublicKey: %w", err)
	}

	z, err := p.platformPrivateKey.ECDH(peerPubkey)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot derive shared secret: %w", err)
	}

	sharedSecret, err := p.kdf(z)
	if err != nil {
		return nil, nil, err
	}

	return p.platformCoseKey, sharedSecret, nil
}

func (p *Protocol) kdf(z []byte) ([]byte, error) {
	switch p.Number {
	case ctaptypes.PinUvAuthProtocolOne:
		return kdfOne(z), nil
	case ctaptypes.PinUvAuthProtocolTwo:
		return kdfTwo(z)
	default:
		return nil, ErrInvalidProtocol
	}
}

func (p *Protocol) Encrypt(sharedSecret []byte, demPlaintext []byte) ([]byte, error) {
	switch p.Number {
	case ctaptypes.PinUvAuthProtocolOne:
		return encryptOne(sharedSecret, demPlaintext)
	case ctaptypes.PinUvAuthProtocolTwo:
		return encryptTwo(sharedSecret, demPlaintext)
	default:
		return nil, ErrInvalidProtocol
	}
}

func (p *Protocol) Decrypt(sharedSecret []byte, demCiphertext []byte) ([]byte, error) {
	switch p.Number {
	case ctaptypes.PinUvAuthProtocolOne:
		return decryptOne(sharedSecret, demCiphertext)
	case ctaptypes.PinUvAuthProtocolTwo:
		return decryptTwo(sharedSecret, demCiphertext)
	default:
		return nil, ErrInvalidProtocol
	}
}

// Authenticate computes the pinUvAuthParam over message. The key is either a
// shared secret or a pinUvAuthToken.
func Authenticate(number ctaptypes.PinUvAuthProtocol, secret []byte, message []byte) []byte {
	switch number {
	case ctaptypes.PinUvAuthProtocolOne:
		return authenticateOne(secret, message)
	case ctaptypes.PinUvAuthProtocolTwo:
		return authenticateTwo(secret, message)
	default:
		panic("invalid PIN/UV auth protocol")
	}
}
