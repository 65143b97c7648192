package pinproto

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/ldclabs/cose/iana"
	coseecdh "github.com/ldclabs/cose/key/ecdh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsUnknownProtocol(t *testing.T) {
	_, err := New(ctaptypes.PinUvAuthProtocol(3))
	require.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestEncapsulateEncryptDecrypt(t *testing.T) {
	for _, number := range []ctaptypes.PinUvAuthProtocol{
		ctaptypes.PinUvAuthProtocolOne,
		ctaptypes.PinUvAuthProtocolTwo,
	} {
		t.Run(map[ctaptypes.PinUvAuthProtocol]string{1: "one", 2: "two"}[number], func(t *testing.T) {
			// Stand in for the authenticator side of the key agreement.
			authnrPrivkey, err := ecdh.P256().GenerateKey(rand.Reader)
			require.NoError(t, err)
			authnrCoseKey, err := coseecdh.KeyFromPublic(authnrPrivkey.Public().(*ecdh.PublicKey))
			require.NoError(t, err)

			protocol, err := New(number)
			require.NoError(t, err)

			platformCoseKey, sharedSecret, err := protocol.Encapsulate(authnrCoseKey)
			require.NoError(t, err)
			require.NotNil(t, platformCoseKey)
			alg, err := platformCoseKey.GetInt64(iana.KeyParameterAlg)
			require.NoError(t, err)
			assert.EqualValues(t, -25, alg)
			assert.False(t, platformCoseKey.Has(iana.KeyParameterKid))

			// The authenticator derives the same secret from the platform key.
			platformPubkey, err := coseecdh.KeyToPublic(platformCoseKey)
			require.NoError(t, err)
			z, err := authnrPrivkey.ECDH(platformPubkey)
			require.NoError(t, err)
			authnrSecret, err := protocol.kdf(z)
			require.NoError(t, err)
			assert.Equal(t, sharedSecret, authnrSecret)

			plaintext := make([]byte, 64)
			copy(plaintext, "1234")

			ciphertext, err := protocol.Encrypt(sharedSecret, plaintext)
			require.NoError(t, err)
			assert.NotEqual(t, plaintext, ciphertext)

			decrypted, err := protocol.Decrypt(sharedSecret, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)

			mac := Authenticate(number, sharedSecret, ciphertext)
			if number == ctaptypes.PinUvAuthProtocolOne {
				assert.Len(t, mac, 16)
			} else {
				assert.Len(t, mac, 32)
			}
		})
	}
}

func TestEncryptRejectsUnalignedPlaintext(t *testing.T) {
	protocol, err := New(ctaptypes.PinUvAuthProtocolOne)
	require.NoError(t, err)

	_, err = protocol.Encrypt(make([]byte, 32), []byte("short"))
	require.Error(t, err)
}
