package ctaptypes

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/ldclabs/cose/iana"
	"github.com/ldclabs/cose/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCOSEKey(t *testing.T) key.Key {
	t.Helper()

	x := make([]byte, 32)
	y := make([]byte, 32)
	for i := range x {
		x[i] = byte(i)
		y[i] = byte(31 - i)
	}

	return key.Key{
		iana.KeyParameterKty:    iana.KeyTypeEC2,
		iana.KeyParameterAlg:    iana.AlgorithmES256,
		iana.EC2KeyParameterCrv: iana.EllipticCurveP_256,
		iana.EC2KeyParameterX:   x,
		iana.EC2KeyParameterY:   y,
	}
}

// buildAuthData serializes authenticator data the way an authenticator would,
// so the parser can be exercised against known-good buffers.
func buildAuthData(
	t *testing.T,
	flags AuthDataFlag,
	signCount uint32,
	credData *AttestedCredentialData,
	extensions map[string]any,
) []byte {
	t.Helper()

	em, err := cbor.CTAP2EncOptions().EncMode()
	require.NoError(t, err)

	rpIDHash := sha256.Sum256([]byte("example.com"))

	buf := make([]byte, 0, 128)
	buf = append(buf, rpIDHash[:]...)
	buf = append(buf, byte(flags))
	buf = binary.BigEndian.AppendUint32(buf, signCount)

	if credData != nil {
		buf = append(buf, credData.AAGUID[:]...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(credData.CredentialID)))
		buf = append(buf, credData.CredentialID...)

		keyBytes, err := em.Marshal(credData.CredentialPublicKey)
		require.NoError(t, err)
		buf = append(buf, keyBytes...)
	}

	if extensions != nil {
		extBytes, err := em.Marshal(extensions)
		require.NoError(t, err)
		buf = append(buf, extBytes...)
	}

	return buf
}

func TestParseAuthData(t *testing.T) {
	aaguid := uuid.MustParse("f8a011f3-8c0a-4d15-8006-17111f9edc7d")

	credData := &AttestedCredentialData{
		AAGUID:              aaguid,
		CredentialID:        []byte("CRED1"),
		CredentialPublicKey: testCOSEKey(t),
	}

	t.Run("assertion-shaped: no attested credential data", func(t *testing.T) {
		raw := buildAuthData(t, AuthDataFlagUserPresent, 7, nil, nil)

		d, err := ParseAuthData(raw)
		require.NoError(t, err)

		assert.True(t, d.Flags.UserPresent())
		assert.False(t, d.Flags.UserVerified())
		assert.False(t, d.Flags.AttestedCredentialDataIncluded())
		assert.EqualValues(t, 7, d.SignCount)
		assert.Nil(t, d.AttestedCredentialData)
		assert.Nil(t, d.Extensions)
	})

	t.Run("registration-shaped: attested credential data", func(t *testing.T) {
		flags := AuthDataFlagUserPresent |
			AuthDataFlagUserVerified |
			AuthDataFlagAttestedCredentialDataIncluded
		raw := buildAuthData(t, flags, 1, credData, nil)

		d, err := ParseAuthData(raw)
		require.NoError(t, err)
		require.NotNil(t, d.AttestedCredentialData)

		assert.True(t, d.Flags.UserVerified())
		assert.Equal(t, aaguid, d.AttestedCredentialData.AAGUID)
		assert.Equal(t, []byte("CRED1"), d.AttestedCredentialData.CredentialID)

		k := d.AttestedCredentialData.CredentialPublicKey
		assert.EqualValues(t, iana.KeyTypeEC2, k.Kty())
	})

	t.Run("extensions map present", func(t *testing.T) {
		flags := AuthDataFlagUserPresent |
			AuthDataFlagAttestedCredentialDataIncluded |
			AuthDataFlagExtensionDataIncluded
		raw := buildAuthData(t, flags, 3, credData, map[string]any{
			"credProtect": uint64(2),
		})

		d, err := ParseAuthData(raw)
		require.NoError(t, err)
		require.NotNil(t, d.Extensions)
		assert.Equal(t, uint64(2), d.Extensions["credProtect"])
	})

	t.Run("truncated header", func(t *testing.T) {
		_, err := ParseAuthData(make([]byte, 36))

		var adErr *AuthDataError
		require.ErrorAs(t, err, &adErr)
		assert.Equal(t, "header", adErr.Field)
	})

	t.Run("credential ID length overruns buffer", func(t *testing.T) {
		raw := buildAuthData(t, AuthDataFlagAttestedCredentialDataIncluded, 1, credData, nil)
		// Bump the declared credential ID length past the end of the buffer.
		binary.BigEndian.PutUint16(raw[53:55], 0xffff)

		_, err := ParseAuthData(raw)

		var adErr *AuthDataError
		require.ErrorAs(t, err, &adErr)
		assert.Equal(t, "credentialId", adErr.Field)
	})

	t.Run("flag claims attested credential data but body is absent", func(t *testing.T) {
		raw := buildAuthData(t, AuthDataFlagAttestedCredentialDataIncluded, 1, nil, nil)

		var adErr *AuthDataError
		_, err := ParseAuthData(raw)
		require.ErrorAs(t, err, &adErr)
	})

	t.Run("trailing bytes rejected", func(t *testing.T) {
		raw := buildAuthData(t, AuthDataFlagUserPresent, 1, nil, nil)
		raw = append(raw, 0x00)

		_, err := ParseAuthData(raw)

		var adErr *AuthDataError
		require.ErrorAs(t, err, &adErr)
		assert.Equal(t, "trailer", adErr.Field)
	})
}
