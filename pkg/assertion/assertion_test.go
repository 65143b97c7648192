package assertion

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"slices"
	"testing"

	coseecdsa "github.com/ldclabs/cose/key/ecdsa"
	coseed25519 "github.com/ldclabs/cose/key/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertionAuthData builds the 37-byte authenticator data of an assertion.
func assertionAuthData(signCount uint32) []byte {
	rpIDHash := sha256.Sum256([]byte("example.com"))

	buf := make([]byte, 0, 37)
	buf = append(buf, rpIDHash[:]...)
	buf = append(buf, 0x01) // UP
	return binary.BigEndian.AppendUint32(buf, signCount)
}

func TestVerifyES256(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	coseKey, err := coseecdsa.KeyFromPublic(&priv.PublicKey)
	require.NoError(t, err)

	clientDataHash := sha256.Sum256([]byte(`{"type":"webauthn.get"}`))
	authDataRaw := assertionAuthData(7)

	digest := sha256.Sum256(slices.Concat(authDataRaw, clientDataHash[:]))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)

	require.NoError(t, Verify(clientDataHash[:], authDataRaw, sig, coseKey))

	t.Run("flipped signature bit fails", func(t *testing.T) {
		badSig := slices.Clone(sig)
		badSig[0] ^= 0x01
		require.ErrorIs(t, Verify(clientDataHash[:], authDataRaw, badSig, coseKey), ErrInvalidSignature)
	})

	t.Run("different client data hash fails", func(t *testing.T) {
		otherHash := sha256.Sum256([]byte("tampered"))
		require.ErrorIs(t, Verify(otherHash[:], authDataRaw, sig, coseKey), ErrInvalidSignature)
	})
}

func TestVerifyEdDSA(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	coseKey, err := coseed25519.KeyFromPublic(pub)
	require.NoError(t, err)

	clientDataHash := sha256.Sum256([]byte(`{"type":"webauthn.get"}`))
	authDataRaw := assertionAuthData(1)
	sig := ed25519.Sign(priv, slices.Concat(authDataRaw, clientDataHash[:]))

	require.NoError(t, Verify(clientDataHash[:], authDataRaw, sig, coseKey))
}

func TestCounterTracker(t *testing.T) {
	credID := []byte("CRED1")

	t.Run("strictly increasing counters accepted", func(t *testing.T) {
		ct := NewCounterTracker()
		for _, count := range []uint32{1, 2, 3} {
			require.NoError(t, ct.Observe(credID, count))
		}
	})

	t.Run("non-increasing counter flagged", func(t *testing.T) {
		ct := NewCounterTracker()
		require.NoError(t, ct.Observe(credID, 3))
		require.ErrorIs(t, ct.Observe(credID, 2), ErrCounterNotIncreasing)
		require.ErrorIs(t, ct.Observe(credID, 3), ErrCounterNotIncreasing)
	})

	t.Run("authenticator without counter support", func(t *testing.T) {
		ct := NewCounterTracker()
		require.NoError(t, ct.Observe(credID, 0))
		require.NoError(t, ct.Observe(credID, 0))
	})

	t.Run("credentials tracked independently", func(t *testing.T) {
		ct := NewCounterTracker()
		require.NoError(t, ct.Observe([]byte("A"), 5))
		require.NoError(t, ct.Observe([]byte("B"), 1))
		assert.ErrorIs(t, ct.Observe([]byte("A"), 5), ErrCounterNotIncreasing)
	})
}
