package cosekey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/ldclabs/cose/iana"
	"github.com/ldclabs/cose/key"
	coseecdsa "github.com/ldclabs/cose/key/ecdsa"
	coseed25519 "github.com/ldclabs/cose/key/ed25519"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyES256(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	coseKey, err := coseecdsa.KeyFromPublic(&priv.PublicKey)
	require.NoError(t, err)

	alg, err := SignatureAlgorithm(coseKey)
	require.NoError(t, err)
	assert.EqualValues(t, iana.AlgorithmES256, alg)

	data := []byte("authData || clientDataHash")
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)

	require.NoError(t, Verify(coseKey, data, sig))

	// Any bit flip must invalidate the signature.
	sig[len(sig)-1] ^= 0x01
	require.ErrorIs(t, Verify(coseKey, data, sig), ErrInvalidSignature)
}

func TestVerifyEdDSA(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	coseKey, err := coseed25519.KeyFromPublic(pub)
	require.NoError(t, err)

	alg, err := SignatureAlgorithm(coseKey)
	require.NoError(t, err)
	assert.EqualValues(t, iana.AlgorithmEdDSA, alg)

	data := []byte("authData || clientDataHash")
	sig := ed25519.Sign(priv, data)

	require.NoError(t, Verify(coseKey, data, sig))

	data[0] ^= 0x01
	require.ErrorIs(t, Verify(coseKey, data, sig), ErrInvalidSignature)
}

func TestVerifyRS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	coseKey := key.Key{
		iana.KeyParameterKty:  iana.KeyTypeRSA,
		iana.RSAKeyParameterN: priv.PublicKey.N.Bytes(),
		iana.RSAKeyParameterE: big.NewInt(int64(priv.PublicKey.E)).Bytes(),
	}

	alg, err := SignatureAlgorithm(coseKey)
	require.NoError(t, err)
	assert.EqualValues(t, iana.AlgorithmRS256, alg)

	data := []byte("authData || clientDataHash")
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	require.NoError(t, err)

	require.NoError(t, Verify(coseKey, data, sig))
}

func TestSignatureAlgorithmMismatch(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	coseKey, err := coseecdsa.KeyFromPublic(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, coseKey.Set(iana.KeyParameterAlg, iana.AlgorithmES384))

	_, err = SignatureAlgorithm(coseKey)
	require.ErrorIs(t, err, ErrAlgorithmMismatch)
}

func TestSignatureAlgorithmUnsupportedKeyType(t *testing.T) {
	coseKey := key.Key{
		iana.KeyParameterKty: iana.KeyTypeSymmetric,
	}

	_, err := SignatureAlgorithm(coseKey)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	_, err = PublicKey(coseKey)
	require.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
