// Package cosekey bridges COSE_Key credential public keys to Go crypto types
// and verifies WebAuthn-style signatures with the algorithm implied by the
// key itself.
package cosekey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"math/big"

	"github.com/ldclabs/cose/iana"
	"github.com/ldclabs/cose/key"
	coseecdsa "github.com/ldclabs/cose/key/ecdsa"
	coseed25519 "github.com/ldclabs/cose/key/ed25519"
)

var (
	ErrUnsupportedAlgorithm = errors.New("cosekey: unsupported algorithm")
	ErrAlgorithmMismatch    = errors.New("cosekey: declared algorithm does not match key type")
	ErrInvalidSignature     = errors.New("cosekey: invalid signature")
)

// SignatureAlgorithm returns the signature algorithm for k. For EC2 and OKP
// keys the algorithm is implied by the curve; a declared alg parameter that
// contradicts the curve is an error. RSA keys default to RS256 when no alg
// is declared.
func SignatureAlgorithm(k key.Key) (key.Alg, error) {
	var inferred key.Alg

	switch k.Kty() {
	case iana.KeyTypeEC2:
		crv, err := k.GetInt64(iana.EC2KeyParameterCrv)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, err)
		}
		switch crv {
		case iana.EllipticCurveP_256:
			inferred = iana.AlgorithmES256
		case iana.EllipticCurveP_384:
			inferred = iana.AlgorithmES384
		case iana.EllipticCurveP_521:
			inferred = iana.AlgorithmES512
		default:
			return 0, fmt.Errorf("%w: EC2 curve %d", ErrUnsupportedAlgorithm, crv)
		}
	case iana.KeyTypeOKP:
		crv, err := k.GetInt64(iana.OKPKeyParameterCrv)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, err)
		}
		if crv != iana.EllipticCurveEd25519 {
			return 0, fmt.Errorf("%w: OKP curve %d", ErrUnsupportedAlgorithm, crv)
		}
		inferred = iana.AlgorithmEdDSA
	case iana.KeyTypeRSA:
		inferred = iana.AlgorithmRS256
	default:
		return 0, fmt.Errorf("%w: key type %d", ErrUnsupportedAlgorithm, k.Kty())
	}

	if k.Has(iana.KeyParameterAlg) {
		declared, err := k.GetInt64(iana.KeyParameterAlg)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, err)
		}

		// RSA keys may declare any of the PKCS#1 v1.5 algorithms.
		if k.Kty() == iana.KeyTypeRSA {
			switch declared {
			case iana.AlgorithmRS256, iana.AlgorithmRS384, iana.AlgorithmRS512:
				return key.Alg(declared), nil
			default:
				return 0, fmt.Errorf("%w: RSA alg %d", ErrAlgorithmMismatch, declared)
			}
		}

		if key.Alg(declared) != inferred {
			return 0, fmt.Errorf("%w: alg %d, key implies %d", ErrAlgorithmMismatch, declared, int(inferred))
		}
	}

	return inferred, nil
}

// PublicKey converts k to the corresponding Go crypto public key.
func PublicKey(k key.Key) (crypto.PublicKey, error) {
	switch k.Kty() {
	case iana.KeyTypeEC2:
		pub, err := coseecdsa.KeyToPublic(k)
		if err != nil {
			return nil, fmt.Errorf("cosekey: cannot convert EC2 key: %w", err)
		}
		return pub, nil
	case iana.KeyTypeOKP:
		pub, err := coseed25519.KeyToPublic(k)
		if err != nil {
			return nil, fmt.Errorf("cosekey: cannot convert OKP key: %w", err)
		}
		return pub, nil
	case iana.KeyTypeRSA:
		n, err := k.GetBytes(iana.RSAKeyParameterN)
		if err != nil {
			return nil, fmt.Errorf("cosekey: RSA key missing modulus: %w", err)
		}
		e, err := k.GetBytes(iana.RSAKeyParameterE)
		if err != nil {
			return nil, fmt.Errorf("cosekey: RSA key missing exponent: %w", err)
		}
		return &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}, nil
	default:
		return nil, fmt.Errorf("%w: key type %d", ErrUnsupportedAlgorithm, k.Kty())
	}
}

// Verify checks sig over data using the credential public key k.
func Verify(k key.Key, data, sig []byte) error {
	alg, err := SignatureAlgorithm(k)
	if err != nil {
		return err
	}

	pub, err := PublicKey(k)
	if err != nil {
		return err
	}

	return VerifyWithPublicKey(pub, alg, data, sig)
}

// VerifyWithPublicKey checks sig over data using an already converted public
// key, e.g. one taken from an attestation certificate.
func VerifyWithPublicKey(pub crypto.PublicKey, alg key.Alg, data, sig []byte) error {
	switch alg {
	case iana.AlgorithmES256:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: ES256 needs *ecdsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha256.Sum256(data)
		if !ecdsa.VerifyASN1(ecdsaPub, digest[:], sig) {
			return ErrInvalidSignature
		}
	case iana.AlgorithmES384:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: ES384 needs *ecdsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha512.Sum384(data)
		if !ecdsa.VerifyASN1(ecdsaPub, digest[:], sig) {
			return ErrInvalidSignature
		}
	case iana.AlgorithmES512:
		ecdsaPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: ES512 needs *ecdsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha512.Sum512(data)
		if !ecdsa.VerifyASN1(ecdsaPub, digest[:], sig) {
			return ErrInvalidSignature
		}
	case iana.AlgorithmEdDSA:
		edPub, ok := pub.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("%w: EdDSA needs ed25519.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		if !ed25519.Verify(edPub, data, sig) {
			return ErrInvalidSignature
		}
	case iana.AlgorithmRS256:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RS256 needs *rsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha256.Sum256(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, digest[:], sig); err != nil {
			return ErrInvalidSignature
		}
	case iana.AlgorithmRS384:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RS384 needs *rsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha512.Sum384(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA384, digest[:], sig); err != nil {
			return ErrInvalidSignature
		}
	case iana.AlgorithmRS512:
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("%w: RS512 needs *rsa.PublicKey, got %T", ErrUnsupportedAlgorithm, pub)
		}
		digest := sha512.Sum512(data)
		if err := rsa.VerifyPKCS1v15(rsaPub, crypto.SHA512, digest[:], sig); err != nil {
			return ErrInvalidSignature
		}
	default:
		return fmt.Errorf("%w: alg %d", ErrUnsupportedAlgorithm, int(alg))
	}

	return nil
}
