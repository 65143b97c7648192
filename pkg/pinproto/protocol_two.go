package pinproto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"slices"

	"golang.org/x/crypto/hkdf"
)

// Protocol two: HKDF splits the ECDH output into separate HMAC and AES keys,
// AES-CBC uses a random IV prepended to the ciphertext, and the HMAC is sent
// in full.

func kdfTwo(z []byte) ([]byte, error) {
	// Zero bytes for salt
	salt := make([]byte, 32)

	hmacKey := make([]byte, 32)
	if _, err := io.ReadFull(
		hkdf.New(sha256.New, z, salt, []byte("CTAP2 HMAC key")),
		hmacKey,
	); err != nil {
		return nil, fmt.Errorf("calculating CTAP2 HMAC key using HKDF failed: %w", err)
	}

	aesKey := make([]byte, 32)
	if _, err := io.ReadFull(
		hkdf.New(sha256.New, z, salt, []byte("CTAP2 AES key")),
		aesKey,
	); err != nil {
		return nil, fmt.Errorf("calculating CTAP2 AES key using HKDF failed: %w", err)
	}

	return slices.Concat(hmacKey, aesKey), nil
}

func encryptTwo(sharedSecret []byte, demPlaintext []byte) ([]byte, error) {
	if len(sharedSecret) != 64 {
		return nil, errors.New("invalid shared secret length")
	}
	if len(demPlaintext)%16 != 0 {
		return nil, errors.New("invalid plaintext length")
	}

	// The second half of the shared secret is the AES key.
	aesKey := sharedSecret[32:]

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create new AES cipher: %w", err)
	}

	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("cannot generate random iv: %w", err)
	}
	ciphertext := make([]byte, len(demPlaintext))

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, demPlaintext)

	return slices.Concat(iv, ciphertext), nil
}

func decryptTwo(sharedSecret []byte, demCiphertext []byte) ([]byte, error) {
	if len(sharedSecret) != 64 {
		return nil, errors.New("invalid shared secret length")
	}

	aesKey := sharedSecret[32:]

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create new AES cipher: %w", err)
	}

	if len(demCiphertext) <= block.BlockSize() || (len(demCiphertext)-block.BlockSize())%16 != 0 {
		return nil, errors.New("invalid ciphertext")
	}

	iv := demCiphertext[:16]
	ciphertext := demCiphertext[16:]
	plaintext := make([]byte, len(ciphertext))

	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, ciphertext)

	return plaintext, nil
}

func authenticateTwo(secret []byte, message []byte) []byte {
	// The first half of a shared secret is the HMAC key. A pinUvAuthToken is
	// exactly 32 bytes, so the slice is a no-op for it.
	hmacKey := secret[:32]

	hasher := hmac.New(sha256.New, hmacKey)
	hasher.Write(message)
	return hasher.Sum(nil)
}
