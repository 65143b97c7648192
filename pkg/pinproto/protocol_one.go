package pinproto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
)

// Protocol one: the shared secret is SHA-256 of the raw ECDH output, AES-CBC
// uses a zero IV, and the HMAC is truncated to 16 bytes.

func kdfOne(z []byte) []byte {
	hasher := sha256.New()
	hasher.Write(z)
	return hasher.Sum(nil)
}

func encryptOne(sharedSecret []byte, demPlaintext []byte) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, errors.New("invalid shared secret length")
	}
	if len(demPlaintext)%16 != 0 {
		return nil, errors.New("invalid plaintext length")
	}

	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("cannot create new AES cipher: %w", err)
	}

	iv := make([]byte, block.BlockSize())
	ciphertext := make([]byte, len(demPlaintext))

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext, demPlaintext)

	return ciphertext, nil
}

func decryptOne(sharedSecret []byte, demCiphertext []byte) ([]byte, error) {
	if len(sharedSecret) != 32 {
		return nil, errors.New("invalid shared secret length")
	}
	if len(demCiphertext) == 0 || len(demCiphertext)%16 != 0 {
		return nil, errors.New("invalid ciphertext length")
	}

	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, fmt.Errorf("cannot create new AES cipher: %w", err)
	}

	iv := make([]byte, block.BlockSize())
	plaintext := make([]byte, len(demCiphertext))

	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(plaintext, demCiphertext)

	return plaintext, nil
}

func authenticateOne(secret []byte, message []byte) []byte {
	hasher := hmac.New(sha256.New, secret)
	hasher.Write(message)
	return hasher.Sum(nil)[:16]
}
