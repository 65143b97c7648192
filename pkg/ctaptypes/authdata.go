package ctaptypes

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// AuthData is parsed authenticator data as returned by MakeCredential and
// GetAssertion. AttestedCredentialData is nil unless the flags byte has the
// AT bit set; Extensions is nil unless the ED bit is set.
// https://www.w3.org/TR/webauthn-3/#sctn-authenticator-data
type AuthData struct {
	RPIDHash               []byte
	Flags                  AuthDataFlag
	SignCount              uint32
	AttestedCredentialData *AttestedCredentialData
	Extensions             map[string]any
}

// AuthDataError describes a malformed authenticator data buffer. Field names
// the region that failed to parse.
type AuthDataError struct {
	Field string
	Msg   string
}

func (e *AuthDataError) Error() string {
	return fmt.Sprintf("ctaptypes: malformed authenticator data: %s: %s", e.Field, e.Msg)
}

// ParseAuthData parses authenticator data with strict length accounting.
// Every region is bounds-checked before it is read, the flags byte must agree
// with the data actually present, and any unconsumed trailing bytes are an
// error.
func ParseAuthData(data []byte) (*AuthData, error) {
	if len(data) < 37 {
		return nil, &AuthDataError{
			Field: "header",
			Msg:   fmt.Sprintf("need at least 37 bytes, got %d", len(data)),
		}
	}

	d := &AuthData{
		RPIDHash:  data[:32],
		Flags:     AuthDataFlag(data[32]),
		SignCount: binary.BigEndian.Uint32(data[33:37]),
	}
	offset := 37

	if d.Flags.AttestedCredentialDataIncluded() {
		if len(data) < offset+18 {
			return nil, &AuthDataError{
				Field: "attestedCredentialData",
				Msg:   "truncated before credential ID length",
			}
		}
		credData := &AttestedCredentialData{
			AAGUID: uuid.UUID(data[offset : offset+16]),
		}
		offset += 16

		length := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		offset += 2
		if len(data) < offset+length {
			return nil, &AuthDataError{
				Field: "credentialId",
				Msg:   fmt.Sprintf("length %d exceeds remaining %d bytes", length, len(data)-offset),
			}
		}
		credData.CredentialID = data[offset : offset+length]
		offset += length

		// COSE key is self-describing CBOR; the decoder reports how many
		// bytes it consumed.
		dec := cbor.NewDecoder(bytes.NewReader(data[offset:]))
		if err := dec.Decode(&credData.CredentialPublicKey); err != nil {
			return nil, &AuthDataError{Field: "credentialPublicKey", Msg: err.Error()}
		}
		offset += dec.NumBytesRead()

		d.AttestedCredentialData = credData
	}

	if d.Flags.ExtensionDataIncluded() {
		dec := cbor.NewDecoder(bytes.NewReader(data[offset:]))
		if err := dec.Decode(&d.Extensions); err != nil {
			return nil, &AuthDataError{Field: "extensions", Msg: err.Error()}
		}
		offset += dec.NumBytesRead()
	}

	if offset != len(data) {
		return nil, &AuthDataError{
			Field: "trailer",
			Msg:   fmt.Sprintf("%d unconsumed trailing bytes", len(data)-offset),
		}
	}

	return d, nil
}
