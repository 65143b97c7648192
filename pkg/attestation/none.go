package attestation

import (
	"bytes"

	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

// emptyCBORMap is the only statement the none format allows.
var emptyCBORMap = []byte{0xa0}

// noneVerifier implements the none attestation statement format: the
// statement must be an empty map and verification always succeeds.
// https://www.w3.org/TR/webauthn-3/#sctn-none-attestation
type noneVerifier struct{}

func (noneVerifier) Verify(obj *Object, policy TrustPolicy) (*Result, error) {
	if len(obj.Statement) != 0 && !bytes.Equal(obj.Statement, emptyCBORMap) {
		return nil, &StatementError{
			Format: obj.Format,
			Field:  "attStmt",
			Msg:    "must be an empty map",
		}
	}

	if err := policy.check(nil); err != nil {
		return nil, err
	}

	return &Result{Type: TypeNone}, nil
}

func init() {
	RegisterFormat(webauthntypes.AttestationStatementFormatIdentifierNone, noneVerifier{})
}
