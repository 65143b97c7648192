package attestation

import (
	"errors"
	"fmt"

	"github.com/go-ctap/fido2/pkg/webauthntypes"
)

var (
	ErrUnsupportedFormat    = errors.New("attestation: unsupported attestation statement format")
	ErrInvalidSignature     = errors.New("attestation: invalid attestation signature")
	ErrUntrustedAttestation = errors.New("attestation: trust policy rejected attestation")
)

// StatementError describes an attestation statement that is syntactically or
// semantically invalid for its format.
type StatementError struct {
	Format webauthntypes.AttestationStatementFormatIdentifier
	Field  string
	Msg    string
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("attestation: malformed %s statement: %s: %s", e.Format, e.Field, e.Msg)
}
