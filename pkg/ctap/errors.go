package ctap

import (
	"errors"
	"fmt"

	"github.com/go-ctap/fido2/pkg/ctaptypes"
)

var (
	ErrInvalidClientDataHash = errors.New("ctap: clientDataHash must be 32 bytes")
	ErrEmptyResponse         = errors.New("ctap: empty response, missing status byte")
)

// CTAPError is a non-zero status byte returned by the authenticator. The
// response body, if any, is discarded.
type CTAPError struct {
	Command    ctaptypes.Command
	StatusCode ctaptypes.StatusCode
}

func (e *CTAPError) Error() string {
	return fmt.Sprintf("ctap: %s failed: %s (0x%02x)", e.Command, e.StatusCode, byte(e.StatusCode))
}
