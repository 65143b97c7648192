package ctap

import (
	"errors"

	"github.com/go-ctap/fido2/pkg/ctaptypes"
)

// Transport carries one CTAP2 request to an authenticator and returns the
// raw response: the status byte followed by the CBOR-encoded body, if any.
// Implementations must not retry and must keep exactly one request in flight
// per call. See pkg/ctaphid for the USB HID framing implementation.
type Transport interface {
	Exchange(cmd ctaptypes.Command, payload []byte) ([]byte, error)
}

var (
	// ErrTimeout is returned by a Transport when the authenticator did not
	// answer within the transport's deadline.
	ErrTimeout = errors.New("ctap: transport timeout")
	// ErrDeviceDisconnected is returned by a Transport when the underlying
	// device went away mid-exchange.
	ErrDeviceDisconnected = errors.New("ctap: device disconnected")
)
