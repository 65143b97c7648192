package ctaphid

import "errors"

var (
	ErrMessageTooLarge        = errors.New("ctaphid: message payload too large")
	ErrUnexpectedCommand      = errors.New("ctaphid: unexpected command")
	ErrInvalidResponseMessage = errors.New("ctaphid: invalid response message")
	ErrInvalidNonce           = errors.New("ctaphid: init response nonce mismatch")
)

// DeviceError is a CTAPHID_ERROR response from the authenticator.
type DeviceError struct {
	Code Error
}

func (e *DeviceError) Error() string {
	return "ctaphid: device reported " + e.Code.String()
}
