// Package ctaphid implements CTAPHID framing over any io.ReadWriter: 64-byte
// init and continuation packets, channel allocation via CTAPHID_INIT and the
// CTAPHID_CBOR exchange used by the CTAP2 message layer. The device handle is
// supplied by the caller; opening platform HID devices is out of scope.
package ctaphid

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/go-ctap/fido2/pkg/ctap"
	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/go-ctap/fido2/pkg/options"
)

// Session is a logical CTAPHID channel to one authenticator. It implements
// ctap.Transport. A Session is not safe for concurrent use; CTAPHID allows
// only one transaction per channel at a time.
type Session struct {
	dev    io.ReadWriter
	cid    ChannelID
	init   *InitResponse
	logger *slog.Logger
}

// NewSession allocates a channel by performing the CTAPHID_INIT handshake on
// the broadcast channel.
func NewSession(dev io.ReadWriter, opts ...options.Option) (*Session, error) {
	oo := options.NewOptions(opts...)

	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("ctaphid: cannot generate init nonce: %w", err)
	}

	initResp, err := Init(dev, BroadcastCID, nonce)
	if err != nil {
		return nil, err
	}
	oo.Logger.Debug("CTAPHID channel allocated",
		"cid", hex.EncodeToString(initResp.CID[:]),
		"capabilities", initResp.CapabilityFlags,
	)

	return &Session{
		dev:    dev,
		cid:    initResp.CID,
		init:   initResp,
		logger: oo.Logger,
	}, nil
}

// ChannelID returns the channel the authenticator allocated for this session.
func (s *Session) ChannelID() ChannelID {
	return s.cid
}

// InitResponse returns the CTAPHID_INIT response the session was built from,
// including device version and capability flags.
func (s *Session) InitResponse() *InitResponse {
	return s.init
}

// Exchange sends one CTAP2 command with its CBOR payload as a CTAPHID_CBOR
// transaction and returns the raw response, status byte first. KEEPALIVE
// packets are consumed while the authenticator is processing or waiting for
// the user.
func (s *Session) Exchange(cmd ctaptypes.Command, payload []byte) ([]byte, error) {
	msg, err := NewMessage(s.cid, CTAPHID_CBOR, slices.Concat([]byte{byte(cmd)}, payload))
	if err != nil {
		return nil, err
	}

	if _, err := msg.WriteTo(s.dev); err != nil {
		return nil, mapDeviceError(err)
	}

	for {
		respMsg := make(Message, 0)
		if _, err := respMsg.ReadFrom(s.dev); err != nil {
			return nil, mapDeviceError(err)
		}
		// Messages addressed to other channels are not part of this
		// transaction.
		if respMsg.ChannelID() != s.cid {
			continue
		}

		data := respMsg.Data()
		switch respMsg.Command() {
		case CTAPHID_CBOR:
			return data, nil
		case CTAPHID_KEEPALIVE:
			if len(data) > 0 {
				s.logger.Debug("CTAPHID keepalive", "status", data[0])
			}
			continue
		case CTAPHID_ERROR:
			if len(data) < 1 {
				return nil, ErrInvalidResponseMessage
			}
			return nil, mapErrorCode(Error(data[0]))
		default:
			return nil, ErrUnexpectedCommand
		}
	}
}

// Ping echoes data through the device, verifying the channel end to end.
func (s *Session) Ping(data []byte) ([]byte, error) {
	msg, err := NewMessage(s.cid, CTAPHID_PING, data)
	if err != nil {
		return nil, err
	}

	if _, err := msg.WriteTo(s.dev); err != nil {
		return nil, mapDeviceError(err)
	}

	for {
		respMsg := make(Message, 0)
		if _, err := respMsg.ReadFrom(s.dev); err != nil {
			return nil, mapDeviceError(err)
		}
		if respMsg.ChannelID() != s.cid {
			continue
		}

		switch respMsg.Command() {
		case CTAPHID_PING:
			return respMsg.Data(), nil
		case CTAPHID_KEEPALIVE:
			continue
		case CTAPHID_ERROR:
			data := respMsg.Data()
			if len(data) < 1 {
				return nil, ErrInvalidResponseMessage
			}
			return nil, mapErrorCode(Error(data[0]))
		default:
			return nil, ErrUnexpectedCommand
		}
	}
}

// Cancel aborts the transaction in flight on this channel. The authenticator
// answers the cancelled transaction with CTAP2_ERR_KEEPALIVE_CANCEL.
func (s *Session) Cancel() error {
	msg, err := NewMessage(s.cid, CTAPHID_CANCEL, nil)
	if err != nil {
		return err
	}

	if _, err := msg.WriteTo(s.dev); err != nil {
		return mapDeviceError(err)
	}

	return nil
}

// Wink asks the authenticator to identify itself visually.
func (s *Session) Wink() error {
	if !s.init.ImplementsWink() {
		return ErrUnexpectedCommand
	}

	msg, err := NewMessage(s.cid, CTAPHID_WINK, nil)
	if err != nil {
		return err
	}

	if _, err := msg.WriteTo(s.dev); err != nil {
		return mapDeviceError(err)
	}

	for {
		respMsg := make(Message, 0)
		if _, err := respMsg.ReadFrom(s.dev); err != nil {
			return mapDeviceError(err)
		}
		if respMsg.ChannelID() != s.cid {
			continue
		}

		switch respMsg.Command() {
		case CTAPHID_WINK:
			return nil
		case CTAPHID_KEEPALIVE:
			continue
		case CTAPHID_ERROR:
			data := respMsg.Data()
			if len(data) < 1 {
				return ErrInvalidResponseMessage
			}
			return mapErrorCode(Error(data[0]))
		default:
			return ErrUnexpectedCommand
		}
	}
}

// Init performs the CTAPHID_INIT handshake on the given channel.
func Init(dev io.ReadWriter, cid ChannelID, nonce []byte) (*InitResponse, error) {
	msg, err := NewMessage(cid, CTAPHID_INIT, nonce)
	if err != nil {
		return nil, err
	}

	if _, err := msg.WriteTo(dev); err != nil {
		return nil, mapDeviceError(err)
	}

	for {
		respMsg := make(Message, 0)
		if _, err := respMsg.ReadFrom(dev); err != nil {
			return nil, mapDeviceError(err)
		}
		if respMsg.ChannelID() != cid {
			continue
		}

		data := respMsg.Data()
		switch respMsg.Command() {
		case CTAPHID_INIT:
			if len(data) < 17 {
				return nil, ErrInvalidResponseMessage
			}
			if subtle.ConstantTimeCompare(data[:8], nonce) != 1 {
				return nil, ErrInvalidNonce
			}

			return &InitResponse{
				Nonce:                            data[:8],
				CID:                              ChannelID(data[8 : 8+4]),
				CTAPHIDProtocolVersionIdentifier: data[12],
				MajorDeviceVersion:               data[13],
				MinorDeviceVersion:               data[14],
				BuildDeviceVersion:               data[15],
				CapabilityFlags:                  data[16],
			}, nil
		case CTAPHID_KEEPALIVE:
			continue
		case CTAPHID_ERROR:
			if len(data) < 1 {
				return nil, ErrInvalidResponseMessage
			}
			return nil, mapErrorCode(Error(data[0]))
		default:
			return nil, ErrUnexpectedCommand
		}
	}
}

func mapErrorCode(code Error) error {
	if code == ERR_MSG_TIMEOUT {
		return fmt.Errorf("%w: %s", ctap.ErrTimeout, code)
	}
	return &DeviceError{Code: code}
}

func mapDeviceError(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, os.ErrClosed):
		return fmt.Errorf("%w: %s", ctap.ErrDeviceDisconnected, err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %s", ctap.ErrTimeout, err)
	default:
		return err
	}
}
