package ctaphid

import (
	"bytes"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	cid := ChannelID{0x46, 0x2f, 0xef, 0x4d}

	payload := make([]byte, 200)
	for i := range payload {
		payload[i] = byte(i)
	}

	msg, err := NewMessage(cid, CTAPHID_CBOR, payload)
	require.NoError(t, err)
	// 57 bytes in the init packet, 59 per continuation packet
	require.Len(t, msg, 1+3)

	buf := bytes.NewBuffer(nil)
	_, err = msg.WriteTo(buf)
	require.NoError(t, err)

	// Strip the report ID byte from each written report and pad frames back
	// to 64 bytes the way a HID read would deliver them.
	frames := bytes.NewBuffer(nil)
	for _, report := range lo.Chunk(buf.Bytes(), packetSize+1) {
		require.Equal(t, byte(0x00), report[0])
		frame := make([]byte, packetSize)
		copy(frame, report[1:])
		frames.Write(frame)
	}

	parsed := new(Message)
	_, err = parsed.ReadFrom(frames)
	require.NoError(t, err)

	assert.Equal(t, CTAPHID_CBOR, parsed.Command())
	assert.Equal(t, payload, parsed.Data())
}

func TestNewMessageRejectsOversizedPayload(t *testing.T) {
	_, err := NewMessage(BroadcastCID, CTAPHID_CBOR, make([]byte, MaxMessageSize+1))
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestReadFromRejectsLeadingContinuationPacket(t *testing.T) {
	frame := make([]byte, packetSize)
	copy(frame, BroadcastCID[:])
	frame[4] = 0x01 // sequence byte without the init bit

	m := new(Message)
	_, err := m.ReadFrom(bytes.NewReader(frame))
	require.ErrorIs(t, err, ErrInvalidResponseMessage)
}
