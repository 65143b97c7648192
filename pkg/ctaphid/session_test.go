package ctaphid

import (
	"bytes"
	"io"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/go-ctap/fido2/pkg/ctap"
	"github.com/go-ctap/fido2/pkg/ctaptypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice emulates the authenticator side of a CTAPHID channel. It
// answers CTAPHID_INIT on the broadcast channel and replays a scripted
// response for each CTAPHID_CBOR transaction.
type fakeDevice struct {
	t *testing.T

	cid     ChannelID
	pending []byte       // written frames not yet assembled into a message
	out     bytes.Buffer // frames queued for the platform to read

	cborResponses [][]byte // status byte + CBOR body, consumed in order
	keepalives    int      // KEEPALIVE messages injected before each response
	errorCode     Error    // when non-zero, answer CBOR with CTAPHID_ERROR
	disconnected  bool
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	if d.disconnected {
		return 0, io.EOF
	}

	require.Len(d.t, p, packetSize+1)
	require.Equal(d.t, byte(0x00), p[0])

	d.pending = append(d.pending, p[1:]...)

	msg := new(Message)
	if _, err := msg.ReadFrom(bytes.NewReader(d.pending)); err != nil {
		// Message spans more packets; wait for the rest.
		return len(p), nil
	}
	d.pending = nil
	d.handle(*msg)

	return len(p), nil
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	if d.disconnected || d.out.Len() == 0 {
		return 0, io.EOF
	}
	return d.out.Read(p)
}

func (d *fakeDevice) handle(msg Message) {
	switch msg.Command() {
	case CTAPHID_INIT:
		nonce := msg.Data()
		require.Len(d.t, nonce, 8)

		data := make([]byte, 17)
		copy(data, nonce)
		copy(data[8:], d.cid[:])
		data[12] = 2 // CTAPHID protocol version
		data[16] = byte(CAPABILITY_CBOR)
		d.enqueue(BroadcastCID, CTAPHID_INIT, data)
	case CTAPHID_CBOR:
		if d.errorCode != 0 {
			d.enqueue(d.cid, CTAPHID_ERROR, []byte{byte(d.errorCode)})
			return
		}
		for range d.keepalives {
			d.enqueue(d.cid, CTAPHID_KEEPALIVE, []byte{byte(STATUS_PROCESSING)})
		}
		require.NotEmpty(d.t, d.cborResponses, "unexpected CBOR transaction")
		resp := d.cborResponses[0]
		d.cborResponses = d.cborResponses[1:]
		d.enqueue(d.cid, CTAPHID_CBOR, resp)
	case CTAPHID_PING:
		d.enqueue(d.cid, CTAPHID_PING, msg.Data())
	default:
		d.enqueue(d.cid, CTAPHID_ERROR, []byte{byte(ERR_INVALID_CMD)})
	}
}

func (d *fakeDevice) enqueue(cid ChannelID, cmd Command, data []byte) {
	msg, err := NewMessage(cid, cmd, data)
	require.NoError(d.t, err)

	for _, p := range msg {
		buf := bytes.NewBuffer(nil)
		_, err := p.WriteTo(buf)
		require.NoError(d.t, err)

		frame := make([]byte, packetSize)
		copy(frame, buf.Bytes())
		d.out.Write(frame)
	}
}

func newFakeDevice(t *testing.T) *fakeDevice {
	return &fakeDevice{
		t:   t,
		cid: ChannelID{0x00, 0x01, 0x02, 0x03},
	}
}

func TestNewSessionAllocatesChannel(t *testing.T) {
	dev := newFakeDevice(t)

	s, err := NewSession(dev)
	require.NoError(t, err)

	assert.Equal(t, dev.cid, s.ChannelID())
	assert.True(t, s.InitResponse().ImplementsCBOR())
	assert.False(t, s.InitResponse().ImplementsWink())
}

func TestSessionExchange(t *testing.T) {
	em, err := cbor.CTAP2EncOptions().EncMode()
	require.NoError(t, err)
	body, err := em.Marshal(&ctaptypes.AuthenticatorGetInfoResponse{
		Versions: ctaptypes.Versions{ctaptypes.FIDO_2_0},
	})
	require.NoError(t, err)

	dev := newFakeDevice(t)
	dev.cborResponses = [][]byte{append([]byte{byte(ctaptypes.CTAP2_OK)}, body...)}
	dev.keepalives = 2

	s, err := NewSession(dev)
	require.NoError(t, err)

	raw, err := s.Exchange(ctaptypes.AuthenticatorGetInfo, nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, byte(ctaptypes.CTAP2_OK), raw[0])

	var info ctaptypes.AuthenticatorGetInfoResponse
	require.NoError(t, cbor.Unmarshal(raw[1:], &info))
	assert.True(t, info.Versions.Supports(ctaptypes.FIDO_2_0))
}

func TestSessionExchangeIgnoresForeignChannelFrames(t *testing.T) {
	em, err := cbor.CTAP2EncOptions().EncMode()
	require.NoError(t, err)
	body, err := em.Marshal(&ctaptypes.AuthenticatorGetInfoResponse{
		Versions: ctaptypes.Versions{ctaptypes.FIDO_2_0},
	})
	require.NoError(t, err)

	dev := newFakeDevice(t)
	dev.cborResponses = [][]byte{append([]byte{byte(ctaptypes.CTAP2_OK)}, body...)}

	s, err := NewSession(dev)
	require.NoError(t, err)

	// A response addressed to another channel arrives first; it belongs to
	// someone else's transaction and must not be taken as ours.
	dev.enqueue(
		ChannelID{0xaa, 0xbb, 0xcc, 0xdd},
		CTAPHID_CBOR,
		[]byte{byte(ctaptypes.CTAP2_ERR_PIN_INVALID)},
	)

	raw, err := s.Exchange(ctaptypes.AuthenticatorGetInfo, nil)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.Equal(t, byte(ctaptypes.CTAP2_OK), raw[0])
}

func TestSessionExchangeLargePayloadSpansPackets(t *testing.T) {
	// Payload large enough to need continuation packets both ways.
	big := make([]byte, 300)
	for i := range big {
		big[i] = byte(i)
	}

	dev := newFakeDevice(t)
	dev.cborResponses = [][]byte{append([]byte{byte(ctaptypes.CTAP2_OK)}, big...)}

	s, err := NewSession(dev)
	require.NoError(t, err)

	raw, err := s.Exchange(ctaptypes.AuthenticatorMakeCredential, big)
	require.NoError(t, err)
	assert.Equal(t, big, raw[1:])
}

func TestSessionExchangeMapsMsgTimeout(t *testing.T) {
	dev := newFakeDevice(t)
	dev.errorCode = ERR_MSG_TIMEOUT

	s, err := NewSession(dev)
	require.NoError(t, err)

	_, err = s.Exchange(ctaptypes.AuthenticatorGetInfo, nil)
	require.ErrorIs(t, err, ctap.ErrTimeout)
}

func TestSessionExchangeSurfacesDeviceError(t *testing.T) {
	dev := newFakeDevice(t)
	dev.errorCode = ERR_CHANNEL_BUSY

	s, err := NewSession(dev)
	require.NoError(t, err)

	_, err = s.Exchange(ctaptypes.AuthenticatorGetInfo, nil)

	var devErr *DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, ERR_CHANNEL_BUSY, devErr.Code)
}

func TestSessionExchangeMapsDisconnect(t *testing.T) {
	dev := newFakeDevice(t)

	s, err := NewSession(dev)
	require.NoError(t, err)

	dev.disconnected = true
	_, err = s.Exchange(ctaptypes.AuthenticatorGetInfo, nil)
	require.ErrorIs(t, err, ctap.ErrDeviceDisconnected)
}

func TestSessionPing(t *testing.T) {
	dev := newFakeDevice(t)

	s, err := NewSession(dev)
	require.NoError(t, err)

	pong, err := s.Ping([]byte("hello authenticator"))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello authenticator"), pong)
}
