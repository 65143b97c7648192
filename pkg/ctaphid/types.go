package ctaphid

// Message is a sequence of packets.
type Message []*packet

// packet represents a single 64-byte CTAPHID report.
type packet struct {
	cid          ChannelID
	command      Command
	sequence     byte
	length       uint16
	data         []byte
	continuation bool
}

// ChannelID represents a CTAPHID channel ID.
type ChannelID [4]byte

// BroadcastCID is the channel used for CTAPHID_INIT before a channel has
// been allocated.
var BroadcastCID = ChannelID{0xff, 0xff, 0xff, 0xff}

// InitResponse represents a CTAPHID_INIT (0x06) response.
// https://fidoalliance.org/specs/fido-v2.2-ps-20250228/fido-client-to-authenticator-protocol-v2.2-ps-20250228.html#usb-hid-init
type InitResponse struct {
	Nonce                            []byte
	CID                              ChannelID
	CTAPHIDProtocolVersionIdentifier byte
	MajorDeviceVersion               byte
	MinorDeviceVersion               byte
	BuildDeviceVersion               byte
	CapabilityFlags                  byte
}

func (r *InitResponse) ImplementsWink() bool {
	return r.CapabilityFlags&byte(CAPABILITY_WINK) != 0
}

func (r *InitResponse) ImplementsCBOR() bool {
	return r.CapabilityFlags&byte(CAPABILITY_CBOR) != 0
}

func (r *InitResponse) NotImplementsMSG() bool {
	return r.CapabilityFlags&byte(CAPABILITY_NMSG) != 0
}
