package ctaphid

// Command represents a CTAPHID command.
type Command byte

const (
	CTAPHID_MSG       Command = 0x03
	CTAPHID_CBOR      Command = 0x10
	CTAPHID_INIT      Command = 0x06
	CTAPHID_PING      Command = 0x01
	CTAPHID_CANCEL    Command = 0x11
	CTAPHID_ERROR     Command = 0x3f
	CTAPHID_KEEPALIVE Command = 0x3b
	CTAPHID_WINK      Command = 0x08
	CTAPHID_LOCK      Command = 0x04
)

type CapabilityFlag byte

const (
	CAPABILITY_WINK CapabilityFlag = 0x01
	CAPABILITY_CBOR CapabilityFlag = 0x04
	CAPABILITY_NMSG CapabilityFlag = 0x08
)

// Error is a CTAPHID-level error code carried by a CTAPHID_ERROR response.
type Error byte

const (
	ERR_INVALID_CMD     Error = 0x01
	ERR_INVALID_PAR     Error = 0x02
	ERR_INVALID_LEN     Error = 0x03
	ERR_INVALID_SEQ     Error = 0x04
	ERR_MSG_TIMEOUT     Error = 0x05
	ERR_CHANNEL_BUSY    Error = 0x06
	ERR_LOCK_REQUIRED   Error = 0x0A
	ERR_INVALID_CHANNEL Error = 0x0B
	ERR_OTHER           Error = 0x7F
)

var errorStringMap = map[Error]string{
	ERR_INVALID_CMD:     "ERR_INVALID_CMD",
	ERR_INVALID_PAR:     "ERR_INVALID_PAR",
	ERR_INVALID_LEN:     "ERR_INVALID_LEN",
	ERR_INVALID_SEQ:     "ERR_INVALID_SEQ",
	ERR_MSG_TIMEOUT:     "ERR_MSG_TIMEOUT",
	ERR_CHANNEL_BUSY:    "ERR_CHANNEL_BUSY",
	ERR_LOCK_REQUIRED:   "ERR_LOCK_REQUIRED",
	ERR_INVALID_CHANNEL: "ERR_INVALID_CHANNEL",
	ERR_OTHER:           "ERR_OTHER",
}

func (e Error) String() string {
	if s, ok := errorStringMap[e]; ok {
		return s
	}
	return "ERR_UNKNOWN"
}

type KeepaliveStatusCode byte

const (
	STATUS_PROCESSING KeepaliveStatusCode = 1
	STATUS_UPNEEDED   KeepaliveStatusCode = 2
)

const INIT_PACKET_BIT byte = 0x80

// MaxMessageSize is the largest payload a CTAPHID message can carry:
// 57 bytes in the init packet plus 128 continuation packets of 59 bytes.
const MaxMessageSize = 7609

const packetSize = 64
