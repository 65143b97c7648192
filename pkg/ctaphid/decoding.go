package ctaphid

import (
	"encoding/binary"
	"io"
)

// ReadFrom reads one complete message from the device. Every read consumes a
// full 64-byte report; continuation packets are collected until the length
// declared by the init packet has been received.
func (m *Message) ReadFrom(device io.Reader) (int64, error) {
	var bytesRead int64

	remaining := -1
	for remaining != 0 {
		frame := make([]byte, packetSize)
		n, err := io.ReadFull(device, frame)
		bytesRead += int64(n)
		if err != nil {
			return bytesRead, err
		}

		p := &packet{
			cid: ChannelID(frame[:4]),
		}

		cmdOrSeq := frame[4]
		var payload []byte
		if cmdOrSeq&INIT_PACKET_BIT != 0 {
			p.command = Command(cmdOrSeq &^ INIT_PACKET_BIT)
			p.length = binary.BigEndian.Uint16(frame[5:7])
			remaining = int(p.length)
			payload = frame[7:]
		} else {
			if remaining < 0 {
				return bytesRead, ErrInvalidResponseMessage
			}
			p.sequence = cmdOrSeq
			p.continuation = true
			payload = frame[5:]
		}

		if remaining < len(payload) {
			payload = payload[:remaining]
		}
		p.data = payload
		remaining -= len(payload)

		*m = append(*m, p)
	}

	return bytesRead, nil
}
