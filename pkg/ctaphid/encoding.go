package ctaphid

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/samber/lo"
)

// NewMessage splits data into an init packet and as many continuation
// packets as needed.
func NewMessage(cid ChannelID, cmd Command, data []byte) (Message, error) {
	if len(data) > MaxMessageSize {
		return nil, ErrMessageTooLarge
	}

	msg := make(Message, 0)
	msg = append(msg, &packet{
		cid:     cid,
		command: cmd,
		length:  uint16(len(data)),
		// DATA starts from offset 7
		data: lo.Slice(data, 0, packetSize-7),
	})

	// Remaining data goes into continuation packets, 59 bytes each.
	if len(data) > (packetSize - 7) {
		chunks := lo.Chunk[byte](data[packetSize-7:], packetSize-5)
		for i, chunk := range chunks {
			msg = append(msg, &packet{
				cid:          cid,
				sequence:     byte(i),
				data:         chunk,
				continuation: true,
			})
		}
	}

	return msg, nil
}

// WriteTo writes the message to the device, one report per write.
func (m Message) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, p := range m {
		// Each packet must reach the device in a single write.
		buf := bufio.NewWriterSize(w, packetSize+1)

		// Report ID in our case is always 0.
		if err := buf.WriteByte(0x00); err != nil {
			return 0, err
		}
		total += 1

		n, err := p.WriteTo(buf)
		if err != nil {
			return 0, err
		}
		total += n

		if err := buf.Flush(); err != nil {
			return 0, err
		}
	}

	return total, nil
}

// WriteTo writes the packet to the writer e.g., a buffer.
func (p *packet) WriteTo(w io.Writer) (int64, error) {
	// CID: offset 0; length 4
	cidCnt, err := w.Write(p.cid[:])
	if err != nil {
		return 0, err
	}

	// CMD or SEQ: offset 4; length 1
	cmdOrSeqCnt := 0
	if !p.continuation {
		cmdCnt, err := w.Write([]byte{byte(p.command) | INIT_PACKET_BIT})
		if err != nil {
			return 0, err
		}
		cmdOrSeqCnt = cmdCnt
	} else {
		seqCnt, err := w.Write([]byte{p.sequence})
		if err != nil {
			return 0, err
		}
		cmdOrSeqCnt = seqCnt
	}

	// BCNTH and BCNTL: offset 5; length 2
	// Only present in an init packet.
	dataLenCnt := 0
	if !p.continuation {
		dataLen := make([]byte, 2)
		binary.BigEndian.PutUint16(dataLen, p.length)
		cnt, err := w.Write(dataLen)
		if err != nil {
			return 0, err
		}
		dataLenCnt = cnt
	}

	// DATA:
	//   Init packet offset 7; length 57
	//   Continuation packet offset 5; length 59
	dataCnt, err := w.Write(p.data)
	if err != nil {
		return 0, err
	}

	return int64(cidCnt + cmdOrSeqCnt + dataLenCnt + dataCnt), nil
}

// Data reassembles the message payload, trimmed to the length declared by
// the init packet.
func (m Message) Data() []byte {
	if len(m) == 0 {
		return nil
	}

	data := make([]byte, 0, m[0].length)
	for _, p := range m {
		data = append(data, p.data...)
	}
	if len(data) > int(m[0].length) {
		data = data[:m[0].length]
	}

	return data
}

// Command returns the command of the init packet.
func (m Message) Command() Command {
	if len(m) == 0 {
		return 0
	}
	return m[0].command
}

// ChannelID returns the channel the message is addressed to.
func (m Message) ChannelID() ChannelID {
	if len(m) == 0 {
		return ChannelID{}
	}
	return m[0].cid
}
