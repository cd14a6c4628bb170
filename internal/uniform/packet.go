// SPDX-License-Identifier: MIT
package uniform

import (
	"encoding/binary"
	"errors"
	"fmt"
)

/*
Packet framing for network consumers. The header is BigEndian; the payload
is carried exactly as uploaded to the GPU so a client can copy it into its
uniform buffer unchanged.

|<---- 4 Bytes ---->|<------ 8 Bytes ------>|<-- 2 Bytes -->|<---- 32 Bytes ---->|
+-------------------+-----------------------+---------------+--------------------+
|  Sequence Number  |       Timestamp       |    Payload    |      Payload       |
|      (uint32)     |   (int64, unix ns)    |    Length     |  (little-endian)   |
+-------------------+-----------------------+---------------+--------------------+
*/

// PacketSize is the encoded length of a Packet.
const PacketSize = 4 + 8 + 2 + Size

var ErrPacket = errors.New("uniform: malformed packet")

// Packet wraps a payload with transport sequencing.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Payload   Payload
}

// AppendBinary appends the encoded packet to dst.
func (p Packet) AppendBinary(dst []byte) ([]byte, error) {
	dst = binary.BigEndian.AppendUint32(dst, p.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(p.Timestamp))
	dst = binary.BigEndian.AppendUint16(dst, Size)
	var body [Size]byte
	p.Payload.Encode(&body)
	return append(dst, body[:]...), nil
}

func (p Packet) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, PacketSize))
}

// DecodePacket parses an encoded packet.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) != PacketSize {
		return Packet{}, fmt.Errorf("%w: length %d", ErrPacket, len(data))
	}
	if n := binary.BigEndian.Uint16(data[12:]); n != Size {
		return Packet{}, fmt.Errorf("%w: payload length %d", ErrPacket, n)
	}
	payload, err := Decode(data[14:])
	if err != nil {
		return Packet{}, err
	}
	return Packet{
		Sequence:  binary.BigEndian.Uint32(data[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:])),
		Payload:   payload,
	}, nil
}
