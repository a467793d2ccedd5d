package protocol

import (
	"bytes"
	"fmt"
)

// PacketBuilder constructs length-prefixed packets for the status protocol.
type PacketBuilder struct {
	buf bytes.Buffer
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// WriteUint8 writes a single byte.
func (b *PacketBuilder) WriteUint8(v byte) *PacketBuilder {
	b.buf.WriteByte(v)
	return b
}

// WriteVarInt writes v as a VarInt.
func (b *PacketBuilder) WriteVarInt(v int32) *PacketBuilder {
	var tmp [maxVarIntLen]byte
	n := PutVarInt(tmp[:], v)
	b.buf.Write(tmp[:n])
	return b
}

// WriteString writes a VarInt length-prefixed string.
// Format: [length:varint][string bytes...]
func (b *PacketBuilder) WriteString(s string) *PacketBuilder {
	b.WriteVarInt(int32(len(s)))
	b.buf.WriteString(s)
	return b
}

// WritePort writes a port as its low byte followed by its high byte.
func (b *PacketBuilder) WritePort(port uint16) *PacketBuilder {
	b.buf.WriteByte(byte(port & 0x00FF))
	b.buf.WriteByte(byte(port >> 8))
	return b
}

// BuildPacket returns [length:varint][packetID][body], where length counts
// the packet id and the body.
func (b *PacketBuilder) BuildPacket(packetID byte) []byte {
	body := b.buf.Bytes()
	length := int32(len(body) + 1)

	out := make([]byte, 0, VarIntSize(length)+int(length))
	out = AppendVarInt(out, length)
	out = append(out, packetID)
	return append(out, body...)
}

// String returns a hex dump of the packet body for debug logs.
func (b *PacketBuilder) String() string {
	data := b.buf.Bytes()
	return fmt.Sprintf("PacketBuilder[%d bytes]: %x", len(data), data)
}
