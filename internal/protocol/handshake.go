package protocol

// BuildHandshake creates the handshake that opens a status session with
// host:port, declaring AnyProtocolVersion.
func BuildHandshake(host string, port uint16) []byte {
	return BuildHandshakeVersion(host, port, AnyProtocolVersion)
}

// BuildHandshakeVersion creates a status handshake declaring the given
// protocol version.
// Format: [length:varint][0x00][version:varint][host:string][port:2][next_state:1]
// The host carries ForgeMarker. The result depends only on the arguments.
func BuildHandshakeVersion(host string, port uint16, version int32) []byte {
	return HandshakeBody(host, port, version).BuildPacket(PktHandshake)
}

// HandshakeBody returns a builder holding the handshake fields before
// framing.
func HandshakeBody(host string, port uint16, version int32) *PacketBuilder {
	return NewPacketBuilder().
		WriteVarInt(version).
		WriteString(host + ForgeMarker).
		WritePort(port).
		WriteUint8(NextStateStatus)
}
