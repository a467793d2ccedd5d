// Package protocol implements the client side of the server list ping:
// the VarInt codec, the handshake and status request packets, and the
// error kinds a status probe can fail with. Multi-byte integers in the
// length prefixes use the 7-bit VarInt encoding.
package protocol

// Packet ids and fixed field values used by a status query session.
const (
	PktHandshake     byte = 0x00 // Handshake (next state selects status or login)
	PktStatusRequest byte = 0x00 // Empty status request, sent after the handshake

	// NextStateStatus asks the server to switch to the status state.
	NextStateStatus byte = 0x01

	// AnyProtocolVersion is the -1 sentinel for "status only, any version".
	AnyProtocolVersion int32 = -1
)

// DefaultPort is the port a server listens on when none is given.
const DefaultPort uint16 = 25565

// ForgeMarker is appended to the handshake host so that Forge servers
// include their mod list in the status payload.
const ForgeMarker = "\x00FML3\x00"

// StatusRequest is the fixed status request frame: length 1, packet id 0.
var StatusRequest = [2]byte{0x01, PktStatusRequest}

// MaxStatusLength caps the JSON payload a server may announce.
const MaxStatusLength = 32767 * 4
