package protocol

import (
	"io"
)

const (
	segmentBits  = 0x7F
	continueBit  = 0x80
	maxVarIntLen = 5
)

// ReadVarInt decodes one VarInt from r, one byte at a time. It returns the
// value and the number of bytes consumed. Reads that return no data and no
// error are retried. A value still unterminated after five bytes fails with
// ErrVarIntTooLong.
func ReadVarInt(r io.Reader) (int32, int, error) {
	var result uint32
	var numRead int
	buf := make([]byte, 1)

	for {
		// io.ReadFull loops over zero-byte reads until the byte arrives.
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, numRead, err
		}
		numRead++

		result |= uint32(buf[0]&segmentBits) << (7 * (numRead - 1))

		if buf[0]&continueBit == 0 {
			break
		}

		if numRead >= maxVarIntLen {
			return 0, numRead, newError(KindVarIntTooLong, "read varint", nil)
		}
	}

	return int32(result), numRead, nil
}

// WriteVarInt encodes value and writes it to w.
func WriteVarInt(w io.Writer, value int32) (int, error) {
	var buf [maxVarIntLen]byte
	n := PutVarInt(buf[:], value)
	return w.Write(buf[:n])
}

// PutVarInt encodes value into buf, which must hold at least VarIntSize(value)
// bytes, and returns the number of bytes written. Negative values are encoded
// from their unsigned bit pattern and always take five bytes.
func PutVarInt(buf []byte, value int32) int {
	val := uint32(value)
	n := 0
	for {
		if val&^segmentBits == 0 {
			buf[n] = byte(val)
			n++
			return n
		}
		buf[n] = byte(val&segmentBits) | continueBit
		n++
		val >>= 7
	}
}

// AppendVarInt appends the encoding of value to dst.
func AppendVarInt(dst []byte, value int32) []byte {
	var buf [maxVarIntLen]byte
	n := PutVarInt(buf[:], value)
	return append(dst, buf[:n]...)
}

// VarIntSize returns the encoded length of value in bytes.
func VarIntSize(value int32) int {
	val := uint32(value)
	size := 0
	for {
		size++
		val >>= 7
		if val == 0 {
			break
		}
	}
	return size
}
