package dexfmt

import (
	"encoding/binary"
	"errors"
)

var (
	ErrStreamEOF     = errors.New("stream: unexpected end of data")
	ErrStreamOverrun = errors.New("stream: value too large")
)

// Stream reads the little-endian fixed-width and LEB128 encodings used by
// dex code items.
type Stream struct {
	data []byte
	pos  int
	end  int
}

// NewStream creates a stream over the given data.
func NewStream(data []byte) *Stream {
	return &Stream{data: data, pos: 0, end: len(data)}
}

// NewStreamAt creates a stream starting at offset within data.
func NewStreamAt(data []byte, offset int) *Stream {
	if offset > len(data) {
		offset = len(data)
	}
	return &Stream{data: data, pos: offset, end: len(data)}
}

// Position returns the current read position.
func (s *Stream) Position() int { return s.pos }

// ReadByte reads a single byte.
func (s *Stream) ReadByte() (byte, error) {
	if s.pos >= s.end {
		return 0, ErrStreamEOF
	}
	b := s.data[s.pos]
	s.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 || s.pos+n > s.end {
		return nil, ErrStreamEOF
	}
	out := make([]byte, n)
	copy(out, s.data[s.pos:s.pos+n])
	s.pos += n
	return out, nil
}

// ReadUint16 reads a little-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	if s.pos+2 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint16(s.data[s.pos:])
	s.pos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	if s.pos+4 > s.end {
		return 0, ErrStreamEOF
	}
	v := binary.LittleEndian.Uint32(s.data[s.pos:])
	s.pos += 4
	return v, nil
}

// LEB128 constants. A dex LEB128 value is at most five bytes long.
const (
	dataBitsPerByte = 7
	byteMask        = (1 << dataBitsPerByte) - 1 // 0x7f
	continueBit     = 0x80
	maxLEB128Bytes  = 5
)

// ReadULEB128 reads an unsigned LEB128 value.
//
// Encoding: each byte carries 7 bits of data, least significant group first.
// Bit 7 set means another byte follows.
func (s *Stream) ReadULEB128() (uint32, error) {
	var r uint32
	var shift uint
	for i := 0; i < maxLEB128Bytes; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		r |= uint32(b&byteMask) << shift
		if b&continueBit == 0 {
			return r, nil
		}
		shift += dataBitsPerByte
	}
	return 0, ErrStreamOverrun
}

// ReadSLEB128 reads a signed LEB128 value. The final byte's bit 6 is the sign.
func (s *Stream) ReadSLEB128() (int32, error) {
	var r int32
	var shift uint
	for i := 0; i < maxLEB128Bytes; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		r |= int32(b&byteMask) << shift
		shift += dataBitsPerByte
		if b&continueBit == 0 {
			if shift < 32 && b&0x40 != 0 {
				r |= -1 << shift
			}
			return r, nil
		}
	}
	return 0, ErrStreamOverrun
}

// Align advances position to the next alignment boundary.
func (s *Stream) Align(alignment int) {
	if alignment <= 0 {
		return
	}
	rem := s.pos % alignment
	if rem != 0 {
		s.pos += alignment - rem
	}
	if s.pos > s.end {
		s.pos = s.end
	}
}
