package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	PrefixLen = 24
	HeaderLen = PrefixLen + 4
)

var (
	ErrNoResponse    = errors.New("frame: connection closed before full header")
	ErrPrefixLen     = errors.New("frame: header prefix must be 24 bytes")
	ErrBodyTooLarge  = errors.New("frame: body too large")
	ErrInvalidHeader = errors.New("frame: invalid header length")
)

// Header is the fixed 28-byte wire header: an opaque ASCII prefix followed by
// the big-endian body length.
type Header struct {
	Prefix  [PrefixLen]byte
	BodyLen uint32
}

// Frame is one complete wire message. Truncated is set when the peer closed
// before delivering BodyLen bytes; Body then holds what arrived.
type Frame struct {
	Header    Header
	Body      []byte
	Truncated bool
}

// Limits constrains frame decode memory use.
type Limits struct {
	MaxBodyBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxBodyBytes: 1 << 20,
	}
}

// NewHeader builds a header from a prefix string of exactly PrefixLen bytes.
func NewHeader(prefix []byte) (Header, error) {
	if len(prefix) != PrefixLen {
		return Header{}, fmt.Errorf("%w: got %d", ErrPrefixLen, len(prefix))
	}
	var h Header
	copy(h.Prefix[:], prefix)
	return h, nil
}

// ReadFrame reads one header and its body. A short header is ErrNoResponse.
// A short body is tolerated and reported through Frame.Truncated.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrNoResponse
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if limits.MaxBodyBytes > 0 && h.BodyLen > limits.MaxBodyBytes {
		return Frame{Header: h}, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, h.BodyLen, limits.MaxBodyBytes)
	}

	body := make([]byte, h.BodyLen)
	if h.BodyLen == 0 {
		return Frame{Header: h, Body: body}, nil
	}
	n, err := io.ReadFull(r, body)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{Header: h, Body: body[:n], Truncated: true}, nil
		}
		return Frame{}, err
	}
	return Frame{Header: h, Body: body}, nil
}

// WriteFrame writes the header with BodyLen set from len(f.Body), then the body.
func WriteFrame(w io.Writer, f Frame) error {
	if uint64(len(f.Body)) > uint64(^uint32(0)) {
		return ErrBodyTooLarge
	}
	h := f.Header
	h.BodyLen = uint32(len(f.Body))
	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Body) == 0 {
		return nil
	}
	_, err := w.Write(f.Body)
	return err
}

// Encode returns header and body as one byte slice.
func Encode(f Frame) []byte {
	h := f.Header
	h.BodyLen = uint32(len(f.Body))
	buf := make([]byte, 0, HeaderLen+len(f.Body))
	buf = append(buf, EncodeHeader(h)...)
	return append(buf, f.Body...)
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	copy(buf[0:PrefixLen], h.Prefix[:])
	binary.BigEndian.PutUint32(buf[PrefixLen:HeaderLen], h.BodyLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidHeader, len(b))
	}
	var h Header
	copy(h.Prefix[:], b[0:PrefixLen])
	h.BodyLen = binary.BigEndian.Uint32(b[PrefixLen:HeaderLen])
	return h, nil
}
