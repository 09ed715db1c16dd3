package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/durctl/internal/testutil/testlog"
)

func testHeader(t *testing.T) Header {
	t.Helper()
	h, err := NewHeader([]byte("D1.10010160044N140000FFF"))
	if err != nil {
		t.Fatalf("new header: %v", err)
	}
	return h
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	testlog.Start(t)

	in := Frame{Header: testHeader(t), Body: []byte("\x01body\x10field\x10\x01")}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen+len(in.Body) {
		t.Fatalf("unexpected wire length: %d", buf.Len())
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Prefix != in.Header.Prefix {
		t.Fatalf("prefix mismatch: %q", out.Header.Prefix[:])
	}
	if int(out.Header.BodyLen) != len(in.Body) {
		t.Fatalf("body len mismatch: %d", out.Header.BodyLen)
	}
	if !bytes.Equal(out.Body, in.Body) || out.Truncated {
		t.Fatalf("body mismatch: %q truncated=%v", out.Body, out.Truncated)
	}
}

func TestEncodeHeaderIsBigEndianAtOffset24(t *testing.T) {
	testlog.Start(t)

	h := testHeader(t)
	h.BodyLen = 0x01020304
	b := EncodeHeader(h)
	if !bytes.Equal(b[24:28], []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Fatalf("unexpected length bytes: %x", b[24:28])
	}
	back, err := DecodeHeader(b)
	if err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if back != h {
		t.Fatalf("header mismatch: %+v", back)
	}
}

func TestReadFrameShortHeaderIsNoResponse(t *testing.T) {
	testlog.Start(t)

	cases := [][]byte{nil, make([]byte, 10), make([]byte, HeaderLen-1)}
	for _, in := range cases {
		_, err := ReadFrame(bytes.NewReader(in), DefaultLimits())
		if !errors.Is(err, ErrNoResponse) {
			t.Fatalf("len=%d: expected ErrNoResponse, got %v", len(in), err)
		}
	}
}

func TestReadFrameShortBodyIsTruncatedNotFatal(t *testing.T) {
	testlog.Start(t)

	h := testHeader(t)
	h.BodyLen = 10
	wire := append(EncodeHeader(h), []byte("abcd")...)
	out, err := ReadFrame(bytes.NewReader(wire), DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if !out.Truncated {
		t.Fatalf("expected truncated frame")
	}
	if string(out.Body) != "abcd" {
		t.Fatalf("unexpected partial body: %q", out.Body)
	}
}

func TestReadFrameBodyLimit(t *testing.T) {
	testlog.Start(t)

	h := testHeader(t)
	h.BodyLen = 64
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), Limits{MaxBodyBytes: 16})
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestReadFramePropagatesReaderFault(t *testing.T) {
	testlog.Start(t)

	boom := errors.New("boom")
	_, err := ReadFrame(io.MultiReader(bytes.NewReader(make([]byte, 4)), errReader{boom}), DefaultLimits())
	if !errors.Is(err, boom) {
		t.Fatalf("expected reader fault, got %v", err)
	}
}

func TestNewHeaderRejectsWrongPrefixLength(t *testing.T) {
	testlog.Start(t)

	if _, err := NewHeader([]byte("short")); !errors.Is(err, ErrPrefixLen) {
		t.Fatalf("expected ErrPrefixLen, got %v", err)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
