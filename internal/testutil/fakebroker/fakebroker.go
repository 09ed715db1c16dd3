package fakebroker

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
	"github.com/danmuck/durctl/internal/protocol/packet"
)

// Handler writes the reply for one accepted connection after the request
// packet has been read and recorded.
type Handler func(conn net.Conn, req []byte)

// Broker is an in-process TCP peer speaking the broker framing.
type Broker struct {
	ln      net.Listener
	handler Handler

	mu       sync.Mutex
	received [][]byte
	wg       sync.WaitGroup
}

func Start(t testing.TB, h Handler) *Broker {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen fake broker: %v", err)
	}
	b := &Broker{ln: ln, handler: h}
	b.wg.Add(1)
	go b.serve()
	t.Cleanup(func() {
		_ = ln.Close()
		b.wg.Wait()
	})
	return b
}

func (b *Broker) Addr() string {
	return b.ln.Addr().String()
}

// Received returns a copy of every request packet read so far.
func (b *Broker) Received() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.received))
	copy(out, b.received)
	return out
}

// Requests parses every received packet.
func (b *Broker) Requests(t testing.TB) []packet.Request {
	t.Helper()
	raw := b.Received()
	out := make([]packet.Request, 0, len(raw))
	for _, r := range raw {
		req, err := packet.Parse(codec.Default(), r)
		if err != nil {
			t.Fatalf("parse received packet: %v", err)
		}
		out = append(out, req)
	}
	return out
}

func (b *Broker) serve() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer conn.Close()
			req, err := readRequest(conn)
			if err != nil {
				return
			}
			b.mu.Lock()
			b.received = append(b.received, req)
			b.mu.Unlock()
			b.handler(conn, req)
		}()
	}
}

func readRequest(conn net.Conn) ([]byte, error) {
	f, err := frame.ReadFrame(conn, frame.DefaultLimits())
	if err != nil {
		return nil, err
	}
	if f.Truncated {
		return nil, errors.New("fakebroker: truncated request")
	}
	return frame.Encode(f), nil
}

// Reply writes a well-formed frame carrying body.
func Reply(body []byte) Handler {
	return func(conn net.Conn, _ []byte) {
		h, _ := frame.NewHeader([]byte(packet.HeaderPrefix))
		_ = frame.WriteFrame(conn, frame.Frame{Header: h, Body: body})
	}
}

// ReplyText encodes body with the default code page and replies with it.
func ReplyText(body string) Handler {
	b, err := codec.Default().Encode(body)
	if err != nil {
		panic(err)
	}
	return Reply(b)
}

// ReplyFields joins fields with the field separator and replies with them.
func ReplyFields(fields ...string) Handler {
	s := ""
	for i, f := range fields {
		if i > 0 {
			s += string(rune(packet.FS))
		}
		s += f
	}
	return ReplyText(s)
}

// Raw writes raw bytes and closes, for short or malformed replies.
func Raw(raw []byte) Handler {
	return func(conn net.Conn, _ []byte) {
		_, _ = conn.Write(raw)
	}
}

// Truncated declares declared body bytes but sends only body before closing.
func Truncated(declared uint32, body []byte) Handler {
	return func(conn net.Conn, _ []byte) {
		h, _ := frame.NewHeader([]byte(packet.HeaderPrefix))
		h.BodyLen = declared
		_, _ = conn.Write(frame.EncodeHeader(h))
		_, _ = conn.Write(body)
	}
}

// Hang never replies; it drains the connection until the client closes it.
func Hang() Handler {
	return func(conn net.Conn, _ []byte) {
		_, _ = io.Copy(io.Discard, conn)
	}
}
