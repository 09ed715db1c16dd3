// Package packet builds and parses N1400 lookup request packets.
//
// Wire layout:
//
//	"D1.100" + institution + "N140000FFF"   24-byte header prefix
//	uint32 big-endian                      body length in bytes
//	0x01 "001" "06" identifier FS institution FS operator FS
//	     request FS auth(5) FS module FS 0x01
//
// FS is the 0x10 field separator.
package packet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
)

const (
	FS     byte = 0x10
	Marker byte = 0x01

	InstitutionCode = "10160044"
	OperatorKey     = "123456"
	Version         = "001"
	Class           = "06"
	MessageType     = "N140000FFF"

	AuthCodeLen = 5
)

// HeaderPrefix is the fixed 24-byte header prefix of every request.
const HeaderPrefix = "D1.100" + InstitutionCode + MessageType

// RequestCode selects the broker lookup mode.
type RequestCode string

const (
	RequestAuth      RequestCode = "0"
	RequestEmergency RequestCode = "3"
	RequestNormal    RequestCode = "6"
)

// ModuleType selects the broker response variant.
type ModuleType string

const (
	ModuleB ModuleType = "B"
	ModuleS ModuleType = "S"
)

var ErrMalformed = errors.New("packet: malformed request")

// Request holds the caller-supplied fields of one lookup.
type Request struct {
	Identifier  string
	AuthCode    string
	RequestCode RequestCode
	ModuleType  ModuleType
}

// SanitizeIdentifier keeps only ASCII digits, in order.
func SanitizeIdentifier(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// NormalizeAuthCode right-pads with spaces and truncates to AuthCodeLen runes.
func NormalizeAuthCode(s string) string {
	r := []rune(s)
	if len(r) > AuthCodeLen {
		r = r[:AuthCodeLen]
	}
	return string(r) + strings.Repeat(" ", AuthCodeLen-len(r))
}

// Build assembles the outbound packet for req. The identifier is sanitized and
// the auth code normalized here, so callers may pass raw input.
func Build(c *codec.Codec, req Request) ([]byte, error) {
	body, err := buildBody(c, req)
	if err != nil {
		return nil, err
	}
	prefix, err := c.Encode(HeaderPrefix)
	if err != nil {
		return nil, fmt.Errorf("packet: header prefix: %w", err)
	}
	h, err := frame.NewHeader(prefix)
	if err != nil {
		return nil, err
	}
	return frame.Encode(frame.Frame{Header: h, Body: body}), nil
}

func buildBody(c *codec.Codec, req Request) ([]byte, error) {
	var body bytes.Buffer
	body.WriteByte(Marker)
	fields := []struct {
		name  string
		value string
		fs    bool
	}{
		{"version", Version, false},
		{"class", Class, false},
		{"identifier", SanitizeIdentifier(req.Identifier), true},
		{"institution", InstitutionCode, true},
		{"operator", OperatorKey, true},
		{"request code", string(req.RequestCode), true},
		{"auth code", NormalizeAuthCode(req.AuthCode), true},
		{"module type", string(req.ModuleType), true},
	}
	for _, f := range fields {
		b, err := c.Encode(f.value)
		if err != nil {
			return nil, fmt.Errorf("packet: %s: %w", f.name, err)
		}
		body.Write(b)
		if f.fs {
			body.WriteByte(FS)
		}
	}
	body.WriteByte(Marker)
	return body.Bytes(), nil
}

// Parse decodes a packet produced by Build back into its request fields.
func Parse(c *codec.Codec, raw []byte) (Request, error) {
	if len(raw) < frame.HeaderLen {
		return Request{}, fmt.Errorf("%w: %d bytes", ErrMalformed, len(raw))
	}
	h, err := frame.DecodeHeader(raw[:frame.HeaderLen])
	if err != nil {
		return Request{}, err
	}
	if string(h.Prefix[:]) != HeaderPrefix {
		return Request{}, fmt.Errorf("%w: prefix %q", ErrMalformed, h.Prefix[:])
	}
	body := raw[frame.HeaderLen:]
	if int(h.BodyLen) != len(body) {
		return Request{}, fmt.Errorf("%w: declared %d, have %d", ErrMalformed, h.BodyLen, len(body))
	}
	lead := []byte{Marker}
	lead = append(lead, Version+Class...)
	if !bytes.HasPrefix(body, lead) || len(body) < len(lead)+1 || body[len(body)-1] != Marker {
		return Request{}, fmt.Errorf("%w: body markers", ErrMalformed)
	}
	parts := bytes.Split(body[len(lead):len(body)-1], []byte{FS})
	// six fields, each FS-terminated, leave one empty tail
	if len(parts) != 7 || len(parts[6]) != 0 {
		return Request{}, fmt.Errorf("%w: %d fields", ErrMalformed, len(parts)-1)
	}
	text := make([]string, 6)
	for i := range text {
		s, err := c.Decode(parts[i])
		if err != nil {
			return Request{}, err
		}
		text[i] = s
	}
	if text[1] != InstitutionCode || text[2] != OperatorKey {
		return Request{}, fmt.Errorf("%w: institution %q operator %q", ErrMalformed, text[1], text[2])
	}
	return Request{
		Identifier:  text[0],
		RequestCode: RequestCode(text[3]),
		AuthCode:    text[4],
		ModuleType:  ModuleType(text[5]),
	}, nil
}
