// Package codec converts protocol text fields to and from the broker's legacy
// Korean code page.
//
// Control bytes (0x01 markers, 0x10 delimiter) are below 0x80 and pass through
// the code page unchanged, but callers insert and split on them as raw bytes
// outside encoded spans.
package codec

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultName is the code page the broker speaks.
const DefaultName = "euc-kr"

var (
	ErrUnknownEncoding = errors.New("codec: unknown encoding")
	ErrUnencodable     = errors.New("codec: text not representable in code page")
)

// Codec encodes and decodes field text with one code page.
type Codec struct {
	name string
	enc  encoding.Encoding
}

var (
	tableMu sync.Mutex
	table   = map[string]*Codec{}
)

// Lookup resolves a code page by IANA name. Resolved codecs are cached, so the
// index is consulted once per name for the life of the process.
func Lookup(name string) (*Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	tableMu.Lock()
	defer tableMu.Unlock()
	if c, ok := table[key]; ok {
		return c, nil
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownEncoding, name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %q has no implementation", ErrUnknownEncoding, name)
	}
	c := &Codec{name: key, enc: enc}
	table[key] = c
	return c, nil
}

// Default returns the EUC-KR codec.
func Default() *Codec {
	c, err := Lookup(DefaultName)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Codec) Name() string {
	return c.name
}

// Encode converts s to code page bytes. Runes the code page cannot represent
// fail the call rather than being substituted.
func (c *Codec) Encode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnencodable, s, err)
	}
	return out, nil
}

// Decode converts code page bytes to text. Invalid sequences become U+FFFD.
func (c *Codec) Decode(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("codec: decode %s: %w", c.name, err)
	}
	return string(out), nil
}
