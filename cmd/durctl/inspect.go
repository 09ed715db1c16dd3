package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"

	"github.com/danmuck/durctl/internal/protocol/codec"
	"github.com/danmuck/durctl/internal/protocol/frame"
	"github.com/danmuck/durctl/internal/protocol/packet"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "inspect [hex-packet]",
		Short: "Decode a captured request packet",
		Args:  cobra.MinimumNArgs(1),
		// inspect works offline and needs no config
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := decodeHex(strings.Join(args, ""))
			if err != nil {
				return err
			}
			c, err := codec.Lookup(encoding)
			if err != nil {
				return err
			}
			req, err := packet.Parse(c, raw)
			if err != nil {
				return err
			}
			h, err := frame.DecodeHeader(raw[:frame.HeaderLen])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "prefix:       %q\n", h.Prefix[:])
			fmt.Fprintf(out, "body length:  %d\n", h.BodyLen)
			fmt.Fprintf(out, "identifier:   %q\n", req.Identifier)
			fmt.Fprintf(out, "request code: %s\n", req.RequestCode)
			fmt.Fprintf(out, "auth code:    %q\n", req.AuthCode)
			fmt.Fprintf(out, "module:       %s\n", req.ModuleType)
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", codec.DefaultName, "field code page")
	return cmd
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == ':' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("inspect: packet is not hex: %w", err)
	}
	return raw, nil
}
