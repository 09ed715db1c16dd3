package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danmuck/durctl/internal/dur"
	"github.com/spf13/cobra"
)

func newAuthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "auth [identifier]",
		Short: "Request an authorization code for an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			raw, err := svc.RequestAuthCode(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("auth request failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "raw: %q\n", raw)
			if code, ok := svc.ExtractAuthCode(raw); ok {
				fmt.Fprintf(out, "auth code: %s\n", code)
			} else {
				fmt.Fprintln(out, "auth code: none")
			}
			return nil
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	types := make([]string, 0, len(dur.TestTypes()))
	for _, tt := range dur.TestTypes() {
		types = append(types, string(tt))
	}
	return &cobra.Command{
		Use:   "run [testType] [identifier] [authCode]",
		Short: "Run one lookup test and print the classified result",
		Long:  "Run one lookup test. Test types: " + strings.Join(types, ", "),
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			authCode := ""
			if len(args) == 3 {
				authCode = args[2]
			}

			res := svc.RunTest(cmd.Context(), dur.TestType(args[0]), args[1], authCode)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(res)
		},
	}
}
