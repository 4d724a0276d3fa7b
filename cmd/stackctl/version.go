// File: cmd/stackctl/version.go
// Brief: CLI command wiring for 'version'.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/stackctl/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print stackctl build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
			return nil
		},
	}
}
