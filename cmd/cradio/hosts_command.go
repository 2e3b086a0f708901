package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/handiism/cradio/internal/upload"
)

func newHostsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List supported upload hosts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows [][]string
			for _, h := range upload.Hosts() {
				rows = append(rows, []string{h.Key, h.Title, formatBytes(h.Limit), authLabel(h.Auth)})
			}
			table := renderTable(
				[]string{"Key", "Host", "Size limit", "User hash"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func authLabel(mode upload.AuthMode) string {
	switch mode {
	case upload.AuthRequired:
		return "required"
	case upload.AuthOptional:
		return "optional"
	default:
		return "-"
	}
}

func formatBytes(n int64) string {
	const mb = 1_000_000
	if n >= mb {
		return strconv.FormatFloat(float64(n)/mb, 'f', 1, 64) + " MB"
	}
	return strconv.FormatInt(n, 10) + " B"
}
