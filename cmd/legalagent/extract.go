package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func extractCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Print the text the analyzer would send to the model, page by page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex := a.cfg.NewExtractor(a.log)
			if raw {
				ex.Clean = false
			}
			doc, err := ex.ExtractFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, page := range doc.Pages {
				fmt.Fprintf(w, "=== page %d ===\n%s\n", i+1, strings.TrimRight(page, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "skip header, footer and page-number cleanup")
	return cmd
}
