package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/docxflow/internal/pagerange"
)

var pagesCmd = &cobra.Command{
	Use:   "pages SPEC",
	Short: "Show which pages a selection resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		total, _ := cmd.Flags().GetInt("total")
		sel := pagerange.Parse(args[0], total)
		if len(sel) == 0 {
			return fmt.Errorf("%q selects no pages of a %d page document", args[0], total)
		}
		pages := make([]string, 0, len(sel))
		for _, p := range sel.OneBased() {
			pages = append(pages, fmt.Sprint(p))
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(pages, " "))
		return nil
	},
}

func init() {
	pagesCmd.Flags().Int("total", 0, "page count of the document")
	_ = pagesCmd.MarkFlagRequired("total")

	rootCmd.AddCommand(pagesCmd)
}
