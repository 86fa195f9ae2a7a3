package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/videoqa/internal/domain"
)

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printVideo(cmd *cobra.Command, v *domain.Video) {
	if jsonOutput {
		_ = printJSON(cmd, v)
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", v.ID, v.Status, v.URL, v.Title)
	if v.ErrorMessage != "" {
		fmt.Fprintf(out, "  error: %s\n", v.ErrorMessage)
	}
}
