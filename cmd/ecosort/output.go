package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type tableWriter = table.Writer

func rowOf(cells ...any) table.Row {
	return table.Row(cells)
}

// print writes v as indented JSON when --json is set and as a table
// otherwise.
func (c *cli) print(cmd *cobra.Command, v any, fill func(tableWriter)) error {
	out := cmd.OutOrStdout()
	if c.v.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	fill(tw)
	tw.Render()
	return nil
}
