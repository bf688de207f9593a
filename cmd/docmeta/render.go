package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

var renderers = map[string]func(io.Writer, []fileReport) error{
	"table": renderTable,
	"json":  renderJSON,
	"yaml":  renderYAML,
}

func renderJSON(w io.Writer, reports []fileReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func renderYAML(w io.Writer, reports []fileReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return err
	}
	return enc.Close()
}

// renderTable prints one two-column table per file.
func renderTable(w io.Writer, reports []fileReport) error {
	for i, r := range reports {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n", r.Path); err != nil {
			return err
		}

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Field", "Value"})
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		if r.Result == nil {
			table.Append([]string{"Error", r.Error})
		} else {
			for _, f := range r.Result.Record.Fields() {
				table.Append([]string{f.Name, fmt.Sprint(f.Value)})
			}
		}
		table.Render()
	}
	return nil
}
