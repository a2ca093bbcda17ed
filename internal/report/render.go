package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Meta carries the experiment context printed in the report header.
type Meta struct {
	Experiment string
	Suite      string
	Contact    string
}

// WriteText renders the comparison tables as aligned plain text.
func WriteText(w io.Writer, meta Meta, tables []Table) error {
	printer := message.NewPrinter(language.English)

	if meta.Experiment != "" {
		fmt.Fprintf(w, "Experiment: %s\n", meta.Experiment)
	}
	if meta.Suite != "" {
		fmt.Fprintf(w, "Suite:      %s\n", meta.Suite)
	}
	if meta.Contact != "" {
		fmt.Fprintf(w, "Contact:    %s\n", meta.Contact)
	}

	for _, table := range tables {
		fmt.Fprintf(w, "\nRevision %s\n", table.Revision)

		// Column widths: label column plus one per configuration.
		labels := make([]string, len(table.Rows))
		cells := make([][]string, len(table.Rows))
		for i, row := range table.Rows {
			labels[i] = rowLabel(row)
			cells[i] = make([]string, len(row.Values))
			for j, v := range row.Values {
				cells[i][j] = formatValue(printer, v)
			}
		}

		labelWidth := len("attribute")
		for _, l := range labels {
			if len(l) > labelWidth {
				labelWidth = len(l)
			}
		}
		colWidths := make([]int, len(table.Columns))
		for j, c := range table.Columns {
			colWidths[j] = len(c)
			for i := range cells {
				if len(cells[i][j]) > colWidths[j] {
					colWidths[j] = len(cells[i][j])
				}
			}
		}

		fmt.Fprintf(w, "%-*s", labelWidth, "attribute")
		for j, c := range table.Columns {
			fmt.Fprintf(w, "  %*s", colWidths[j], c)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, strings.Repeat("-", lineWidth(labelWidth, colWidths)))

		for i := range table.Rows {
			fmt.Fprintf(w, "%-*s", labelWidth, labels[i])
			for j := range table.Columns {
				fmt.Fprintf(w, "  %*s", colWidths[j], cells[i][j])
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func lineWidth(labelWidth int, colWidths []int) int {
	width := labelWidth
	for _, c := range colWidths {
		width += 2 + c
	}
	return width
}

// rowLabel names a row: the attribute, with the aggregation function
// appended when it isn't the plain sum/mean default look.
func rowLabel(row Row) string {
	if row.Function == "sum" || row.Function == "mean" {
		return row.Attribute
	}
	return fmt.Sprintf("%s [%s]", row.Attribute, row.Function)
}

// formatValue renders a cell: "-" for missing, no decimals for whole
// numbers, two decimals otherwise. The locale-aware printer groups
// digits of large counts (expansions, evaluations).
func formatValue(p *message.Printer, v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return p.Sprintf("%d", int64(v))
	}
	return p.Sprintf("%.2f", v)
}

// jsonTable mirrors Table with JSON-safe cell values (null for NaN).
type jsonTable struct {
	Revision string    `json:"revision"`
	Columns  []string  `json:"columns"`
	Rows     []jsonRow `json:"rows"`
}

type jsonRow struct {
	Attribute string     `json:"attribute"`
	Function  string     `json:"function"`
	MinWins   bool       `json:"min_wins"`
	Common    int        `json:"common_solved,omitempty"`
	Values    []*float64 `json:"values"`
}

// WriteJSON renders the comparison tables as JSON. NaN cells become
// null, since JSON has no NaN literal.
func WriteJSON(w io.Writer, meta Meta, tables []Table) error {
	out := struct {
		Experiment string      `json:"experiment,omitempty"`
		Suite      string      `json:"suite,omitempty"`
		Contact    string      `json:"contact,omitempty"`
		Tables     []jsonTable `json:"tables"`
	}{
		Experiment: meta.Experiment,
		Suite:      meta.Suite,
		Contact:    meta.Contact,
	}

	for _, table := range tables {
		jt := jsonTable{Revision: table.Revision, Columns: table.Columns}
		for _, row := range table.Rows {
			jr := jsonRow{
				Attribute: row.Attribute,
				Function:  row.Function,
				MinWins:   row.MinWins,
				Common:    row.Common,
				Values:    make([]*float64, len(row.Values)),
			}
			for i, v := range row.Values {
				if !math.IsNaN(v) {
					value := v
					jr.Values[i] = &value
				}
			}
			jt.Rows = append(jt.Rows, jr)
		}
		out.Tables = append(out.Tables, jt)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
