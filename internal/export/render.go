package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Format names a renderer.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat accepts csv or text (the default when blank).
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q, expected csv|text", s)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatCSV {
		return ".csv"
	}
	return ".txt"
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Write renders doc in format f.
func (doc Document) Write(w io.Writer, f Format) error {
	if f == FormatCSV {
		return doc.WriteCSV(w)
	}
	return doc.WriteText(w)
}

// WriteCSV writes the header row followed by one record per trade.
func (doc Document) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := cw.WriteAll(doc.Rows); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	return nil
}

// WriteText writes the title, the summary block and an aligned table.
func (doc Document) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString(doc.Title + "\n")
	if doc.Range != "" {
		b.WriteString(doc.Range + "\n")
	}
	fmt.Fprintf(&b, "Generated on %s\n\n", doc.GeneratedOn)
	fmt.Fprintf(&b, "Net P&L: %s    Win Rate: %s    Trades: %s\n\n",
		doc.Summary.NetPnL, doc.Summary.WinRate, doc.Summary.Trades)

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, textRow(doc.Header))
	for _, r := range doc.Rows {
		fmt.Fprintln(tw, textRow(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// cellBreaks turns characters that would split a tabwriter cell or row into spaces.
var cellBreaks = strings.NewReplacer("\r\n", " ", "\t", " ", "\n", " ", "\r", " ")

func textRow(cells []string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = cellBreaks.Replace(c)
	}
	return strings.Join(out, "\t")
}
