package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/shahar-caura/gitnl/internal/intent"
)

const (
	formatAuto  = "auto"
	formatJSON  = "json"
	formatTable = "table"
)

// minReasonWidth keeps the reason column readable on very narrow terminals.
const minReasonWidth = 20

// resolveFormat maps auto to table on a terminal and JSON otherwise.
func resolveFormat(format string, w io.Writer) (string, error) {
	switch format {
	case formatJSON, formatTable:
		return format, nil
	case formatAuto, "":
		if isTerminal(w) {
			return formatTable, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (want auto, json or table)", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or 0 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints one row per result. On a terminal the reason column is
// truncated to fit.
func writeTable(w io.Writer, results []intent.Result) error {
	rows := make([][]string, 0, len(results)+1)
	rows = append(rows, []string{"#", "INTENT", "SOURCE", "CONF", "ENTITIES", "REASON"})
	for i, res := range results {
		rows = append(rows, []string{
			strconv.Itoa(i),
			string(res.Intent),
			string(res.Source),
			strconv.FormatFloat(res.Confidence, 'f', 2, 64),
			formatEntities(res.Entities),
			res.Reason,
		})
	}

	widths := make([]int, len(rows[0])-1)
	for _, row := range rows {
		for c := range widths {
			widths[c] = max(widths[c], runewidth.StringWidth(row[c]))
		}
	}

	reasonWidth := 0
	if tw := terminalWidth(w); tw > 0 {
		used := 0
		for _, cw := range widths {
			used += cw + 2
		}
		reasonWidth = max(tw-used, minReasonWidth)
	}

	for _, row := range rows {
		var b strings.Builder
		for c, cw := range widths {
			b.WriteString(runewidth.FillRight(row[c], cw))
			b.WriteString("  ")
		}
		reason := row[len(row)-1]
		if reasonWidth > 0 {
			reason = runewidth.Truncate(reason, reasonWidth, "...")
		}
		b.WriteString(reason)
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func formatEntities(e intent.Entities) string {
	if len(e) == 0 {
		return "-"
	}
	parts := make([]string, len(e))
	for i, ent := range e {
		parts[i] = fmt.Sprintf("%s=%q", ent.Slot, ent.Value)
	}
	return strings.Join(parts, " ")
}
