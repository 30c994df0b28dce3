// Package inventory parses the fixed-width component table printed by
// `fwutil show status` into a per-component firmware inventory.
package inventory

import (
	"fmt"
	"strings"
)

// Entry is one row of the DUT's firmware status output.
type Entry struct {
	Version     string
	Description string
}

// Status maps component name to its inventory entry. Row order is irrelevant.
type Status map[string]Entry

// Parse reads the raw status table: a header row, a separator row and data
// rows. Column boundaries are inferred from the separator row: each run of
// dashes is one column whose width is the run length, and the next column
// starts two spaces after the previous one ends.
func Parse(output string) (Status, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("status output too short: %q", output)
	}

	widths, err := columnWidths(lines[1])
	if err != nil {
		return nil, err
	}

	header := sliceRow(lines[0], widths)
	componentCol, versionCol, descCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(name) {
		case "component":
			componentCol = i
		case "version":
			versionCol = i
		case "description":
			descCol = i
		}
	}
	if componentCol < 0 || versionCol < 0 || descCol < 0 {
		return nil, fmt.Errorf("missing expected columns in header %q", lines[0])
	}

	status := Status{}
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := sliceRow(line, widths)
		if componentCol >= len(fields) {
			continue
		}
		component := fields[componentCol]
		if component == "" {
			continue
		}
		entry := Entry{}
		if versionCol < len(fields) {
			entry.Version = fields[versionCol]
		}
		if descCol < len(fields) {
			entry.Description = fields[descCol]
		}
		status[component] = entry
	}
	return status, nil
}

// columnWidths returns the length of each dash run in the separator row.
func columnWidths(separator string) ([]int, error) {
	var widths []int
	run := 0
	for _, r := range separator {
		switch r {
		case '-':
			run++
		case ' ':
			if run > 0 {
				widths = append(widths, run)
				run = 0
			}
		default:
			return nil, fmt.Errorf("unexpected separator row %q", separator)
		}
	}
	if run > 0 {
		widths = append(widths, run)
	}
	if len(widths) == 0 {
		return nil, fmt.Errorf("no columns in separator row %q", separator)
	}
	return widths, nil
}

// sliceRow cuts a row into fields using the inferred widths. Column i starts
// where column i-1 ended plus the fixed two-space gap.
func sliceRow(row string, widths []int) []string {
	fields := make([]string, 0, len(widths))
	start := 0
	for _, width := range widths {
		if start >= len(row) {
			fields = append(fields, "")
			continue
		}
		end := start + width
		if end > len(row) {
			end = len(row)
		}
		fields = append(fields, strings.TrimSpace(row[start:end]))
		start += width + 2
	}
	return fields
}
