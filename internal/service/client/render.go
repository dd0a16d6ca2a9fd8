package client

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/energy-sim/internal/domain/energy"
)

// joulesFields are rendered with SI prefixes.
//
//nolint:gochecknoglobals // Read-only lookup table.
var joulesFields = map[string]bool{
	"total":      true,
	"per_capita": true,
}

// Render prints fields as sorted, aligned key/value lines. Nested maps are flattened with dots.
func Render(w io.Writer, fields map[string]any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, line := range flatten("", fields) {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", line[0], line[1]); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func flatten(prefix string, fields map[string]any) [][2]string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	var lines [][2]string

	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}

		if nested, ok := fields[k].(map[string]any); ok {
			if len(nested) == 0 {
				lines = append(lines, [2]string{name, "-"})

				continue
			}

			lines = append(lines, flatten(name, nested)...)

			continue
		}

		lines = append(lines, [2]string{name, FormatValue(k, fields[k])})
	}

	return lines
}

// FormatValue renders one response value. Energy fields get SI prefixes,
// whole numbers get thousands separators.
func FormatValue(key string, value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}

		return v
	case float64:
		if joulesFields[key] {
			return energy.FormatJoules(v)
		}

		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return humanize.Comma(int64(v))
		}

		return humanize.FormatFloat("#,###.##", v)
	case []any:
		if len(v) == 0 {
			return "-"
		}

		parts := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				parts = append(parts, fmt.Sprint(m["id"]))

				continue
			}

			parts = append(parts, FormatValue("", item))
		}

		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
