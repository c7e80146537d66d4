package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FormatResult renders a result as text, json or yaml.
func FormatResult(result *Result, format string) (string, error) {
	switch format {
	case "json":
		bts, err := json.MarshalIndent(result, "", "  ")
		return string(bts), err
	case "yaml":
		bts, err := yaml.Marshal(result)
		return strings.TrimRight(string(bts), "\n"), err
	case "text", "":
		return formatText(result), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

func formatText(r *Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Accession: %s\n", r.Accession)
	fmt.Fprintf(&sb, "Source: %s\n", r.Source)
	fmt.Fprintf(&sb, "Rows: %d\n", r.Rows)
	fmt.Fprintf(&sb, "Features: %d\n", r.Features)
	fmt.Fprintf(&sb, "Blocks: %d\n", r.Blocks)
	fmt.Fprintf(&sb, "Triplets: %d\n", r.Triplets)
	fmt.Fprintf(&sb, "soma_joinid range: [%d, %d]\n", r.MinJoinID, r.MaxJoinID)
	fmt.Fprintf(&sb, "Duration: %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Output: %s", r.OutputDir)
	return sb.String()
}
