package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/vk/fieldengine/internal/ctxlog"
)

// Run evaluates the configured fields and writes the results in the
// configured output format.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	results, err := a.Evaluate()
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	if err := writeResults(a.outW, a.config.Output, results, a.config.Location.HasDerivative()); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	logger.Debug("App.Run method finished.", "results", len(results))
	return nil
}

func writeResults(w io.Writer, format string, results []Result, withDerivative bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeTable(w, results, withDerivative)
	}
}

func writeTable(w io.Writer, results []Result, withDerivative bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "FIELD\tVALUE"
	if withDerivative {
		header += "\tDERIVATIVE"
	}
	fmt.Fprintln(tw, header)
	for _, r := range results {
		line := r.Field + "\t" + formatValue(r)
		if withDerivative {
			line += "\t" + formatFloats(r.Derivative)
		}
		fmt.Fprintln(tw, line)
	}
	return tw.Flush()
}

func formatValue(r Result) string {
	switch {
	case !r.Defined:
		return "undefined"
	case r.Element > 0:
		return fmt.Sprintf("element %d xi %s", r.Element, formatFloats(r.Xi))
	case r.Values == nil:
		return strconv.Quote(r.Text)
	}
	return formatFloats(r.Values)
}

func formatFloats(values []float64) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}
