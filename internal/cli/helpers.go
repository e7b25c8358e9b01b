package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/agencydesk/internal/controller"
	"github.com/mesh-intelligence/agencydesk/internal/view"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// collectionNames is a comma-separated list of valid collections for error output.
func collectionNames() string {
	return strings.Join(types.StandardCollectionNames(), ", ")
}

// parseAssignments turns key=value arguments into fields. A value that is
// valid JSON (numbers, booleans, lists) is decoded; anything else is kept
// as a string.
func parseAssignments(args []string) (types.Fields, error) {
	fields := types.Fields{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, userError(fmt.Errorf("invalid assignment %q (expected key=value)", arg))
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		fields[key] = parsed
	}
	return fields, nil
}

// parseFilters turns key=value arguments into a filter map. Values stay
// strings; "all" clears the field.
func parseFilters(args []string) (map[string]string, error) {
	filters := map[string]string{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, userError(fmt.Errorf("invalid filter %q (expected key=value)", arg))
		}
		filters[key] = value
	}
	return filters, nil
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// printTable writes records as aligned columns: ID first, then the
// collection's fields in schema order.
func printTable(w io.Writer, spec types.CollectionSpec, records []types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, f := range spec.Fields {
		header = append(header, strings.ToUpper(f.Name))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, rec := range records {
		row := []string{rec.ID}
		for _, f := range spec.Fields {
			row = append(row, view.Text(rec.Fields[f.Name]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// printRecord writes one record as key: value lines in key order.
func printRecord(w io.Writer, rec types.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", rec.ID)
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s:\t%s\n", k, view.Text(rec.Fields[k]))
	}
	return tw.Flush()
}

// printOutcome reports a finished mutation in the selected output mode.
func (a *app) printOutcome(out controller.Outcome) error {
	if a.flags.jsonMode {
		return printJSON(a.out, map[string]any{
			"kind":    out.Kind,
			"id":      out.ID,
			"record":  out.Record,
			"message": out.Notice.Message,
		})
	}
	fmt.Fprintln(a.out, out.Notice.Message)
	if out.Kind != controller.KindDelete {
		return printRecord(a.out, out.Record)
	}
	return nil
}
