package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/internal/export"
	"github.com/mesh-intelligence/agencydesk/internal/logging"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <collection>",
		Short: "Show totals, counts per status, and sums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			st := s.view.Stats()
			if a.flags.jsonMode {
				return printJSON(a.out, st)
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "total\t%d\n", st.Total)
			for _, k := range sortedKeys(st.ByStatus) {
				fmt.Fprintf(tw, "%s: %s\t%d\n", s.spec.StatusField, k, st.ByStatus[k])
			}
			for _, k := range sortedKeys(st.Sums) {
				fmt.Fprintf(tw, "sum %s\t%g\n", k, st.Sums[k])
			}
			return tw.Flush()
		},
	}
}

func newFacetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "facets <collection> <field>",
		Short: "List the filter choices of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.spec.HasField(args[1]) {
				return userError(fmt.Errorf("unknown field %q for %s", args[1], s.spec.Name))
			}
			facets := s.view.Facets(args[1])
			if a.flags.jsonMode {
				return printJSON(a.out, facets)
			}
			fmt.Fprintln(a.out, strings.Join(facets, "\n"))
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var q queryFlags
	var target string
	cmd := &cobra.Command{
		Use:   "export <collection>",
		Short: "Write the filtered collection as JSONL",
		Long: `Export writes every record visible under the search, filters, and sort to a
local file or an S3 object, one JSON object per line. Without --to the
records go to standard output.

Example:
  agencydesk export projects --filter status=active --to projects.jsonl
  agencydesk export clients --to s3://reports/clients.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if err := q.apply(cmd, s.view); err != nil {
				return err
			}
			records := s.view.Visible()
			if target == "" {
				return export.Encode(a.out, records)
			}
			sink, err := export.Open(cmd.Context(), target, s3Config(a.v))
			if err != nil {
				return userError(err)
			}
			n, err := export.Write(cmd.Context(), sink, records)
			if err != nil {
				return err
			}
			a.component(logging.ComponentExport).Infow("exported", "collection", s.spec.Name, "records", len(records), "bytes", n, "to", sink.Location())
			fmt.Fprintf(a.out, "exported %d %s to %s\n", len(records), s.spec.Name, sink.Location())
			return nil
		},
	}
	q.register(cmd, false)
	cmd.Flags().StringVar(&target, "to", "", "destination path or s3://bucket/key")
	return cmd
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
