package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

func newCollectionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List the collections and their schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := types.StandardCollections()
			if a.flags.jsonMode {
				out := make([]map[string]any, len(specs))
				for i, s := range specs {
					out[i] = map[string]any{
						"name":       s.Name,
						"searchable": s.Searchable,
						"filterable": s.Filterable,
						"sort":       s.DefaultSort.Field,
						"toggles":    s.LocalToggles,
					}
				}
				return printJSON(a.out, out)
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSEARCH\tFILTERS\tSORT")
			for _, s := range specs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name,
					strings.Join(s.Searchable, ","),
					strings.Join(s.Filterable, ","),
					s.DefaultSort.Field)
			}
			return tw.Flush()
		},
	}
}
