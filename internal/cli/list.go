package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/agencydesk/internal/view"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// queryFlags are the view controls shared by list and export.
type queryFlags struct {
	search  string
	filters []string
	sort    string
	desc    bool
	page    int
}

func (q *queryFlags) register(cmd *cobra.Command, withPage bool) {
	cmd.Flags().StringVar(&q.search, "search", "", "case-insensitive search over the searchable fields")
	cmd.Flags().StringArrayVar(&q.filters, "filter", nil, "filter as field=value (repeatable; value \"all\" clears)")
	cmd.Flags().StringVar(&q.sort, "sort", "", "field to sort by (default: collection default)")
	cmd.Flags().BoolVar(&q.desc, "desc", false, "sort descending")
	if withPage {
		cmd.Flags().IntVar(&q.page, "page", 1, "page number, starting at 1")
	}
}

// apply configures v with the flags.
func (q *queryFlags) apply(cmd *cobra.Command, v *view.View) error {
	filters, err := parseFilters(q.filters)
	if err != nil {
		return err
	}
	for field, value := range filters {
		v.SetFilter(field, value)
	}
	if q.search != "" {
		v.SetSearch(q.search)
	}
	if cmd.Flags().Changed("sort") || q.desc {
		s := v.Query().Sort
		if q.sort != "" {
			s.Field = q.sort
		}
		s.Direction = types.Ascending
		if q.desc {
			s.Direction = types.Descending
		}
		v.SetSort(s)
	}
	if q.page > 1 {
		v.SetPage(q.page - 1)
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List one page of a collection",
		Long: `List shows one page of a collection after search, filters, and sort are
applied. A page past the end shows the last page.

Example:
  agencydesk list clients
  agencydesk list clients --filter status=active --sort value --desc
  agencydesk list contacts --search acme --page 2`,
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
			page := s.view.Page()
			if a.flags.jsonMode {
				return printJSON(a.out, map[string]any{
					"items": page.Items,
					"page":  page.Index + 1,
					"pages": page.Count,
					"total": page.Total,
				})
			}
			if err := printTable(a.out, s.spec, page.Items); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "\nPage %d of %d (%d %s)\n", page.Index+1, max(page.Count, 1), page.Total, s.spec.Name)
			return nil
		},
	}
	q.register(cmd, true)
	return cmd
}
