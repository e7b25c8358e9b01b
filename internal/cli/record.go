package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			rec, ok := s.ctrl.Store().Get(args[1])
			if !ok {
				return userError(fmt.Errorf("%s %q not found", s.spec.Singular, args[1]))
			}
			if a.flags.jsonMode {
				return printJSON(a.out, rec)
			}
			return printRecord(a.out, rec)
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <collection> <field=value>...",
		Short: "Create a record",
		Long: `Create validates the fields locally and sends them to the backend. Values
that parse as JSON are decoded, so numbers, booleans, and lists keep their
type.

Example:
  agencydesk create clients name="Initech" email=bill@initech.com value=1200
  agencydesk create members name=Ana email=ana@agency.com phone=555-0199 \
    role=Designer department=Design password=s3cretpass confirmPassword=s3cretpass`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.mutationContext(cmd.Context())
			defer cancel()
			out, err := s.ctrl.Create(ctx, fields)
			if err != nil {
				return err
			}
			return a.printOutcome(out)
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> <field=value>...",
		Short: "Update fields of a record",
		Long: `Update merges the given fields over the stored record, validates the result,
and sends it to the backend.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(args[2:])
			if err != nil {
				return err
			}
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.mutationContext(cmd.Context())
			defer cancel()
			out, err := s.ctrl.Update(ctx, args[1], fields)
			if err != nil {
				return err
			}
			return a.printOutcome(out)
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, cancel := s.mutationContext(cmd.Context())
			defer cancel()
			out, err := s.ctrl.Delete(ctx, args[1])
			if err != nil {
				return err
			}
			return a.printOutcome(out)
		},
	}
}

func newStarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "star <collection> <id> [field]",
		Short: "Toggle a local flag on a record",
		Long: `Star flips a local-only boolean such as a contact's "starred" flag. The
change is never sent to the backend and lasts only for this invocation;
the command prints the record as it would display.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			field := ""
			if len(args) == 3 {
				field = args[2]
			} else if len(s.spec.LocalToggles) > 0 {
				field = s.spec.LocalToggles[0]
			}
			on, err := s.ctrl.ToggleLocal(args[1], field)
			if err != nil {
				return err
			}
			rec, _ := s.ctrl.Store().Get(args[1])
			if a.flags.jsonMode {
				return printJSON(a.out, map[string]any{"field": field, "value": on, "record": rec})
			}
			fmt.Fprintf(a.out, "%s %s: %s=%t (local only)\n", s.spec.Singular, args[1], field, on)
			return nil
		},
	}
}
