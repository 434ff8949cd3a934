package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/domain"
)

func newListsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Manage gallery lists",
	}
	cmd.AddCommand(
		newListsShowCommand(ctx),
		newListsCreateCommand(ctx),
		newListsMembershipCommand(ctx, "add", "Add galleries to a regular list"),
		newListsMembershipCommand(ctx, "remove", "Remove galleries from a list"),
		newListsScanCommand(ctx),
		newListsDeleteCommand(ctx),
	)
	return cmd
}

func listTypeName(t domain.ListType) string {
	if t == domain.ListAuto {
		return "auto"
	}
	return "regular"
}

func newListsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show every list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			lists, err := st.ListLists(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, lists)
			}
			if len(lists) == 0 {
				fmt.Fprintln(out(cmd), "No lists")
				return nil
			}
			rows := make([][]string, len(lists))
			for i, l := range lists {
				members, err := st.ListMembers(cmd.Context(), l.ID)
				if err != nil {
					return err
				}
				rows[i] = []string{
					strconv.FormatInt(l.ID, 10), l.Name, listTypeName(l.Type), l.Filter,
					strconv.Itoa(len(members)),
				}
			}
			fmt.Fprintln(out(cmd), renderTable(
				[]string{"ID", "Name", "Type", "Filter", "Galleries"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newListsCreateCommand(ctx *commandContext) *cobra.Command {
	var l domain.GalleryList

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a list; with --filter it is an auto list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.store()
			if err != nil {
				return err
			}
			l.Name = args[0]
			if l.Filter != "" {
				l.Type = domain.ListAuto
			}
			id, err := st.CreateList(cmd.Context(), &l)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Created %s list %q (#%d)\n", listTypeName(l.Type), l.Name, id)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&l.Filter, "filter", "", "Query selecting the list's galleries")
	flags.BoolVar(&l.Enforce, "enforce", false, "Remove members that stop matching")
	flags.BoolVar(&l.Regex, "regex", false, "Treat filter terms as regular expressions")
	flags.BoolVar(&l.Case, "case", false, "Match case sensitively")
	flags.BoolVar(&l.Strict, "strict", false, "Require whole-word matches")
	return cmd
}

func newListsMembershipCommand(ctx *commandContext, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <list-id> <gallery-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.store()
			if err != nil {
				return err
			}
			listID, galleries := ids[0], ids[1:]
			if verb == "add" {
				err = st.AddToList(cmd.Context(), listID, galleries...)
			} else {
				err = st.RemoveFromList(cmd.Context(), listID, galleries...)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%s: %s\n", verb, plural(len(galleries), "gallery", "galleries"))
			return nil
		},
	}
}

func newListsScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <list-id>",
		Short: "Re-evaluate an auto list's filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.store()
			if err != nil {
				return err
			}
			res, err := st.ScanList(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(out(cmd), "%d added, %d removed\n", res.Added, res.Removed)
			return nil
		},
	}
}

func newListsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a list; its galleries are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.store()
			if err != nil {
				return err
			}
			if err := st.DeleteList(cmd.Context(), ids[0]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted list #%d\n", ids[0])
			return nil
		},
	}
}
