package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/duplicates"
)

func newDupesCommand(ctx *commandContext) *cobra.Command {
	var (
		mode string
		mark bool
	)

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Find duplicate galleries",
		Long: `Dupes reports pairs of galleries that share a title or path (simple
mode) or the same sampled page hashes (hash mode). With --mark the second
gallery of every pair is moved to the duplicate view.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := duplicates.ParseMode(mode)
			if err != nil {
				return err
			}
			detector, err := invoke[*duplicates.Detector](ctx)
			if err != nil {
				return err
			}

			pairs, err := detector.Find(cmd.Context(), m, nil)
			if err != nil {
				return err
			}

			marked := 0
			if mark && len(pairs) > 0 {
				st, err := ctx.store()
				if err != nil {
					return err
				}
				if marked, err = duplicates.Mark(cmd.Context(), st, pairs); err != nil {
					return err
				}
			}

			if ctx.jsonOutput {
				type row struct {
					First  int64  `json:"first"`
					Second int64  `json:"second"`
					Reason string `json:"reason"`
				}
				rows := make([]row, len(pairs))
				for i, p := range pairs {
					rows[i] = row{p.First.ID, p.Second.ID, p.Reason}
				}
				return writeJSON(cmd, rows)
			}

			w := out(cmd)
			if len(pairs) == 0 {
				fmt.Fprintln(w, "No duplicates found")
				return nil
			}
			rows := make([][]string, len(pairs))
			for i, p := range pairs {
				rows[i] = []string{
					strconv.FormatInt(p.First.ID, 10), p.First.Title,
					strconv.FormatInt(p.Second.ID, 10), p.Second.Title,
					p.Reason,
				}
			}
			fmt.Fprintln(w, renderTable(
				[]string{"ID", "Title", "Duplicate", "Title", "Match"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
			))
			fmt.Fprintln(w, plural(len(pairs), "pair", "pairs"))
			if mark {
				fmt.Fprintf(w, "%s marked as duplicates\n", plural(marked, "gallery", "galleries"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "simple", "Comparison: simple or hash")
	cmd.Flags().BoolVar(&mark, "mark", false, "Move duplicates to the duplicate view")
	return cmd
}
