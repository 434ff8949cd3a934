package main

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/resolver"
	"github.com/listenupapp/doujinshelf/internal/store"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		urls []string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve [id...]",
		Short: "Fetch metadata from remote sources",
		Long: `Resolve looks galleries up on the default source by page hash, or by an
explicit URL given with --url id=url, and applies the metadata it finds.
Galleries the primary source cannot resolve are retried on the fallback.
Without ids every gallery not yet resolved is processed.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			boolOverride(flags, "first", &ctx.flags.AlwaysPickFirst)
			boolOverride(flags, "replace", &ctx.flags.ReplaceMetadata)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			overrides, err := parseURLOverrides(urls)
			if err != nil {
				return err
			}
			for id := range overrides {
				ids = append(ids, id)
			}

			injector, err := ctx.container()
			if err != nil {
				return err
			}
			if ctx.interactive() {
				do.ProvideValue[resolver.Picker](injector, newTerminalPicker(ctx.stdin, out(cmd)))
			}
			res, err := invoke[*resolver.Resolver](ctx)
			if err != nil {
				return err
			}
			st, err := ctx.store()
			if err != nil {
				return err
			}

			filter := store.GalleryFilter{IDs: ids}
			if len(ids) == 0 && !all {
				exed := false
				filter.Exed = &exed
			}
			galleries, err := st.ListGalleries(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(galleries) == 0 {
				fmt.Fprintln(out(cmd), "Nothing to resolve")
				return nil
			}

			items := make([]resolver.Item, len(galleries))
			for i, g := range galleries {
				items[i] = resolver.Item{Gallery: g, URL: overrides[g.ID]}
			}

			w := out(cmd)
			report, err := res.Resolve(cmd.Context(), items, func(e resolver.Event) {
				if ctx.jsonOutput {
					return
				}
				switch e.Type {
				case resolver.EventProgress:
					fmt.Fprintf(w, "[%s] %s\n", e.Source, e.Message)
				case resolver.EventApplied:
					fmt.Fprintf(w, "applied %s\n", galleryLabel(e.Gallery))
				case resolver.EventFailed:
					fmt.Fprintf(w, "failed  %s: %s\n", galleryLabel(e.Gallery), e.Message)
				}
			})
			if err != nil {
				return err
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, reportJSON(report))
			}
			fmt.Fprintf(w, "%d applied, %d failed, %d skipped\n",
				len(report.Applied), len(report.Failures), len(report.Skipped))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&urls, "url", nil, "Resolve a gallery from a known URL (id=url, repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Include galleries that were already resolved")
	cmd.Flags().Bool("first", false, "Always take the first search hit")
	cmd.Flags().Bool("replace", false, "Replace tags instead of merging them")
	cmd.Flags().StringVar(&ctx.flags.DefaultSource, "source", "", "Default source URL (e-hentai or exhentai)")
	return cmd
}

type resolveFailure struct {
	ID     int64  `json:"id"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason"`
}

type resolveReport struct {
	RunID    string           `json:"run_id"`
	Applied  []int64          `json:"applied"`
	Skipped  []int64          `json:"skipped"`
	Failures []resolveFailure `json:"failures"`
}

func reportJSON(r *resolver.Report) resolveReport {
	ids := func(gs []*domain.Gallery) []int64 {
		list := make([]int64, len(gs))
		for i, g := range gs {
			list[i] = g.ID
		}
		return list
	}
	rep := resolveReport{RunID: r.RunID, Applied: ids(r.Applied), Skipped: ids(r.Skipped)}
	for _, f := range r.Failures {
		rep.Failures = append(rep.Failures, resolveFailure{ID: f.Gallery.ID, URL: f.URL, Reason: f.Reason})
	}
	return rep
}
