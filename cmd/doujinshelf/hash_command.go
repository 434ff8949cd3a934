package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/hashing"
	"github.com/listenupapp/doujinshelf/internal/logger"
	"github.com/listenupapp/doujinshelf/internal/store"
)

func newHashCommand(ctx *commandContext) *cobra.Command {
	var sampleSize string

	cmd := &cobra.Command{
		Use:   "hash [id...]",
		Short: "Generate sampled page hashes",
		Long: `Hash computes and stores the sampled page digests of chapter 0 for the
given galleries, or for every gallery when none are named. Digests already
stored are reused.`,
		PreRun: func(cmd *cobra.Command, args []string) {
			ctx.flags.SampleSize = sampleSize
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			st, err := ctx.store()
			if err != nil {
				return err
			}
			engine, err := invoke[*hashing.Engine](ctx)
			if err != nil {
				return err
			}

			galleries, err := st.ListGalleries(cmd.Context(), store.GalleryFilter{IDs: ids})
			if err != nil {
				return err
			}

			w := out(cmd)
			results, err := engine.EnsureAll(cmd.Context(), galleries, func(done, total int) {
				if !ctx.jsonOutput {
					fmt.Fprintf(w, "\rGenerating hash %d/%d", done, total)
				}
			})
			if err != nil {
				return err
			}

			type row struct {
				ID     int64          `json:"id"`
				Title  string         `json:"title"`
				Hashes map[int]string `json:"hashes,omitempty"`
				Error  string         `json:"error,omitempty"`
			}
			rows := make([]row, 0, len(results))
			failed := 0
			log := ctx.logger()
			for _, r := range results {
				rw := row{ID: r.Gallery.ID, Title: r.Gallery.Title, Hashes: r.Hashes}
				if r.Err != nil {
					failed++
					rw.Error = r.Err.Error()
					logger.LogFailure(log.Logger, "hash failed", r.Err, "gallery_id", r.Gallery.ID)
				}
				rows = append(rows, rw)
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, rows)
			}
			if len(results) > 0 {
				fmt.Fprintln(w)
			}
			for _, r := range rows {
				if r.Error != "" {
					fmt.Fprintf(w, "failed  #%d %s: %s\n", r.ID, r.Title, r.Error)
				}
			}
			fmt.Fprintf(w, "%s hashed, %d failed\n", plural(len(results)-failed, "gallery", "galleries"), failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&sampleSize, "sample-size", "", "Pages sampled per gallery (K)")
	return cmd
}
