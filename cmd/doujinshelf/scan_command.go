package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Add galleries from folders and archives",
		Long: `Scan classifies every folder and archive below each path and adds the
galleries it finds. Paths already in the library are skipped.`,
		Args: cobra.MinimumNArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			flags := cmd.Flags()
			boolOverride(flags, "move", &ctx.flags.MoveImported)
			boolOverride(flags, "recursive", &ctx.flags.Recursive)
			boolOverride(flags, "subfolders", &ctx.flags.SubfolderAsGallery)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := invoke[*scanner.Scanner](ctx)
			if err != nil {
				return err
			}

			w := out(cmd)
			var onProgress func(scanner.Progress)
			if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress || (!ctx.jsonOutput && isTerminal(cmd.ErrOrStderr())) {
				onProgress = scanProgress(cmd.ErrOrStderr())
			}
			var results []*scanner.ScanResult
			for _, root := range args {
				res, err := sc.Scan(cmd.Context(), root, scanner.ScanOptions{
					OnProgress: onProgress,
					OnEvent: func(e scanner.Event) {
						if ctx.jsonOutput {
							return
						}
						switch e.Type {
						case scanner.EventCreated:
							fmt.Fprintf(w, "added   %s\n", galleryLabel(e.Gallery))
						case scanner.EventSkipped:
							fmt.Fprintf(w, "skipped %s: %s\n", e.Path, e.Reason)
						}
					},
				})
				if err != nil {
					return err
				}
				results = append(results, res)
			}

			if ctx.jsonOutput {
				return writeJSON(cmd, results)
			}
			var created, skipped, failed int
			for _, r := range results {
				created += r.Created
				skipped += r.Skipped
				failed += r.Errors
			}
			fmt.Fprintf(w, "%s added, %d skipped, %s\n", plural(created, "gallery", "galleries"), skipped, plural(failed, "error", "errors"))
			return nil
		},
	}

	cmd.Flags().Bool("progress", false, "Print scan progress to stderr even when it is not a terminal")
	cmd.Flags().Bool("move", false, "Move new galleries into the library root")
	cmd.Flags().Bool("recursive", false, "Treat nested folders as one gallery")
	cmd.Flags().Bool("subfolders", false, "Treat archive subfolders as separate galleries")
	cmd.Flags().StringVar(&ctx.flags.LibraryRoot, "library-root", "", "Managed library root")
	return cmd
}

// scanProgress renders tracker snapshots as a single rewritten status line.
func scanProgress(w io.Writer) func(scanner.Progress) {
	return func(p scanner.Progress) {
		switch p.Phase {
		case scanner.PhaseDiscovering:
			fmt.Fprint(w, "\rDiscovering galleries...")
		case scanner.PhaseIngesting:
			if p.Total == 0 {
				return
			}
			line := fmt.Sprintf("\rScanning %d/%d: %d added, %d skipped", p.Current, p.Total, p.Created, p.Skipped)
			if n := len(p.Errors); n > 0 {
				line += " (" + plural(n, "error", "errors") + ")"
			}
			fmt.Fprint(w, line)
		case scanner.PhaseComplete:
			fmt.Fprintln(w)
		}
	}
}
