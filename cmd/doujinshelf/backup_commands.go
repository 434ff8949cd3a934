package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/backup"
	backupimport "github.com/listenupapp/doujinshelf/internal/backup/import"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [id...]",
		Short: "Export gallery metadata to a JSON file",
		Long: `Export writes every gallery, or the named ones, keyed by id with its
metadata, tags and sampled page hashes. Without --output the file is
written to the exports directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			svc, err := invoke[*backup.BackupService](ctx)
			if err != nil {
				return err
			}
			res, err := svc.Create(cmd.Context(), backup.BackupOptions{OutputPath: output, IDs: ids})
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}
			fmt.Fprintf(out(cmd), "Exported %s to %s", plural(res.Count, "gallery", "galleries"), res.Path)
			if res.Unhashed > 0 {
				fmt.Fprintf(out(cmd), " (%d without hashes)", res.Unhashed)
			}
			fmt.Fprintln(out(cmd))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		strategy string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|backup-id>",
		Short: "Import gallery metadata from an export file",
		Long: `Import matches every record to local galleries by sampled page hashes
and merges its metadata. keep_backup overwrites local fields, keep_local
only fills empty ones; tags are always merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := invoke[*backup.BackupService](ctx)
			if err != nil {
				return err
			}
			res, err := svc.Restore(cmd.Context(), args[0], backup.RestoreOptions{
				MergeStrategy: backupimport.MergeStrategy(strategy),
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, res)
			}

			w := out(cmd)
			for _, e := range res.Errors {
				fmt.Fprintf(w, "error   %s: %s\n", e.Key, e.Error)
			}
			verb := "updated"
			if dryRun {
				verb = "would update"
			}
			fmt.Fprintf(w, "%d records, %d matched, %d %s, %d unmatched\n",
				res.Records, res.Matched, res.Updated, verb, len(res.Unmatched))
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", string(backupimport.MergeKeepBackup), "Merge strategy: keep_backup or keep_local")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Match without writing")
	return cmd
}

func newBackupsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Manage export files in the data directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List export files, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := invoke[*backup.BackupService](ctx)
			if err != nil {
				return err
			}
			infos, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, infos)
			}
			if len(infos) == 0 {
				fmt.Fprintln(out(cmd), "No backups")
				return nil
			}
			rows := make([][]string, len(infos))
			for i, b := range infos {
				rows[i] = []string{b.ID, b.CreatedAt.Local().Format(time.DateTime), strconv.FormatInt(b.Size, 10)}
			}
			fmt.Fprintln(out(cmd), renderTable(
				[]string{"ID", "Created", "Bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := invoke[*backup.BackupService](ctx)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}
