package main

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// execute runs the command line and shuts down whatever services the
// command started, whether or not it succeeded.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cc := newCommandContext()
	if stdin != nil {
		cc.stdin = stdin
	}

	cmd := newRootCommand(cc)
	cmd.SetArgs(args)
	cmd.SetIn(cc.stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if cerr := cc.close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, errors.CodeInternal, "shutdown")
	}
	return err
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "doujinshelf",
		Short:         "Manga and doujinshi library manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path")
	flags.StringVar(&ctx.envFile, "env-file", "", "Path to a .env file")
	flags.StringVar(&ctx.flags.DataDir, "data-dir", "", "Directory holding the database, sessions and exports")
	flags.StringVar(&ctx.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&ctx.flags.LogFormat, "log-format", "", "Log format (pretty, json)")
	flags.StringVar(&ctx.flags.Env, "env", "", "Environment (development, staging, production)")
	flags.BoolVar(&ctx.jsonOutput, "json", false, "Write machine-readable JSON")

	rootCmd.AddCommand(
		newScanCommand(ctx),
		newHashCommand(ctx),
		newDupesCommand(ctx),
		newResolveCommand(ctx),
		newLoginCommand(ctx),
		newExportCommand(ctx),
		newImportCommand(ctx),
		newBackupsCommand(ctx),
		newListsCommand(ctx),
		newWatchCommand(ctx),
		newMigrateCommand(ctx),
		newVersionCommand(),
	)

	return rootCmd
}

// boolOverride copies a boolean flag into a config flag string when the
// user set it, leaving the string empty otherwise so config precedence
// still applies.
func boolOverride(flags *pflag.FlagSet, name string, dst *string) {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	v, err := strconv.ParseBool(f.Value.String())
	if err != nil {
		return
	}
	*dst = strconv.FormatBool(v)
}
