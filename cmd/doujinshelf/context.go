package main

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/di"
	"github.com/listenupapp/doujinshelf/internal/di/providers"
	"github.com/listenupapp/doujinshelf/internal/logger"
)

// commandContext holds the flag values shared by every subcommand and
// builds the service container on first use.
type commandContext struct {
	configFile string
	envFile    string
	flags      config.Flags
	jsonOutput bool

	// stdin feeds the interactive picker; tests replace it.
	stdin io.Reader

	once     sync.Once
	injector *do.RootScope
	err      error
}

func newCommandContext() *commandContext {
	return &commandContext{stdin: os.Stdin}
}

func (c *commandContext) container() (*do.RootScope, error) {
	c.once.Do(func() {
		c.injector = di.NewContainer(config.Options{
			ConfigFile: c.configFile,
			EnvFile:    c.envFile,
			Flags:      c.flags,
		})
		c.err = di.Bootstrap(c.injector)
	})
	return c.injector, c.err
}

// close shuts the container down if a command built one.
func (c *commandContext) close() error {
	if c.injector == nil {
		return nil
	}
	return shutdownError(c.injector.Shutdown())
}

// shutdownError reports a failed shutdown. A report with no service errors
// is a clean shutdown.
func shutdownError(report *do.ShutdownReport) error {
	if report == nil || len(report.Errors) == 0 {
		return nil
	}
	return report
}

func (c *commandContext) config() (*config.Config, error) {
	return invoke[*config.Config](c)
}

func (c *commandContext) logger() *logger.Logger {
	log, err := invoke[*logger.Logger](c)
	if err != nil {
		return logger.Discard()
	}
	return log
}

func (c *commandContext) store() (*providers.StoreHandle, error) {
	return invoke[*providers.StoreHandle](c)
}

// interactive reports whether prompts can be answered.
func (c *commandContext) interactive() bool {
	r, ok := c.stdin.(*os.File)
	return ok && isTerminal(r)
}

// isTerminal reports whether w writes to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// invoke resolves a service from the command's container.
func invoke[T any](c *commandContext) (T, error) {
	injector, err := c.container()
	if err != nil {
		var zero T
		return zero, err
	}
	return do.Invoke[T](injector)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// out returns the command's standard output.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
