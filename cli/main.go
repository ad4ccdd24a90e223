package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, errDiffers) {
		FormatError(os.Stderr, err, ShouldUseColor(false))
	}
	os.Exit(1)
}

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	cfg      Config
	log      *slog.Logger
	useColor bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "sheetc [command]",
		Short:         "Compile, run and render event sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env, err := readEnv(envFile)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(a.cfg, cmd.Flags().Changed, env)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := slog.LevelWarn
			if cfg.Debug {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
			a.useColor = !cfg.NoColor && isTerminal(a.stdout)
			return nil
		},
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Flags write straight into the config; unset ones are filled from the
	// environment afterwards.
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Optional file of SHEETC_* settings")
	flags.BoolVar(&a.cfg.Debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&a.cfg.NoColor, "no-color", false, "Disable colored output")
	flags.StringVar(&a.cfg.LinksDir, "links", "", "Directory holding <name>.json sheets for Link events")
	flags.IntVar(&a.cfg.MaxLoopIterations, "max-loop-iterations", 0, "Bound on the iterations of one loop run (0 for the default)")
	flags.BoolVar(&a.cfg.ResetLocals, "reset-locals", false, "Reset loop locals at every iteration")
	flags.BoolVar(&a.cfg.Translated, "translated", false, "Render sentences through the translator")
	flags.IntVar(&a.cfg.Concurrency, "jobs", 0, "Files processed at once (0 for one per CPU)")

	rootCmd.AddCommand(
		a.renderCmd(),
		a.checkCmd(),
		a.runCmd(),
		a.digestCmd(),
		a.diffCmd(),
		a.treeCmd(),
		a.watchCmd(),
	)
	return rootCmd
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stdout, format, args...)
}
