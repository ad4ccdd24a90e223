package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opal-lang/sheetc/core/events"
	"github.com/opal-lang/sheetc/runtime/builtins"
	"github.com/opal-lang/sheetc/runtime/compiler"
	"github.com/opal-lang/sheetc/runtime/executor"
	"github.com/opal-lang/sheetc/runtime/formatter"
	"github.com/opal-lang/sheetc/runtime/scene"
)

// load reads and decodes a document. "-" reads standard input.
func (a *app) load(path string) (*events.Document, error) {
	var (
		data []byte
		err  error
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	)
	if path == "-" {
		name = "stdin"
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &CLIError{Type: "load", Message: "cannot read " + path, Details: err.Error()}
	}

	doc, err := events.Decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("loaded document", "path", path, "sheet", doc.Sheet.Name, "events", doc.Sheet.Len())
	return doc, nil
}

// compile compiles the sheet of doc against sc. Links resolve to the
// document's external events first, then to the links directory.
func (a *app) compile(doc *events.Document, sc *scene.Scene) (*compiler.Procedure, error) {
	links := compiler.Chain{compiler.MapLinks(doc.External)}
	if a.cfg.LinksDir != "" {
		links = append(links, compiler.DirLinks{Dir: a.cfg.LinksDir})
	}
	return compiler.Compile(doc.Sheet, compiler.Options{
		Registry:                 builtins.NewRegistry(),
		Links:                    links,
		Globals:                  sc,
		ResetLocalsEachIteration: a.cfg.ResetLocals,
		Logger:                   a.log,
	})
}

func (a *app) renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <file>...",
		Short: "Render sheets as text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			texts, err := a.renderAll(cmd.Context(), args)
			if err != nil {
				return err
			}
			for i, text := range texts {
				if len(args) > 1 {
					a.printf("%s\n", Colorize("== "+args[i]+" ==", ColorCyan, a.useColor))
				}
				a.printf("%s\n", text)
			}
			return nil
		},
	}
}

// renderAll renders paths concurrently, keeping their order.
func (a *app) renderAll(ctx context.Context, paths []string) ([]string, error) {
	texts := make([]string, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := a.render(path)
			texts[i] = text
			return err
		})
	}
	return texts, g.Wait()
}

func (a *app) render(path string) (string, error) {
	doc, err := a.load(path)
	if err != nil {
		return "", err
	}
	return formatter.FormatWith(doc.Sheet, builtins.NewRegistry(), formatter.Options{Translated: a.cfg.Translated}), nil
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Compile sheets and report diagnostics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, path := range args {
				doc, err := a.load(path)
				if err != nil {
					return err
				}
				proc, err := a.compile(doc, scene.FromDocument(doc))
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				for _, d := range proc.Diagnostics {
					a.printf("%s\n", Colorize(d.String(), severityColor(d.Severity), a.useColor))
				}
				if proc.HasErrors() {
					failed = append(failed, path)
					continue
				}
				a.printf("%s: %s (%d events, %d skipped)\n",
					path, Colorize("ok", ColorGreen, a.useColor), proc.Stats.Events, proc.Stats.Skipped)
			}
			if len(failed) > 0 {
				return &CLIError{
					Type:    "check",
					Message: fmt.Sprintf("%d of %d sheets have errors", len(failed), len(args)),
					Details: strings.Join(failed, "\n"),
				}
			}
			return nil
		},
	}
}

func severityColor(s compiler.Severity) string {
	switch s {
	case compiler.SeverityError:
		return ColorRed
	case compiler.SeverityWarning:
		return ColorYellow
	}
	return ColorGray
}

func (a *app) runCmd() *cobra.Command {
	var (
		frames    int
		telemetry bool
	)
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a sheet against its scene and print the final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames < 1 {
				return &CLIError{Type: "run", Message: fmt.Sprintf("--frames must be at least 1, got %d", frames)}
			}
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			sc := scene.FromDocument(doc)
			proc, err := a.compile(doc, sc)
			if err != nil {
				return err
			}
			for _, d := range proc.Diagnostics {
				a.log.Warn("compile diagnostic", "diagnostic", d.String())
			}

			config := executor.Config{Logger: a.log, MaxLoopIterations: a.cfg.MaxLoopIterations}
			if telemetry {
				config.Telemetry = executor.TelemetryBasic
			}
			for frame := 1; frame <= frames; frame++ {
				res, err := executor.Execute(cmd.Context(), proc, sc, config)
				if err != nil {
					return fmt.Errorf("frame %d: %w", frame, err)
				}
				if res.Telemetry != nil {
					_, _ = fmt.Fprintf(a.stderr, "frame %d: %d events, %d conditions, %d actions, %d iterations in %v\n",
						frame, res.EventsRun, res.Telemetry.ConditionsTested, res.Telemetry.ActionsRun,
						res.Telemetry.Iterations, res.Duration)
				}
			}
			a.printf("%s\n", sc.Snapshot().JSON())
			return nil
		},
	}
	cmd.Flags().IntVar(&frames, "frames", 1, "Number of times the sheet runs")
	cmd.Flags().BoolVar(&telemetry, "telemetry", false, "Print execution counters per frame")
	return cmd
}

func (a *app) digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest <file>...",
		Short: "Print the content digest of sheets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				doc, err := a.load(path)
				if err != nil {
					return err
				}
				digest, err := doc.Sheet.Digest()
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				a.printf("%s  %s\n", digest, path)
			}
			return nil
		},
	}
}

func (a *app) diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <expected> <actual>",
		Short: "Compare the renderings of two sheets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expected, err := a.load(args[0])
			if err != nil {
				return err
			}
			actual, err := a.load(args[1])
			if err != nil {
				return err
			}
			result := formatter.Diff(expected.Sheet, actual.Sheet, builtins.NewRegistry())
			a.printf("%s", formatter.FormatDiff(result, a.useColor))
			if !result.Empty() {
				return errDiffers
			}
			return nil
		},
	}
}

func (a *app) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file>",
		Short: "Print the compiled form of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.load(args[0])
			if err != nil {
				return err
			}
			proc, err := a.compile(doc, scene.FromDocument(doc))
			if err != nil {
				return err
			}
			formatter.FormatTree(a.stdout, proc, a.useColor)
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Render a sheet again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if path == "-" {
				return &CLIError{Type: "load", Message: "cannot watch standard input"}
			}
			return a.watch(cmd.Context(), path, func() {
				text, err := a.render(path)
				if err != nil {
					FormatError(a.stderr, err, a.useColor)
					return
				}
				a.printf("%s\n", text)
			})
		},
	}
}

// watch calls onChange once, then after every write to path, until ctx is
// done. The directory is watched so that editors replacing the file are
// seen too.
func (a *app) watch(ctx context.Context, path string, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	onChange()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			a.log.Debug("sheet changed", "path", path, "op", ev.Op.String())
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("watch error", "path", path, "error", err)
		}
	}
}
