package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"tidy-go/internal/app"
	"tidy-go/internal/config"
	"tidy-go/internal/journal"
	"tidy-go/internal/report"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a TidyApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Preview", "Apply").
func newApp(operation, parameters string) (*app.TidyApp, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("locating config: %w", err)
	}

	cfg, err := paths.Load()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewTidyApp(cfg, operation, parameters)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// withApp runs fn against a fresh TidyApp and records its outcome.
func withApp(operation, parameters string, fn func(a *app.TidyApp) error) error {
	a, err := newApp(operation, parameters)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(a)
	a.Fail(err)
	return err
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// confirm asks a yes/no question on the terminal. Without a terminal it
// refuses, so scripted runs must pass --yes.
func confirm(question string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("not running in a terminal; pass --yes to continue")
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}

var rootCmd = &cobra.Command{
	Use:           "tidy",
	Short:         "Organize files into folders by type and date, with undo",
	SilenceUsage:  true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := config.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}

		cfg, err := paths.Init()
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Destination: %s\n", cfg.Organize.Destination)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := config.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}

		cfg, err := paths.Load()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("# Configuration from %s (defaults applied)\n\n", paths.ConfigFile)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [PATH]",
	Short: "List what would be considered under PATH",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		showTree, _ := cmd.Flags().GetBool("tree")
		maxFiles, _ := cmd.Flags().GetInt("files")
		target := targetArg(args)

		return withApp("Scan", target, func(a *app.TidyApp) error {
			p := report.NewPrinter(os.Stdout)
			if showTree {
				tree, err := a.Tree(target)
				if err != nil {
					return err
				}
				p.Tree(tree, maxFiles)
				return nil
			}

			res, err := a.Scan(target)
			if err != nil {
				return err
			}
			var files, dirs int
			var size int64
			for _, e := range res.Entries {
				if e.IsDir {
					dirs++
					continue
				}
				files++
				size += e.Size
			}
			fmt.Printf("%s: %d file(s), %d dir(s), %s\n", res.Root, files, dirs, report.HumanSize(size))
			if n := len(res.Diagnostics.Skips); n > 0 {
				fmt.Printf("%d path(s) skipped (blacklisted, excluded or unreadable)\n", n)
			}
			return nil
		})
	},
}

// plan command
var planCmd = &cobra.Command{
	Use:   "plan [PATH]",
	Short: "Preview how PATH would be organized",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		target := targetArg(args)

		return withApp("Preview", target, func(a *app.TidyApp) error {
			ctx, cancel := interruptContext()
			defer cancel()

			pv, err := a.Preview(ctx, target)
			if err != nil {
				return err
			}
			report.NewPrinter(os.Stdout).Preview(pv, limit)
			return nil
		})
	},
}

// apply command
var applyCmd = &cobra.Command{
	Use:   "apply [PATH]",
	Short: "Organize PATH as one undoable batch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		mode, _ := cmd.Flags().GetString("mode")
		open, _ := cmd.Flags().GetBool("open")
		limit, _ := cmd.Flags().GetInt("limit")
		target := targetArg(args)

		return withApp("Apply", target, func(a *app.TidyApp) error {
			ctx, cancel := interruptContext()
			defer cancel()

			pv, err := a.Preview(ctx, target)
			if err != nil {
				return err
			}
			p := report.NewPrinter(os.Stdout)
			p.Preview(pv, limit)
			if pv.Moves.Len() == 0 {
				fmt.Println("Nothing to do.")
				return nil
			}

			if !yes {
				ok, err := confirm(fmt.Sprintf("Apply %d move(s)?", pv.Moves.Len()))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			id, err := a.Apply(pv.Moves, mode, open)
			var applyErr *journal.ApplyError
			if errors.As(err, &applyErr) {
				fmt.Fprintf(os.Stderr, "Stopped after %d move(s); the partial batch is logged as %s and can be undone.\n",
					applyErr.Completed, applyErr.BatchID)
				return err
			}
			if err != nil {
				return err
			}
			p.Success("Applied %d move(s) as batch %s", pv.Moves.Len(), id)
			return nil
		})
	},
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes [PATH]",
	Short: "Find duplicate candidates by size and head hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := targetArg(args)

		return withApp("Duplicates", target, func(a *app.TidyApp) error {
			ctx, cancel := interruptContext()
			defer cancel()

			var bar *progressbar.ProgressBar
			if term.IsTerminal(int(os.Stderr.Fd())) {
				bar = progressbar.Default(-1, "Hashing")
			}
			progress := func(done, total int) {
				if bar != nil {
					if total > 0 && bar.GetMax() == -1 {
						bar.ChangeMax(total)
					}
					_ = bar.Set(done)
				}
			}

			groups, err := a.Duplicates(ctx, target, progress)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(os.Stderr)
			}
			if err != nil {
				return err
			}
			report.NewPrinter(os.Stdout).Duplicates(groups)
			return nil
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View applied batches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp("History", "", func(a *app.TidyApp) error {
			records, err := a.History(limit)
			if err != nil {
				return err
			}
			report.NewPrinter(os.Stdout).History(records)
			return nil
		})
	},
}

// undo command
var undoCmd = &cobra.Command{
	Use:   "undo [BATCH_ID]",
	Short: "Roll back a batch (default: the most recent one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		last, _ := cmd.Flags().GetInt("last")
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		selectors := 0
		if len(args) == 1 {
			selectors++
		}
		if cmd.Flags().Changed("last") {
			selectors++
		}
		if all {
			selectors++
		}
		if selectors > 1 {
			return errors.New("give only one of BATCH_ID, --last N or --all")
		}
		if cmd.Flags().Changed("last") && last < 1 {
			return errors.New("--last must be at least 1")
		}

		return withApp("Undo", strings.Join(args, " "), func(a *app.TidyApp) error {
			if !yes {
				question := "Undo the most recent batch?"
				switch {
				case len(args) == 1:
					question = fmt.Sprintf("Undo batch %s?", args[0])
				case all:
					question = "Undo every logged batch?"
				case last > 1:
					question = fmt.Sprintf("Undo the %d most recent batches?", last)
				}
				ok, err := confirm(question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			var restored int
			var err error
			switch {
			case len(args) == 1:
				restored, err = a.Undo(args[0])
			case all:
				restored, err = a.UndoRecent(0)
			default:
				restored, err = a.UndoRecent(last)
			}
			if err != nil {
				return err
			}
			if restored == 0 {
				fmt.Println("Nothing was restored.")
				return nil
			}
			report.NewPrinter(os.Stdout).Success("Restored %d file(s)", restored)
			return nil
		})
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Bool("tree", false, "Show the directory tree")
	scanCmd.Flags().Int("files", 20, "Maximum files listed per directory in the tree (0 for all)")
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().IntP("limit", "l", 20, "Maximum moves listed per destination (0 for all)")
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	applyCmd.Flags().StringP("mode", "m", "", "move or copy (default from config)")
	applyCmd.Flags().Bool("open", false, "Open the destination folder afterwards")
	applyCmd.Flags().IntP("limit", "l", 20, "Maximum moves listed per destination (0 for all)")
	rootCmd.AddCommand(dupesCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of batches to show")
	rootCmd.AddCommand(undoCmd)
	undoCmd.Flags().Int("last", 1, "Undo the N most recent batches")
	undoCmd.Flags().Bool("all", false, "Undo every logged batch")
	undoCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(blacklistCmd)
	rootCmd.AddCommand(rulesCmd)
}
