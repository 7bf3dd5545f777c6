package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"tidy-go/internal/app"
	"tidy-go/internal/report"

	"github.com/spf13/cobra"
)

// blacklist command
var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage directories that are never scanned",
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show default and user entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("BlacklistList", "", func(a *app.TidyApp) error {
			report.NewPrinter(os.Stdout).Blacklist(a.BlacklistDefaults(), a.BlacklistUser())
			return nil
		})
	},
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Add user entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("BlacklistAdd", strings.Join(args, " "), func(a *app.TidyApp) error {
			added, err := a.BlacklistAdd(args...)
			if err != nil {
				return err
			}
			for _, p := range added {
				fmt.Printf("Blacklisted: %s\n", p)
			}
			return nil
		})
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove PATH...",
	Short: "Remove user entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("BlacklistRemove", strings.Join(args, " "), func(a *app.TidyApp) error {
			n, err := a.BlacklistRemove(args...)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entr(ies)\n", n)
			return nil
		})
	},
}

var blacklistClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every user entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("BlacklistClear", "", func(a *app.TidyApp) error {
			if err := a.BlacklistClear(); err != nil {
				return err
			}
			fmt.Println("User blacklist cleared.")
			return nil
		})
	},
}

var blacklistRecommendCmd = &cobra.Command{
	Use:   "recommend [ROOT...]",
	Short: "Suggest entries found one level below ROOT (default: home)",
	RunE: func(cmd *cobra.Command, args []string) error {
		add, _ := cmd.Flags().GetBool("add")

		return withApp("BlacklistRecommend", strings.Join(args, " "), func(a *app.TidyApp) error {
			suggested, err := a.BlacklistRecommend(args, add)
			if err != nil {
				return err
			}
			for _, p := range suggested {
				fmt.Println(p)
			}
			if add {
				fmt.Printf("Saved suggestions; the user list now has %d entr(ies)\n", len(a.BlacklistUser()))
			}
			return nil
		})
	},
}

// rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect, validate and generate rules",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the configured rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("RulesShow", "", func(a *app.TidyApp) error {
			list, err := a.Rules()
			if err != nil {
				return err
			}
			fmt.Printf("Rules from %s:\n", a.RulesPath())
			report.NewPrinter(os.Stdout).Rules(list)
			return nil
		})
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate [FILE]",
	Short: "Check a rule file (default: the configured one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := ""
		if len(args) == 1 {
			file = args[0]
		}
		return withApp("RulesValidate", file, func(a *app.TidyApp) error {
			list, err := a.ValidateRules(file)
			if err != nil {
				return err
			}
			report.NewPrinter(os.Stdout).Success("%d rule(s) valid", len(list))
			return nil
		})
	},
}

var rulesTestCmd = &cobra.Command{
	Use:   "test FILENAME",
	Short: "Show which rules' match predicates accept FILENAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp("RulesTest", args[0], func(a *app.TidyApp) error {
			names, err := a.TestRules(args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println("No rule matches.")
				return nil
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		})
	},
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in rules to the configured rule file",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		return withApp("RulesInit", "", func(a *app.TidyApp) error {
			path, err := a.InitRules(force)
			if err != nil {
				return err
			}
			fmt.Printf("Rules written to %s\n", path)
			return nil
		})
	},
}

var rulesGenerateCmd = &cobra.Command{
	Use:   "generate PROMPT...",
	Short: "Generate rules from a description with the configured local model",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")
		prompt := strings.Join(args, " ")
		if strings.TrimSpace(prompt) == "" {
			return errors.New("prompt is empty")
		}

		return withApp("RulesGenerate", prompt, func(a *app.TidyApp) error {
			ctx, cancel := interruptContext()
			defer cancel()

			doc, err := a.GenerateRules(ctx, prompt, save)
			if err != nil {
				return err
			}
			fmt.Print(doc)
			if save {
				fmt.Fprintf(os.Stderr, "Saved to %s\n", a.RulesPath())
			}
			return nil
		})
	},
}

func init() {
	blacklistCmd.AddCommand(blacklistListCmd)
	blacklistCmd.AddCommand(blacklistAddCmd)
	blacklistCmd.AddCommand(blacklistRemoveCmd)
	blacklistCmd.AddCommand(blacklistClearCmd)
	blacklistCmd.AddCommand(blacklistRecommendCmd)
	blacklistRecommendCmd.Flags().Bool("add", false, "Save the suggestions as user entries")

	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesTestCmd)
	rulesCmd.AddCommand(rulesInitCmd)
	rulesInitCmd.Flags().Bool("force", false, "Replace an existing rule file")
	rulesCmd.AddCommand(rulesGenerateCmd)
	rulesGenerateCmd.Flags().Bool("save", false, "Replace the configured rule file with the result")
}
