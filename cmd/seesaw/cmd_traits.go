package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Seesaw/internal/config"
	"Seesaw/internal/notifier"
	"Seesaw/internal/trait"
)

var forceWrite bool

var traitsCmd = &cobra.Command{
	Use:   "traits",
	Short: "Inspect and manage the trait library",
}

var traitsListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List traits by category",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadLibrary(args)
		if err != nil {
			return err
		}
		fmt.Printf("%d traits (%d auto, %d manual), ratio buy %g sell %g, base %g/%g\n\n",
			len(lib.Traits), len(lib.Auto), len(lib.Manual),
			lib.System.BuyRatio, lib.System.SellRatio, lib.System.BaseBuyGear, lib.System.BaseSellGear)
		fmt.Print(notifier.FormatCategories(lib.Categories()))
		return nil
	},
}

var traitsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Parse a trait library and compile every trigger",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadLibrary(args)
		if err != nil {
			return err
		}
		fmt.Printf("OK: %d traits, %d auto triggers compiled\n", len(lib.Traits), len(lib.Auto))
		return nil
	},
}

var traitsInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write the bundled default trait library",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/traits.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if err := refuseOverwrite(path); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, trait.DefaultLibrary(), 0644); err != nil {
			return fmt.Errorf("write trait library: %w", err)
		}
		fmt.Println("wrote", path)
		return nil
	},
}

var traitsMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "List the metric names auto triggers may reference",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, name := range trait.MetricNames() {
			fmt.Fprintf(w, "%s\t%s\n", name, trait.DescribeMetric(name))
		}
		return w.Flush()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create or check the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with every default filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := refuseOverwrite(configPath); err != nil {
			return err
		}
		if err := config.Default().SaveToFile(configPath); err != nil {
			return err
		}
		fmt.Println("wrote", configPath)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config, apply env overrides and validate it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("OK: capacity %du, max volume %.0f, ladder %s, load %s, model %s\n",
			cfg.Portfolio.CapacityUnits, cfg.Portfolio.MaxVolume,
			cfg.Engine.SellLadder, cfg.Engine.LoadMode, cfg.Engine.DefaultModel)
		return nil
	},
}

func init() {
	traitsInitCmd.Flags().BoolVar(&forceWrite, "force", false, "Overwrite an existing file")
	configInitCmd.Flags().BoolVar(&forceWrite, "force", false, "Overwrite an existing file")
	traitsCmd.AddCommand(traitsListCmd, traitsValidateCmd, traitsInitCmd, traitsMetricsCmd)
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(traitsCmd, configCmd)
}

// loadLibrary reads the file in args or the configured library.
func loadLibrary(args []string) (*trait.Library, error) {
	if len(args) == 1 {
		return trait.Load(args[0])
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return trait.Load(cfg.Traits.Path)
}

func refuseOverwrite(path string) error {
	if forceWrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s exists, use --force to overwrite", path)
	}
	return nil
}
