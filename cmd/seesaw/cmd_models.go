package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Seesaw/internal/gearbox"
	"Seesaw/internal/notifier"
)

// modelHistoryDays covers the longest model lookback plus warmup.
const modelHistoryDays = 60

var scoreModel string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Composite model bank",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered gear models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, m := range gearbox.Models() {
			fmt.Fprintf(w, "%s\t%s\n", m.ID(), m.Name())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nSnapshot advisors: %s\n", strings.Join(gearbox.Advisors(), ", "))
		return nil
	},
}

var modelsScoreCmd = &cobra.Command{
	Use:   "score <symbol>",
	Short: "Score a symbol's daily history with one model or all of them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		models := gearbox.Models()
		if scoreModel != "" {
			m, err := gearbox.Get(scoreModel)
			if err != nil {
				return err
			}
			models = []gearbox.Model{m}
		}

		bars, err := newFetcher(cfg).FetchDailyBars(cmd.Context(), args[0], modelHistoryDays)
		if err != nil {
			return err
		}
		for _, m := range models {
			r, err := gearbox.Latest(m, bars)
			if err != nil {
				return err
			}
			fmt.Print(notifier.FormatReading(args[0], r))
		}
		return nil
	},
}

func init() {
	modelsScoreCmd.Flags().StringVar(&scoreModel, "model", "", "Model id (default: all)")
	modelsCmd.AddCommand(modelsListCmd, modelsScoreCmd)
	rootCmd.AddCommand(modelsCmd)
}
