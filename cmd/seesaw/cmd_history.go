package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Seesaw/internal/recorder"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Show recorded gear applies and cancels for a position",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Data.SQLitePath == "" {
			return errors.New("history needs data.sqlite_path")
		}
		rec, err := recorder.NewSQLiteRecorder(cfg.Data.SQLitePath)
		if err != nil {
			return err
		}
		defer rec.Close()

		passes, err := rec.CountPasses()
		if err != nil {
			return err
		}
		events, err := rec.Applies(args[0], historyLimit)
		if err != nil {
			return err
		}
		fmt.Printf("%d recompute passes recorded\n\n", passes)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tACTION\tBUY\tSELL\tPOINTS\tTRAITS")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%.1f\t%.1f\t%+g/%+g\t%s\n",
				e.At.Format("2006-01-02 15:04"), e.Action, e.BuyGear, e.SellGear, e.BuyPoints, e.SellPoints, e.Traits)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of events to show")
	rootCmd.AddCommand(historyCmd)
}
