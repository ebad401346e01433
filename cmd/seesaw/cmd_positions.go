package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"Seesaw/internal/gearbox"
	"Seesaw/internal/metrics"
	"Seesaw/internal/notifier"
)

var (
	toggleIDs []string
	showModel string
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List positions with units held and deployment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.eng.Recompute(nil)
		if err != nil {
			return err
		}
		d := st.Deployment
		fmt.Printf("%d positions, book v%d\n", a.eng.Book().Snapshot().Len(), st.Version)
		fmt.Printf("Deployed %.2f / %.0fu (%.1f%%), remaining %.2fu\n\n", d.Units, d.Capacity, d.Fraction*100, d.Remaining)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMARKET\tAVG\tSHARES\tUNITS\tBUY\tSELL\tPRICE")
		for _, v := range st.Views {
			p := v.Position
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%.2f\t%.1f\t%.1f\t%.2f\n",
				p.Name, p.Market, p.AvgCost, p.SharesHeld, v.UnitsHeld, p.BuyGear, p.SellGear, p.Snapshot.Current)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Recompute one position",
	Long: `Recompute one position from the current book: deployment, LOAD/RELOAD and
RESCUE triggers, the SELL ladder, trait recommendation and snapshot advice.

With --model A..E the model bank also scores the position's daily history.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.eng.Show(args[0], toggleSet(toggleIDs))
		if err != nil {
			return err
		}
		fmt.Print(notifier.FormatView(v))

		if showModel == "" || showModel == "traits" {
			return nil
		}
		m, err := gearbox.Get(showModel)
		if err != nil {
			return err
		}
		col := newCollector(a.cfg)
		symbol := col.Ticker(&v.Position)
		if symbol == "" {
			return fmt.Errorf("position %s has no ticker", v.Position.Name)
		}
		bars, err := col.Fetcher.FetchDailyBars(cmd.Context(), symbol, modelHistoryDays)
		if err != nil {
			return err
		}
		r, err := gearbox.Latest(m, bars)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(notifier.FormatReading(symbol, r))
		return nil
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <name>",
	Short: "Explain the trait engine recommendation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rec, res, err := a.eng.Recommend(args[0], toggleSet(toggleIDs))
		if err != nil {
			return err
		}
		fmt.Print(notifier.FormatRecommendation(rec, res))
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Apply the trait recommendation to the stored gears",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.eng.Apply(args[0], toggleSet(toggleIDs))
		if err != nil {
			return err
		}
		metrics.ObserveGearChange(c.Action)
		fmt.Println(notifier.FormatChange(args[0], c))
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <name>",
	Short: "Reset the stored gears to the base gears",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.eng.Cancel(args[0])
		if err != nil {
			return err
		}
		metrics.ObserveGearChange(c.Action)
		fmt.Println(notifier.FormatChange(args[0], c))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{showCmd, recommendCmd, applyCmd} {
		c.Flags().StringSliceVar(&toggleIDs, "toggle", nil, "Manual trait id to switch on (repeatable)")
	}
	showCmd.Flags().StringVar(&showModel, "model", "traits", "Gear source to show: traits or a model id A..E")
	rootCmd.AddCommand(positionsCmd, showCmd, recommendCmd, applyCmd, cancelCmd)
}
