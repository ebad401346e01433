package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"Seesaw/internal/gear"
	"Seesaw/internal/model"
)

var setFlags struct {
	ticker, market, rescue, buyMode, traded string
	avg, buyGear, sellGear                  float64
	local, global, volatility               float64
	shares                                  int64
}

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create a position or edit its stored fields",
	Long: `Create a position or edit its stored fields. Only the flags given are changed.

Example:
  seesaw set SAMSUNG --ticker 005930.KS --avg 71200 --shares 14 --traded 250113`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, ok := a.eng.Book().Snapshot().Get(args[0])
		if !ok {
			p = model.Position{Name: args[0], Market: model.MarketDomestic, BuyGear: gear.Neutral, SellGear: gear.Neutral, Volatility: 1}
		}

		f := cmd.Flags()
		if f.Changed("ticker") {
			p.Ticker = setFlags.ticker
		}
		if f.Changed("market") {
			m, ok := model.ParseMarket(setFlags.market)
			if !ok {
				return fmt.Errorf("unknown market %q", setFlags.market)
			}
			p.Market = m
		}
		if f.Changed("avg") {
			p.AvgCost = setFlags.avg
		}
		if f.Changed("shares") {
			if setFlags.shares < 0 {
				return fmt.Errorf("shares must not be negative")
			}
			p.SharesHeld = setFlags.shares
		}
		if f.Changed("traded") {
			if _, ok := model.ParseYYMMDD(setFlags.traded); !ok {
				return fmt.Errorf("traded must be YYMMDD, got %q", setFlags.traded)
			}
			p.LatestTradingDay = model.NormalizeYYMMDD(setFlags.traded)
		}
		if f.Changed("rescue") {
			m, ok := model.ParseRescueMode(setFlags.rescue)
			if !ok {
				return fmt.Errorf("unknown rescue mode %q", setFlags.rescue)
			}
			p.RescueMode = m
		}
		if f.Changed("buy-mode") {
			p.BuyMode = model.ParseBuyMode(setFlags.buyMode)
		}
		if f.Changed("buy-gear") {
			p.BuyGear = gear.Sanitize(setFlags.buyGear)
		}
		if f.Changed("sell-gear") {
			p.SellGear = gear.Sanitize(setFlags.sellGear)
		}
		if f.Changed("trend-local") {
			p.TrendLocal = setFlags.local
		}
		if f.Changed("trend-global") {
			p.TrendGlobal = setFlags.global
		}
		if f.Changed("volatility") {
			p.Volatility = setFlags.volatility
		}
		if p.SharesHeld == 0 {
			p.AvgCost = 0
		}

		if _, err := a.eng.Book().Put(p); err != nil {
			return err
		}
		fmt.Printf("saved %s: avg %.2f x %d, gears %.1f/%.1f\n", p.Name, p.AvgCost, p.SharesHeld, p.BuyGear, p.SellGear)
		return nil
	},
}

func init() {
	f := setCmd.Flags()
	f.StringVar(&setFlags.ticker, "ticker", "", "Market data symbol")
	f.StringVar(&setFlags.market, "market", "", "KR, US or FX")
	f.Float64Var(&setFlags.avg, "avg", 0, "Average cost")
	f.Int64Var(&setFlags.shares, "shares", 0, "Shares held")
	f.StringVar(&setFlags.traded, "traded", "", "Latest trading day, YYMMDD")
	f.StringVar(&setFlags.rescue, "rescue", "", "Rescue mode: AUTO, DEFAULT, HEAVY or LIGHT")
	f.StringVar(&setFlags.buyMode, "buy-mode", "", "LOAD, RELOAD or empty to derive from shares")
	f.Float64Var(&setFlags.buyGear, "buy-gear", 0, "Stored buy gear")
	f.Float64Var(&setFlags.sellGear, "sell-gear", 0, "Stored sell gear")
	f.Float64Var(&setFlags.local, "trend-local", 0, "Local trend score L")
	f.Float64Var(&setFlags.global, "trend-global", 0, "Global trend score G")
	f.Float64Var(&setFlags.volatility, "volatility", 0, "Volatility score V in [0,2]")
	rootCmd.AddCommand(setCmd)
}
