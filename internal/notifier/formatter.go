package notifier

import (
	"fmt"
	"sort"
	"strings"

	"Seesaw/internal/engine"
	"Seesaw/internal/gearbox"
	"Seesaw/internal/model"
	"Seesaw/internal/trait"
	"Seesaw/internal/trigger"
)

// FormatOverview formats one line per position plus the deployment header.
func FormatOverview(st *engine.State) string {
	var b strings.Builder
	d := st.Deployment
	b.WriteString(fmt.Sprintf("Seesaw | %s\n", st.At.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Deployed %.2f / %.0fu (%.1f%%), remaining %.2fu\n\n",
		d.Units, d.Capacity, d.Fraction*100, d.Remaining))

	for _, v := range st.Views {
		p := v.Position
		if v.Currency != nil {
			c := v.Currency
			b.WriteString(fmt.Sprintf("%-10s FX %.2f vs avg %.2f (%+.2f%%) %s\n", p.Name, c.Rate, c.AvgCost, c.PnLPct, c.Zone))
			continue
		}
		b.WriteString(fmt.Sprintf("%-10s %5.2fu  gears %.1f/%.1f  %s %s | RESCUE %s | SELL %s\n",
			p.Name, v.UnitsHeld, p.BuyGear, p.SellGear,
			v.Buy.Mode, levelText(v.Buy.Status, v.Buy.Price),
			levelText(v.Rescue.Status, v.Rescue.Price), v.Sell.Status))
	}
	return b.String()
}

// FormatView formats the full level set of one position.
func FormatView(v *engine.View) string {
	var b strings.Builder
	p := v.Position
	b.WriteString(fmt.Sprintf("%s (%s)\n", p.Name, p.Market))

	if v.Currency != nil {
		writeCurrency(&b, v.Currency)
		writeAdvice(&b, v.Advice)
		return b.String()
	}

	s := p.Snapshot
	b.WriteString(fmt.Sprintf("Avg %.2f x %d shares = %.2fu | current %.2f\n", p.AvgCost, p.SharesHeld, v.UnitsHeld, s.Current))
	b.WriteString(fmt.Sprintf("Deployment %.2f/%.0fu (%.1f%%) | gears buy %.1f sell %.1f | auto %.1f\n",
		v.Deployment.Units, v.Deployment.Capacity, v.Deployment.Fraction*100, p.BuyGear, p.SellGear, v.AutoGear))

	buy := v.Buy
	b.WriteString(fmt.Sprintf("\n%s: %s\n", buy.Mode, buy.Status))
	if buy.Price > 0 {
		b.WriteString(fmt.Sprintf("  %s %.2f -%.1f%% -> %.2f, %d shares (%.2fu)\n",
			buy.ReferenceLabel, buy.Reference, buy.DropPct, buy.Price, buy.Shares, buy.Units))
		writeProjection(&b, buy.Projection)
	}

	r := v.Rescue
	b.WriteString(fmt.Sprintf("\nRESCUE (%s): %s\n", r.Mode, r.Status))
	if r.Price > 0 {
		b.WriteString(fmt.Sprintf("  drop %.1f%% r=%.2f gear %.1f -> %.2f, %d shares (%.2fu of %.2fu wanted)\n",
			r.Params.DropPct, r.Params.Ratio, r.Params.Gear, r.Price, r.Shares, r.Units, r.Wanted))
		writeProjection(&b, r.Projection)
	}

	b.WriteString(fmt.Sprintf("\nSELL %s gear %.1f: %s\n", v.Sell.Variant, v.Sell.Gear, v.Sell.Status))
	writeTiers(&b, v.Sell.Tiers)

	if rec := v.Recommendation; rec != nil {
		b.WriteString(fmt.Sprintf("\nTraits: buy %.1f sell %.1f", rec.BuyGear, rec.SellGear))
		if len(rec.Traits) > 0 {
			b.WriteString(" [" + strings.Join(rec.Traits, ", ") + "]")
		}
		b.WriteString("\n")
	}
	writeAdvice(&b, v.Advice)
	return b.String()
}

// FormatRecommendation explains a trait engine result.
func FormatRecommendation(rec model.Recommendation, res trait.Result) string {
	var b strings.Builder
	sys := res.System
	b.WriteString(fmt.Sprintf("%s recommendation\n", rec.Position))
	for _, t := range res.ActiveAuto {
		b.WriteString(fmt.Sprintf("  [auto]   %-20s buy %+g sell %+g\n", t.ID, t.BuyPoints, t.SellPoints))
	}
	for _, t := range res.ActiveManual {
		b.WriteString(fmt.Sprintf("  [manual] %-20s buy %+g sell %+g\n", t.ID, t.BuyPoints, t.SellPoints))
	}
	for _, s := range res.Suppressed {
		b.WriteString(fmt.Sprintf("  [skip]   %-20s group %s taken by %s\n", s.Trait.ID, s.Group, s.By.ID))
	}
	if len(res.ActiveAuto)+len(res.ActiveManual) == 0 {
		b.WriteString("  no active traits\n")
	}
	b.WriteString(fmt.Sprintf("Points buy %+g sell %+g\n", rec.BuyPoints, rec.SellPoints))
	b.WriteString(fmt.Sprintf("Buy  %.1f %+.2f -> %.1f\n", sys.BaseBuyGear, rec.BuyShift, rec.BuyGear))
	b.WriteString(fmt.Sprintf("Sell %.1f %+.2f -> %.1f\n", sys.BaseSellGear, rec.SellShift, rec.SellGear))
	if rec.BlackSwan {
		b.WriteString("BLACK SWAN: sell gear forced to 0\n")
	}
	return b.String()
}

// FormatChange reports an apply or cancel.
func FormatChange(name string, c model.AppliedChange) string {
	return fmt.Sprintf("%s %s at %s: buy %.1f sell %.1f (points %+g/%+g)",
		name, c.Action, c.Timestamp, c.BuyGear, c.SellGear, c.BuyPoints, c.SellPoints)
}

// FormatAlert announces a trigger that turned ACTIVE.
func FormatAlert(name, kind string, price float64, shares int64) string {
	return fmt.Sprintf("%s %s ACTIVE at %.2f (%d shares)", name, kind, price, shares)
}

// FormatCategories lists a trait library grouped by category.
func FormatCategories(cats []trait.Category) string {
	var b strings.Builder
	for _, c := range cats {
		b.WriteString(fmt.Sprintf("%s (%d auto, %d manual)\n", c.Name, c.AutoCount, c.ManualCount))
		for _, t := range c.Traits {
			kind := "manual"
			if t.Auto {
				kind = "auto"
			}
			line := fmt.Sprintf("  %-20s %-6s buy %+g sell %+g", t.ID, kind, t.BuyPoints, t.SellPoints)
			if t.ExclusiveGroup != "" {
				line += " group=" + t.ExclusiveGroup
			}
			if p := t.Condition(); p != nil {
				line += "  when " + p.String()
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

// FormatReading formats a model bank reading.
func FormatReading(symbol string, r gearbox.Reading) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s model %s (%s): buy %d sell %d\n", symbol, r.Model, r.Name, r.BuyGear, r.SellGear))
	keys := make([]string, 0, len(r.Indicators))
	for k := range r.Indicators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %-14s %.4f\n", k, r.Indicators[k]))
	}
	return b.String()
}

func levelText(s trigger.Status, price float64) string {
	if price > 0 {
		return fmt.Sprintf("%s @%.2f", s, price)
	}
	return string(s)
}

func writeProjection(b *strings.Builder, p trigger.Projection) {
	if p.Shares == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("  after fill: avg %.2f, %d shares, %.2fu\n", p.AvgCost, p.Shares, p.Units))
}

func writeTiers(b *strings.Builder, tiers []trigger.SellTier) {
	for _, t := range tiers {
		mark := ""
		if t.Reached {
			mark = " *"
		}
		b.WriteString(fmt.Sprintf("  T%d +%.1f%% -> %.2f x %d (%.0f%%)%s\n", t.Level, t.OffsetPct, t.Price, t.Shares, t.Weight*100, mark))
	}
}

func writeCurrency(b *strings.Builder, c *trigger.CurrencyView) {
	b.WriteString(fmt.Sprintf("Rate %.2f vs avg %.2f (%+.2f%%) %s\n", c.Rate, c.AvgCost, c.PnLPct, c.Zone))
	b.WriteString(fmt.Sprintf("Holding %d, value %.0f, P&L %.0f\n", c.Holding, c.ValueBase, c.PnLBase))
	writeTiers(b, c.Tiers)
}

func writeAdvice(b *strings.Builder, a gearbox.Advice) {
	b.WriteString(fmt.Sprintf("%s: buy %d sell %d [%s] %s\n", a.Model, a.BuyGear, a.SellGear, a.Status, a.Notes))
}
