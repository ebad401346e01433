// Package engine runs one recompute pass over the book: deployment, triggers,
// trait evaluation and gearbox advice, all read from a single snapshot.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"Seesaw/internal/gear"
	"Seesaw/internal/gearbox"
	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/recorder"
	"Seesaw/internal/trait"
	"Seesaw/internal/trigger"
)

// TimestampLayout formats applied-change timestamps.
const TimestampLayout = "060102 15:04"

var (
	ErrUnknownPosition  = errors.New("unknown position")
	ErrCurrencyPosition = errors.New("currency position does not use trait recommendations")
)

// Config collects the engine-wide switches.
type Config struct {
	Portfolio        portfolio.Context
	Options          trigger.Options
	Advisor          string
	QuantizeAutoGear bool
}

// Engine is safe for concurrent use. Every pass reads one immutable book snapshot.
type Engine struct {
	book     *portfolio.Book
	lib      *trait.Library
	rec      recorder.Recorder
	opt      trigger.Options
	advisor  string
	quantize bool

	mu sync.RWMutex
	pc portfolio.Context

	now func() time.Time
}

// New wires an engine. rec may be nil.
func New(book *portfolio.Book, lib *trait.Library, rec recorder.Recorder, cfg Config) *Engine {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	advisor := cfg.Advisor
	if advisor == "" {
		advisor = gearbox.DefaultModel
	}
	return &Engine{
		book:     book,
		lib:      lib,
		rec:      rec,
		opt:      cfg.Options,
		advisor:  advisor,
		quantize: cfg.QuantizeAutoGear,
		pc:       cfg.Portfolio,
		now:      time.Now,
	}
}

// Book exposes the underlying position book.
func (e *Engine) Book() *portfolio.Book { return e.book }

// Library returns the loaded trait library.
func (e *Engine) Library() *trait.Library { return e.lib }

// Context returns the current portfolio context.
func (e *Engine) Context() portfolio.Context {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pc
}

// SetContext replaces the portfolio context, e.g. after an FX refresh.
func (e *Engine) SetContext(pc portfolio.Context) {
	e.mu.Lock()
	e.pc = pc
	e.mu.Unlock()
}

// View is everything computed for one position in a pass.
type View struct {
	Position       model.Position        `json:"position"`
	UnitsHeld      float64               `json:"units_held"`
	Deployment     portfolio.Deployment  `json:"deployment"`
	Buy            *trigger.Buy          `json:"buy,omitempty"`
	Rescue         *trigger.Rescue       `json:"rescue,omitempty"`
	Sell           *trigger.Sell         `json:"sell,omitempty"`
	Currency       *trigger.CurrencyView `json:"currency,omitempty"`
	AutoGear       float64               `json:"auto_gear"`
	Metrics        trait.Metrics         `json:"metrics"`
	Recommendation *model.Recommendation `json:"recommendation,omitempty"`
	Advice         gearbox.Advice        `json:"advice"`
	Traits         trait.Result          `json:"-"`
}

// State is the output of a full pass.
type State struct {
	PassID     string               `json:"pass_id"`
	Version    uint64               `json:"version"`
	At         time.Time            `json:"at"`
	Context    portfolio.Context    `json:"-"`
	Deployment portfolio.Deployment `json:"deployment"`
	Views      []View               `json:"views"`
}

// Get returns the view for name.
func (s *State) Get(name string) (*View, bool) {
	for i := range s.Views {
		if s.Views[i].Position.Name == name {
			return &s.Views[i], true
		}
	}
	return nil, false
}

// Recompute evaluates every position in the current snapshot and records the pass.
// toggles is keyed by position name and may be nil.
func (e *Engine) Recompute(toggles map[string]trait.Toggles) (*State, error) {
	snap := e.book.Snapshot()
	pc := e.Context()
	now := e.now()

	positions := snap.Positions()
	st := &State{
		PassID:     uuid.NewString(),
		Version:    snap.Version,
		At:         now,
		Context:    pc,
		Deployment: pc.Deploy(nil, positions),
		Views:      make([]View, 0, len(positions)),
	}
	for i := range positions {
		st.Views = append(st.Views, e.view(&positions[i], positions, pc, toggles[positions[i].Name], now))
	}

	if err := e.record(st); err != nil {
		log.Warn().Err(err).Str("pass", st.PassID).Msg("record pass failed")
	}
	return st, nil
}

// Show evaluates a single position against the current snapshot without recording.
func (e *Engine) Show(name string, toggles trait.Toggles) (*View, error) {
	snap := e.book.Snapshot()
	p, ok := snap.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPosition, name)
	}
	v := e.view(&p, snap.Positions(), e.Context(), toggles, e.now())
	return &v, nil
}

func (e *Engine) view(p *model.Position, all []model.Position, pc portfolio.Context, toggles trait.Toggles, now time.Time) View {
	dep := pc.Deploy(p, all)
	v := View{
		Position:   *p,
		UnitsHeld:  pc.UnitsHeld(p),
		Deployment: dep,
		AutoGear:   gear.Auto(p.TrendLocal, p.TrendGlobal, dep.Fraction, e.quantize),
		Metrics:    trait.ComputeMetrics(p, pc, dep, now),
		Advice:     gearbox.Advise(e.advisor, gearbox.InputFor(p, dep.Fraction, now)),
	}
	v.Traits = e.lib.Evaluate(v.Metrics, toggles)

	if p.IsCurrency() {
		cv := trigger.ComputeCurrency(p, pc)
		v.Currency = &cv
		return v
	}

	buy := trigger.ComputeBuy(p, pc, dep, e.opt)
	rescue := trigger.ComputeRescue(p, pc, dep, e.opt)
	sell := trigger.ComputeSell(p, e.opt)
	v.Buy, v.Rescue, v.Sell = &buy, &rescue, &sell
	rec := recommendation(p.Name, v.Traits)
	v.Recommendation = &rec
	return v
}

func recommendation(name string, r trait.Result) model.Recommendation {
	rec := model.Recommendation{
		Position:   name,
		BuyPoints:  r.BuyPoints,
		SellPoints: r.SellPoints,
		BuyShift:   r.BuyShift,
		SellShift:  r.SellShift,
		BuyGear:    r.BuyGear,
		SellGear:   r.SellGear,
		BlackSwan:  r.BlackSwan,
		Traits:     []string{},
	}
	for _, t := range r.Active() {
		rec.Traits = append(rec.Traits, t.ID)
	}
	for _, s := range r.Suppressed {
		rec.Suppressed = append(rec.Suppressed, s.Trait.ID)
	}
	return rec
}

func (e *Engine) record(st *State) error {
	events := make([]recorder.PositionEvent, 0, len(st.Views))
	for _, v := range st.Views {
		evt := recorder.PositionEvent{
			PassID:    st.PassID,
			Position:  v.Position.Name,
			UnitsHeld: v.UnitsHeld,
			BuyGear:   v.Position.BuyGear,
			SellGear:  v.Position.SellGear,
		}
		if v.Buy != nil {
			evt.BuyStatus, evt.BuyPrice = string(v.Buy.Status), v.Buy.Price
			evt.RescueStatus, evt.RescuePrice = string(v.Rescue.Status), v.Rescue.Price
			evt.SellStatus = string(v.Sell.Status)
		}
		if v.Recommendation != nil {
			evt.RecBuyGear, evt.RecSellGear = v.Recommendation.BuyGear, v.Recommendation.SellGear
		}
		events = append(events, evt)
	}
	return e.rec.RecordPass(&recorder.PassEvent{
		PassID:       st.PassID,
		Version:      st.Version,
		Positions:    len(st.Views),
		DeployedUnit: st.Deployment.Units,
		Capacity:     st.Context.CapacityUnits,
		Fraction:     st.Deployment.Fraction,
		At:           st.At,
	}, events)
}

// Recommend evaluates the trait engine for one regular position.
func (e *Engine) Recommend(name string, toggles trait.Toggles) (model.Recommendation, trait.Result, error) {
	v, err := e.Show(name, toggles)
	if err != nil {
		return model.Recommendation{}, trait.Result{}, err
	}
	if v.Position.IsCurrency() {
		return model.Recommendation{}, trait.Result{}, fmt.Errorf("%w: %s", ErrCurrencyPosition, name)
	}
	return *v.Recommendation, v.Traits, nil
}

// Apply moves the position's gears to base + shift and persists the change.
// When the targets equal the current gears only the bookkeeping is stored.
func (e *Engine) Apply(name string, toggles trait.Toggles) (model.AppliedChange, error) {
	rec, res, err := e.Recommend(name, toggles)
	if err != nil {
		return model.AppliedChange{}, err
	}
	sys := res.System
	change := model.AppliedChange{
		BuyPoints:  rec.BuyPoints,
		SellPoints: rec.SellPoints,
		BuyShift:   rec.BuyShift,
		SellShift:  rec.SellShift,
		BuyGear:    gear.Round1(gear.Clamp(sys.BaseBuyGear+rec.BuyShift, sys.GearMin, sys.GearMax)),
		SellGear:   gear.Round1(gear.Clamp(sys.BaseSellGear+rec.SellShift, sys.GearMin, sys.GearMax)),
		Timestamp:  e.now().Format(TimestampLayout),
	}
	if rec.BlackSwan {
		change.SellGear = rec.SellGear
	}

	err = e.update(name, func(p *model.Position) {
		if sameGear(p.BuyGear, change.BuyGear) && sameGear(p.SellGear, change.SellGear) {
			change.Action = "no_change"
		} else {
			change.Action = "applied"
			p.BuyGear, p.SellGear = change.BuyGear, change.SellGear
		}
		p.Applied = change
	})
	if err != nil {
		return model.AppliedChange{}, err
	}
	e.recordApply(name, change, rec.Traits)
	return change, nil
}

// Cancel resets the gears to the library's base gears.
func (e *Engine) Cancel(name string) (model.AppliedChange, error) {
	p, ok := e.book.Snapshot().Get(name)
	if !ok {
		return model.AppliedChange{}, fmt.Errorf("%w: %s", ErrUnknownPosition, name)
	}
	if p.IsCurrency() {
		return model.AppliedChange{}, fmt.Errorf("%w: %s", ErrCurrencyPosition, name)
	}

	sys := e.lib.System
	var change model.AppliedChange
	err := e.update(name, func(p *model.Position) {
		p.BuyGear = gear.Round1(sys.BaseBuyGear)
		p.SellGear = gear.Round1(sys.BaseSellGear)
		p.Applied.Action = "canceled"
		p.Applied.Timestamp = e.now().Format(TimestampLayout)
		change = p.Applied
		change.BuyGear, change.SellGear = p.BuyGear, p.SellGear
	})
	if err != nil {
		return model.AppliedChange{}, err
	}
	e.recordApply(name, change, nil)
	return change, nil
}

func (e *Engine) update(name string, fn func(p *model.Position)) error {
	_, err := e.book.Update(func(positions []model.Position) ([]model.Position, error) {
		for i := range positions {
			if positions[i].Name == name {
				fn(&positions[i])
				return positions, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownPosition, name)
	})
	return err
}

func (e *Engine) recordApply(name string, c model.AppliedChange, traits []string) {
	err := e.rec.RecordApply(&recorder.ApplyEvent{
		Position:   name,
		Action:     c.Action,
		BuyPoints:  c.BuyPoints,
		SellPoints: c.SellPoints,
		BuyGear:    c.BuyGear,
		SellGear:   c.SellGear,
		Traits:     strings.Join(traits, ","),
		At:         e.now(),
	})
	if err != nil {
		log.Warn().Err(err).Str("position", name).Msg("record apply failed")
		return
	}
	log.Info().Str("position", name).Str("action", c.Action).
		Float64("buy_gear", c.BuyGear).Float64("sell_gear", c.SellGear).Msg("gear change stored")
}

func sameGear(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}
