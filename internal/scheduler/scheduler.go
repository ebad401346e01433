package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"Seesaw/internal/collector"
	"Seesaw/internal/engine"
	"Seesaw/internal/metrics"
	"Seesaw/internal/model"
	"Seesaw/internal/notifier"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/trigger"
)

// Scheduler runs the refresh job and turns trigger transitions into alerts.
type Scheduler struct {
	Cron      *cron.Cron
	Engine    *engine.Engine
	Collector *collector.Collector
	Notifier  notifier.Notifier
	StatePath string // FX state file, empty to skip
	Ctx       context.Context

	mu     sync.Mutex // serializes refresh passes
	status map[string]trigger.Status

	latestMu sync.RWMutex
	latest   *engine.State
}

// NewScheduler creates a new Scheduler. n may be nil.
func NewScheduler(ctx context.Context, eng *engine.Engine, col *collector.Collector, n notifier.Notifier, statePath string) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Engine:    eng,
		Collector: col,
		Notifier:  n,
		StatePath: statePath,
		Ctx:       ctx,
		status:    map[string]trigger.Status{},
	}
}

// Register adds the refresh job.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// Latest returns the last computed pass, nil before the first one.
func (s *Scheduler) Latest() *engine.State {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *Scheduler) refreshTask() {
	if _, err := s.Refresh(s.Ctx); err != nil {
		log.Error().Err(err).Msg("scheduled refresh failed")
	}
}

// Refresh fetches market data, stores it in the book, recomputes and sends alerts.
func (s *Scheduler) Refresh(ctx context.Context) (*engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.Collector.Refresh(ctx, s.Engine.Book().Snapshot().Positions())
	metrics.ObserveRefresh(len(res.Updated), len(res.Failed))

	if len(res.Updated) > 0 {
		if err := s.storeSnapshots(res); err != nil {
			return nil, err
		}
	}
	if res.FX != nil {
		s.storeFX(*res.FX)
	}

	st, err := s.Engine.Recompute(nil)
	if err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}
	metrics.ObservePass(st)
	s.alert(ctx, st)

	s.latestMu.Lock()
	s.latest = st
	s.latestMu.Unlock()
	return st, nil
}

// storeSnapshots merges refreshed snapshots by name so gear changes made while
// the fetch was running are kept.
func (s *Scheduler) storeSnapshots(res collector.Result) error {
	fresh := make(map[string]model.Snapshot, len(res.Updated))
	for _, p := range res.Positions {
		fresh[p.Name] = p.Snapshot
	}
	updated := make(map[string]bool, len(res.Updated))
	for _, name := range res.Updated {
		updated[name] = true
	}
	_, err := s.Engine.Book().Update(func(positions []model.Position) ([]model.Position, error) {
		for i := range positions {
			if updated[positions[i].Name] {
				positions[i].Snapshot = fresh[positions[i].Name]
			}
		}
		return positions, nil
	})
	if err != nil {
		return fmt.Errorf("store snapshots: %w", err)
	}
	return nil
}

func (s *Scheduler) storeFX(q model.FXQuote) {
	pc := s.Engine.Context()
	pc.FXRate = q.Rate
	s.Engine.SetContext(pc)

	if s.StatePath == "" {
		return
	}
	state := &portfolio.State{FX: q, FXAvgRate: pc.FXAvgRate, LastRefresh: time.Now()}
	if err := portfolio.SaveState(s.StatePath, state); err != nil {
		log.Warn().Err(err).Str("path", s.StatePath).Msg("save state failed")
	}
}

// alert notifies each trigger that turned ACTIVE since the previous pass.
func (s *Scheduler) alert(ctx context.Context, st *engine.State) {
	for _, v := range st.Views {
		if v.Buy == nil {
			continue
		}
		name := v.Position.Name
		s.transition(ctx, name, string(v.Buy.Mode), v.Buy.Status, v.Buy.Price, v.Buy.Shares)
		s.transition(ctx, name, "RESCUE", v.Rescue.Status, v.Rescue.Price, v.Rescue.Shares)
		for _, t := range v.Sell.Tiers {
			status := trigger.StatusWatching
			if t.Reached {
				status = trigger.StatusActive
			}
			s.transition(ctx, name, fmt.Sprintf("SELL T%d", t.Level), status, t.Price, t.Shares)
		}
	}
}

func (s *Scheduler) transition(ctx context.Context, name, kind string, status trigger.Status, price float64, shares int64) {
	key := name + "/" + kind
	prev := s.status[key]
	s.status[key] = status
	if status != trigger.StatusActive || prev == trigger.StatusActive {
		return
	}
	log.Info().Str("position", name).Str("trigger", kind).Float64("price", price).Msg("trigger active")
	if err := s.Notifier.SendWithRetry(ctx, notifier.FormatAlert(name, kind, price, shares), 3); err != nil {
		log.Error().Err(err).Msg("send alert failed")
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "/status":
		st, err := s.Engine.Recompute(nil)
		if err != nil {
			return "error: " + err.Error()
		}
		return notifier.FormatOverview(st)
	case "/refresh":
		st, err := s.Refresh(s.Ctx)
		if err != nil {
			return "error: " + err.Error()
		}
		return notifier.FormatOverview(st)
	case "/show":
		v, err := s.Engine.Show(arg, nil)
		if err != nil {
			return "error: " + err.Error()
		}
		return notifier.FormatView(v)
	case "/recommend":
		rec, res, err := s.Engine.Recommend(arg, nil)
		if err != nil {
			return "error: " + err.Error()
		}
		return notifier.FormatRecommendation(rec, res)
	case "/apply", "/cancel":
		var (
			c   model.AppliedChange
			err error
		)
		if fields[0] == "/apply" {
			c, err = s.Engine.Apply(arg, nil)
		} else {
			c, err = s.Engine.Cancel(arg)
		}
		if err != nil {
			return "error: " + err.Error()
		}
		metrics.ObserveGearChange(c.Action)
		return notifier.FormatChange(arg, c)
	default:
		return "Commands:\n/status\n/refresh\n/show <name>\n/recommend <name>\n/apply <name>\n/cancel <name>"
	}
}
