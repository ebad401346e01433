package portfolio

import (
	"encoding/json"
	"os"
	"time"

	"Seesaw/internal/model"
)

// State holds the refreshed market-wide values that outlive a process.
type State struct {
	FX          model.FXQuote `json:"fx"`
	FXAvgRate   float64       `json:"fx_avg_rate"`
	LastRefresh time.Time     `json:"last_refresh"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Apply overlays the persisted values on ctx.
func (s *State) Apply(ctx Context) Context {
	if s.FX.Rate > 0 {
		ctx.FXRate = s.FX.Rate
	}
	if s.FXAvgRate > 0 {
		ctx.FXAvgRate = s.FXAvgRate
	}
	return ctx
}

// LoadState reads the state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SaveState writes the state to a JSON file.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0644)
}
