// Package trait evaluates a library of point-scoring rules against position metrics
// and converts the points into buy and sell gear recommendations.
package trait

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// BlackSwanID is the manual toggle that forces the sell gear to 0.
const BlackSwanID = "black_swan"

// ErrMissingLibrary is returned when the trait file does not exist.
var ErrMissingLibrary = errors.New("trait library not found")

//go:embed default_traits.yaml
var defaultLibrary []byte

// DefaultLibrary returns the bundled trait library source.
func DefaultLibrary() []byte {
	out := make([]byte, len(defaultLibrary))
	copy(out, defaultLibrary)
	return out
}

// Trigger is the structured alternative to an auto_trigger expression.
type Trigger struct {
	Type      string  `json:"type" yaml:"type"` // threshold | range
	Metric    string  `json:"metric" yaml:"metric"`
	Condition string  `json:"condition,omitempty" yaml:"condition,omitempty"`
	Value     float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Min       float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Points is the nested point form.
type Points struct {
	Buy  float64 `json:"buy" yaml:"buy"`
	Sell float64 `json:"sell" yaml:"sell"`
}

// Trait is one rule. It is never mutated after Load.
type Trait struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Category       string   `json:"category" yaml:"category"`
	ExclusiveGroup string   `json:"exclusive_group,omitempty" yaml:"exclusive_group,omitempty"`
	Auto           bool     `json:"auto" yaml:"auto"`
	AutoTrigger    string   `json:"auto_trigger,omitempty" yaml:"auto_trigger,omitempty"`
	Trigger        *Trigger `json:"trigger,omitempty" yaml:"trigger,omitempty"`
	BuyPoints      float64  `json:"buy_points" yaml:"buy_points"`
	SellPoints     float64  `json:"sell_points" yaml:"sell_points"`
	Points         *Points  `json:"points,omitempty" yaml:"points,omitempty"`
	Icon           string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tier           string   `json:"tier,omitempty" yaml:"tier,omitempty"`

	pred *Predicate
}

// Condition returns the compiled auto trigger, nil for manual traits.
func (t *Trait) Condition() *Predicate { return t.pred }

// IsFX reports whether the trait targets the currency pseudo-position.
func (t *Trait) IsFX() bool { return t.Category == "fx" || t.ExclusiveGroup == "fx" }

// Group describes one exclusive group.
type Group struct {
	Label       string `json:"label" yaml:"label"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// SystemConfig holds the tunable constants. Absent values take the defaults.
type SystemConfig struct {
	PointToGearRatio *float64 `json:"point_to_gear_ratio,omitempty" yaml:"point_to_gear_ratio,omitempty"`
	BuyRatio         *float64 `json:"buy_ratio,omitempty" yaml:"buy_ratio,omitempty"`
	SellRatio        *float64 `json:"sell_ratio,omitempty" yaml:"sell_ratio,omitempty"`
	BaseBuyGear      *float64 `json:"base_buy_gear,omitempty" yaml:"base_buy_gear,omitempty"`
	BaseSellGear     *float64 `json:"base_sell_gear,omitempty" yaml:"base_sell_gear,omitempty"`
	GearMin          *float64 `json:"gear_min,omitempty" yaml:"gear_min,omitempty"`
	GearMax          *float64 `json:"gear_max,omitempty" yaml:"gear_max,omitempty"`
}

// File is the on-disk layout. Either traits or perks may carry the rule list.
type File struct {
	System          SystemConfig     `json:"system_config" yaml:"system_config"`
	ExclusiveGroups map[string]Group `json:"exclusive_groups,omitempty" yaml:"exclusive_groups,omitempty"`
	Traits          []*Trait         `json:"traits,omitempty" yaml:"traits,omitempty"`
	Perks           []*Trait         `json:"perks,omitempty" yaml:"perks,omitempty"`
}

// System is the resolved constant set.
type System struct {
	BuyRatio     float64
	SellRatio    float64
	BaseBuyGear  float64
	BaseSellGear float64
	GearMin      float64
	GearMax      float64
}

// Library is the loaded rule set partitioned into auto and manual traits.
type Library struct {
	System System
	Groups map[string]Group
	Traits []*Trait
	Auto   []*Trait
	Manual []*Trait
	byID   map[string]*Trait
}

// Load reads a library file, YAML first with a JSON fallback.
// A missing file is ErrMissingLibrary.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingLibrary, path)
		}
		return nil, fmt.Errorf("read trait library: %w", err)
	}
	return Parse(data)
}

// Parse builds a Library from YAML or JSON bytes.
func Parse(data []byte) (*Library, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		f = File{}
		if jerr := json.Unmarshal(data, &f); jerr != nil {
			return nil, fmt.Errorf("parse trait library (tried YAML and JSON): %w", err)
		}
	}
	return New(f)
}

// New validates f, compiles every trigger and partitions the traits.
func New(f File) (*Library, error) {
	traits := f.Traits
	if len(traits) == 0 {
		traits = f.Perks
	}

	lib := &Library{
		System: resolveSystem(f.System),
		Groups: f.ExclusiveGroups,
		byID:   make(map[string]*Trait, len(traits)),
	}
	if lib.System.GearMin > lib.System.GearMax {
		return nil, fmt.Errorf("gear_min %.1f above gear_max %.1f", lib.System.GearMin, lib.System.GearMax)
	}

	for i, t := range traits {
		if t == nil || t.ID == "" {
			return nil, fmt.Errorf("trait #%d: id is required", i+1)
		}
		if _, dup := lib.byID[t.ID]; dup {
			return nil, fmt.Errorf("trait %q: duplicate id", t.ID)
		}
		if t.Points != nil && t.BuyPoints == 0 && t.SellPoints == 0 {
			t.BuyPoints, t.SellPoints = t.Points.Buy, t.Points.Sell
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		if t.Auto {
			src := t.AutoTrigger
			if src == "" && t.Trigger != nil {
				var err error
				if src, err = t.Trigger.expression(); err != nil {
					return nil, fmt.Errorf("trait %q: %w", t.ID, err)
				}
			}
			if src != "" {
				pred, err := Compile(src)
				if err != nil {
					return nil, fmt.Errorf("trait %q: %w", t.ID, err)
				}
				t.pred = pred
			}
		}

		lib.byID[t.ID] = t
		lib.Traits = append(lib.Traits, t)
		if t.pred != nil {
			lib.Auto = append(lib.Auto, t)
		} else {
			lib.Manual = append(lib.Manual, t)
		}
	}
	return lib, nil
}

func (tr *Trigger) expression() (string, error) {
	if !IsMetric(tr.Metric) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, tr.Metric)
	}
	switch tr.Type {
	case "threshold":
		if !isComparison(tr.Condition) {
			return "", fmt.Errorf("%w: condition %q", ErrSyntax, tr.Condition)
		}
		return fmt.Sprintf("%s %s %g", tr.Metric, tr.Condition, tr.Value), nil
	case "range":
		return fmt.Sprintf("%g <= %s < %g", tr.Min, tr.Metric, tr.Max), nil
	default:
		return "", fmt.Errorf("%w: trigger type %q", ErrSyntax, tr.Type)
	}
}

func resolveSystem(c SystemConfig) System {
	ratio := valueOr(c.PointToGearRatio, 10)
	return System{
		BuyRatio:     valueOr(c.BuyRatio, ratio),
		SellRatio:    valueOr(c.SellRatio, ratio),
		BaseBuyGear:  valueOr(c.BaseBuyGear, 3),
		BaseSellGear: valueOr(c.BaseSellGear, 3),
		GearMin:      valueOr(c.GearMin, 1),
		GearMax:      valueOr(c.GearMax, 5),
	}
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Get returns the trait with the given id.
func (l *Library) Get(id string) (*Trait, bool) {
	t, ok := l.byID[id]
	return t, ok
}

// Categories groups traits by category, sorted by name.
func (l *Library) Categories() []Category {
	idx := map[string]int{}
	var out []Category
	for _, t := range l.Traits {
		i, ok := idx[t.Category]
		if !ok {
			i = len(out)
			idx[t.Category] = i
			out = append(out, Category{Name: t.Category})
		}
		out[i].Traits = append(out[i].Traits, t)
		if t.pred != nil {
			out[i].AutoCount++
		} else {
			out[i].ManualCount++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Category is a listing bucket for display.
type Category struct {
	Name        string
	Traits      []*Trait
	AutoCount   int
	ManualCount int
}
