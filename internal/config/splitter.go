package config

import (
	"encoding/json"
	"fmt"

	"github.com/sawpanic/mlt/internal/cv"
)

// Splitter kinds
const (
	KindPurgedWalkForward   = "purged_walk_forward"
	KindCombinatorialPurged = "combinatorial_purged"
	KindPredictionWindow    = "prediction_window"
)

// SplitterConfig selects a splitter by Kind; only the matching section is read
type SplitterConfig struct {
	Kind          string                      `yaml:"kind" json:"kind" validate:"required,oneof=purged_walk_forward combinatorial_purged prediction_window"`
	WalkForward   *cv.PurgedWalkForwardConfig `yaml:"walk_forward,omitempty" json:"walk_forward,omitempty"`
	Combinatorial *cv.CombinatorialConfig     `yaml:"combinatorial,omitempty" json:"combinatorial,omitempty"`
	Window        *cv.WindowConfig            `yaml:"window,omitempty" json:"window,omitempty"`
}

// DefaultWalkForward returns a purged walk-forward section with the library defaults
func DefaultWalkForward() SplitterConfig {
	wf := cv.DefaultPurgedWalkForwardConfig()
	return SplitterConfig{Kind: KindPurgedWalkForward, WalkForward: &wf}
}

// Build constructs the configured splitter
func (s SplitterConfig) Build() (cv.Splitter, error) {
	switch s.Kind {
	case KindPurgedWalkForward:
		if s.WalkForward == nil {
			return nil, fmt.Errorf("kind %s requires a walk_forward section", s.Kind)
		}
		wf, err := cv.NewPurgedWalkForward(*s.WalkForward)
		if err != nil {
			return nil, err
		}
		return wf, nil
	case KindCombinatorialPurged:
		if s.Combinatorial == nil {
			return nil, fmt.Errorf("kind %s requires a combinatorial section", s.Kind)
		}
		cp, err := cv.NewCombinatorialPurged(*s.Combinatorial)
		if err != nil {
			return nil, err
		}
		return cp, nil
	case KindPredictionWindow:
		wm, err := s.WindowManager()
		if err != nil {
			return nil, err
		}
		return wm, nil
	default:
		return nil, fmt.Errorf("unknown splitter kind %q", s.Kind)
	}
}

// WindowManager constructs the prediction window schedule
func (s SplitterConfig) WindowManager() (*cv.PredictionWindowManager, error) {
	if s.Kind != KindPredictionWindow || s.Window == nil {
		return nil, fmt.Errorf("kind %s requires a window section", KindPredictionWindow)
	}
	return cv.NewPredictionWindowManager(*s.Window)
}

// TimeColumns lists the dataset time columns the splitter reads
func (s SplitterConfig) TimeColumns() []string {
	switch {
	case s.Kind == KindPurgedWalkForward && s.WalkForward != nil:
		return []string{s.WalkForward.PredTimeColumn, s.WalkForward.EvalTimeColumn}
	case s.Kind == KindCombinatorialPurged && s.Combinatorial != nil:
		return []string{s.Combinatorial.PredTimeColumn, s.Combinatorial.EvalTimeColumn}
	case s.Kind == KindPredictionWindow && s.Window != nil:
		return []string{s.Window.TimeColumn}
	}
	return nil
}

// Fingerprint is a stable encoding of the section, used in schedule cache keys
func (s SplitterConfig) Fingerprint() string {
	b, err := json.Marshal(s)
	if err != nil {
		return s.Kind
	}
	return string(b)
}
