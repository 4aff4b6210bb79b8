package progress

import (
	"context"
	"math"
	"sync"

	"github.com/stemyke/node-backend-sub000/ecode"
)

// SubProgress maps its own [0, max] onto [from, from+value] of a parent.
// It is not persisted; saving advances the parent.
type SubProgress struct {
	parent Tracker
	from   float64
	value  float64

	mu      sync.Mutex
	current float64
	max     float64
}

// NewSubProgress creates a view over [progressFrom, progressFrom+progressValue]
// of parent with its own max of at least 1.
func NewSubProgress(parent Tracker, progressFrom, progressValue, max float64) (*SubProgress, error) {
	if math.IsNaN(progressFrom) || math.IsInf(progressFrom, 0) || progressFrom < 0 {
		return nil, ecode.New(ecode.InvalidArgument, ecode.FieldIsInvalid("progressFrom"))
	}
	if err := validatePositive("progressValue", progressValue); err != nil {
		return nil, err
	}
	if math.IsNaN(max) || max < 1 {
		max = 1
	}
	return &SubProgress{parent: parent, from: progressFrom, value: progressValue, max: max}, nil
}

func createSubProgress(ctx context.Context, t Tracker, progressValue, max float64, message string) (*SubProgress, error) {
	if max <= 0 && progressValue > 0 {
		if err := t.Advance(ctx, progressValue); err != nil {
			return nil, err
		}
	}
	if message != "" {
		if err := t.SetMessage(ctx, message); err != nil {
			return nil, err
		}
	}
	return NewSubProgress(t, t.Current(), progressValue, max)
}

// ID returns the id of the persisted root.
func (s *SubProgress) ID() string {
	return s.parent.ID()
}

// Current returns the child's completed amount.
func (s *SubProgress) Current() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Max returns the child's total amount.
func (s *SubProgress) Max() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// From returns the start of the parent slice.
func (s *SubProgress) From() float64 { return s.from }

// Value returns the width of the parent slice.
func (s *SubProgress) Value() float64 { return s.value }

// SetMax replaces the child's max and saves.
func (s *SubProgress) SetMax(ctx context.Context, max float64) error {
	if err := validatePositive("max", max); err != nil {
		return err
	}
	s.mu.Lock()
	s.max = max
	s.current = math.Min(s.current, max)
	s.mu.Unlock()
	return s.Save(ctx)
}

// SetMessage sets the parent's message.
func (s *SubProgress) SetMessage(ctx context.Context, message string) error {
	return s.parent.SetMessage(ctx, message)
}

// SetError records a failure on the parent.
func (s *SubProgress) SetError(ctx context.Context, message string) error {
	return s.parent.SetError(ctx, message)
}

// Advance adds value to the child's current, capped at its max, and saves.
func (s *SubProgress) Advance(ctx context.Context, value float64) error {
	if err := validatePositive("value", value); err != nil {
		return err
	}
	s.mu.Lock()
	s.current = math.Min(s.max, s.current+value)
	s.mu.Unlock()
	return s.Save(ctx)
}

// Save moves the parent to from+round(value*current/max) when that is past
// the parent's current value. It never moves the parent backward.
func (s *SubProgress) Save(ctx context.Context) error {
	target := s.Target()
	cur := s.parent.Current()
	if target <= cur {
		return nil
	}
	return s.parent.Advance(ctx, target-cur)
}

// Target is the absolute parent value the child currently maps to.
func (s *SubProgress) Target() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ratio := 0.0
	if s.max > 0 {
		ratio = s.current / s.max
	}
	return s.from + math.Round(s.value*ratio)
}

// CreateSubProgress nests a view inside this one.
func (s *SubProgress) CreateSubProgress(ctx context.Context, progressValue, max float64, message string) (*SubProgress, error) {
	return createSubProgress(ctx, s, progressValue, max, message)
}
