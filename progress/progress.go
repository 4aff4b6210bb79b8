// Package progress tracks fractional completion of background work in
// persisted records, with sub-progress views that map nested work onto a
// slice of a parent's range.
package progress

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/stemyke/node-backend-sub000/data/collection"
	"github.com/stemyke/node-backend-sub000/ecode"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
	"github.com/stemyke/node-backend-sub000/notify"
)

// DefaultMax is the max of records created without one.
const DefaultMax = 100

// Tracker is what generation jobs report progress through.
type Tracker interface {
	ID() string
	Current() float64
	Max() float64
	SetMax(ctx context.Context, max float64) error
	SetMessage(ctx context.Context, message string) error
	SetError(ctx context.Context, message string) error
	Advance(ctx context.Context, value float64) error
	CreateSubProgress(ctx context.Context, progressValue, max float64, message string) (*SubProgress, error)
}

// Record is the persisted state of a progress.
type Record struct {
	ID        string    `bson:"_id" json:"id"`
	Current   float64   `bson:"current" json:"current"`
	Max       float64   `bson:"max" json:"max"`
	Message   string    `bson:"message" json:"message"`
	Error     string    `bson:"error" json:"error"`
	Canceled  bool      `bson:"canceled" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"-"`
	UpdatedAt time.Time `bson:"updatedAt" json:"-"`
}

// Percent is round(current/max*100), or 0 without a positive max.
func (r Record) Percent() int {
	if r.Max <= 0 {
		return 0
	}
	return int(math.Round(r.Current / r.Max * 100))
}

// Remaining is max-current, or 0 without a positive max.
func (r Record) Remaining() float64 {
	if r.Max <= 0 {
		return 0
	}
	return r.Max - r.Current
}

// IsTerminal reports whether waiters can stop polling.
func (r Record) IsTerminal() bool {
	return r.Percent() == 100 || r.Error != "" || r.Canceled
}

// Progress is a persisted progress record bound to its collection.
type Progress struct {
	mu       sync.Mutex
	rec      Record
	coll     collection.Collection
	notifier notify.Notifier
}

func newProgress(rec Record, coll collection.Collection, notifier notify.Notifier) *Progress {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Progress{rec: rec, coll: coll, notifier: notifier}
}

// ID returns the record id.
func (p *Progress) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rec.ID
}

// Current returns the completed amount.
func (p *Progress) Current() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rec.Current
}

// Max returns the total amount.
func (p *Progress) Max() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rec.Max
}

// Record returns a snapshot of the state.
func (p *Progress) Record() Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rec
}

// Percent see Record.Percent.
func (p *Progress) Percent() int { return p.Record().Percent() }

// Remaining see Record.Remaining.
func (p *Progress) Remaining() float64 { return p.Record().Remaining() }

// IsTerminal see Record.IsTerminal.
func (p *Progress) IsTerminal() bool { return p.Record().IsTerminal() }

// SetMax replaces max. current is capped at the new max.
func (p *Progress) SetMax(ctx context.Context, max float64) error {
	if err := validatePositive("max", max); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.rec
	next.Max = max
	next.Current = math.Min(next.Current, max)
	return p.saveLocked(ctx, next)
}

// SetMessage persists a status message.
func (p *Progress) SetMessage(ctx context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.rec
	next.Message = message
	return p.saveLocked(ctx, next)
}

// SetError records a failure. current and max stay as they are.
func (p *Progress) SetError(ctx context.Context, message string) error {
	p.mu.Lock()
	next := p.rec
	next.Error = message
	err := p.saveLocked(ctx, next)
	id := p.rec.ID
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.notifier.ProgressChanged(ctx, id)
	return nil
}

// Advance adds value to current, capped at max, and emits a change event.
func (p *Progress) Advance(ctx context.Context, value float64) error {
	if err := validatePositive("value", value); err != nil {
		return err
	}
	p.mu.Lock()
	next := p.rec
	next.Current = math.Min(next.Max, next.Current+value)
	err := p.saveLocked(ctx, next)
	id := p.rec.ID
	p.mu.Unlock()
	if err != nil {
		return err
	}
	metrics.RecordProgressAdvance()
	p.notifier.ProgressChanged(ctx, id)
	return nil
}

// CreateSubProgress returns a view over [current, current+progressValue].
// Without a positive max the slice is first advanced on p, so the child
// starts past the reserved part.
func (p *Progress) CreateSubProgress(ctx context.Context, progressValue, max float64, message string) (*SubProgress, error) {
	return createSubProgress(ctx, p, progressValue, max, message)
}

// MarshalJSON encodes {id, current, max, message, error}.
func (p *Progress) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Record())
}

func (p *Progress) saveLocked(ctx context.Context, next Record) error {
	next.UpdatedAt = time.Now().UTC()
	n, err := p.coll.UpdateOne(ctx, collection.ByID(next.ID), bson.M{"$set": bson.M{
		"current":   next.Current,
		"max":       next.Max,
		"message":   next.Message,
		"error":     next.Error,
		"updatedAt": next.UpdatedAt,
	}}, false)
	if err != nil {
		logger.Error(ctx, "failed to save progress", "progress_id", next.ID, "error", err)
		return ecode.Wrap(ecode.ServerErr, err, ecode.Failed("save progress"))
	}
	if n == 0 {
		return ecode.New(ecode.NotFound, ecode.NotExist("progress "+next.ID))
	}
	p.rec = next
	return nil
}

func validatePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ecode.New(ecode.InvalidArgument, ecode.FieldIsInvalid(name))
	}
	if v <= 0 {
		return ecode.New(ecode.InvalidArgument, ecode.FieldNotPositive(name))
	}
	return nil
}
