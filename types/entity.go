// Package types provides common value types used across Oracle.
package types

import "time"

// Entity is the base type for stored entities with timestamps.
// Embed this in your domain types to get automatic timestamp handling.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull,default:current_timestamp"`
}

// NewEntity creates a new Entity with current timestamps.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// Period is a half-open time range [Start, End). Billing periods and
// reconciliation windows are expressed as Periods.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewPeriod builds a Period from its bounds, normalized to UTC.
func NewPeriod(start, end time.Time) Period {
	return Period{Start: start.UTC(), End: end.UTC()}
}

// IsZero returns true when both bounds are unset.
func (p Period) IsZero() bool { return p.Start.IsZero() && p.End.IsZero() }

// Valid returns true when Start is strictly before End.
func (p Period) Valid() bool { return p.Start.Before(p.End) }

// Contains reports whether t falls within [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Duration returns End minus Start.
func (p Period) Duration() time.Duration { return p.End.Sub(p.Start) }

// Equal reports whether two periods have identical bounds.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}
