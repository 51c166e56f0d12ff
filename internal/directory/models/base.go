// Package models defines the directory's domain entities: accounts and
// clients, companies with their addresses, equipment grouped by category,
// reviews, and the join entity linking companies to equipment.
//
// The same structs are persisted through GORM, so storage constraints
// (foreign keys, cascades, unique and check constraints) live in the gorm
// tags next to the validation tags enforced by the validation package.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. Entities never read the wall clock
// directly; services pass the clock's time into Init and Touch.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reports the current UTC time.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// FixedClock always reports t. Useful for deterministic tests.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Base carries the identifier and timestamps shared by every entity except
// the company/equipment join row.
type Base struct {
	// ID is a random UUID assigned at construction and never changed.
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	// Created is when the entity was first built.
	Created time.Time `gorm:"not null" json:"created" validate:"notfuture"`
	// Modified is refreshed on every validated update.
	Modified time.Time `gorm:"not null" json:"modified" validate:"notfuture"`
}

// Init assigns a fresh ID and default timestamps to whichever of them is
// still zero. Explicit values are kept so they can be validated.
func (b *Base) Init(now time.Time) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Created.IsZero() {
		b.Created = now
	}
	if b.Modified.IsZero() {
		b.Modified = now
	}
}

// Touch records a modification at now.
func (b *Base) Touch(now time.Time) {
	b.Modified = now
}

// All lists every persisted model, parents first.
func All() []interface{} {
	return []interface{}{
		&Account{},
		&Client{},
		&Address{},
		&Category{},
		&Company{},
		&Equipment{},
		&CompanyEquipment{},
		&Review{},
	}
}

// nullKeys reports which top-level keys of a JSON object are an explicit
// null.
func nullKeys(data []byte) (map[string]bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	nulls := make(map[string]bool, len(fields))
	for key, raw := range fields {
		if string(raw) == "null" {
			nulls[key] = true
		}
	}
	return nulls, nil
}
