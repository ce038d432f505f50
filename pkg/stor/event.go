// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Event data model
// The sold and scanned counters are best-effort observability aggregates,
// updated additively; they are never used for access control decisions.
type Event struct {
	gorm.Model
	UUID      string    `json:"uuid" validate:"required,uuid" gorm:"type:varchar(100);uniqueIndex"`
	Name      string    `json:"name" validate:"required" gorm:"type:varchar(255)"`
	Owner     string    `json:"owner" validate:"required" gorm:"type:varchar(100);index"`
	ExpiresAt time.Time `json:"expires_at" validate:"required" gorm:"index"`
	Sold      int       `json:"sold"`
	Scanned   int       `json:"scanned"`
}

// Validate checks required fields and values
func (e *Event) Validate() error {

	validate := validator.New()
	return validate.Struct(e)
}

// Active reports whether the event is still running at the given
// instant; the expiry bound is exclusive.
func (e *Event) Active(now time.Time) bool {
	return e.ExpiresAt.After(now)
}

func (s eventStore) ListActive(now time.Time) (*[]Event, error) {
	events := []Event{}
	// security: limited to 500 results
	return &events, s.db.Limit(500).Where("expires_at > ?", now).Order("expires_at ASC").Find(&events).Error
}

func (s eventStore) ListByOwner(owner string) (*[]Event, error) {
	events := []Event{}
	return &events, s.db.Limit(500).Where("owner = ?", owner).Order("created_at DESC").Find(&events).Error
}

func (s eventStore) Count() (int64, error) {
	var count int64
	return count, s.db.Model(Event{}).Count(&count).Error
}

func (s eventStore) Get(uuid string) (*Event, error) {
	var event Event
	return &event, s.db.Where("uuid = ?", uuid).First(&event).Error
}

func (s eventStore) Create(newEvent *Event) error {
	return s.db.Create(newEvent).Error
}

func (s eventStore) IncrementCounters(uuid string, sold, scanned int) error {
	updates := map[string]interface{}{}
	if sold != 0 {
		updates["sold"] = gorm.Expr("sold + ?", sold)
	}
	if scanned != 0 {
		updates["scanned"] = gorm.Expr("scanned + ?", scanned)
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.Model(&Event{}).Where("uuid = ?", uuid).Updates(updates).Error
}

func (s eventStore) Delete(deletedEvent *Event) error {
	return s.db.Delete(deletedEvent).Error
}
