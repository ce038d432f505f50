// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

package stor

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Ticket data model
// The UUID doubles as the token id embedded in credentials. The address
// is stored in its canonical lowercase form. The composite unique index
// on (event_id, address) guarantees a single ticket per holder and event,
// even if two create calls race.
type Ticket struct {
	gorm.Model
	UUID        string    `json:"uuid" validate:"required,uuid" gorm:"type:varchar(100);uniqueIndex"`
	EventID     string    `json:"event_id" validate:"required,uuid" gorm:"type:varchar(100);uniqueIndex:idx_ticket_event_address"`
	Address     string    `json:"address" validate:"required" gorm:"type:varchar(100);uniqueIndex:idx_ticket_event_address;index"`
	PurchasedAt time.Time `json:"purchased_at"`
	Scanned     bool      `json:"scanned"`
}

// Validate checks required fields and values
func (t *Ticket) Validate() error {

	validate := validator.New()
	return validate.Struct(t)
}

func (s ticketStore) FindByAddress(address string) (*[]Ticket, error) {
	tickets := []Ticket{}
	// security: limited to 500 results
	return &tickets, s.db.Limit(500).Where("address = ?", address).Order("id ASC").Find(&tickets).Error
}

func (s ticketStore) FindByEventAndAddress(eventID, address string) (*Ticket, error) {
	var ticket Ticket
	return &ticket, s.db.Where("event_id = ? AND address = ?", eventID, address).First(&ticket).Error
}

func (s ticketStore) Count(eventID string) (int64, error) {
	var count int64
	return count, s.db.Model(Ticket{}).Where("event_id = ?", eventID).Count(&count).Error
}

func (s ticketStore) Get(uuid string) (*Ticket, error) {
	var ticket Ticket
	return &ticket, s.db.Where("uuid = ?", uuid).First(&ticket).Error
}

func (s ticketStore) Create(newTicket *Ticket) error {
	return s.db.Create(newTicket).Error
}

func (s ticketStore) Ensure(uuid, eventID, address string) (*Ticket, error) {
	ticket, err := s.Get(uuid)
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newTicket := &Ticket{
		UUID:        uuid,
		EventID:     eventID,
		Address:     address,
		PurchasedAt: time.Now(),
		Scanned:     false,
	}
	err = s.db.Create(newTicket).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another gate materialized it first
		return s.Get(uuid)
	}
	if err != nil {
		return nil, err
	}
	return newTicket, nil
}

// MarkScanned is the one-time-use commit point. The conditional update is
// atomic at the database level: under concurrent scans of the same ticket,
// exactly one caller gets true.
func (s ticketStore) MarkScanned(uuid string) (bool, error) {
	res := s.db.Model(&Ticket{}).Where("uuid = ? AND scanned = ?", uuid, false).Update("scanned", true)
	return res.RowsAffected == 1, res.Error
}
