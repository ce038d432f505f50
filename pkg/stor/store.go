// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// The stor package manages the storage of our entities.
package stor

import (
	"fmt"
	"os"
	"strings"
	"time"

	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type (

	// generic store
	dbStore struct {
		db *gorm.DB
	}

	// entity stores
	eventStore  dbStore
	ticketStore dbStore

	// Store interface, giving access to specialized interfaces
	Store interface {
		Event() EventRepository
		Ticket() TicketRepository
	}

	// EventRepository interface, defining event operations
	EventRepository interface {
		ListActive(now time.Time) (*[]Event, error)
		ListByOwner(owner string) (*[]Event, error)
		Count() (int64, error)
		Get(uuid string) (*Event, error)
		Create(e *Event) error
		// IncrementCounters adds the deltas to the sold and scanned
		// counters of the event; the update is additive, never absolute.
		IncrementCounters(uuid string, sold, scanned int) error
		Delete(e *Event) error
	}

	// TicketRepository interface, defining ticket operations
	TicketRepository interface {
		FindByAddress(address string) (*[]Ticket, error)
		FindByEventAndAddress(eventID, address string) (*Ticket, error)
		Count(eventID string) (int64, error)
		Get(uuid string) (*Ticket, error)
		Create(t *Ticket) error
		// Ensure creates a ticket with a caller-supplied id if it does
		// not exist yet, and returns the stored record either way.
		Ensure(uuid, eventID, address string) (*Ticket, error)
		// MarkScanned flips the scanned flag from false to true as a
		// single conditional update. It reports whether this call won
		// the transition; false means the ticket was already scanned
		// or is unknown.
		MarkScanned(uuid string) (bool, error)
	}
)

// implementation of the different repository interfaces
func (s *dbStore) Event() EventRepository {
	return (*eventStore)(s)
}

func (s *dbStore) Ticket() TicketRepository {
	return (*ticketStore)(s)
}

// Init initializes the database
func Init(dsn string) (Store, error) {
	var err error

	dialect, cnx := dbFromURI(dsn)
	if dialect == "error" {
		return nil, fmt.Errorf("incorrect database source name: %q", dsn)
	}

	// add parameters specific to the dialect
	cnx = addParamsDialectSpecific(cnx, dialect)

	// database logger
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level (Silent, Error, Warn, Info)
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,        // Enable color
		},
	)

	db, err := gorm.Open(GormDialector(cnx), &gorm.Config{
		Logger: newLogger,
		// duplicate key violations must surface as gorm.ErrDuplicatedKey;
		// the issuance flow relies on it
		TranslateError: true,
	})
	if err != nil {
		log.Printf("Failed connecting to the database: %v", err)
		return nil, err
	}

	err = performDialectSpecific(db, dialect)
	if err != nil {
		log.Printf("Failed performing dialect specific database init: %v", err)
		return nil, err
	}

	err = db.AutoMigrate(&Event{}, &Ticket{})
	if err != nil {
		log.Printf("Failed performing database automigrate: %v", err)
		return nil, err
	}

	stor := &dbStore{db: db}

	return stor, nil
}

// dbFromURI
func dbFromURI(uri string) (string, string) {
	parts := strings.Split(uri, "://")
	if len(parts) != 2 {
		return "error", ""
	}
	return parts[0], parts[1]
}

// addParamsDialectSpecific takes a connection string and adds parameters specific to the SQL dialect
func addParamsDialectSpecific(cnx, dialect string) string {
	switch dialect {
	case "sqlite3":
		cnx += "?cache=shared&mode=rwc"
	case "mysql":
		cnx += "?charset=utf8mb4&parseTime=True&loc=Local"
	case "postgres":
		cnx += "?sslmode=disable"
	default:
		log.Printf("Invalid dialect: %s", dialect)
	}
	return cnx
}

// performDialectSpecific
func performDialectSpecific(db *gorm.DB, dialect string) error {
	switch dialect {
	case "sqlite3":
		err := db.Exec("PRAGMA journal_mode = WAL").Error
		if err != nil {
			return err
		}
		err = db.Exec("PRAGMA foreign_keys = ON").Error
		if err != nil {
			return err
		}
		// sqlite supports a single writer; funnel concurrent gates
		// through one connection instead of surfacing busy errors
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	case "mysql":
		// nothing , so far
	case "postgres":
		// nothing , so far
	default:
		return fmt.Errorf("invalid dialect: %s", dialect)
	}
	return nil
}
