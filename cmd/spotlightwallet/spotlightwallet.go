// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// spotlightwallet issues a ticket for a holder key and prints rotating
// credential payloads, one per rotation window

package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/spotlight-events/spotlight-server/pkg/issue"
	"github.com/spotlight-events/spotlight-server/pkg/stor"
	"github.com/spotlight-events/spotlight-server/pkg/ticket"
)

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
	})
}

func usage() {
	fmt.Println("Usage: spotlightwallet [-dsn] [-key] [-follow] -event <eventID>")
	flag.PrintDefaults()
}

func main() {

	// parse the command line
	dsn := flag.String("dsn", os.Getenv("SPOTLIGHT_DSN"), "database connection string; defaults to the SPOTLIGHT_DSN environment variable.")
	hexkey := flag.String("key", "", "hex-encoded holder private key; a random key is generated if not indicated.")
	eventID := flag.String("event", "", "uuid of the event to attend.")
	follow := flag.Bool("follow", false, "if set, keep printing a fresh payload at every rotation.")
	flag.Parse()

	if *eventID == "" || *dsn == "" {
		usage()
		os.Exit(1)
	}

	// load or generate the holder key
	var signer *ticket.KeySigner
	var err error
	if *hexkey != "" {
		signer, err = ticket.KeySignerFromHex(*hexkey)
	} else {
		signer, err = ticket.NewKeySigner()
	}
	if err != nil {
		log.Fatal("Error: ", err)
	}
	fmt.Println("Holder address:", signer.Address())

	st, err := stor.Init(*dsn)
	if err != nil {
		log.Fatal("Database setup failed: ", err)
	}

	session := issue.NewSession(st, signer, signer.Address())

	for {
		// the signature is requested once; only the window changes
		payload, err := session.Credential(*eventID)
		if err != nil {
			log.Fatal("Error: ", err)
		}
		fmt.Println(string(payload))

		if !*follow {
			break
		}
		time.Sleep(session.NextRotation())
	}
}
