// Copyright 2025 The Spotlight Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// spotlightscan verifies a scanned credential payload at an event gate

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/spotlight-events/spotlight-server/pkg/scan"
	"github.com/spotlight-events/spotlight-server/pkg/stor"
)

func init() {
	// Output to stdout instead of the default stderr
	log.SetOutput(os.Stdout)

	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp: true,
	})
}

func usage() {
	fmt.Println("Usage: spotlightscan [-dsn] [-verbose] -event <eventID> filepath")
	fmt.Println("The payload is read from the file, or from stdin if filepath is '-'.")
	flag.PrintDefaults()
}

func main() {

	// parse the command line
	dsn := flag.String("dsn", os.Getenv("SPOTLIGHT_DSN"), "database connection string; defaults to the SPOTLIGHT_DSN environment variable.")
	eventID := flag.String("event", "", "uuid of the event the gate is serving.")
	verbose := flag.Bool("verbose", false, "if set, display info messages; if not set, display only warnings and errors.")
	flag.Parse()

	// the verbose flag acts on the info level
	if !*verbose {
		log.SetLevel(log.WarnLevel)
	}

	if *eventID == "" || *dsn == "" {
		usage()
		os.Exit(1)
	}

	// read the payload
	filepath := flag.Arg(0)
	if filepath == "" {
		usage()
		os.Exit(1)
	}
	var payload []byte
	var err error
	if filepath == "-" {
		payload, err = io.ReadAll(os.Stdin)
	} else {
		payload, err = os.ReadFile(filepath)
	}
	if err != nil {
		log.Fatal("Error: ", err)
	}

	st, err := stor.Init(*dsn)
	if err != nil {
		log.Fatal("Database setup failed: ", err)
	}

	// run the staged verification and commit the scan
	gate := scan.NewGate(st)
	result, err := gate.Verify(payload, *eventID)
	if err != nil {
		log.Fatal("Error: ", err)
	}

	if result.Reason != "" {
		fmt.Printf("%s (%s)\n", result.Verdict, result.Reason)
	} else {
		fmt.Println(result.Verdict)
	}
	if !result.Granted() {
		os.Exit(1)
	}
}
