package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "bombarena.dev/internal/persistence/log"
	"bombarena.dev/internal/sim/session"
	"bombarena.dev/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory (reads <data>/ticks)")
		tickDir    = flag.String("ticks", "", "tick log dir containing ticks-*.jsonl.zst (default: <data>/ticks)")
		sessionID  = flag.String("session", "", "replay only this session (default: every session in the log)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning the sessions were played with")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}

	dir := strings.TrimSpace(*tickDir)
	if dir == "" {
		dir = persistlog.TickDir(*dataDir)
	}
	files, err := persistlog.ListFiles(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list tick logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no tick log files found in", dir)
		os.Exit(1)
	}

	var entries []session.TickLogEntry
	for _, path := range files {
		es, err := persistlog.ReadEntries(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
		entries = append(entries, es...)
	}

	ids := sessionOrder(entries)
	if *sessionID != "" {
		ids = []string{*sessionID}
	}

	failed := 0
	for _, id := range ids {
		res, err := replaySession(tune, persistlog.SessionEntries(entries, id))
		if err != nil {
			failed++
			fmt.Printf("session %s: FAIL after %d ticks: %v\n", id, res.Checked, err)
			continue
		}
		fmt.Printf("session %s: ok seed=%d ticks=%d status=%s\n", id, res.Seed, res.Checked, res.Status)
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "replay failed for %d of %d sessions\n", failed, len(ids))
		os.Exit(1)
	}
	fmt.Printf("replay ok: %d sessions\n", len(ids))
}
