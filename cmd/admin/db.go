package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bombarena.dev/internal/persistence/indexdb"
	"bombarena.dev/internal/persistence/snapshot"
)

func openIndex(dataDir, dbPath string) *indexdb.SQLiteIndex {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dataDir, "index", "matches.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return idx
}

func matchesCmd(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/matches.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	idx := openIndex(*dataDir, *dbPath)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := idx.RecentMatches(ctx, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(rows)
}

func ticksCmd(args []string) {
	fs := flag.NewFlagSet("ticks", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional; defaults to <data>/index/matches.sqlite)")
	sessionID := fs.String("session", "", "session id (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*sessionID) == "" {
		fmt.Fprintln(os.Stderr, "missing -session")
		os.Exit(2)
	}

	idx := openIndex(*dataDir, *dbPath)
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rows, err := idx.SessionTicks(ctx, *sessionID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	printJSON(rows)
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessionID := fs.String("session", "", "session id (required unless -path)")
	path := fs.String("path", "", "snapshot path (optional)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		if strings.TrimSpace(*sessionID) == "" {
			fmt.Fprintln(os.Stderr, "missing -session or -path")
			os.Exit(2)
		}
		p = snapshot.Path(filepath.Join(*dataDir, "matches"), *sessionID)
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(snap)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
