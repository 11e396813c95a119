package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "bombarena.dev/internal/persistence/log"
	"bombarena.dev/internal/sim/session"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "matches":
			matchesCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		case "rooms":
			roomsCmd(os.Args[2:])
			return
		case "logs":
			logsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin matches|ticks|rooms|logs|snapshot [flags]")
	os.Exit(2)
}

// logsCmd lists tick log files and, with -sessions, the sessions in each.
func logsCmd(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessions := fs.Bool("sessions", false, "also list the sessions recorded in each file")
	_ = fs.Parse(args)

	files, err := persistlog.ListFiles(persistlog.TickDir(*dataDir))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	for _, path := range files {
		if !*sessions {
			fmt.Println(filepath.Base(path))
			continue
		}
		entries, err := persistlog.ReadEntries(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			continue
		}
		fmt.Printf("%s\t%s\n", filepath.Base(path), strings.Join(summarizeSessions(entries), " "))
	}
}

// summarizeSessions renders "<session>:<ticks>" per session in log order.
func summarizeSessions(entries []session.TickLogEntry) []string {
	counts := map[string]int{}
	var order []string
	for _, e := range entries {
		if _, ok := counts[e.Session]; !ok {
			order = append(order, e.Session)
			counts[e.Session] = 0
		}
		if e.Kind == session.EntryTick {
			counts[e.Session]++
		}
	}
	out := make([]string, 0, len(order))
	for _, id := range order {
		out = append(out, fmt.Sprintf("%s:%d", id, counts[id]))
	}
	return out
}
