package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wafleet/wafleet/internal/store"
	"github.com/wafleet/wafleet/internal/workdir"
)

func main() {
	workdirFlag := flag.String("workdir", "", "working directory (default ~/.wafleet)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	dirs, err := workdir.Resolve(*workdirFlag)
	if err != nil {
		fatalf("resolve workdir: %v", err)
	}
	if _, err := os.Stat(dirs.StorePath()); err != nil {
		fatalf("no store at %s: has the daemon run yet?", dirs.StorePath())
	}
	db, err := store.Open(dirs.StorePath())
	if err != nil {
		fatalf("open store: %v", err)
	}
	defer func() { _ = db.Close() }()

	switch args[0] {
	case "sessions":
		cmdSessions(db, *jsonFlag)
	case "chats":
		if len(args) < 2 {
			fatalf("usage: wafleetctl chats <session>")
		}
		cmdChats(db, args[1], *jsonFlag)
	case "messages":
		if len(args) < 3 {
			fatalf("usage: wafleetctl messages <session> <chat-jid>")
		}
		cmdMessages(db, args[1], args[2], *jsonFlag)
	case "runs":
		if len(args) < 2 {
			fatalf("usage: wafleetctl runs <session>")
		}
		cmdRuns(db, args[1], *jsonFlag)
	case "run":
		if len(args) < 2 {
			fatalf("usage: wafleetctl run <run-id>")
		}
		cmdRunItems(db, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: wafleetctl [--workdir <dir>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  sessions                     List stored sessions")
	fmt.Fprintln(os.Stderr, "  chats <session>              List a session's group chats")
	fmt.Fprintln(os.Stderr, "  messages <session> <chat>    List a chat's recent messages")
	fmt.Fprintln(os.Stderr, "  runs <session>               List a session's bulk runs")
	fmt.Fprintln(os.Stderr, "  run <run-id>                 Show a bulk run's per-target results")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func cmdSessions(db *store.DB, jsonOut bool) {
	sessions, err := db.ListSessions()
	if err != nil {
		fatalf("list sessions: %v", err)
	}
	if jsonOut {
		outputJSON(sessions)
		return
	}
	for _, s := range sessions {
		fmt.Printf("%-24s %-16s created %s\n", s.ID, s.PhoneNumber,
			time.UnixMilli(s.CreatedAt).Format(time.RFC3339))
	}
}

func cmdChats(db *store.DB, sessionID string, jsonOut bool) {
	chats, err := db.ListChats(sessionID, true, 200, 0)
	if err != nil {
		fatalf("list chats: %v", err)
	}
	if jsonOut {
		outputJSON(chats)
		return
	}
	for _, c := range chats {
		last := "-"
		if c.LastMsgAt > 0 {
			last = time.UnixMilli(c.LastMsgAt).Format(time.RFC3339)
		}
		fmt.Printf("%-40s %-32s last %s\n", c.JID, c.Name, last)
	}
}

func cmdMessages(db *store.DB, sessionID, chatJID string, jsonOut bool) {
	msgs, err := db.ListMessages(sessionID, chatJID, 0, 50)
	if err != nil {
		fatalf("list messages: %v", err)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	for _, m := range msgs {
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderJID
		}
		fmt.Printf("%s  %-24s %s\n",
			time.UnixMilli(m.Timestamp).Format(time.RFC3339), sender, m.Body)
	}
}

func cmdRuns(db *store.DB, sessionID string, jsonOut bool) {
	runs, err := db.ListBulkRuns(sessionID, 50)
	if err != nil {
		fatalf("list runs: %v", err)
	}
	if jsonOut {
		outputJSON(runs)
		return
	}
	for _, r := range runs {
		fmt.Printf("%s  %-6s %d/%d ok  %s\n", r.ID, r.Kind, r.Succeeded, r.Total,
			time.UnixMilli(r.CreatedAt).Format(time.RFC3339))
	}
}

func cmdRunItems(db *store.DB, runID string, jsonOut bool) {
	items, err := db.ListBulkItems(runID)
	if err != nil {
		fatalf("list run items: %v", err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	for _, it := range items {
		mark := "ok"
		if !it.Success {
			mark = "FAIL " + it.Error
		}
		fmt.Printf("%3d  %-40s %s\n", it.Position, it.Target, mark)
	}
}
