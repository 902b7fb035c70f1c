package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beltgrid.ai/internal/persistence/indexdb"
)

type dbQuery struct {
	Name    string
	Tick    uint64
	From    uint64
	Limit   int
	Session string
	Kind    string
	At      string
}

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	var q dbQuery
	fs.Uint64Var(&q.Tick, "tick", 0, "snapshot tick for cells (optional; defaults to latest)")
	fs.Uint64Var(&q.From, "from", 0, "first tick for ticks")
	fs.IntVar(&q.Limit, "limit", 20, "result limit")
	fs.StringVar(&q.Session, "session", "", "session_id filter (commands)")
	fs.StringVar(&q.Kind, "kind", "", "machine kind filter (cells)")
	fs.StringVar(&q.At, "at", "", "x,y filter (commands)")
	_ = fs.Parse(args)

	q.Name = "snapshots"
	if fs.NArg() > 0 {
		q.Name = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	r, err := indexdb.OpenReader(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runDB(ctx, r, q, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
}

// runDB answers one index query as JSON lines.
func runDB(ctx context.Context, r *indexdb.Reader, q dbQuery, out io.Writer) error {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	var rows any
	var err error
	switch q.Name {
	case "snapshots":
		rows, err = r.Snapshots(ctx, q.Limit)
	case "ticks":
		rows, err = r.Ticks(ctx, q.From, q.Limit)
	case "commands":
		if q.At != "" {
			var x, y int
			if _, perr := fmt.Sscanf(q.At, "%d,%d", &x, &y); perr != nil {
				return fmt.Errorf("bad -at %q: want x,y", q.At)
			}
			rows, err = r.CommandsAt(ctx, x, y)
		} else {
			rows, err = r.Commands(ctx, q.Session, q.Limit)
		}
	case "cells":
		tick := q.Tick
		if tick == 0 {
			latest, ok, lerr := r.LatestSnapshot(ctx)
			if lerr != nil {
				return lerr
			}
			if !ok {
				return fmt.Errorf("no snapshots found")
			}
			tick = latest.Tick
		}
		rows, err = r.SnapshotCells(ctx, tick, q.Kind)
	case "catalogs":
		rows, err = r.Catalogs(ctx)
	default:
		return fmt.Errorf("unknown query %q (snapshots|ticks|commands|cells|catalogs)", q.Name)
	}
	if err != nil {
		return err
	}
	return writeRows(out, rows)
}

func writeRows(out io.Writer, rows any) error {
	enc := json.NewEncoder(out)
	switch rs := rows.(type) {
	case []indexdb.SnapshotRow:
		for _, r := range rs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	case []indexdb.TickRow:
		for _, r := range rs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	case []indexdb.CommandRow:
		for _, r := range rs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	case []indexdb.SnapshotCellRow:
		for _, r := range rs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	case []indexdb.CatalogRow:
		for _, r := range rs {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	default:
		return enc.Encode(rows)
	}
	return nil
}
