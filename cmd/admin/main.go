package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	persistlog "beltgrid.ai/internal/persistence/log"
	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/world"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "ticks":
			ticksCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used to find the latest snapshot)")
	cells := fs.Bool("cells", false, "print every cell as JSON")
	_ = fs.Parse(args)

	path := strings.TrimSpace(fs.Arg(0))
	if path == "" && *worldID != "" {
		path = snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID))
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: admin inspect [-cells] <snapshot.snap.zst> | -world <id>")
		os.Exit(2)
	}
	if err := inspectSnapshot(path, *cells, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "inspect:", err)
		os.Exit(1)
	}
}

// inspectSnapshot prints a summary of one snapshot file: header, parameters
// and machine counts per kind.
func inspectSnapshot(path string, withCells bool, out io.Writer) error {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "snapshot v%d world=%s tick=%d tick_rate=%d boundary_r=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.TickRate, snap.BoundaryR)
	fmt.Fprintf(out, "recipes=%s items=%s\n", snap.RecipesDigest, snap.ItemsDigest)

	kinds := map[string]int{}
	items := 0
	for _, c := range snap.Cells {
		kinds[c.Kind]++
		for _, q := range c.Input {
			items += len(q.Items)
		}
		for _, q := range c.Output {
			items += len(q.Items)
		}
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Fprintf(out, "cells=%d ground=%d items=%d\n", len(snap.Cells), len(snap.Ground), items)
	for _, k := range names {
		fmt.Fprintf(out, "  %-10s %d\n", k, kinds[k])
	}
	if !withCells {
		return nil
	}
	enc := json.NewEncoder(out)
	for _, c := range snap.Cells {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return nil
}

func ticksCmd(args []string) {
	fs := flag.NewFlagSet("ticks", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required)")
	from := fs.Uint64("from", 0, "first tick (inclusive)")
	to := fs.Uint64("to", 0, "last tick (inclusive, optional)")
	onlyCmds := fs.Bool("commands", false, "only ticks that carried commands")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	dir := filepath.Join(*dataDir, "worlds", *worldID, "ticks")
	if err := dumpTicks(dir, *from, *to, *onlyCmds, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ticks:", err)
		os.Exit(1)
	}
}

// dumpTicks writes the tick log entries in [from, to] as JSON lines.
func dumpTicks(dir string, from, to uint64, onlyCmds bool, out io.Writer) error {
	files, err := persistlog.TickFiles(dir)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, path := range files {
		err := persistlog.ReadTicks(path, func(e world.TickLogEntry) error {
			if e.Tick < from || (to != 0 && e.Tick > to) {
				return nil
			}
			if onlyCmds && len(e.Commands) == 0 {
				return nil
			}
			return enc.Encode(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
