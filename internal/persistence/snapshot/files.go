package snapshot

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const fileSuffix = ".snap.zst"

// Path is where the snapshot for tick lives under a world directory.
func Path(worldDir string, tick uint64) string {
	return filepath.Join(worldDir, "snapshots", strconv.FormatUint(tick, 10)+fileSuffix)
}

// Latest returns the highest-tick snapshot under <worldDir>/snapshots, or ""
// when there is none. Files not named <tick>.snap.zst are ignored.
func Latest(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best, found := uint64(0), ""
	for _, e := range ents {
		stem, ok := strings.CutSuffix(e.Name(), fileSuffix)
		if e.IsDir() || !ok {
			continue
		}
		tick, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		if found == "" || tick > best {
			best, found = tick, filepath.Join(dir, e.Name())
		}
	}
	return found
}
