package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sortcraft.ai/internal/persistence/snapshot"
)

type Meta struct {
	Tick      uint64 `json:"tick"`
	Ruleset   string `json:"ruleset,omitempty"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	Sections  int    `json:"sections"`
	Stacks    int    `json:"stacks"`
}

// ArchiveSnapshot copies the snapshot a sort is about to replace into
// `dataDir/archives/tick_<NNNNNN>/` so the previous layout can be restored.
// An existing archive for the same tick is overwritten.
func ArchiveSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (string, error) {
	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("tick_%06d", snap.Header.Tick))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	meta := Meta{
		Tick:      snap.Header.Tick,
		Ruleset:   snap.Header.Ruleset,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Sections:  len(snap.Sections),
	}
	for _, sec := range snap.Sections {
		for _, st := range sec.Slots {
			if st.ID != "" && st.Count > 0 {
				meta.Stacks++
			}
		}
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

// List returns the archives under dataDir, newest tick first. Archives
// without a readable meta.json are skipped.
func List(dataDir string) ([]Meta, error) {
	dirs, err := filepath.Glob(filepath.Join(dataDir, "archives", "tick_*"))
	if err != nil {
		return nil, err
	}
	var out []Meta
	for _, d := range dirs {
		b, err := os.ReadFile(filepath.Join(d, "meta.json"))
		if err != nil {
			continue
		}
		var m Meta
		if json.Unmarshal(b, &m) != nil {
			continue
		}
		m.Snapshot = filepath.Join(d, m.Snapshot)
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick > out[j].Tick })
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
