package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"sortcraft.ai/internal/sim/container"
)

const Version = 1

var ErrVersion = errors.New("snapshot: unsupported version")

type Header struct {
	Version int    `json:"version"`
	Tick    uint64 `json:"tick"`
	// Ruleset names the ruleset that was active when the snapshot was taken.
	Ruleset string `json:"ruleset,omitempty"`
}

// SnapshotV1 is a container screen: every section plus the cursor stack.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Sections []SectionV1 `json:"sections"`
	Held     *StackV1    `json:"held,omitempty"`
}

type SectionV1 struct {
	Name  string    `json:"name"`
	Slots []StackV1 `json:"slots"`
}

// StackV1 is one slot; an empty slot is the zero value.
type StackV1 struct {
	ID     string         `json:"id,omitempty"`
	Count  int            `json:"count,omitempty"`
	Damage int            `json:"damage,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func stackV1(st container.Stack) StackV1 {
	if st.Empty() {
		return StackV1{}
	}
	return StackV1{ID: st.ID, Count: st.Count, Damage: st.Damage, Extra: st.Extra}
}

func (s StackV1) stack() container.Stack {
	if s.ID == "" || s.Count <= 0 {
		return container.Stack{}
	}
	return container.Stack{ID: s.ID, Count: s.Count, Damage: s.Damage, Extra: s.Extra}
}

// Capture copies the state of mem.
func Capture(mem *container.Memory, tick uint64, ruleset string) SnapshotV1 {
	snap := SnapshotV1{Header: Header{Version: Version, Tick: tick, Ruleset: ruleset}}
	for _, s := range mem.Sections() {
		slots := mem.Slots(s)
		sec := SectionV1{Name: s.String(), Slots: make([]StackV1, len(slots))}
		for i, st := range slots {
			sec.Slots[i] = stackV1(st)
		}
		snap.Sections = append(snap.Sections, sec)
	}
	if held := mem.Held(); !held.Empty() {
		h := stackV1(held)
		snap.Held = &h
	}
	return snap
}

// Restore builds a Memory manager holding the snapshot's contents.
func (snap SnapshotV1) Restore(p container.Policy) (*container.Memory, error) {
	mem := container.NewMemory(p)
	seen := map[container.Section]bool{}
	for _, sec := range snap.Sections {
		s, err := container.ParseSection(sec.Name)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if seen[s] {
			return nil, fmt.Errorf("snapshot: duplicate section %q", sec.Name)
		}
		seen[s] = true
		slots := make([]container.Stack, len(sec.Slots))
		for i, st := range sec.Slots {
			slots[i] = st.stack()
		}
		mem.SetSection(s, slots)
	}
	if snap.Held != nil {
		mem.SetHeld(snap.Held.stack())
	}
	return mem, nil
}

func isPlainJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// WriteSnapshot writes indented JSON when path ends in ".json", otherwise a
// zstd stream of a header line followed by the JSON body.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if snap.Header.Version == 0 {
		snap.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if isPlainJSON(path) {
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(b, '\n'), 0o644)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	if isPlainJSON(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return snap, err
		}
		if err := json.Unmarshal(raw, &snap); err != nil {
			return snap, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		return snap, checkVersion(snap.Header)
	}

	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := checkVersion(h); err != nil {
		return snap, err
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("json decode: %w", err)
	}
	return snap, nil
}

// ReadHeader returns only the header of a compressed snapshot.
func ReadHeader(path string) (Header, error) {
	if isPlainJSON(path) {
		snap, err := ReadSnapshot(path)
		return snap.Header, err
	}
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func checkVersion(h Header) error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return nil
}
