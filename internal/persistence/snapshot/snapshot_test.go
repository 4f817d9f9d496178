package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sortcraft.ai/internal/sim/catalogs"
	"sortcraft.ai/internal/sim/container"
)

func testMemory(t *testing.T) (*container.Memory, *catalogs.ItemCatalog) {
	t.Helper()
	cat, err := catalogs.NewItemCatalog([]catalogs.ItemDef{
		{ID: "minecraft:stone"},
		{ID: "minecraft:iron_sword", MaxDamage: 250},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := container.NewMemory(cat)
	inv := make([]container.Stack, 36)
	inv[0] = container.Stack{ID: "minecraft:stone", Count: 12}
	inv[27] = container.Stack{ID: "minecraft:iron_sword", Count: 1, Damage: 40, Extra: map[string]any{"name": "Biter"}}
	mem.SetSection(container.SectionInventory, inv)
	mem.AddEmptySection(container.SectionArmor, 4)
	mem.SetHeld(container.Stack{ID: "minecraft:stone", Count: 3})
	return mem, cat
}

func checkRestored(t *testing.T, snap SnapshotV1, cat *catalogs.ItemCatalog) {
	t.Helper()
	if snap.Header.Version != Version || snap.Header.Tick != 42 || snap.Header.Ruleset != "mining" {
		t.Fatalf("header=%+v", snap.Header)
	}
	mem, err := snap.Restore(cat)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !mem.HasSection(container.SectionArmor) || mem.Size(container.SectionArmor) != 4 {
		t.Fatalf("armor section lost")
	}
	inv := mem.Slots(container.SectionInventory)
	if inv[0].Count != 12 || inv[27].Damage != 40 || inv[27].Extra["name"] != "Biter" || !inv[1].Empty() {
		t.Fatalf("inventory=%+v %+v", inv[0], inv[27])
	}
	if held := mem.Held(); held.ID != "minecraft:stone" || held.Count != 3 {
		t.Fatalf("held=%+v", held)
	}
}

func TestWriteRead_Compressed(t *testing.T) {
	mem, cat := testMemory(t)
	path := filepath.Join(t.TempDir(), "snapshots", "42.snap.zst")
	if err := WriteSnapshot(path, Capture(mem, 42, "mining")); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	h, err := ReadHeader(path)
	if err != nil || h.Tick != 42 {
		t.Fatalf("ReadHeader: %+v %v", h, err)
	}
	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	checkRestored(t, snap, cat)
}

func TestWriteRead_PlainJSON(t *testing.T) {
	mem, cat := testMemory(t)
	path := filepath.Join(t.TempDir(), "screen.json")
	if err := WriteSnapshot(path, Capture(mem, 42, "mining")); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	checkRestored(t, snap, cat)
}

func TestReadSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.json")
	if err := os.WriteFile(path, []byte(`{"header":{"version":7},"sections":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("err=%v", err)
	}
}

func TestRestore_BadSections(t *testing.T) {
	cat, _ := catalogs.NewItemCatalog(nil)
	snap := SnapshotV1{Header: Header{Version: Version}, Sections: []SectionV1{{Name: "hopper"}}}
	if _, err := snap.Restore(cat); err == nil {
		t.Fatalf("unknown section accepted")
	}
	snap.Sections = []SectionV1{{Name: "chest"}, {Name: "chest"}}
	if _, err := snap.Restore(cat); err == nil {
		t.Fatalf("duplicate section accepted")
	}
}
