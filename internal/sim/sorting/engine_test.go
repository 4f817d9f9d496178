package sorting

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"sortcraft.ai/internal/observe"
	"sortcraft.ai/internal/sim/catalogs"
	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/itemtree"
	"sortcraft.ai/internal/sim/rules"
)

const (
	diamondSword  = "minecraft:diamond_sword"
	ironSword     = "minecraft:iron_sword"
	ironPickaxe   = "minecraft:iron_pickaxe"
	ironHelmet    = "minecraft:iron_helmet"
	leatherHelmet = "minecraft:leather_helmet"
	stone         = "minecraft:stone"
	dirt          = "minecraft:dirt"
	apple         = "minecraft:apple"
)

const testTree = `{
  "root": {
    "name": "stuff",
    "children": [
      {"name": "equipment", "children": [
        {"name": "sword", "children": [
          {"name": "diamondSword", "id": "minecraft:diamond_sword"},
          {"name": "ironSword", "id": "minecraft:iron_sword"}
        ]},
        {"name": "pickaxe", "id": "minecraft:iron_pickaxe"},
        {"name": "armor", "children": [
          {"name": "ironHelmet", "id": "minecraft:iron_helmet"},
          {"name": "leatherHelmet", "id": "minecraft:leather_helmet"}
        ]}
      ]},
      {"name": "blocks", "children": [
        {"name": "stone", "id": "minecraft:stone"},
        {"name": "dirt", "id": "minecraft:dirt"}
      ]},
      {"name": "food", "children": [
        {"name": "apple", "id": "minecraft:apple"}
      ]}
    ]
  }
}`

func newTree(t *testing.T) *itemtree.Tree {
	t.Helper()
	tree, err := itemtree.Parse([]byte(testTree), nil)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	return tree
}

func newCatalog(t *testing.T) *catalogs.ItemCatalog {
	t.Helper()
	cat, err := catalogs.NewItemCatalog([]catalogs.ItemDef{
		{ID: diamondSword, MaxDamage: 1561},
		{ID: ironSword, MaxDamage: 250},
		{ID: ironPickaxe, MaxDamage: 250},
		{ID: ironHelmet, MaxDamage: 165, Armor: &catalogs.ArmorDef{Slot: "helmet", Level: 2}},
		{ID: leatherHelmet, MaxDamage: 55, Armor: &catalogs.ArmorDef{Slot: "helmet", Level: 1}},
		{ID: stone},
		{ID: dirt},
		{ID: apple},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func parseRules(t *testing.T, tree *itemtree.Tree, text string) *rules.Config {
	t.Helper()
	cfg, err := rules.Parse(strings.NewReader(text), tree, rules.InventoryGrid)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if bad := cfg.InvalidKeywords(); len(bad) > 0 {
		t.Fatalf("invalid keywords: %+v", bad)
	}
	return cfg
}

func item(id string, n int) container.Stack { return container.Stack{ID: id, Count: n} }

func newInventory(cat *catalogs.ItemCatalog, slots map[int]container.Stack) *container.Memory {
	mem := container.NewMemory(cat)
	inv := make([]container.Stack, rules.InventoryGrid.Size)
	for i, st := range slots {
		inv[i] = st
	}
	mem.SetSection(container.SectionInventory, inv)
	return mem
}

func newChest(cat *catalogs.ItemCatalog, size int, slots map[int]container.Stack) *container.Memory {
	mem := container.NewMemory(cat)
	chest := make([]container.Stack, size)
	for i, st := range slots {
		chest[i] = st
	}
	mem.SetSection(container.SectionChest, chest)
	return mem
}

func runSort(t *testing.T, mem *container.Memory, cfg *rules.Config, tree *itemtree.Tree, cat *catalogs.ItemCatalog,
	section container.Section, method Method, opts ...Option) Result {
	t.Helper()
	e, err := New(mem, cfg, tree, cat, section, method, 9, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := e.Sort(context.Background())
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	return res
}

func total(slots []container.Stack, id string) int {
	n := 0
	for _, st := range slots {
		if st.ID == id {
			n += st.Count
		}
	}
	return n
}

func TestSort_RowRuleMovesSwordAndKeepsFrozenSlot(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "ar sword\nb5 frozen\n")
	mem := newInventory(cat, map[int]container.Stack{
		0:  item(stone, 10),
		13: item(apple, 3),
		20: item(ironSword, 1),
	})

	res := runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	if res.Method != MethodInventory || !res.Converged {
		t.Fatalf("result=%+v", res)
	}
	inv := mem.Slots(container.SectionInventory)
	idx := slices.IndexFunc(inv, func(st container.Stack) bool { return st.ID == ironSword })
	if idx < 0 || idx > 8 {
		t.Fatalf("sword at %d, want row a", idx)
	}
	if !reflect.DeepEqual(inv[13], item(apple, 3)) {
		t.Fatalf("frozen b5 changed: %+v", inv[13])
	}
	for _, mv := range mem.Journal() {
		if mv.From == 13 || mv.To == 13 {
			t.Fatalf("move touched frozen slot: %+v", mv)
		}
	}
	if mem.Applies() != 1 || mem.Pending() != 0 {
		t.Fatalf("applies=%d pending=%d", mem.Applies(), mem.Pending())
	}
}

func TestSort_LockedSlotUnchanged(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "d1 locked\nd stone\n")
	mem := newInventory(cat, map[int]container.Stack{
		0:  item(stone, 10),
		27: item(ironSword, 1),
		30: item(dirt, 5),
	})

	runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	inv := mem.Slots(container.SectionInventory)
	if !reflect.DeepEqual(inv[27], item(ironSword, 1)) {
		t.Fatalf("locked d1 changed: %+v", inv[27])
	}
	if !reflect.DeepEqual(inv[28], item(stone, 10)) {
		t.Fatalf("stone should take the first unlocked slot of row d, got %+v", inv[28])
	}
	if !reflect.DeepEqual(inv[0], item(dirt, 5)) {
		t.Fatalf("dirt should be packed to slot 0, got %+v", inv[0])
	}
}

func TestSort_SlotRuleBeatsRectangle(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "a1-b9 stuff\na1 diamondSword\n")
	rs := cfg.Rules()
	if len(rs) != 2 || rs[0].Type() != rules.RuleSlot {
		t.Fatalf("rules=%v", rs)
	}
	mem := newInventory(cat, map[int]container.Stack{
		0:  item(stone, 5),
		20: item(diamondSword, 1),
	})

	runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	inv := mem.Slots(container.SectionInventory)
	if inv[0].ID != diamondSword {
		t.Fatalf("a1=%+v want diamond sword", inv[0])
	}
	if !reflect.DeepEqual(inv[1], item(stone, 5)) {
		t.Fatalf("a2=%+v want the displaced stone", inv[1])
	}
}

func TestSort_IdempotentAndStable(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "ar sword\nd blocks\n")
	mem := newInventory(cat, map[int]container.Stack{
		2:  item(ironPickaxe, 1),
		5:  item(stone, 10),
		17: item(apple, 3),
		20: item(ironSword, 1),
		33: item(dirt, 64),
	})

	runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	first := mem.Slots(container.SectionInventory)
	moves := len(mem.Journal())
	if moves == 0 {
		t.Fatalf("first sort made no moves")
	}
	if first[8].ID != ironSword || first[27].ID != stone || first[28].ID != dirt {
		t.Fatalf("unexpected layout: %+v", first)
	}

	res := runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	if got := len(mem.Journal()); got != moves {
		t.Fatalf("second sort journaled %d moves", got-moves)
	}
	if res.Moves != 0 {
		t.Fatalf("second sort moves=%d", res.Moves)
	}
	if !reflect.DeepEqual(first, mem.Slots(container.SectionInventory)) {
		t.Fatalf("layout changed on re-run")
	}
}

func TestSort_PutsHeldStackDown(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "")
	mem := newInventory(cat, map[int]container.Stack{0: item(stone, 10)})
	mem.SetHeld(item(apple, 3))

	res := runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	if res.Aborted {
		t.Fatalf("sort aborted")
	}
	if !mem.Held().Empty() {
		t.Fatalf("still holding %+v", mem.Held())
	}
	if got := total(mem.Slots(container.SectionInventory), apple); got != 3 {
		t.Fatalf("apples=%d want=3", got)
	}
}

func TestSort_AbortsWhenHeldStackHasNoRoom(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	slots := map[int]container.Stack{}
	for i := 0; i < rules.InventoryGrid.Size; i++ {
		slots[i] = item(stone, 64)
	}
	mem := newInventory(cat, slots)
	mem.SetHeld(item(apple, 1))

	res := runSort(t, mem, nil, tree, cat, container.SectionInventory, MethodDefault)
	if !res.Aborted {
		t.Fatalf("expected abort, got %+v", res)
	}
	if len(mem.Journal()) != 0 || !reflect.DeepEqual(mem.Held(), item(apple, 1)) {
		t.Fatalf("aborted sort changed state")
	}
}

func TestSort_EvenStacks(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newChest(cat, 27, map[int]container.Stack{
		0: item(stone, 40),
		5: item(stone, 10),
		9: item(stone, 14),
	})

	runSort(t, mem, nil, tree, cat, container.SectionChest, MethodEvenStacks)
	chest := mem.Slots(container.SectionChest)
	got := []int{chest[0].Count, chest[5].Count, chest[9].Count}
	slices.Sort(got)
	if !reflect.DeepEqual(got, []int{21, 21, 22}) {
		t.Fatalf("counts=%v want [21 21 22]", got)
	}
	if total(chest, stone) != 64 {
		t.Fatalf("total=%d want=64", total(chest, stone))
	}
}

func TestSort_EvenStacksKeepsRemainderInOneStack(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newChest(cat, 27, map[int]container.Stack{
		0: item(dirt, 10),
		1: item(dirt, 10),
		2: item(dirt, 11),
		3: item(dirt, 11),
		4: item(apple, 1),
		6: item(apple, 7),
	})

	runSort(t, mem, nil, tree, cat, container.SectionChest, MethodEvenStacks)
	chest := mem.Slots(container.SectionChest)
	var dirts, apples []int
	for _, st := range chest {
		switch st.ID {
		case dirt:
			dirts = append(dirts, st.Count)
		case apple:
			apples = append(apples, st.Count)
		}
	}
	slices.Sort(dirts)
	slices.Sort(apples)
	if !reflect.DeepEqual(dirts, []int{10, 10, 10, 12}) {
		t.Fatalf("dirt=%v", dirts)
	}
	if !reflect.DeepEqual(apples, []int{4, 4}) {
		t.Fatalf("apples=%v", apples)
	}
}

func TestSort_HorizontalLines(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	slots := map[int]container.Stack{0: item(stone, 5), 1: item(apple, 1), 2: item(apple, 1)}
	for i := 18; i < 27; i++ {
		slots[i] = item(stone, 5)
	}
	mem := newChest(cat, 27, slots)

	e, err := New(mem, nil, tree, cat, container.SectionChest, MethodHorizontal, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var constraints []string
	for _, r := range e.Rules() {
		constraints = append(constraints, r.Constraint())
	}
	if want := []string{"a1-b9", "c1-c9", "c1-a9"}; !reflect.DeepEqual(constraints, want) {
		t.Fatalf("constraints=%v want=%v", constraints, want)
	}
	if _, err := e.Sort(context.Background()); err != nil {
		t.Fatalf("Sort: %v", err)
	}

	chest := mem.Slots(container.SectionChest)
	for i, st := range chest {
		switch {
		case st.ID == stone && i >= 18:
			t.Fatalf("stone left in row c at %d", i)
		case st.ID == apple && i < 18:
			t.Fatalf("apple outside row c at %d", i)
		}
	}
	if total(chest, stone) != 50 || total(chest, apple) != 2 {
		t.Fatalf("counts changed: stone=%d apple=%d", total(chest, stone), total(chest, apple))
	}
}

func TestLineSortingRules_Vertical(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	slots := map[int]container.Stack{1: item(apple, 1), 2: item(apple, 1)}
	for i := 9; i < 19; i++ {
		slots[i] = item(stone, 1)
	}
	mem := newChest(cat, 27, slots)
	e, err := New(mem, nil, tree, cat, container.SectionChest, MethodVertical, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var constraints []string
	for _, r := range e.Rules() {
		constraints = append(constraints, r.Constraint())
	}
	if want := []string{"a1-c4v", "a5-c5v", "a9-c1v"}; !reflect.DeepEqual(constraints, want) {
		t.Fatalf("constraints=%v want=%v", constraints, want)
	}
}

func TestSort_InventoryEmptiesCraftingAndFillsLockedStacks(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	cfg := parseRules(t, tree, "d1 locked\n")
	mem := newInventory(cat, map[int]container.Stack{
		10: item(stone, 20),
		27: item(stone, 30),
	})
	mem.SetSection(container.SectionCraftingIn, []container.Stack{item(stone, 5), {}, {}, {}})

	runSort(t, mem, cfg, tree, cat, container.SectionInventory, MethodDefault)
	for _, st := range mem.Slots(container.SectionCraftingIn) {
		if !st.Empty() {
			t.Fatalf("crafting grid not emptied: %+v", st)
		}
	}
	inv := mem.Slots(container.SectionInventory)
	if !reflect.DeepEqual(inv[27], item(stone, 55)) {
		t.Fatalf("locked stack=%+v want 55 stone", inv[27])
	}
	for i, st := range inv {
		if i != 27 && !st.Empty() {
			t.Fatalf("slot %d not drained: %+v", i, st)
		}
	}
}

func TestSort_AutoEquipArmor(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newInventory(cat, map[int]container.Stack{5: {ID: ironHelmet, Damage: 10, Count: 1}})
	mem.SetSection(container.SectionArmor, []container.Stack{item(leatherHelmet, 1), {}, {}, {}})

	settings := DefaultSettings()
	settings.AutoEquipArmor = true
	runSort(t, mem, nil, tree, cat, container.SectionInventory, MethodDefault, WithSettings(settings))

	if got := mem.Stack(container.SectionArmor, 0); got.ID != ironHelmet {
		t.Fatalf("helmet slot=%+v", got)
	}
	if got := mem.Stack(container.SectionInventory, 0); got.ID != leatherHelmet {
		t.Fatalf("old helmet should be packed to slot 0, got %+v", got)
	}
}

func TestSort_ArmorLeftAloneWhenDisabled(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newInventory(cat, map[int]container.Stack{5: item(ironHelmet, 1)})
	mem.AddEmptySection(container.SectionArmor, 4)

	runSort(t, mem, nil, tree, cat, container.SectionInventory, MethodDefault)
	if got := mem.Stack(container.SectionArmor, 0); !got.Empty() {
		t.Fatalf("helmet equipped with auto-equip off: %+v", got)
	}
}

func TestCompareItems(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newChest(cat, 9, nil)
	e, err := New(mem, nil, tree, cat, container.SectionChest, MethodDefault, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fresh := container.Stack{ID: ironSword, Damage: 10, Count: 1}
	worn := container.Stack{ID: ironSword, Damage: 200, Count: 1}

	if got := e.compareItems(fresh, worn, -1, -1); got >= 0 {
		t.Fatalf("inverted damage: fresh vs worn=%d want <0", got)
	}
	e.settings.InvertToolDamage = false
	if got := e.compareItems(fresh, worn, -1, -1); got <= 0 {
		t.Fatalf("plain damage: fresh vs worn=%d want >0", got)
	}
	if got := e.compareItems(item(ironSword, 1), item(stone, 1), -1, -1); got >= 0 {
		t.Fatalf("tree order: sword vs stone=%d", got)
	}
	if got := e.compareItems(item(stone, 10), item(stone, 20), -1, -1); got <= 0 {
		t.Fatalf("bigger stacks first: got %d", got)
	}
	if got := e.compareItems(container.Stack{}, item(stone, 1), -1, -1); got <= 0 {
		t.Fatalf("empty should sort last: got %d", got)
	}
}

func TestNew_SectionUnavailable(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newInventory(cat, nil)
	_, err := New(mem, nil, tree, cat, container.SectionChest, MethodDefault, 9)
	if !errors.Is(err, container.ErrSectionUnavailable) {
		t.Fatalf("err=%v want ErrSectionUnavailable", err)
	}
}

func TestSort_EngineIsSingleUse(t *testing.T) {
	tree, cat := newTree(t), newCatalog(t)
	mem := newInventory(cat, nil)
	e, err := New(mem, nil, tree, cat, container.SectionInventory, MethodDefault, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Sort(context.Background()); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	if _, err := e.Sort(context.Background()); !errors.Is(err, ErrEngineUsed) {
		t.Fatalf("second Sort err=%v", err)
	}
}

func TestSort_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	tree, cat := newTree(t), newCatalog(t)
	mem := newInventory(cat, map[int]container.Stack{4: item(stone, 1)})
	runSort(t, mem, nil, tree, cat, container.SectionInventory, MethodDefault, WithMetrics(m))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var runs int64
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "sortcraft.sort.runs" {
				continue
			}
			for _, dp := range met.Data.(metricdata.Sum[int64]).DataPoints {
				runs += dp.Value
			}
		}
	}
	if runs != 1 {
		t.Fatalf("runs=%d want=1", runs)
	}
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"":            MethodDefault,
		"Even_Stacks": MethodEvenStacks,
		"horizontal":  MethodHorizontal,
		"vertical":    MethodVertical,
		"inventory":   MethodInventory,
	} {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Fatalf("ParseMethod(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseMethod("spiral"); err == nil {
		t.Fatalf("expected error")
	}
}
