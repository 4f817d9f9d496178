package itemtree

import "testing"

const testTree = `{
  "tree_version": "1.12.0",
  "root": {
    "name": "stuff",
    "children": [
      {"name": "equipment", "children": [
        {"name": "sword", "children": [
          {"name": "diamondSword", "id": "minecraft:diamond_sword"},
          {"name": "ironSword", "id": "minecraft:iron_sword"}
        ]},
        {"name": "pickaxe", "id": "minecraft:iron_pickaxe"}
      ]},
      {"name": "blocks", "children": [
        {"name": "stone", "id": "minecraft:stone", "damage": 0},
        {"name": "granite", "id": "minecraft:stone", "damage": 1},
        {"name": "wool", "range": {"id": "minecraft:wool", "dmin": 0, "dmax": 2}}
      ]},
      {"name": "enchantedBook", "id": "minecraft:enchanted_book", "data": {"ench": "sharpness"}},
      {"name": "ironIngot", "alias": "ingotIron"}
    ]
  }
}`

type aliasTable map[string][]AliasEntry

func (a aliasTable) AliasEntries(alias string) []AliasEntry { return a[alias] }

func mustParse(t *testing.T, src AliasSource) *Tree {
	t.Helper()
	tree, err := Parse([]byte(testTree), src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return tree
}

func TestParse_BuildsCategoriesAndOrders(t *testing.T) {
	tree := mustParse(t, nil)
	if tree.Version() != "1.12.0" {
		t.Fatalf("version=%q", tree.Version())
	}
	if tree.RootName() != "stuff" {
		t.Fatalf("root=%q", tree.RootName())
	}
	if !tree.IsKeywordValid("sword") || !tree.IsKeywordValid("diamondSword") {
		t.Fatalf("expected sword and diamondsword to be valid keywords")
	}
	if tree.IsKeywordValid("spoon") {
		t.Fatalf("spoon should not be a keyword")
	}
	if o := tree.KeywordOrder("diamondsword"); o != 1 {
		t.Fatalf("order(diamondsword)=%d want=1", o)
	}
	// category order is the min of its items, else first child with one
	if o := tree.KeywordOrder("equipment"); o != 3 {
		t.Fatalf("order(equipment)=%d want=3", o)
	}
	if o := tree.KeywordOrder("sword"); o != 1 {
		t.Fatalf("order(sword)=%d want=1", o)
	}
	if o := tree.KeywordOrder("nothing"); o != -1 {
		t.Fatalf("order(nothing)=%d want=-1", o)
	}
}

func TestParse_DamageRangeExpands(t *testing.T) {
	tree := mustParse(t, nil)
	for d, name := range []string{"woolminecraft:wool-0", "woolminecraft:wool-1", "woolminecraft:wool-2"} {
		items := tree.ItemsByName(name)
		if len(items) != 1 || items[0].Damage != d {
			t.Fatalf("range item %s: %+v", name, items)
		}
	}
	if !tree.Matches(tree.Items("minecraft:wool", 1, nil), "wool") {
		t.Fatalf("wool:1 should match category wool")
	}
}

func TestParse_RejectsInvalidDocument(t *testing.T) {
	if _, err := Parse([]byte(`{"root": {"children": []}}`), nil); err == nil {
		t.Fatalf("expected schema error for nameless root")
	}
	if _, err := Parse([]byte(`{"root": {"name": "x", "range": {"id": "a", "dmin": 3, "dmax": 1}}}`), nil); err == nil {
		t.Fatalf("expected error for inverted damage range")
	}
}

func TestMatches(t *testing.T) {
	tree := mustParse(t, nil)
	sword := tree.Items("minecraft:diamond_sword", 0, nil)
	if !tree.Matches(sword, "diamondsword") {
		t.Fatalf("item name should match")
	}
	if !tree.Matches(sword, "sword") || !tree.Matches(sword, "equipment") {
		t.Fatalf("enclosing categories should match")
	}
	if tree.Matches(sword, "blocks") {
		t.Fatalf("unrelated category should not match")
	}
	if !tree.Matches(sword, "stuff") {
		t.Fatalf("root should match everything")
	}
	if tree.Matches(nil, "stuff") {
		t.Fatalf("nil items never match")
	}
	if tree.Matches([]*Item{}, "stuff") {
		t.Fatalf("empty items never match, not even the root")
	}
}

func TestItems_NoExtraSkipsExtraFilter(t *testing.T) {
	tree := mustParse(t, nil)
	highest := tree.HighestOrder()

	got := tree.Items("minecraft:enchanted_book", 0, nil)
	if len(got) != 1 || got[0].Name != "enchantedbook" {
		t.Fatalf("book without extra = %+v", got)
	}
	if !tree.Matches(got, "enchantedbook") {
		t.Fatalf("book without extra should match its own entry")
	}
	if tree.HighestOrder() != highest {
		t.Fatalf("nothing should be synthesized, highest order %d -> %d", highest, tree.HighestOrder())
	}
}

func TestItems_FiltersDamageAndExtra(t *testing.T) {
	tree := mustParse(t, nil)

	granite := tree.Items("minecraft:stone", 1, nil)
	if len(granite) != 1 || granite[0].Name != "granite" {
		t.Fatalf("stone:1 = %+v", granite)
	}

	book := tree.Items("minecraft:enchanted_book", 0, map[string]any{"ench": "sharpness", "level": 3.0})
	if len(book) != 1 || book[0].Name != "enchantedbook" {
		t.Fatalf("book with superset extra = %+v", book)
	}
	other := tree.Items("minecraft:enchanted_book", 0, map[string]any{"ench": "smite"})
	if len(other) != 2 || other[0].Name != "minecraft:enchanted_book-0" {
		t.Fatalf("book with other extra should be synthesized, got %+v", other)
	}
}

func TestItems_SynthesizesUnknownAfterKnownOrders(t *testing.T) {
	tree := mustParse(t, nil)
	highest := tree.HighestOrder()

	got := tree.Items("mod:widget", 4, nil)
	if len(got) != 2 {
		t.Fatalf("len=%d want=2", len(got))
	}
	if got[0].Name != "mod:widget-4" || got[0].Damage != 4 {
		t.Fatalf("specific entry = %+v", got[0])
	}
	if got[1].Name != "mod:widget" || got[1].Damage != WildcardDamage {
		t.Fatalf("wildcard entry = %+v", got[1])
	}
	if got[0].Order <= highest {
		t.Fatalf("synthesized order %d should be after %d", got[0].Order, highest)
	}
	if tree.IsItemUnknown("mod:widget") {
		t.Fatalf("widget should be known after lookup")
	}

	// other damage values resolve to the wildcard entry now
	again := tree.Items("mod:widget", 7, nil)
	if len(again) != 1 || again[0].Damage != WildcardDamage {
		t.Fatalf("second lookup = %+v", again)
	}
	if tree.KeywordDepth("mod:widget") != 1 {
		t.Fatalf("synthesized entries live directly in the root")
	}
}

func TestKeywordDepth(t *testing.T) {
	tree := mustParse(t, nil)
	cases := map[string]int{
		"stuff":         0,
		"equipment":     1,
		"enchantedbook": 1,
		"sword":         2,
		"pickaxe":       2,
		"diamondsword":  3,
		"missing":       -1,
	}
	for kw, want := range cases {
		if got := tree.KeywordDepth(kw); got != want {
			t.Fatalf("depth(%s)=%d want=%d", kw, got, want)
		}
	}

	var empty Tree
	if got := empty.KeywordDepth("stuff"); got != 0 {
		t.Fatalf("rootless depth=%d want=0", got)
	}
}

func TestItems_PanicsWithoutRoot(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrNoRoot {
			t.Fatalf("recover=%v want=%v", r, ErrNoRoot)
		}
	}()
	var empty Tree
	empty.Items("minecraft:stone", 0, nil)
}

func TestAliases_RegisterNowAndLater(t *testing.T) {
	src := aliasTable{"ingotIron": {{ID: "minecraft:iron_ingot", Damage: 0}}}
	tree := mustParse(t, src)

	if !tree.Matches(tree.Items("minecraft:iron_ingot", 0, nil), "ironingot") {
		t.Fatalf("alias entry known at load should match")
	}
	if !tree.IsItemUnknown("othermod:iron_ingot") {
		t.Fatalf("othermod ingot should start unknown")
	}
	tree.AliasRegistered("ingotIron", AliasEntry{ID: "othermod:iron_ingot", Damage: 2})
	items := tree.Items("othermod:iron_ingot", 2, nil)
	if !tree.Matches(items, "ironingot") {
		t.Fatalf("late alias entry should match, got %+v", items)
	}
	tree.AliasRegistered("ingotCopper", AliasEntry{ID: "othermod:copper_ingot"})
	if !tree.IsItemUnknown("othermod:copper_ingot") {
		t.Fatalf("unregistered alias should not extend the tree")
	}
}

func TestItemMatches_WildcardIsAsymmetric(t *testing.T) {
	wild := &Item{ID: "a", Damage: WildcardDamage}
	exact := &Item{ID: "a", Damage: 3}
	if !wild.Matches(exact) {
		t.Fatalf("wildcard should cover damage 3")
	}
	if exact.Matches(wild) {
		t.Fatalf("exact entry should not cover the wildcard")
	}
}

func TestAddItem_UnknownParent(t *testing.T) {
	tree := New("root")
	if _, err := tree.AddItem("nope", Item{Name: "x", ID: "x"}); err == nil {
		t.Fatalf("expected error for unknown parent")
	}
	if _, err := tree.AddCategory("nope", "x"); err == nil {
		t.Fatalf("expected error for unknown parent")
	}
}
