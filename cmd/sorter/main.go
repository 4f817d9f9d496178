package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var o options
	flag.StringVar(&o.ConfigDir, "configs", "./configs", "config directory (item_tree.json, items.json, rules.txt, tuning.yaml)")
	flag.StringVar(&o.DataDir, "data", "./data", "runtime data directory (journal, index, archives)")
	flag.StringVar(&o.In, "in", "", "container snapshot to read (.json or .snap.zst)")
	flag.StringVar(&o.Out, "out", "", "snapshot to write (default: overwrite -in)")
	flag.StringVar(&o.Section, "section", "inventory", "section to sort: inventory or chest")
	flag.StringVar(&o.Method, "method", "", "chest sorting method: default, even_stacks, horizontal, vertical (default: tuning chest_method)")
	flag.IntVar(&o.ChestRowSize, "chest_row_size", 9, "slots per chest row")
	flag.StringVar(&o.TreeVersion, "tree_version", "", "expected item_tree.json tree_version; a mismatch is logged")
	flag.StringVar(&o.Ruleset, "ruleset", "", "ruleset to use (default: the one recorded in the snapshot, else the first)")
	flag.BoolVar(&o.Archive, "archive", false, "archive the input snapshot before overwriting it")
	flag.BoolVar(&o.DisableDB, "disable_db", false, "disable the sqlite history index")
	flag.BoolVar(&o.PrintMetrics, "print_metrics", false, "log metric totals on exit")

	flag.IntVar(&o.RefillSlot, "refill_slot", -1, "instead of sorting, refill this inventory slot")
	flag.StringVar(&o.RefillItem, "refill_item", "", "item id the refilled slot held")
	flag.IntVar(&o.RefillDamage, "refill_damage", 0, "damage of the item the refilled slot held")
	flag.Parse()

	logger := log.New(os.Stdout, "[sorter] ", log.LstdFlags|log.Lmicroseconds)
	if o.In == "" {
		logger.Fatalf("-in is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}
