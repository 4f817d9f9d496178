package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"sortcraft.ai/internal/observe"
	"sortcraft.ai/internal/persistence/archive"
	"sortcraft.ai/internal/persistence/indexdb"
	persistlog "sortcraft.ai/internal/persistence/log"
	"sortcraft.ai/internal/persistence/snapshot"
	"sortcraft.ai/internal/sim/container"
	"sortcraft.ai/internal/sim/encoding"
	"sortcraft.ai/internal/sim/history"
	"sortcraft.ai/internal/sim/profile"
	"sortcraft.ai/internal/sim/refill"
	"sortcraft.ai/internal/sim/sorting"
	"sortcraft.ai/internal/sim/tasks"
)

type options struct {
	ConfigDir    string
	DataDir      string
	In           string
	Out          string
	Section      string
	Method       string
	ChestRowSize int
	TreeVersion  string
	Ruleset      string
	Archive      bool
	DisableDB    bool
	PrintMetrics bool

	RefillSlot   int
	RefillItem   string
	RefillDamage int
}

// runtime is what one invocation writes to.
type runtime struct {
	logger  *log.Logger
	sorts   *persistlog.SortLogger
	refills *persistlog.RefillLogger
	idx     *indexdb.SQLiteIndex
	metrics *observe.Metrics
	reader  *sdkmetric.ManualReader
	mp      *sdkmetric.MeterProvider
}

func run(ctx context.Context, o options, logger *log.Logger) error {
	var (
		p    *profile.Profile
		snap snapshot.SnapshotV1
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = profile.NewManager(o.ConfigDir,
			profile.WithLogger(logger),
			profile.WithTreeVersion(o.TreeVersion),
		).Load(gctx)
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		snap, err = snapshot.ReadSnapshot(o.In)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	ruleset := o.Ruleset
	if ruleset == "" {
		ruleset = snap.Header.Ruleset
	}
	if ruleset != "" && !p.Rules.SwitchByName(ruleset) {
		logger.Printf("ruleset %q not found, using %q", ruleset, p.Rules.CurrentName())
	}

	mem, err := snap.Restore(p.Items)
	if err != nil {
		return err
	}

	rt, err := openRuntime(o, p, logger)
	if err != nil {
		return err
	}
	defer rt.close(ctx, o.PrintMetrics)

	if o.Archive {
		if dst, err := archive.ArchiveSnapshot(o.DataDir, o.In, snap); err != nil {
			logger.Printf("archive snapshot: %v", err)
		} else {
			logger.Printf("archived %s", dst)
		}
	}

	tick := snap.Header.Tick
	if o.RefillSlot >= 0 {
		tick, err = runRefill(ctx, o, p, mem, tick, rt)
	} else {
		tick, err = runSort(ctx, o, p, mem, tick, rt)
	}
	if err != nil {
		return err
	}

	out := o.Out
	if out == "" {
		out = o.In
	}
	if err := snapshot.WriteSnapshot(out, snapshot.Capture(mem, tick, p.Rules.CurrentName())); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	logger.Printf("wrote %s tick=%d", out, tick)
	return nil
}

func openRuntime(o options, p *profile.Profile, logger *log.Logger) (*runtime, error) {
	rt := &runtime{
		logger:  logger,
		sorts:   persistlog.NewSortLogger(o.DataDir),
		refills: persistlog.NewRefillLogger(o.DataDir),
		reader:  sdkmetric.NewManualReader(),
	}
	rt.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(rt.reader))
	met, err := observe.NewMetrics(rt.mp)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	rt.metrics = met

	if !o.DisableDB {
		idx, err := indexdb.OpenSQLite(filepath.Join(o.DataDir, "index", "sortcraft.sqlite"))
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		if err := idx.UpsertProfile(p); err != nil {
			logger.Printf("index: upsert profile: %v", err)
		}
		rt.idx = idx
	}
	return rt, nil
}

func (rt *runtime) close(ctx context.Context, printMetrics bool) {
	if err := rt.sorts.Close(); err != nil {
		rt.logger.Printf("close sort journal: %v", err)
	}
	if err := rt.refills.Close(); err != nil {
		rt.logger.Printf("close refill journal: %v", err)
	}
	if rt.idx != nil {
		st := rt.idx.Stats()
		if st.DropSortTotal+st.DropRefillTotal > 0 {
			rt.logger.Printf("index dropped sorts=%d refills=%d", st.DropSortTotal, st.DropRefillTotal)
		}
		if err := rt.idx.Close(); err != nil {
			rt.logger.Printf("close index: %v", err)
		}
	}
	if printMetrics {
		rt.logMetrics(ctx)
	}
	_ = rt.mp.Shutdown(ctx)
}

func (rt *runtime) logMetrics(ctx context.Context) {
	var rm metricdata.ResourceMetrics
	if err := rt.reader.Collect(ctx, &rm); err != nil {
		rt.logger.Printf("collect metrics: %v", err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			rt.logger.Printf("metric %s=%d", m.Name, total)
		}
	}
}

func (rt *runtime) recordSort(e history.SortEntry) {
	if err := rt.sorts.WriteSort(e); err != nil {
		rt.logger.Printf("sort journal: %v", err)
	}
	if err := rt.idx.WriteSort(e); err != nil {
		rt.logger.Printf("sort index: %v", err)
	}
}

func (rt *runtime) recordRefill(e history.RefillEntry) {
	if err := rt.refills.WriteRefill(e); err != nil {
		rt.logger.Printf("refill journal: %v", err)
	}
	if err := rt.idx.WriteRefill(e); err != nil {
		rt.logger.Printf("refill index: %v", err)
	}
}

func runSort(ctx context.Context, o options, p *profile.Profile, mem *container.Memory, tick uint64, rt *runtime) (uint64, error) {
	section, err := container.ParseSection(o.Section)
	if err != nil {
		return tick, err
	}
	method := sorting.MethodInventory
	rowSize := p.Tuning.Inventory.RowSize
	if section != container.SectionInventory {
		name := o.Method
		if name == "" {
			name = p.Tuning.ChestMethod
		}
		if method, err = sorting.ParseMethod(name); err != nil {
			return tick, err
		}
		rowSize = o.ChestRowSize
	}

	e, err := sorting.New(mem, p.Rules, p.Tree, p.Items, section, method, rowSize,
		sorting.WithLogger(rt.logger),
		sorting.WithMetrics(rt.metrics),
		sorting.WithSettings(sorting.SettingsFromTuning(p.Tuning)),
	)
	if err != nil {
		return tick, err
	}
	res, err := e.Sort(ctx)
	if err != nil {
		return tick, err
	}
	tick++
	entry := history.NewSortEntry(tick, time.Now(), res)
	entry.Layout = encoding.EncodeLayout(mem.Slots(section), p.Items.Index)
	rt.recordSort(entry)
	if res.Aborted {
		rt.logger.Printf("sort aborted: no room for the held stack")
	} else if !res.Converged {
		rt.logger.Printf("sort did not converge after %d passes", res.Passes)
	}
	return tick, nil
}

// runRefill plans a refill on the first tick and runs it on the next, as
// the host would.
func runRefill(ctx context.Context, o options, p *profile.Profile, mem *container.Memory, tick uint64, rt *runtime) (uint64, error) {
	view, err := container.NewView(mem, container.SectionInventory)
	if err != nil {
		return tick, err
	}
	if o.RefillItem == "" {
		return tick, fmt.Errorf("-refill_item is required with -refill_slot")
	}

	base := tick
	q := tasks.NewQueue()
	hook := func(_ context.Context, t tasks.RefillTask, stage refill.Stage) {
		rt.recordRefill(history.NewRefillEntry(base+q.Tick(), time.Now(), t, string(stage)))
	}
	m := refill.NewMatcher(p.Tree, p.Rules, p.Items, refill.SettingsFromTuning(p.Tuning))
	h := refill.NewHandler(m, q,
		refill.WithLogger(rt.logger),
		refill.WithMetrics(rt.metrics),
		refill.WithHook(hook),
	)

	t, ok := h.OnSlotEmptied(ctx, view, o.RefillSlot, o.RefillItem, o.RefillDamage)
	if !ok {
		rt.logger.Printf("refill slot %d: nothing to do", o.RefillSlot)
		return tick, nil
	}
	rt.logger.Printf("refill %s scheduled: %d -> %d", t.TaskID, t.Source, t.Target)

	n, due := q.Advance()
	done := h.Run(ctx, view, due)
	rt.logger.Printf("refill tick %d: %d/%d done", base+n, done, len(due))
	return base + n, nil
}
