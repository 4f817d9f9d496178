package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"sortcraft.ai/internal/sim/history"
	"sortcraft.ai/internal/sim/profile"
)

// ErrQueueFull is returned by the Write methods when an entry was dropped.
var ErrQueueFull = errors.New("indexdb: write queue full, entry dropped")

// SQLiteIndex is a queryable copy of the journal. Writes are queued and
// batched by a single writer goroutine; when the queue is full entries are
// dropped and counted, since the JSONL journal stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSort   atomic.Uint64
	dropRefill atomic.Uint64
	failTotal  atomic.Uint64
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropSortTotal   uint64
	DropRefillTotal uint64
	// WriteFailTotal counts statements that failed and rolled back their
	// batch.
	WriteFailTotal uint64
}

type reqKind int

const (
	reqSort reqKind = iota + 1
	reqRefill
	reqFlush
)

type req struct {
	kind reqKind

	sort   history.SortEntry
	refill history.RefillEntry
	done   chan struct{}
}

const defaultQueueSize = 16384

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, defaultQueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sorts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			at TEXT NOT NULL,
			ruleset TEXT NOT NULL,
			section TEXT NOT NULL,
			method TEXT NOT NULL,
			moves INTEGER NOT NULL,
			passes INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			aborted INTEGER NOT NULL,
			duration_us INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sorts_section_tick ON sorts(section, tick);`,
		`CREATE TABLE IF NOT EXISTS refills (
			task_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			tick INTEGER NOT NULL,
			at TEXT NOT NULL,
			source INTEGER NOT NULL,
			target INTEGER NOT NULL,
			expected_id TEXT NOT NULL,
			before_break INTEGER NOT NULL,
			scheduled_tick INTEGER NOT NULL,
			PRIMARY KEY (task_id, stage)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_refills_stage ON refills(stage, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropSortTotal:   s.dropSort.Load(),
		DropRefillTotal: s.dropRefill.Load(),
		WriteFailTotal:  s.failTotal.Load(),
	}
}

func (s *SQLiteIndex) WriteSort(e history.SortEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqSort, sort: e}:
	default:
		s.dropSort.Add(1)
		return ErrQueueFull
	}
	return nil
}

func (s *SQLiteIndex) WriteRefill(e history.RefillEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRefill, refill: e}:
	default:
		s.dropRefill.Add(1)
		return ErrQueueFull
	}
	return nil
}

// Flush waits until everything queued so far is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertProfile stores the item catalog, tree version and tuning of p so
// a sort history can be read against the configuration that produced it.
func (s *SQLiteIndex) UpsertProfile(p *profile.Profile) error {
	if s == nil || p == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, _ := json.Marshal(p.Items.Palette); len(b) > 0 {
		rows = append(rows, kv{name: "items_palette", digest: p.Items.PaletteDigest, json: b})
	}
	if b, _ := json.Marshal(p.Items.Defs); len(b) > 0 {
		// encoding/json sorts map keys, so this is canonical
		rows = append(rows, kv{name: "items_defs", digest: p.Items.DefsDigest, json: b})
	}
	{
		b, _ := json.Marshal(p.Tuning)
		rows = append(rows, kv{name: "tuning", digest: sha256Hex(b), json: b})
	}
	{
		b, _ := json.Marshal(map[string]any{
			"tree_version": p.Tree.Version(),
			"rulesets":     p.Rules.Rulesets(),
		})
		rows = append(rows, kv{name: "profile", digest: p.Digest, json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) CatalogDigest(ctx context.Context, name string) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM catalogs WHERE name=?`, name).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return digest, err
}

// RecentSorts returns up to limit sorts, newest first.
func (s *SQLiteIndex) RecentSorts(ctx context.Context, limit int) ([]history.SortEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT tick,at,ruleset,section,method,moves,passes,converged,aborted,duration_us
		FROM sorts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.SortEntry
	for rows.Next() {
		var e history.SortEntry
		var tick int64
		if err := rows.Scan(&tick, &e.At, &e.Ruleset, &e.Section, &e.Method, &e.Moves, &e.Passes,
			&e.Converged, &e.Aborted, &e.DurationMicros); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		out = append(out, e)
	}
	return out, rows.Err()
}

// RefillStages counts refill records per stage.
func (s *SQLiteIndex) RefillStages(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM refills GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		out[stage] = n
	}
	return out, rows.Err()
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSort, _ := s.db.Prepare(`INSERT INTO sorts(tick,at,ruleset,section,method,moves,passes,converged,aborted,duration_us) VALUES(?,?,?,?,?,?,?,?,?,?)`)
	insertRefill, _ := s.db.Prepare(`INSERT OR REPLACE INTO refills(task_id,stage,tick,at,source,target,expected_id,before_break,scheduled_tick) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertSort != nil {
			_ = insertSort.Close()
		}
		if insertRefill != nil {
			_ = insertRefill.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		s.failTotal.Add(1)
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSort:
			e := r.sort
			if insertSort != nil {
				if _, err := tx.Stmt(insertSort).Exec(
					int64(e.Tick),
					e.At,
					e.Ruleset,
					e.Section,
					e.Method,
					e.Moves,
					e.Passes,
					boolInt(e.Converged),
					boolInt(e.Aborted),
					e.DurationMicros,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqRefill:
			e := r.refill
			if insertRefill != nil {
				if _, err := tx.Stmt(insertRefill).Exec(
					e.TaskID,
					e.Stage,
					int64(e.Tick),
					e.At,
					e.Source,
					e.Target,
					e.ExpectedID,
					boolInt(e.BeforeBreak),
					int64(e.ScheduledTick),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
