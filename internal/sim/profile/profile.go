// Package profile loads everything a sort needs from one config
// directory and reloads it when the files change.
package profile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sortcraft.ai/internal/sim/catalogs"
	"sortcraft.ai/internal/sim/itemtree"
	"sortcraft.ai/internal/sim/rules"
	"sortcraft.ai/internal/sim/tuning"
)

const (
	TreeFile   = "item_tree.json"
	ItemsFile  = "items.json"
	RulesFile  = "rules.txt"
	TuningFile = "tuning.yaml"
)

// Profile is one consistent load of a config directory.
type Profile struct {
	Tree   *itemtree.Tree
	Items  *catalogs.ItemCatalog
	Rules  *rules.Config
	Tuning tuning.Tuning

	// Digest covers the raw bytes of every file that was read.
	Digest   string
	LoadedAt time.Time
}

func (p *Profile) Grid() rules.Grid {
	return rules.Grid{Size: p.Tuning.Inventory.Size, RowSize: p.Tuning.Inventory.RowSize}
}

type Option func(*Manager)

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTreeVersion makes every load warn when item_tree.json declares a
// different tree_version.
func WithTreeVersion(v string) Option {
	return func(m *Manager) { m.treeVersion = v }
}

// Manager owns the current Profile. item_tree.json and items.json are
// required; rules.txt and tuning.yaml fall back to an empty ruleset and
// tuning defaults.
type Manager struct {
	dir      string
	logger   *log.Logger
	interval time.Duration

	// treeVersion is the expected tree_version, empty to skip the check.
	treeVersion string

	mu      sync.Mutex
	current *Profile
}

func NewManager(dir string, opts ...Option) *Manager {
	m := &Manager{
		dir:      dir,
		logger:   log.New(io.Discard, "", 0),
		interval: 5 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Dir() string { return m.dir }

// Current returns the last successful load, or nil before the first.
func (m *Manager) Current() *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Load reads the directory unconditionally and makes the result current.
func (m *Manager) Load(ctx context.Context) (*Profile, error) {
	files, err := m.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return m.install(files)
}

// Reload loads the directory again if any file changed since the last
// load. A failed reload keeps the previous profile.
func (m *Manager) Reload(ctx context.Context) (*Profile, bool, error) {
	files, err := m.readAll(ctx)
	if err != nil {
		return m.Current(), false, err
	}
	if cur := m.Current(); cur != nil && cur.Digest == files.digest() {
		return cur, false, nil
	}
	p, err := m.install(files)
	if err != nil {
		return m.Current(), false, err
	}
	return p, true, nil
}

// Watch polls for changes until ctx is done, calling onChange after each
// successful reload.
func (m *Manager) Watch(ctx context.Context, onChange func(*Profile)) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p, changed, err := m.Reload(ctx)
			if err != nil {
				m.logger.Printf("profile reload: %v", err)
				continue
			}
			if changed {
				m.logger.Printf("profile reloaded: digest=%s", p.Digest[:12])
				if onChange != nil {
					onChange(p)
				}
			}
		}
	}
}

type rawFiles struct {
	tree, items, rules, tuning []byte
}

func (f rawFiles) digest() string {
	h := sha256.New()
	for _, b := range [][]byte{f.tree, f.items, f.rules, f.tuning} {
		sum := sha256.Sum256(b)
		h.Write(sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (m *Manager) readAll(ctx context.Context) (rawFiles, error) {
	var f rawFiles
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) { f.tree, err = m.read(TreeFile, true); return })
	g.Go(func() (err error) { f.items, err = m.read(ItemsFile, true); return })
	g.Go(func() (err error) { f.rules, err = m.read(RulesFile, false); return })
	g.Go(func() (err error) { f.tuning, err = m.read(TuningFile, false); return })
	if err := g.Wait(); err != nil {
		return rawFiles{}, err
	}
	return f, nil
}

func (m *Manager) read(name string, required bool) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(m.dir, name))
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}

func (m *Manager) install(f rawFiles) (*Profile, error) {
	p, err := m.build(f)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	prev := m.current
	if prev != nil && prev.Rules != nil {
		// keep the player's ruleset selection across edits of rules.txt
		if name := prev.Rules.CurrentName(); !p.Rules.SwitchByName(name) {
			m.logger.Printf("ruleset %q is gone, using %q", name, p.Rules.CurrentName())
		}
	}
	m.current = p
	m.mu.Unlock()
	return p, nil
}

func (m *Manager) build(f rawFiles) (*Profile, error) {
	p := &Profile{Digest: f.digest(), LoadedAt: time.Now()}

	p.Tuning = tuning.Defaults()
	if f.tuning != nil {
		t, err := tuning.Parse(f.tuning)
		if err != nil {
			return nil, err
		}
		p.Tuning = t
	}

	items, err := catalogs.ParseItems(f.items)
	if err != nil {
		return nil, err
	}
	p.Items = items

	if m.treeVersion != "" {
		// checked before parsing so an outdated tree that no longer
		// validates still gets the hint
		v, err := itemtree.ParseVersion(f.tree)
		if err != nil {
			return nil, err
		}
		if v != m.treeVersion {
			m.logger.Printf("%s: tree_version %q, expected %q; the tree may be outdated", TreeFile, v, m.treeVersion)
		}
	}

	tree, err := itemtree.Parse(f.tree, items)
	if err != nil {
		return nil, err
	}
	tree.SetLogger(m.logger)
	p.Tree = tree

	cfg, err := rules.Parse(bytes.NewReader(f.rules), tree, p.Grid())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RulesFile, err)
	}
	for _, bad := range cfg.InvalidKeywords() {
		if bad.Suggestion != "" {
			m.logger.Printf("%s:%d: invalid keyword %q in ruleset %q (did you mean %q?)", RulesFile, bad.Line, bad.Keyword, bad.Ruleset, bad.Suggestion)
		} else {
			m.logger.Printf("%s:%d: invalid keyword %q in ruleset %q", RulesFile, bad.Line, bad.Keyword, bad.Ruleset)
		}
	}
	p.Rules = cfg
	return p, nil
}
