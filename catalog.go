package filmgrade

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
)

// LUTCatalogEntry describes one preset. An empty Source is the identity transform.
type LUTCatalogEntry struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"name"`
	Source      string `yaml:"file"`
}

// LUTInfo is the caller-facing description of an available preset.
type LUTInfo struct {
	ID          string
	DisplayName string
}

type lutSlot struct {
	once sync.Once
	lut  *CubeLUT
	err  error
}

type catalogItem struct {
	entry LUTCatalogEntry
	slot  atomic.Pointer[lutSlot]
}

// Catalog holds parsed LUTs keyed by id.
//
// Load builds the entry set once; afterwards Lookup is lock-free and returns the same
// *CubeLUT for repeated calls. Construct one Catalog at startup and pass it to consumers.
type Catalog struct {
	fsys   fs.FS
	logger *slog.Logger

	loadMu sync.Mutex
	state  atomic.Pointer[catalogState]
}

// catalogState is replaced as a whole by Load and never mutated afterwards.
type catalogState struct {
	items map[string]*catalogItem
	order []string
}

// NewCatalog creates an empty catalog reading LUT sources from fsys.
func NewCatalog(fsys fs.FS, opts ...func(c *Catalog)) *Catalog {
	c := &Catalog{fsys: fsys, logger: discardLogger()}
	for _, applyOpt := range opts {
		applyOpt(c)
	}
	c.state.Store(&catalogState{items: map[string]*catalogItem{}})
	return c
}

// WithCatalogLogger sets the catalog logger.
func WithCatalogLogger(l *slog.Logger) func(c *Catalog) {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// Load registers entries and parses every LUT eagerly.
//
// A broken preset is disabled rather than failing the catalog: its error is part of the
// returned joined error and Lookup reports ErrLUTNotFound for it. Calling Load again for an
// id that is already present keeps the cached table; only ids added by this call are reported.
func (c *Catalog) Load(entries []LUTCatalogEntry) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	cur := c.state.Load()
	next := make(map[string]*catalogItem, len(cur.items)+len(entries))
	for k, v := range cur.items {
		next[k] = v
	}
	order := append([]string(nil), cur.order...)

	var errs []error
	var added []string
	seen := map[string]bool{}
	for _, e := range entries {
		switch {
		case e.ID == "":
			errs = append(errs, errors.New("catalog entry with empty id"))
			continue
		case e.ID == LUTNone:
			errs = append(errs, fmt.Errorf("catalog id %q is reserved", LUTNone))
			continue
		case seen[e.ID]:
			errs = append(errs, fmt.Errorf("duplicate catalog id %q", e.ID))
			continue
		}
		seen[e.ID] = true

		if _, ok := next[e.ID]; ok {
			continue
		}
		it := &catalogItem{entry: e}
		it.slot.Store(&lutSlot{})
		next[e.ID] = it
		order = append(order, e.ID)
		added = append(added, e.ID)
	}

	c.state.Store(&catalogState{items: next, order: order})

	for _, id := range added {
		it := next[id]
		if _, err := c.resolve(it); err != nil {
			c.logger.Warn("lut disabled", "id", id, "source", it.entry.Source, "error", err)
			errs = append(errs, fmt.Errorf("load %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) resolve(it *catalogItem) (*CubeLUT, error) {
	s := it.slot.Load()
	s.once.Do(func() {
		if it.entry.Source == "" {
			return
		}
		s.lut, s.err = c.parse(it.entry.Source)
	})
	return s.lut, s.err
}

func (c *Catalog) parse(source string) (*CubeLUT, error) {
	if c.fsys == nil {
		return nil, errors.New("catalog has no resource filesystem")
	}
	f, err := c.fsys.Open(source)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := parseCube(f, source)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("lut loaded", "source", source, "size", l.Size, "title", l.Title)
	return l, nil
}

// Lookup returns the LUT for id.
//
// The identity transform ("", "none" or an entry without source) is reported as (nil, nil).
// Unknown or disabled ids return ErrLUTNotFound; callers treat them as identity.
func (c *Catalog) Lookup(id string) (*CubeLUT, error) {
	if id == "" || id == LUTNone {
		return nil, nil
	}
	it, ok := c.state.Load().items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLUTNotFound, id)
	}
	l, err := c.resolve(it)
	if err != nil {
		return nil, fmt.Errorf("%w: %q disabled: %v", ErrLUTNotFound, id, err)
	}
	return l, nil
}

// Reload parses the source of id again and swaps the cached table.
// On failure the previous table stays in use.
func (c *Catalog) Reload(id string) error {
	it, ok := c.state.Load().items[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrLUTNotFound, id)
	}
	s := &lutSlot{}
	s.once.Do(func() {
		if it.entry.Source != "" {
			s.lut, s.err = c.parse(it.entry.Source)
		}
	})
	if s.err != nil {
		c.logger.Warn("lut reload failed", "id", id, "source", it.entry.Source, "error", s.err)
		return fmt.Errorf("reload %s: %w", id, s.err)
	}
	it.slot.Store(s)
	return nil
}

// ListAvailableLUTs returns the identity entry followed by every usable preset in load order.
func (c *Catalog) ListAvailableLUTs() []LUTInfo {
	st := c.state.Load()
	out := []LUTInfo{{ID: LUTNone, DisplayName: "None"}}
	for _, id := range st.order {
		it := st.items[id]
		if _, err := c.resolve(it); err != nil {
			continue
		}
		name := it.entry.DisplayName
		if name == "" {
			name = id
		}
		out = append(out, LUTInfo{ID: id, DisplayName: name})
	}
	return out
}
