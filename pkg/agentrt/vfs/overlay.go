package vfs

import "sync"

// Overlay layers a writable Store on top of a read-only base Store.
// Effective lookup: a tombstoned path is reported absent regardless of what
// the base holds; otherwise the overlay takes precedence over the base.
// Every write lands in the overlay and clears any tombstone on that path.
type Overlay struct {
	base    *Store
	overlay *Store

	mu         sync.RWMutex
	tombstones map[string]bool
}

// NewOverlay wraps base in a fresh writable overlay.
func NewOverlay(base *Store) *Overlay {
	return &Overlay{
		base:       base,
		overlay:    New(),
		tombstones: make(map[string]bool),
	}
}

func (o *Overlay) tombstoned(p string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.tombstones[p]
}

func (o *Overlay) clearTombstone(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.tombstones, p)
}

func (o *Overlay) setTombstone(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tombstones[p] = true
}

func (o *Overlay) Read(p string) ([]byte, error) {
	p = clean(p)
	if o.tombstoned(p) {
		return nil, ErrNotFound
	}
	if o.overlay.Exists(p) {
		return o.overlay.Read(p)
	}
	return o.base.Read(p)
}

func (o *Overlay) Write(p string, data []byte) error {
	p = clean(p)
	parent := parentOf(p)
	if !o.Exists(parent) && parent != "/" {
		return ErrParentMissing
	}
	// Mirror any parent directories that exist only in the base into the
	// overlay, outermost first, so the write can land in the overlay.
	var missing []string
	for d := parent; d != "/" && !o.overlay.Exists(d); d = parentOf(d) {
		missing = append(missing, d)
	}
	for i := len(missing) - 1; i >= 0; i-- {
		if err := o.overlay.Mkdir(missing[i]); err != nil {
			return err
		}
	}
	if err := o.overlay.Write(p, data); err != nil {
		return err
	}
	o.clearTombstone(p)
	return nil
}

func (o *Overlay) Mkdir(p string) error {
	p = clean(p)
	if p == "/" {
		return nil
	}
	parent := parentOf(p)
	if !o.Exists(parent) && parent != "/" {
		return ErrParentMissing
	}
	if err := o.overlay.Mkdir(p); err != nil {
		return err
	}
	o.clearTombstone(p)
	return nil
}

func (o *Overlay) Remove(p string) error {
	p = clean(p)
	if p == "/" {
		return ErrCannotRemoveRoot
	}
	if !o.Exists(p) {
		return ErrNotFound
	}
	if names, err := o.ReadDir(p); err == nil && len(names) > 0 {
		return ErrNotEmpty
	}
	// overlay.Remove may legitimately fail with ErrNotFound if the entry
	// only exists in the base layer; that's fine, the tombstone still hides
	// the base entry.
	_ = o.overlay.Remove(p)
	o.setTombstone(p)
	return nil
}

// ReadDir merges base and overlay entries, deduplicated by name, omitting
// anything tombstoned.
func (o *Overlay) ReadDir(p string) ([]string, error) {
	p = clean(p)
	if o.tombstoned(p) {
		return nil, ErrNotFound
	}

	seen := map[string]bool{}
	var merged []string
	addAll := func(names []string) {
		for _, n := range names {
			full := join(p, n)
			if o.tombstoned(full) || seen[n] {
				continue
			}
			seen[n] = true
			merged = append(merged, n)
		}
	}

	overlayNames, overlayErr := o.overlay.ReadDir(p)
	if overlayErr == nil {
		addAll(overlayNames)
	}
	baseNames, baseErr := o.base.ReadDir(p)
	if baseErr == nil {
		addAll(baseNames)
	}
	if overlayErr != nil && baseErr != nil {
		if overlayErr == ErrNotADirectory || baseErr == ErrNotADirectory {
			return nil, ErrNotADirectory
		}
		return nil, ErrNotFound
	}
	return merged, nil
}

func (o *Overlay) Stat(p string) (Info, error) {
	p = clean(p)
	if o.tombstoned(p) {
		return Info{}, ErrNotFound
	}
	if o.overlay.Exists(p) {
		return o.overlay.Stat(p)
	}
	return o.base.Stat(p)
}

func (o *Overlay) Exists(p string) bool {
	p = clean(p)
	if o.tombstoned(p) {
		return false
	}
	return o.overlay.Exists(p) || o.base.Exists(p)
}

func join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
