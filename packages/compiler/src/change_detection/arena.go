package change_detection

// Handle addresses a detector inside its Arena.
type Handle int

// NoHandle is the owner of a detector that has no parent.
const NoHandle Handle = -1

// Arena owns a tree of detectors. Parents refer to children by handle
// and a child refers back to its owner only for MarkPathToRootAsCheckOnce.
// An arena runs at most one top level pass at a time.
type Arena struct {
	detectors []*ChangeDetector
	observer  Observer
	devMode   bool
	running   bool
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithObserver reports passes and dispatched bindings to o.
func WithObserver(o Observer) ArenaOption {
	return func(a *Arena) { a.observer = o }
}

// WithDevMode enables ChangeDetectorRef.CheckNoChanges.
func WithDevMode(enabled bool) ArenaOption {
	return func(a *Arena) { a.devMode = enabled }
}

func NewArena(opts ...ArenaOption) *Arena {
	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Arena) register(cd *ChangeDetector) {
	cd.arena = a
	cd.handle = Handle(len(a.detectors))
	cd.owner = NoHandle
	a.detectors = append(a.detectors, cd)
}

// Get returns the detector at h, or nil.
func (a *Arena) Get(h Handle) *ChangeDetector {
	if h < 0 || int(h) >= len(a.detectors) {
		return nil
	}
	return a.detectors[h]
}

// Len is the number of detectors created in the arena.
func (a *Arena) Len() int { return len(a.detectors) }

// DevMode reports whether development checks are enabled.
func (a *Arena) DevMode() bool { return a.devMode }

func (a *Arena) resolve(handles []Handle) []*ChangeDetector {
	out := make([]*ChangeDetector, len(handles))
	for i, h := range handles {
		out[i] = a.detectors[h]
	}
	return out
}
