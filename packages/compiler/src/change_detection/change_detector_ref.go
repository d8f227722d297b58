package change_detection

// ChangeDetectorRef is the handle a component gets on its own detector.
type ChangeDetectorRef struct {
	cd *ChangeDetector
}

// MarkForCheck schedules the component and its ancestors for the next
// pass. OnPush components call it after changing state outside of their
// inputs.
func (r *ChangeDetectorRef) MarkForCheck() { r.cd.MarkPathToRootAsCheckOnce() }

// Detach removes the component from detection until Reattach.
func (r *ChangeDetectorRef) Detach() { r.cd.SetMode(Detached) }

// Reattach puts a detached component back and schedules its path.
func (r *ChangeDetectorRef) Reattach() {
	r.cd.SetMode(CheckAlways)
	r.MarkForCheck()
}

func (r *ChangeDetectorRef) DetectChanges() error { return r.cd.DetectChanges() }

// CheckNoChanges verifies the component is stable. It does nothing unless
// the arena is in dev mode.
func (r *ChangeDetectorRef) CheckNoChanges() error {
	if !r.cd.arena.devMode {
		return nil
	}
	return r.cd.CheckNoChanges()
}
