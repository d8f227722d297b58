package change_detection

// PipeTransform is implemented by every pipe.
type PipeTransform interface {
	Transform(value any, args []any) (any, error)
}

// PipeOnDestroy is implemented by pipes that hold resources; it is called
// when the detector using the pipe is dehydrated.
type PipeOnDestroy interface {
	NgOnDestroy()
}

// SelectedPipe is a pipe instance owned by one binding of one detector.
// A pure pipe is only invoked again when its input or arguments change.
type SelectedPipe struct {
	Pipe PipeTransform
	Pure bool
}

// Pipes resolves pipe names for a hydrated detector. Get returns a new
// SelectedPipe per call.
type Pipes interface {
	Get(name string) (*SelectedPipe, error)
}

// PipeFactory creates the instance used by one binding.
type PipeFactory func() PipeTransform

// PipeProvider registers a pipe under a name.
type PipeProvider struct {
	Name    string
	Pure    bool
	Factory PipeFactory
}

// PipeRegistry is a Pipes backed by a fixed set of providers.
type PipeRegistry struct {
	providers map[string]PipeProvider
}

// NewPipeRegistry indexes providers by name; later providers win.
func NewPipeRegistry(providers ...PipeProvider) *PipeRegistry {
	r := &PipeRegistry{providers: make(map[string]PipeProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name] = p
	}
	return r
}

func (r *PipeRegistry) Get(name string) (*SelectedPipe, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, &PipeNotFoundError{Name: name}
	}
	return &SelectedPipe{Pipe: p.Factory(), Pure: p.Pure}, nil
}

// Names lists the registered pipe names in no particular order.
func (r *PipeRegistry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// WrappedValue makes a pipe result count as changed even when it is
// identical to the previous one. The detector unwraps it before
// dispatching.
type WrappedValue struct {
	Wrapped any
}

// Wrap returns value wrapped in a WrappedValue.
func Wrap(value any) *WrappedValue {
	return &WrappedValue{Wrapped: value}
}

func unwrapValue(value any) any {
	if w, ok := value.(*WrappedValue); ok {
		return w.Wrapped
	}
	return value
}
