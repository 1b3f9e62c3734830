package codec

import "sync"

// Options controls how documents are serialized.
type Options struct {
	// EnsureASCII escapes every non-ASCII character as \uXXXX.
	EnsureASCII bool `yaml:"ensure_ascii" json:"ensure_ascii"`

	// Detailed wraps values whose plain JSON form loses type information
	// (integral floats, non-finite floats, times, byte strings) in tagged
	// objects so that they decode back to the same Go type.
	Detailed bool `yaml:"detailed" json:"detailed"`
}

// DefaultOptions returns ASCII-escaped, non-detailed options.
func DefaultOptions() Options {
	return Options{EnsureASCII: true}
}

var (
	defaultMu   sync.RWMutex
	defaultOpts = DefaultOptions()
)

// Default returns the process-wide default options. Components that own their
// options (a client, a store) should pass them explicitly instead.
func Default() Options {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultOpts
}

// SetDefault replaces the process-wide default options.
func SetDefault(opts Options) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOpts = opts
}

// Holder guards one set of options shared by several readers, for example all
// field descriptors of a client. The zero value holds DefaultOptions.
type Holder struct {
	mu   sync.RWMutex
	opts *Options
}

// NewHolder returns a Holder initialized to opts.
func NewHolder(opts Options) *Holder {
	return &Holder{opts: &opts}
}

// Load returns the current options.
func (h *Holder) Load() Options {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.opts == nil {
		return DefaultOptions()
	}
	return *h.opts
}

// Store replaces the current options.
func (h *Holder) Store(opts Options) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts = &opts
}
