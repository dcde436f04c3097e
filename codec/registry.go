package codec

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gogpu/imaging/internal/logging"
	"github.com/gogpu/imaging/pixel"
)

// SniffLen is the number of leading bytes drivers read for detection.
const SniffLen = 512

// Registry is an immutable set of formats. It is safe for concurrent use.
type Registry struct {
	formats []*Descriptor
	sniffed []*Descriptor
	byName  map[string]*Descriptor
	byExt   map[string]*Descriptor
}

func normExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// NewRegistry builds a registry from descriptors. Names must be non-empty
// and unique ignoring case; an extension claimed twice resolves to the first
// descriptor.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*Descriptor, len(descs)),
		byExt:  make(map[string]*Descriptor),
	}
	for i := range descs {
		d := descs[i]
		key := strings.ToUpper(d.Name)
		if err := checkDescriptor(&d, i, r.byName[key] != nil); err != nil {
			return nil, err
		}
		d.Extensions = slices.Clone(d.Extensions)
		r.formats = append(r.formats, &d)
		r.byName[key] = &d
		for _, ext := range d.Extensions {
			if _, ok := r.byExt[normExt(ext)]; !ok {
				r.byExt[normExt(ext)] = &d
			}
		}
		if d.Sniff != nil {
			r.sniffed = append(r.sniffed, &d)
		}
	}
	slices.SortStableFunc(r.sniffed, func(a, b *Descriptor) int { return b.Priority - a.Priority })
	return r, nil
}

func checkDescriptor(d *Descriptor, index int, dup bool) error {
	if d.Name == "" {
		return fmt.Errorf("codec: descriptor %d has no name: %w", index, pixel.ErrInvalidArgument)
	}
	if dup {
		return fmt.Errorf("codec: format %s registered twice: %w", d.Name, pixel.ErrInvalidArgument)
	}
	return nil
}

// Detect returns the format whose Sniff accepts prefix, trying higher
// priorities first and registration order among equals.
// Returns ErrUnknownFormat when no format matches.
func (r *Registry) Detect(prefix []byte) (*Descriptor, error) {
	for _, d := range r.sniffed {
		if d.Sniff(prefix) {
			logging.Logger().Debug("codec: detected", "format", d.Name, "prefix", len(prefix))
			return d, nil
		}
	}
	return nil, fmt.Errorf("codec: no format matches %d byte prefix: %w", len(prefix), pixel.ErrUnknownFormat)
}

// Lookup returns the format with the given name, ignoring case.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[strings.ToUpper(name)]
	return d, ok
}

// ByExtension returns the format claiming a file extension such as ".png"
// or "png".
func (r *Registry) ByExtension(ext string) (*Descriptor, bool) {
	d, ok := r.byExt[normExt(ext)]
	return d, ok
}

// Formats returns the descriptors in registration order.
func (r *Registry) Formats() []*Descriptor {
	return slices.Clone(r.formats)
}

var (
	registerMu  sync.Mutex
	registered  []Descriptor
	frozen      bool
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Register adds a format to the process-wide registry. It is meant to be
// called from init functions and panics when called after Default, or when
// the descriptor is invalid.
func Register(d Descriptor) {
	registerMu.Lock()
	defer registerMu.Unlock()
	dup := slices.ContainsFunc(registered, func(r Descriptor) bool { return strings.EqualFold(r.Name, d.Name) })
	if err := checkDescriptor(&d, len(registered), dup); err != nil {
		panic(err)
	}
	if frozen {
		panic("codec: Register(" + d.Name + ") after the registry was frozen")
	}
	registered = append(registered, d)
}

// Default returns the process-wide registry, freezing it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		registerMu.Lock()
		defer registerMu.Unlock()
		frozen = true
		r, err := NewRegistry(registered...)
		if err != nil {
			panic(err)
		}
		defaultReg = r
	})
	return defaultReg
}
