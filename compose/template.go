// Package compose overlays avatars onto fixed background templates.
package compose

import (
	"image"
	"sort"
	"sync"

	"github.com/pepemanager/imageapi"
)

// Template scales match the bundled background asset sizes. The small
// scale is the default response size; Large requests use the full scale.
const (
	ScaleSmall = 250
	ScaleLarge = 1000
)

// Placement constants at the full template scale
const (
	defaultAvatarX    = 35
	defaultAvatarY    = 397
	defaultAvatarSize = 603
)

// Template is a fixed background with a deterministic avatar placement.
// Backgrounds are loaded once at startup and shared read-only across
// requests.
type Template struct {
	Kind string

	// Backgrounds by scale, keys ScaleSmall and ScaleLarge
	Backgrounds map[int]image.Image

	// AvatarOffset and AvatarSize at the ScaleLarge scale; scaled down
	// proportionally for smaller backgrounds
	AvatarOffset image.Point
	AvatarSize   int
}

// NewTemplate creates a Template with the default avatar placement
func NewTemplate(kind string, backgrounds map[int]image.Image) *Template {
	return &Template{
		Kind:         kind,
		Backgrounds:  backgrounds,
		AvatarOffset: image.Pt(defaultAvatarX, defaultAvatarY),
		AvatarSize:   defaultAvatarSize,
	}
}

// Registry holds the open set of template kinds
type Registry struct {
	l sync.RWMutex
	m map[string]*Template
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{m: map[string]*Template{}}
}

// Register adds or replaces a template kind
func (g *Registry) Register(t *Template) {
	g.l.Lock()
	g.m[t.Kind] = t
	g.l.Unlock()
}

// Has implements imageapi.Compositor
func (g *Registry) Has(kind string) bool {
	g.l.RLock()
	_, ok := g.m[kind]
	g.l.RUnlock()
	return ok
}

// Kinds implements imageapi.Compositor, sorted for stable routing
func (g *Registry) Kinds() []string {
	g.l.RLock()
	kinds := make([]string, 0, len(g.m))
	for kind := range g.m {
		kinds = append(kinds, kind)
	}
	g.l.RUnlock()
	sort.Strings(kinds)
	return kinds
}

func (g *Registry) template(kind string) (*Template, error) {
	g.l.RLock()
	t, ok := g.m[kind]
	g.l.RUnlock()
	if !ok {
		return nil, imageapi.ErrNotFound
	}
	return t, nil
}
