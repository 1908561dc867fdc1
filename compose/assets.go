package compose

import (
	"embed"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"path"
	"strconv"
)

//go:embed assets
var assetsFS embed.FS

var defaultKinds = []string{"enter", "exit"}

// DefaultRegistry loads the bundled banner templates. Called once at
// startup; the resulting registry is read-only afterwards.
func DefaultRegistry() (*Registry, error) {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		return nil, err
	}
	return LoadRegistry(sub, defaultKinds...)
}

// LoadRegistry builds a Registry from a file tree laid out as
// <scale>/<kind>.png with both ScaleSmall and ScaleLarge variants
// required per kind
func LoadRegistry(fsys fs.FS, kinds ...string) (*Registry, error) {
	g := NewRegistry()
	for _, kind := range kinds {
		backgrounds := map[int]image.Image{}
		for _, scale := range []int{ScaleSmall, ScaleLarge} {
			name := path.Join(strconv.Itoa(scale), kind+".png")
			f, err := fsys.Open(name)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", name, err)
			}
			img, err := png.Decode(f)
			_ = f.Close()
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", name, err)
			}
			backgrounds[scale] = img
		}
		g.Register(NewTemplate(kind, backgrounds))
	}
	return g, nil
}
