package compose

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/pepemanager/imageapi"
)

// Composite implements imageapi.Compositor. The avatar is force-fit to
// the template's square avatar region (aspect ratio not preserved, per
// Discord avatar convention), circle-masked, and source-over blended at
// the template's fixed offset. Output dimensions always equal the
// background dimensions; an avatar region crossing the template edge is
// clipped.
//
// The operation is fully deterministic: identical avatar pixels and kind
// produce byte-identical output.
func (g *Registry) Composite(avatar image.Image, kind string, opts imageapi.CompositeOptions) (image.Image, error) {
	t, err := g.template(kind)
	if err != nil {
		return nil, err
	}
	scale := ScaleSmall
	if opts.Large {
		scale = ScaleLarge
	}
	bg, ok := t.Backgrounds[scale]
	if !ok {
		return nil, imageapi.ErrInternal
	}

	size := scaled(t.AvatarSize, scale)
	offset := image.Pt(scaled(t.AvatarOffset.X, scale), scaled(t.AvatarOffset.Y, scale))

	if opts.Flip {
		avatar = imaging.FlipH(avatar)
	}
	resized := imaging.Resize(avatar, size, size, imaging.Linear)
	circleMask(resized)

	out := image.NewNRGBA(bg.Bounds())
	draw.Draw(out, out.Bounds(), bg, bg.Bounds().Min, draw.Src)
	region := image.Rectangle{Min: offset, Max: offset.Add(image.Pt(size, size))}
	draw.Draw(out, region, resized, resized.Bounds().Min, draw.Over)
	return out, nil
}

// scaled maps a placement value from the ScaleLarge reference down to the
// requested template scale
func scaled(v, scale int) int {
	return v * scale / ScaleLarge
}

var clearPixel = color.NRGBA{}

// circleMask clears pixels outside the inscribed circle, leaving a round
// avatar
func circleMask(img *image.NRGBA) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	d := w
	if h < d {
		d = h
	}
	r := d / 2
	cx, cy := b.Min.X+w/2, b.Min.Y+h/2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := y - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := x - cx
			if dx*dx+dy*dy > r*r {
				img.SetNRGBA(x, y, clearPixel)
			}
		}
	}
}
