package filter

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// ID identifies one of the fixed set of cosmetic filters. The zero-effect
// identity filter is None.
type ID string

const (
	None    ID = "none"
	Sepia   ID = "sepia"
	Noir    ID = "noir"
	Warm    ID = "warm"
	Vintage ID = "vintage"
)

// All returns the supported filters in display order.
func All() []ID {
	return []ID{None, Sepia, Noir, Warm, Vintage}
}

// Parse validates a selector value against the supported set.
func Parse(s string) (ID, error) {
	for _, id := range All() {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("filter: unknown filter %q", s)
}

// Apply transforms img in place according to the named filter and returns it.
// Callers pass a private copy of the frame, so in-place mutation is safe.
// An unknown ID is treated as None.
func Apply(id ID, img *image.NRGBA) *image.NRGBA {
	switch id {
	case Sepia:
		sepia(img)
	case Noir:
		noir(img)
	case Warm:
		warm(img)
	case Vintage:
		sepia(img)
		fade(img)
		vignette(img, 0.5)
	}
	return img
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// sepia applies the classic sepia tone matrix.
func sepia(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		r := int(img.Pix[i])
		g := int(img.Pix[i+1])
		b := int(img.Pix[i+2])
		img.Pix[i] = clamp((r*393 + g*769 + b*189) / 1000)
		img.Pix[i+1] = clamp((r*349 + g*686 + b*168) / 1000)
		img.Pix[i+2] = clamp((r*272 + g*534 + b*131) / 1000)
	}
}

// noir converts to high-contrast monochrome (Rec. 601 luma, 1.3x contrast).
func noir(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		r := int(img.Pix[i])
		g := int(img.Pix[i+1])
		b := int(img.Pix[i+2])
		luma := (r*299 + g*587 + b*114) / 1000
		v := clamp((luma-128)*13/10 + 128)
		img.Pix[i] = v
		img.Pix[i+1] = v
		img.Pix[i+2] = v
	}
}

// warm shifts the white balance toward red.
func warm(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = clamp(int(img.Pix[i]) * 112 / 100)
		img.Pix[i+1] = clamp(int(img.Pix[i+1]) * 104 / 100)
		img.Pix[i+2] = clamp(int(img.Pix[i+2]) * 88 / 100)
	}
}

// fade lifts the blacks slightly, like aged photographic paper.
func fade(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = clamp(int(img.Pix[i])*9/10 + 18)
		img.Pix[i+1] = clamp(int(img.Pix[i+1])*9/10 + 18)
		img.Pix[i+2] = clamp(int(img.Pix[i+2])*9/10 + 18)
	}
}

// vignette darkens the corners by compositing black through a radial alpha
// mask. strength 0..1 sets the corner opacity.
func vignette(img *image.NRGBA, strength float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewAlpha(b)

	cx := float64(w) / 2
	cy := float64(h) / 2
	maxD := cx*cx + cy*cy

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			dy := float64(y) - cy
			d := (dx*dx + dy*dy) / maxD // 0 at center, 1 at corners
			if d <= 0.3 {
				continue
			}
			a := (d - 0.3) / 0.7 * strength
			mask.SetAlpha(b.Min.X+x, b.Min.Y+y, color.Alpha{A: uint8(a * 255)})
		}
	}

	xdraw.DrawMask(img, b, image.NewUniform(color.Black), image.Point{}, mask, b.Min, xdraw.Over)
}
