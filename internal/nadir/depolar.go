package nadir

import (
	"image"
	"image/color"
	"math"
)

// DePolar unwraps a polar (circular) image into rectangular coordinates,
// the inverse of a polar distortion. Each output column corresponds to an
// angle around the image center and each row to a radius, sampled
// bilinearly from the source. The result keeps the source dimensions.
func DePolar(src *image.NRGBA) *image.NRGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	cx := float64(w) / 2
	cy := float64(h) / 2
	maxRadius := math.Min(cx, cy)

	for y := 0; y < h; y++ {
		radius := (float64(y) / float64(h)) * maxRadius
		for x := 0; x < w; x++ {
			angle := (float64(x) / float64(w)) * 2 * math.Pi
			sx := cx + radius*math.Sin(angle)
			sy := cy - radius*math.Cos(angle)
			dst.SetNRGBA(x, y, sampleBilinear(src, sx, sy))
		}
	}
	return dst
}

func sampleBilinear(src *image.NRGBA, x, y float64) color.NRGBA {
	b := src.Bounds()
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	var acc [4]float64
	for dy := 0; dy <= 1; dy++ {
		wy := 1 - fy
		if dy == 1 {
			wy = fy
		}
		for dx := 0; dx <= 1; dx++ {
			wx := 1 - fx
			if dx == 1 {
				wx = fx
			}
			px := clamp(x0+dx, b.Min.X, b.Max.X-1)
			py := clamp(y0+dy, b.Min.Y, b.Max.Y-1)
			c := src.NRGBAAt(px, py)
			weight := wx * wy
			acc[0] += weight * float64(c.R)
			acc[1] += weight * float64(c.G)
			acc[2] += weight * float64(c.B)
			acc[3] += weight * float64(c.A)
		}
	}
	return color.NRGBA{
		R: uint8(math.Round(acc[0])),
		G: uint8(math.Round(acc[1])),
		B: uint8(math.Round(acc[2])),
		A: uint8(math.Round(acc[3])),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
