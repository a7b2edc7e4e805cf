package color

import (
	"fmt"
	"math"
)

// Hue bucket boundaries. A hue exactly on the red/orange edge or the
// purple/red edge falls into no bucket and classifies as Unknown.
const (
	redOrangeEdge    = 0.019
	orangeYellowEdge = 0.075
	yellowGreenEdge  = 0.2
	greenBlueEdge    = 0.5
	bluePurpleEdge   = 0.7
	purpleRedEdge    = 0.9
)

// RGB is a raw color sample as reported by the vision collaborator, each
// channel nominally in [0,255].
type RGB struct {
	R float64 `json:"r" yaml:"r"`
	G float64 `json:"g" yaml:"g"`
	B float64 `json:"b" yaml:"b"`
}

// ValidationError reports a color sample with a channel outside [0,255].
type ValidationError struct {
	Channel string
	Value   float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("color channel %s=%v outside [0,255]", e.Channel, e.Value)
}

// Validate checks every channel is a finite value in [0,255].
func (c RGB) Validate() error {
	for _, ch := range []struct {
		name  string
		value float64
	}{{"r", c.R}, {"g", c.G}, {"b", c.B}} {
		if math.IsNaN(ch.value) || ch.value < 0 || ch.value > 255 {
			return &ValidationError{Channel: ch.name, Value: ch.value}
		}
	}
	return nil
}

// Clamp returns a copy with every channel forced into [0,255]. NaN becomes 0.
func (c RGB) Clamp() RGB {
	return RGB{R: clampChannel(c.R), G: clampChannel(c.G), B: clampChannel(c.B)}
}

func clampChannel(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 255:
		return 255
	}
	return v
}

// Hue converts the sample to HSV and returns the hue in [0,1). Saturation and
// value are discarded; achromatic samples have hue 0.
func Hue(c RGB) float64 {
	r, g, b := c.R/255.0, c.G/255.0, c.B/255.0

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	if maxC == minC {
		return 0
	}
	delta := maxC - minC
	rc := (maxC - r) / delta
	gc := (maxC - g) / delta
	bc := (maxC - b) / delta

	var h float64
	switch {
	case r == maxC:
		h = bc - gc
	case g == maxC:
		h = 2.0 + rc - bc
	default:
		h = 4.0 + gc - rc
	}

	h = math.Mod(h/6.0, 1.0)
	if h < 0 {
		h += 1.0
	}
	return h
}

// BucketHue maps a hue in [0,1) onto a canonical color. Intervals are
// half-open and the two edges 0.019 and 0.9 map to Unknown.
func BucketHue(h float64) Color {
	switch {
	case h < redOrangeEdge:
		return Red
	case redOrangeEdge < h && h <= orangeYellowEdge:
		return Orange
	case orangeYellowEdge < h && h <= yellowGreenEdge:
		return Yellow
	case yellowGreenEdge < h && h <= greenBlueEdge:
		return Green
	case greenBlueEdge < h && h <= bluePurpleEdge:
		return Blue
	case bluePurpleEdge < h && h < purpleRedEdge:
		return Purple
	case h > purpleRedEdge:
		return Red
	}
	return Unknown
}

// FromRGB classifies a raw sample by hue alone.
func FromRGB(c RGB) Color {
	return BucketHue(Hue(c))
}
