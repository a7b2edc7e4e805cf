// Package color defines the canonical color labels shared by command
// resolution and sensed-object classification, and the hue bucketing rule that
// maps raw RGB samples onto them.
package color

import (
	"fmt"
	"strings"
)

// Color is one of the canonical color labels.
type Color int

const (
	Unknown Color = iota
	Red
	Orange
	Yellow
	Green
	Blue
	Purple
)

var names = map[Color]string{
	Unknown: "unknown",
	Red:     "red",
	Orange:  "orange",
	Yellow:  "yellow",
	Green:   "green",
	Blue:    "blue",
	Purple:  "purple",
}

// Priority is the fixed keyword order used when a command names a color
// literally. The first entry found in the command wins, regardless of where it
// appears in the text.
var Priority = []Color{Red, Orange, Yellow, Green, Blue, Purple}

// String returns the lowercase label.
func (c Color) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return fmt.Sprintf("color(%d)", int(c))
}

// Valid reports whether c is one of the canonical labels, unknown included.
func (c Color) Valid() bool {
	_, ok := names[c]
	return ok
}

// ParseColor parses a label case-insensitively.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range names {
		if n == name {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("invalid color %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML renders the label for gopkg.in/yaml.v2.
func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// UnmarshalYAML parses a label for gopkg.in/yaml.v2.
func (c *Color) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return c.UnmarshalText([]byte(s))
}

// ParseList parses a comma separated list of labels, e.g. "red, blue".
func ParseList(s string) ([]Color, error) {
	var out []Color
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseColor(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
