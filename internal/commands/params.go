package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/vision"
)

// StringParams decodes positional string parameters. Absent params decode to
// an empty slice.
func StringParams(raw json.RawMessage) ([]string, error) {
	if isAbsent(raw) {
		return []string{}, nil
	}
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, invalidParams("params must be an array of strings")
	}
	return params, nil
}

// ParseRGB accepts [r, g, b] as numbers or numeric strings, or an object
// {"r":..,"g":..,"b":..}.
func ParseRGB(raw json.RawMessage) (color.RGB, error) {
	if isAbsent(raw) {
		return color.RGB{}, invalidParams("missing color sample")
	}

	var obj color.RGB
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return color.RGB{}, invalidParams("invalid color object")
		}
		return obj, nil
	}

	var nums []float64
	if err := json.Unmarshal(raw, &nums); err != nil {
		strs, serr := StringParams(raw)
		if serr != nil {
			return color.RGB{}, invalidParams("color sample must be [r, g, b]")
		}
		nums = make([]float64, len(strs))
		for i, s := range strs {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return color.RGB{}, invalidParams(fmt.Sprintf("channel %d is not a number", i))
			}
			nums[i] = v
		}
	}
	if len(nums) != 3 {
		return color.RGB{}, invalidParams(fmt.Sprintf("color sample needs 3 channels, got %d", len(nums)))
	}
	return color.RGB{R: nums[0], G: nums[1], B: nums[2]}, nil
}

// ParseTarget parses a canonical color label, unknown included.
func ParseTarget(label string) (color.Color, error) {
	c, err := color.ParseColor(label)
	if err != nil {
		return color.Unknown, invalidParams(err.Error())
	}
	return c, nil
}

// MatchParams are the parameters of match_cluster. A nil Objects slice means
// sense the current scene.
type MatchParams struct {
	Target  string          `json:"target"`
	Objects []vision.Object `json:"objects"`
}

// ParseMatchParams accepts {"target": .., "objects": [..]} or ["target"].
func ParseMatchParams(raw json.RawMessage) (color.Color, []vision.Object, error) {
	var p MatchParams
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &p); err != nil {
			return color.Unknown, nil, invalidParams("invalid match parameters")
		}
	} else {
		strs, err := StringParams(raw)
		if err != nil {
			return color.Unknown, nil, err
		}
		if len(strs) != 1 {
			return color.Unknown, nil, invalidParams("expected exactly one target color")
		}
		p.Target = strs[0]
	}

	target, err := ParseTarget(p.Target)
	if err != nil {
		return color.Unknown, nil, err
	}
	return target, p.Objects, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
