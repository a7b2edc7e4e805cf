// Package config loads the color picker configuration.
//
// Values are layered: built-in defaults, then config/default.yaml when it
// exists, then an explicit file (YAML, or TOML when the name ends in .toml),
// then COLORPICKER_* environment variables. The result is validated once at
// startup; the hue bucket table and keyword order are not configurable.
package config
