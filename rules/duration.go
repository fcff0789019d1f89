package rules

import (
	"gopkg.in/yaml.v3"

	"github.com/JuanCrzp/ClientCare/utils"
)

// Duration is a human-readable duration as found in rule files: "30m",
// "1h30m", "2 dias", or a bare number interpreted in the caller's default
// unit. Decoding never fails; unparseable values read as zero.
type Duration struct {
	raw string
}

func Dur(raw string) Duration { return Duration{raw: raw} }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	d.raw = n.Value
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return d.raw, nil }

func (d Duration) IsZero() bool { return d.raw == "" }

func (d Duration) String() string { return d.raw }

// Seconds parses the raw value, applying defaultUnit to bare numbers and
// unrecognized unit tokens.
func (d Duration) Seconds(defaultUnit string) int {
	return utils.ParseSeconds(d.raw, defaultUnit)
}
