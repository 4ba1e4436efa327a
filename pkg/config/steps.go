package config

import (
	"os"

	gotoml "github.com/pelletier/go-toml/v2"

	provisioerr "github.com/provisio-sh/provisio/pkg/errors"
)

// StepOverridesPath is the optional host-local step tuning file. It is kept
// separate from provisio.toml so fleet tooling can drop a single small file
// that only enables/disables steps.
const StepOverridesPath = "/etc/provisio/steps.toml"

type stepOverridesFile struct {
	Steps map[string]Override `toml:"steps"`
}

// LoadStepOverrides reads a steps override file. A missing file is not an
// error; it simply yields no overrides.
func LoadStepOverrides(path string) (map[string]Override, error) {
	if path == "" {
		path = StepOverridesPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, provisioerr.Wrapf(err, provisioerr.ErrConfigLoad,
			"failed to read step overrides from %s", path)
	}

	var parsed stepOverridesFile
	if err := gotoml.Unmarshal(data, &parsed); err != nil {
		return nil, provisioerr.Wrapf(err, provisioerr.ErrConfigParse,
			"malformed step overrides in %s", path)
	}

	return parsed.Steps, nil
}

// MergeOverrides layers extra on top of base, field by field, returning a
// new map. Neither input is mutated.
func MergeOverrides(base, extra map[string]Override) map[string]Override {
	merged := make(map[string]Override, len(base)+len(extra))
	for name, o := range base {
		merged[name] = o
	}
	for name, o := range extra {
		prev := merged[name]
		if o.Enabled != nil {
			prev.Enabled = o.Enabled
		}
		if o.Critical != nil {
			prev.Critical = o.Critical
		}
		merged[name] = prev
	}
	return merged
}
