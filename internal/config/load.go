package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, and parses the runtime configuration.
//
// Load never fails: a missing, unreadable, or malformed file yields Default()
// with a warning describing why.
func Load(explicitPath string) Loaded {
	base := Default()

	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{
			Config:   base,
			Warnings: []Warning{{Message: fmt.Sprintf("%v; using defaults", err)}},
		}
	}

	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		message := fmt.Sprintf("read config %q: %v; using defaults", resolvedPath, err)
		if errors.Is(err, os.ErrNotExist) {
			message = fmt.Sprintf("config file %q not found; using defaults", resolvedPath)
		}
		return Loaded{
			Path:     resolvedPath,
			Config:   base,
			Warnings: []Warning{{Message: message}},
		}
	}

	cfg, warnings, err := Parse(string(content), FormatForPath(resolvedPath), base)
	if err != nil {
		return Loaded{
			Path:     resolvedPath,
			Config:   Default(),
			Warnings: []Warning{{Message: fmt.Sprintf("parse config %q: %v; using defaults", resolvedPath, err)}},
			Exists:   true,
		}
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}
}
