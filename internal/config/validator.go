package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/calcgraph/internal/formula"
)

// Validate checks the sheet for:
//   - Required fields
//   - Duplicate IDs across inputs and formulas
//   - Formulas that fail to parse
//   - References to names not defined earlier in the file (which also rules out cycles)
func Validate(cfg *SheetConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	ids := make(map[string]string) // id → location
	var errs []string

	claim := func(id, loc string) {
		if prev, ok := ids[id]; ok {
			errs = append(errs, fmt.Sprintf("duplicate id %q (first seen at %s, again at %s)", id, prev, loc))
			return
		}
		ids[id] = loc
	}

	for i, in := range cfg.Inputs {
		if in.ID == "" {
			errs = append(errs, fmt.Sprintf("inputs[%d]: id is required", i))
			continue
		}
		claim(in.ID, fmt.Sprintf("input %s", in.ID))
	}

	for i, f := range cfg.Formulas {
		if f.ID == "" {
			errs = append(errs, fmt.Sprintf("formulas[%d]: id is required", i))
			continue
		}
		loc := fmt.Sprintf("formula %s", f.ID)
		if f.Expression == "" {
			errs = append(errs, fmt.Sprintf("%s: expression is required", loc))
			claim(f.ID, loc)
			continue
		}
		expr, err := formula.Parse(f.Expression)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: parse %q: %s", loc, f.Expression, err))
		} else {
			for _, name := range formula.Identifiers(expr) {
				if name == f.ID {
					errs = append(errs, fmt.Sprintf("%s: refers to itself", loc))
				} else if _, ok := ids[name]; !ok {
					errs = append(errs, fmt.Sprintf("%s: unknown name %q (inputs and earlier formulas only)", loc, name))
				}
			}
		}
		claim(f.ID, loc)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
