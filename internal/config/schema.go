package config

// SheetConfig is the top-level YAML structure.
type SheetConfig struct {
	Version  string       `yaml:"version"`
	Inputs   []InputDef   `yaml:"inputs"`
	Formulas []FormulaDef `yaml:"formulas"`
}

// InputDef declares a parameter. A nil Value leaves it unset.
type InputDef struct {
	ID    string   `yaml:"id"`
	Value *float64 `yaml:"value,omitempty"`
}

// FormulaDef names an expression over inputs and earlier formulas.
type FormulaDef struct {
	ID         string `yaml:"id"`
	Expression string `yaml:"expression"`
}

// SameFormulas reports whether a and b define the same formulas in the same
// order. Inputs are compared by id only; their values may differ.
func SameFormulas(a, b *SheetConfig) bool {
	if len(a.Inputs) != len(b.Inputs) || len(a.Formulas) != len(b.Formulas) {
		return false
	}
	for i := range a.Inputs {
		if a.Inputs[i].ID != b.Inputs[i].ID {
			return false
		}
	}
	for i := range a.Formulas {
		if a.Formulas[i] != b.Formulas[i] {
			return false
		}
	}
	return true
}
