package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gyaneshwarpardhi/calcgraph/internal/config"
	"github.com/gyaneshwarpardhi/calcgraph/internal/dag"
	"github.com/gyaneshwarpardhi/calcgraph/internal/formula"
	"github.com/gyaneshwarpardhi/calcgraph/internal/metrics"
)

// ErrUnknownName is returned for names the current sheet does not define.
var ErrUnknownName = errors.New("unknown name")

// sheet is one built generation of a config: the scope owning every node
// plus the names that are inputs or formulas.
type sheet struct {
	cfg      *config.SheetConfig
	scope    *dag.Scope
	inputs   map[string]*dag.Node
	formulas []string
}

// Engine evaluates the formulas of a sheet. The graph itself is
// single-threaded, so every operation runs under one lock; a hot-reload
// goroutine and readers can share an Engine safely.
type Engine struct {
	mu     sync.Mutex
	sheet  *sheet
	logger *slog.Logger
}

// New validates cfg and builds its graph.
func New(cfg *config.SheetConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := build(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("sheet built", "inputs", len(s.inputs), "formulas", len(s.formulas), "nodes", s.scope.Len())
	return &Engine{sheet: s, logger: logger}, nil
}

func build(cfg *config.SheetConfig) (*sheet, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	s := &sheet{
		cfg:    cfg,
		scope:  dag.NewScope(),
		inputs: make(map[string]*dag.Node, len(cfg.Inputs)),
	}
	for _, in := range cfg.Inputs {
		n := dag.CreateInput(in.ID)
		if in.Value != nil {
			if err := n.Set(*in.Value); err != nil {
				return nil, fmt.Errorf("input %s: %w", in.ID, err)
			}
		}
		if err := s.scope.Define(in.ID, n); err != nil {
			return nil, err
		}
		s.inputs[in.ID] = n
	}
	for _, f := range cfg.Formulas {
		n, err := formula.Compile(f.Expression, s.scope)
		if err != nil {
			return nil, fmt.Errorf("formula %s: %w", f.ID, err)
		}
		if err := s.scope.Define(f.ID, n); err != nil {
			return nil, err
		}
		s.formulas = append(s.formulas, f.ID)
	}
	return s, nil
}

// Set assigns an input's value. Only formulas downstream of it are
// recomputed on the next read.
func (e *Engine) Set(name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.sheet.scope.Lookup(name)
	if !ok {
		return fmt.Errorf("set %q: %w", name, ErrUnknownName)
	}
	return n.Set(value)
}

// Compute returns the value of an input or formula.
func (e *Engine) Compute(name string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.sheet.scope.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("compute %q: %w", name, ErrUnknownName)
	}
	v, err := n.Compute()
	if err != nil {
		return 0, fmt.Errorf("compute %q: %w", name, err)
	}
	return v, nil
}

// ComputeAll evaluates every formula. Formulas that cannot be evaluated are
// left out of the map; the first failure is returned alongside the rest.
func (e *Engine) ComputeAll() (map[string]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()

	out := make(map[string]float64, len(e.sheet.formulas))
	var errs []error
	for _, name := range e.sheet.formulas {
		n, _ := e.sheet.scope.Lookup(name)
		v, err := n.Compute()
		if err != nil {
			errs = append(errs, fmt.Errorf("formula %s: %w", name, err))
			continue
		}
		out[name] = v
	}
	metrics.SheetEvaluationDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)

	var evalErr error
	if len(errs) > 0 {
		evalErr = errs[0] // surface first error
	}
	return out, evalErr
}

// Names returns the inputs and formulas of the current sheet in
// definition order.
func (e *Engine) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sheet.scope.Names()
}

// Apply moves the engine to cfg. When only input values differ, the
// existing graph is kept and just the inputs whose live value disagrees
// with cfg are set, so cached formulas that do not depend on them survive.
// Otherwise the graph is rebuilt and swapped in. Either way every input ends
// up holding exactly the value cfg gives it. On error the current sheet
// stays in place.
func (e *Engine) Apply(cfg *config.SheetConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := config.Validate(cfg); err != nil {
		metrics.SheetReloads.WithLabelValues("validate", "error").Inc()
		return err
	}

	if config.SameFormulas(e.sheet.cfg, cfg) {
		changed, err := e.applyValues(cfg)
		if err != nil {
			metrics.SheetReloads.WithLabelValues("values", "error").Inc()
			return err
		}
		e.sheet.cfg = cfg
		metrics.SheetReloads.WithLabelValues("values", "success").Inc()
		e.logger.Info("sheet values applied", "changed", changed)
		return nil
	}

	s, err := build(cfg)
	if err != nil {
		metrics.SheetReloads.WithLabelValues("rebuild", "error").Inc()
		return err
	}
	e.sheet = s
	metrics.SheetReloads.WithLabelValues("rebuild", "success").Inc()
	e.logger.Info("sheet rebuilt", "inputs", len(s.inputs), "formulas", len(s.formulas))
	return nil
}

// applyValues brings every input to its configured value, comparing against
// the value the parameter holds now (which a runtime Set may have moved away
// from the previous config). It returns how many inputs changed.
func (e *Engine) applyValues(cfg *config.SheetConfig) (int, error) {
	changed := 0
	for _, in := range cfg.Inputs {
		n := e.sheet.inputs[in.ID]
		cur, set := n.Cached()
		switch {
		case in.Value == nil && !set:
		case in.Value == nil:
			n.Invalidate()
			changed++
		case !set || cur != *in.Value:
			if err := n.Set(*in.Value); err != nil {
				return changed, fmt.Errorf("input %s: %w", in.ID, err)
			}
			changed++
		}
	}
	return changed, nil
}

// Watch applies every config the loader reloads. Invalid configs are
// logged and skipped.
func (e *Engine) Watch(loader *config.Loader) {
	loader.OnChange(func(cfg *config.SheetConfig) {
		if err := e.Apply(cfg); err != nil {
			e.logger.Warn("hot-reload skipped", "err", err)
		}
	})
}
