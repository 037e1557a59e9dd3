package engine_test

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/gyaneshwarpardhi/calcgraph/internal/config"
	"github.com/gyaneshwarpardhi/calcgraph/internal/dag"
	"github.com/gyaneshwarpardhi/calcgraph/internal/engine"
	"github.com/gyaneshwarpardhi/calcgraph/internal/metrics"
)

func value(v float64) *float64 { return &v }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleConfig(x1, x2, x3 *float64) *config.SheetConfig {
	return &config.SheetConfig{
		Version: "v1",
		Inputs: []config.InputDef{
			{ID: "x1", Value: x1},
			{ID: "x2", Value: x2},
			{ID: "x3", Value: x3},
		},
		Formulas: []config.FormulaDef{
			{ID: "inner", Expression: "x2 + x3^3"},
			{ID: "out", Expression: "x1 + x2 * sin(inner)"},
		},
	}
}

func buildEngine(t *testing.T, cfg *config.SheetConfig) *engine.Engine {
	t.Helper()
	e, err := engine.New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func assertValue(t *testing.T, e *engine.Engine, name string, want float64) {
	t.Helper()
	got, err := e.Compute(name)
	if err != nil {
		t.Fatalf("Compute(%s): %v", name, err)
	}
	if math.Abs(got-want) > 1e-5 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestEngine_SampleSheet(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))
	assertValue(t, e, "out", -0.32727)
	assertValue(t, e, "inner", 29)

	for name, v := range map[string]float64{"x1": 2, "x2": 3, "x3": 4} {
		if err := e.Set(name, v); err != nil {
			t.Fatal(err)
		}
	}
	assertValue(t, e, "out", -0.56656)
}

func TestEngine_UnsetInput(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), nil))

	_, err := e.Compute("out")
	if !errors.Is(err, dag.ErrUnsetParameter) {
		t.Fatalf("expected ErrUnsetParameter, got %v", err)
	}

	vals, err := e.ComputeAll()
	if !errors.Is(err, dag.ErrUnsetParameter) {
		t.Fatalf("ComputeAll error = %v", err)
	}
	if len(vals) != 0 {
		t.Errorf("ComputeAll returned values for failing formulas: %v", vals)
	}

	if err := e.Set("x3", 3); err != nil {
		t.Fatal(err)
	}
	vals, err = e.ComputeAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 || math.Abs(vals["out"]+0.32727) > 1e-5 {
		t.Errorf("ComputeAll = %v", vals)
	}
}

func TestEngine_Errors(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))

	if err := e.Set("nope", 1); !errors.Is(err, engine.ErrUnknownName) {
		t.Errorf("Set unknown: %v", err)
	}
	if _, err := e.Compute("nope"); !errors.Is(err, engine.ErrUnknownName) {
		t.Errorf("Compute unknown: %v", err)
	}
	if err := e.Set("out", 1); !errors.Is(err, dag.ErrNotParameter) {
		t.Errorf("Set formula: %v", err)
	}

	bad := sampleConfig(nil, nil, nil)
	bad.Formulas = append(bad.Formulas, config.FormulaDef{ID: "broken", Expression: "missing + 1"})
	if _, err := engine.New(bad, quietLogger()); err == nil {
		t.Error("expected New to reject unknown names")
	}
}

func TestEngine_Names(t *testing.T) {
	e := buildEngine(t, sampleConfig(nil, nil, nil))
	want := []string{"x1", "x2", "x3", "inner", "out"}
	got := e.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEngine_ApplyValuesKeepsUnaffectedCaches(t *testing.T) {
	cfg := &config.SheetConfig{
		Version: "v1",
		Inputs:  []config.InputDef{{ID: "a", Value: value(1)}, {ID: "b", Value: value(3)}},
		Formulas: []config.FormulaDef{
			{ID: "fa", Expression: "sin(a)"},
			{ID: "fb", Expression: "b * b"},
		},
	}
	e := buildEngine(t, cfg)
	if _, err := e.ComputeAll(); err != nil {
		t.Fatal(err)
	}

	unary := testutil.ToFloat64(metrics.Computations.WithLabelValues("unary"))
	binary := testutil.ToFloat64(metrics.Computations.WithLabelValues("binary"))
	reloads := testutil.ToFloat64(metrics.SheetReloads.WithLabelValues("values", "success"))

	next := &config.SheetConfig{
		Version:  "v1",
		Inputs:   []config.InputDef{{ID: "a", Value: value(2)}, {ID: "b", Value: value(3)}},
		Formulas: cfg.Formulas,
	}
	if err := e.Apply(next); err != nil {
		t.Fatal(err)
	}
	vals, err := e.ComputeAll()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(vals["fa"]-math.Sin(2)) > 1e-9 || vals["fb"] != 9 {
		t.Errorf("values after apply = %v", vals)
	}
	if d := testutil.ToFloat64(metrics.Computations.WithLabelValues("unary")) - unary; d != 1 {
		t.Errorf("fa recomputed %v times, want 1", d)
	}
	if d := testutil.ToFloat64(metrics.Computations.WithLabelValues("binary")) - binary; d != 0 {
		t.Errorf("fb recomputed %v times, want 0", d)
	}
	if d := testutil.ToFloat64(metrics.SheetReloads.WithLabelValues("values", "success")) - reloads; d != 1 {
		t.Errorf("values reload counter delta = %v", d)
	}
}

func TestEngine_ApplyUnsetsRemovedValue(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))
	assertValue(t, e, "out", -0.32727)

	if err := e.Apply(sampleConfig(value(1), value(2), nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Compute("out"); !errors.Is(err, dag.ErrUnsetParameter) {
		t.Errorf("expected ErrUnsetParameter after value removal, got %v", err)
	}
}

func TestEngine_ApplyOverridesRuntimeSet(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))

	// The config is unchanged, so only the live value disagrees with it.
	if err := e.Set("x1", 100); err != nil {
		t.Fatal(err)
	}
	assertValue(t, e, "x1", 100)
	if err := e.Apply(sampleConfig(value(1), value(2), value(3))); err != nil {
		t.Fatal(err)
	}
	assertValue(t, e, "x1", 1)
	assertValue(t, e, "out", -0.32727)

	// A runtime Set on an input the config leaves unset is cleared too.
	e = buildEngine(t, sampleConfig(value(1), value(2), nil))
	if err := e.Set("x3", 3); err != nil {
		t.Fatal(err)
	}
	assertValue(t, e, "out", -0.32727)
	if err := e.Apply(sampleConfig(value(1), value(2), nil)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Compute("x3"); !errors.Is(err, dag.ErrUnsetParameter) {
		t.Errorf("x3 after Apply: expected ErrUnsetParameter, got %v", err)
	}
	if _, err := e.Compute("out"); !errors.Is(err, dag.ErrUnsetParameter) {
		t.Errorf("out after Apply: expected ErrUnsetParameter, got %v", err)
	}
}

func TestEngine_ApplyValidatesValuesOnlyConfig(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))
	rejected := testutil.ToFloat64(metrics.SheetReloads.WithLabelValues("validate", "error"))

	bad := sampleConfig(value(5), value(2), value(3))
	bad.Version = ""
	if err := e.Apply(bad); err == nil {
		t.Fatal("expected Apply to reject a config without a version")
	}
	assertValue(t, e, "x1", 1)
	if d := testutil.ToFloat64(metrics.SheetReloads.WithLabelValues("validate", "error")) - rejected; d != 1 {
		t.Errorf("validate error counter delta = %v, want 1", d)
	}
}

func TestEngine_ComputeAllObservesDuration(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))
	before := histogramCount(t)
	if _, err := e.ComputeAll(); err != nil {
		t.Fatal(err)
	}
	if got := histogramCount(t) - before; got != 1 {
		t.Errorf("duration observations = %d, want 1", got)
	}
}

func histogramCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := metrics.SheetEvaluationDuration.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestEngine_ApplyRebuild(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))

	next := sampleConfig(value(1), value(2), value(3))
	next.Formulas = append(next.Formulas, config.FormulaDef{ID: "twice", Expression: "out * 2"})
	if err := e.Apply(next); err != nil {
		t.Fatal(err)
	}
	assertValue(t, e, "twice", -0.65454)

	// An invalid config leaves the current sheet in place.
	broken := sampleConfig(value(1), value(2), value(3))
	broken.Formulas = []config.FormulaDef{{ID: "x", Expression: "x1 +"}}
	if err := e.Apply(broken); err == nil {
		t.Fatal("expected Apply to reject broken config")
	}
	assertValue(t, e, "twice", -0.65454)
}

func TestEngine_WatchAppliesReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sheet.yaml")
	write := func(x1 float64) {
		t.Helper()
		body := "version: v1\ninputs:\n  - id: x1\n    value: " +
			formatFloat(x1) + "\nformulas:\n  - id: sq\n    expression: \"x1 ^ 2\"\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(3)

	loader, err := config.NewLoader(path)
	if err != nil {
		t.Fatal(err)
	}
	e := buildEngine(t, loader.Config())
	e.Watch(loader)
	assertValue(t, e, "sq", 9)

	write(4)
	if _, err := loader.Reload(); err != nil {
		t.Fatal(err)
	}
	assertValue(t, e, "sq", 16)
}

func TestEngine_ConcurrentAccess(t *testing.T) {
	e := buildEngine(t, sampleConfig(value(1), value(2), value(3)))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if i%2 == 0 {
					_ = e.Set("x1", float64(j))
				} else if _, err := e.Compute("out"); err != nil {
					t.Errorf("Compute: %v", err)
					return
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("concurrent access deadlocked")
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
