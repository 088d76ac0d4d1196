package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 600 {
		t.Errorf("canvas %+v", cfg.Canvas)
	}
	if cfg.Trunk.Length != 15 || cfg.Trunk.Width != 6 || math.Abs(cfg.Trunk.Angle+math.Pi/2) > 1e-12 {
		t.Errorf("trunk %+v", cfg.Trunk)
	}
	if cfg.Generation.MaxDepth != 6 || cfg.Generation.Depth != nil {
		t.Errorf("generation %+v", cfg.Generation)
	}
	if cfg.Inference.Samples != 5000 || cfg.Inference.Scale != 100 || cfg.Inference.MaxDepth != 6 {
		t.Errorf("inference %+v", cfg.Inference)
	}
	if x, y := cfg.Start(); x != 400 || y != 600 {
		t.Errorf("start (%v, %v)", x, y)
	}
	if d, err := cfg.Inference.TimeoutDuration(); err != nil || d != 30*time.Second {
		t.Errorf("timeout %v, %v", d, err)
	}
}

func write(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.cue")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Override(t *testing.T) {
	base := write(t, `
canvas: width: 400
trunk: x: 10
generation: depth: 3
inference: {
	samples: 200
	timeout: "2s"
}
`)
	cfg, err := Load(base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Canvas.Width != 400 || cfg.Canvas.Height != 600 {
		t.Errorf("canvas %+v", cfg.Canvas)
	}
	if x, y := cfg.Start(); x != 10 || y != 600 {
		t.Errorf("start (%v, %v)", x, y)
	}
	if cfg.Generation.Depth == nil || *cfg.Generation.Depth != 3 {
		t.Errorf("depth %v", cfg.Generation.Depth)
	}
	if cfg.Inference.Samples != 200 {
		t.Errorf("samples %d", cfg.Inference.Samples)
	}
}

func TestLoad_Invalid(t *testing.T) {
	for name, content := range map[string]string{
		"unknown field":   `colour: "red"`,
		"zero samples":    `inference: samples: 0`,
		"negative depth":  `generation: maxDepth: -1`,
		"syntax":          `canvas: {`,
		"wrong type":      `output: 3`,
		"zero min length": `trunk: minLength: 0`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(write(t, content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.cue")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
