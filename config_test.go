package undex

import (
	"os"
	"path/filepath"
	"testing"

	"undex/internal/codegen"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"toml", "undex.toml", `
sources = ["classes.dex"]
unreachable = "drop"
workers = 3
max_steps = 5000
exclude = "android androidx"

[hints]
"Lapp/A;->m(Ljava/lang/Object;)V" = ["Ljava/lang/String;"]
`},
		{"yaml", "undex.yml", `
sources: [classes.dex]
unreachable: drop
workers: 3
max_steps: 5000
exclude: android androidx
hints:
  "Lapp/A;->m(Ljava/lang/Object;)V": ["Ljava/lang/String;"]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeFile(t, tt.file, tt.data))
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if len(cfg.Sources) != 1 || cfg.Sources[0] != "classes.dex" {
				t.Errorf("sources = %v", cfg.Sources)
			}
			if cfg.Workers != 3 || cfg.MaxSteps != 5000 {
				t.Errorf("workers %d max_steps %d, want 3 5000", cfg.Workers, cfg.MaxSteps)
			}
			if got := cfg.codegen().Dead; got != codegen.DeadDrop {
				t.Errorf("dead policy = %v, want drop", got)
			}
			if ex := cfg.Excludes(); len(ex) != 2 || ex[1] != "androidx" {
				t.Errorf("excludes = %v", ex)
			}
			hint := cfg.Hints["Lapp/A;->m(Ljava/lang/Object;)V"]
			if len(hint) != 1 || hint[0] != "Ljava/lang/String;" {
				t.Errorf("hints = %v", cfg.Hints)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"bad policy", "a.toml", `unreachable = "hide"`},
		{"negative workers", "a.yaml", "workers: -1"},
		{"bad hint key", "a.toml", "[hints]\nfoo = [\"I\"]"},
		{"syntax", "a.toml", "workers = ["},
		{"unknown format", "a.json", "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeFile(t, tt.file, tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
