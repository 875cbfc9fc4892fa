package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "cookbook")
	p := writeFile(t, "c.yaml", "name: ${SAMPLE_NAME}\nport: 80\n")
	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "cookbook" || s.Port != 80 {
		t.Errorf("loaded %+v", s)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	p := writeFile(t, "c.yaml", "name: x\n")
	var s sample
	err := Load(p, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Errorf("err = %v, want validation failure", err)
	}
}

func TestLoadWithDefaults_FallsBack(t *testing.T) {
	def := writeFile(t, "default.yaml", "name: fallback\nport: 1\n")
	var s sample
	if err := LoadWithDefaults(filepath.Join(t.TempDir(), "missing.yaml"), def, &s); err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if s.Name != "fallback" {
		t.Errorf("name = %q, want fallback", s.Name)
	}
}

func TestLoadOptional_MissingFileValidatesDefaults(t *testing.T) {
	s := sample{Name: "default", Port: 8080}
	loaded, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if loaded {
		t.Error("loaded = true for a missing file")
	}
	if s.Name != "default" {
		t.Errorf("name = %q, want default", s.Name)
	}

	var empty sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yaml"), &empty); err == nil {
		t.Error("invalid defaults should fail validation")
	}
}

func TestLoadOptional_OverlaysFile(t *testing.T) {
	p := writeFile(t, "c.yaml", "port: 9090\n")
	s := sample{Name: "default", Port: 8080}
	loaded, err := LoadOptional(p, &s)
	if err != nil || !loaded {
		t.Fatalf("LoadOptional = %v, %v", loaded, err)
	}
	if s.Name != "default" || s.Port != 9090 {
		t.Errorf("loaded %+v, want name kept and port overlaid", s)
	}
}
