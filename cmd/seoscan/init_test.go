package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/seoscan/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	if cmd.Use != "init" {
		t.Errorf("expected use 'init', got %q", cmd.Use)
	}

	output := cmd.Flags().Lookup("output")
	if output == nil {
		t.Fatal("expected output flag")
	}
	if output.Shorthand != "o" || output.DefValue != configFileName {
		t.Errorf("unexpected output flag: -%s default %q", output.Shorthand, output.DefValue)
	}

	force := cmd.Flags().Lookup("force")
	if force == nil {
		t.Fatal("expected force flag")
	}
	if force.Shorthand != "f" || force.DefValue != "false" {
		t.Errorf("unexpected force flag: -%s default %q", force.Shorthand, force.DefValue)
	}
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	execute := func(t *testing.T, args ...string) (string, error) {
		t.Helper()
		var buf bytes.Buffer
		cmd := NewInitCmd()
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return buf.String(), err
	}

	t.Run("creates config file", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), ".seoscan.yaml")

		out, err := execute(t, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, outputPath) {
			t.Errorf("expected output to mention %s, got %q", outputPath, out)
		}

		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		for _, key := range []string{"defaults:", "sites:"} {
			if !strings.Contains(string(content), key) {
				t.Errorf("expected config to contain %q", key)
			}
		}
	})

	t.Run("fails if file exists without force", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), ".seoscan.yaml")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		_, err := execute(t, "-o", outputPath)
		if err == nil {
			t.Fatal("expected error when file exists")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}
	})

	t.Run("overwrites file with force flag", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), ".seoscan.yaml")
		if err := os.WriteFile(outputPath, []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		if _, err := execute(t, "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(outputPath)
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(content) == "existing" {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()
		outputPath := filepath.Join(t.TempDir(), "subdir", "nested", ".seoscan.yaml")

		if _, err := execute(t, "-o", outputPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(outputPath); err != nil {
			t.Errorf("expected config file in nested directory: %v", err)
		}
	})

	t.Run("file has owner-only permissions", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" {
			t.Skip("skipping permission test on Windows")
		}
		outputPath := filepath.Join(t.TempDir(), ".seoscan.yaml")

		if _, err := execute(t, "-o", outputPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("failed to stat file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	})
}

// TestConfigTemplate checks that the generated file loads cleanly.
func TestConfigTemplate(t *testing.T) {
	t.Parallel()

	content, err := configTemplate.ReadFile("templates/seoscan.yaml")
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}
	if len(content) == 0 {
		t.Fatal("template is empty")
	}

	path := filepath.Join(t.TempDir(), ".seoscan.yaml")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	file, err := config.LoadConfigFile(path)
	if err != nil {
		t.Fatalf("template does not load: %v", err)
	}
	if file.Defaults.Depth != config.DefaultMaxDepth {
		t.Errorf("expected default depth %d, got %d", config.DefaultMaxDepth, file.Defaults.Depth)
	}
	if len(file.Defaults.IgnorePatterns) == 0 {
		t.Error("expected default ignore patterns")
	}
}
