package main

import (
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/seoscan/internal/config"
	"github.com/nao1215/seoscan/internal/model"
)

func TestPipelineConfig(t *testing.T) {
	t.Parallel()

	newTestApp := func(competitors ...string) *app {
		cfg := config.NewConfig()
		cfg.Competitors = competitors
		return &app{cfg: cfg}
	}

	t.Run("site settings override global bounds", func(t *testing.T) {
		t.Parallel()
		a := newTestApp()
		pc := a.pipelineConfig(runOptions{}, config.SiteConfig{Depth: 1, MaxPages: 4})
		if pc.MaxDepth != 1 || pc.MaxPages != 4 {
			t.Errorf("unexpected bounds: depth %d pages %d", pc.MaxDepth, pc.MaxPages)
		}
	})

	t.Run("zero site settings keep global bounds", func(t *testing.T) {
		t.Parallel()
		a := newTestApp()
		pc := a.pipelineConfig(runOptions{}, config.SiteConfig{})
		if pc.MaxDepth != config.DefaultMaxDepth || pc.MaxPages != config.DefaultMaxPages {
			t.Errorf("unexpected bounds: depth %d pages %d", pc.MaxDepth, pc.MaxPages)
		}
	})

	t.Run("patterns add up", func(t *testing.T) {
		t.Parallel()
		a := newTestApp()
		site := config.SiteConfig{IgnorePatterns: []string{"/admin/*"}, FollowPatterns: []string{"/blog/*"}}
		opts := runOptions{ignorePatterns: []string{"*.pdf"}, followPatterns: []string{"/docs/*"}}
		pc := a.pipelineConfig(opts, site)
		if !slices.Equal(pc.IgnorePatterns, []string{"/admin/*", "*.pdf"}) {
			t.Errorf("unexpected ignore patterns: %v", pc.IgnorePatterns)
		}
		if !slices.Equal(pc.FollowPatterns, []string{"/blog/*", "/docs/*"}) {
			t.Errorf("unexpected follow patterns: %v", pc.FollowPatterns)
		}
		if len(site.IgnorePatterns) != 1 {
			t.Error("site config must not be modified")
		}
	})

	t.Run("flag competitors win over site competitors", func(t *testing.T) {
		t.Parallel()
		site := config.SiteConfig{Competitors: []string{"https://site.example"}}

		pc := newTestApp("https://flag.example").pipelineConfig(runOptions{}, site)
		if !slices.Equal(pc.Competitors, []string{"https://flag.example"}) {
			t.Errorf("expected flag competitor, got %v", pc.Competitors)
		}

		pc = newTestApp().pipelineConfig(runOptions{}, site)
		if !slices.Equal(pc.Competitors, []string{"https://site.example"}) {
			t.Errorf("expected site competitor, got %v", pc.Competitors)
		}
	})
}

func TestServicesLeavesOptionalInterfacesNil(t *testing.T) {
	t.Parallel()

	a := &app{cfg: config.NewConfig()}
	svc := a.services(nil)
	if svc.Store != nil {
		t.Error("expected nil store without a database")
	}
	if svc.Exporter != nil {
		t.Error("expected nil exporter without elasticsearch")
	}
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	if progressPrinter(false, nil) != nil {
		t.Error("expected nil callback when disabled")
	}

	var lines []string
	printf := func(format string, args ...any) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
	progress := progressPrinter(true, printf)
	progress(1, model.PageResult{URL: "https://example.com/", Score: 80})
	progress(2, model.PageResult{
		URL:   "https://example.com/missing",
		Error: &model.PageError{Kind: model.PageErrorHTTP},
	})

	want := []string{
		"[1] https://example.com/ (score 80)",
		"[2] https://example.com/missing (http error)",
	}
	if !slices.Equal(lines, want) {
		t.Errorf("expected %q, got %q", want, lines)
	}
}
