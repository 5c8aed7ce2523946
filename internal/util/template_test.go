package util

import (
	"strings"
	"testing"
)

func TestRenderTemplate_Basic(t *testing.T) {
	tmpl := "Write {{.Count}} topics for {{.SectionTitle}}."
	data := map[string]any{
		"Count":        5,
		"SectionTitle": "Thermodynamics",
	}

	result, err := RenderTemplate(tmpl, data)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := "Write 5 topics for Thermodynamics."
	if result != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}
}

func TestRenderTemplate_Cached(t *testing.T) {
	tmpl := "Section {{.N}}"
	for i := 0; i < 3; i++ {
		result, err := RenderTemplate(tmpl, map[string]any{"N": i})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if !strings.HasSuffix(result, string(rune('0'+i))) {
			t.Errorf("Expected suffix %d, got '%s'", i, result)
		}
	}
}

func TestRenderTemplate_InvalidTemplate(t *testing.T) {
	_, err := RenderTemplate("Hello {{.Name", map[string]any{"Name": "Alice"})
	if err == nil {
		t.Error("Expected error for invalid template, got nil")
	}
}

func TestRenderTemplate_MissingKey(t *testing.T) {
	_, err := RenderTemplate("Hello {{.Name}}", map[string]any{})
	if err == nil {
		t.Error("Expected error for missing key, got nil")
	}
}

func TestRenderTemplate_ForbiddenDirectives(t *testing.T) {
	tests := []string{
		`{{define "x"}}hi{{end}}`,
		`{{template "x"}}`,
		`{{block "x" .}}hi{{end}}`,
		`{{call .Fn}}`,
	}

	for _, tmpl := range tests {
		t.Run(tmpl, func(t *testing.T) {
			_, err := RenderTemplate(tmpl, map[string]any{})
			if err == nil {
				t.Errorf("Expected error for %q", tmpl)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("héllo wörld", 5); got != "héllo..." {
		t.Errorf("Expected 'héllo...', got '%s'", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("Expected 'short', got '%s'", got)
	}
}
