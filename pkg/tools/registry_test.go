package tools

import (
	"context"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	result *ToolResult
}

func (t *stubTool) Name() string                           { return t.name }
func (t *stubTool) Description() string                    { return "stub" }
func (t *stubTool) Parameters() map[string]interface{}     { return map[string]interface{}{"type": "object"} }
func (t *stubTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	return t.result
}

func TestRegistry_ExecuteKnownTool(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&stubTool{name: "echo", result: OKResult("hello")})

	result := registry.Execute(context.Background(), "echo", nil)
	if result.IsError {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.ForLLM != "hello" {
		t.Errorf("ForLLM = %q", result.ForLLM)
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	registry := NewToolRegistry()
	result := registry.Execute(context.Background(), "missing", nil)
	if !result.IsError {
		t.Fatal("expected error result for unknown tool")
	}
	if !strings.Contains(result.ForLLM, "missing") {
		t.Errorf("error should name the tool, got %q", result.ForLLM)
	}
}

func TestRegistry_NilResultBecomesError(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&stubTool{name: "broken", result: nil})

	result := registry.Execute(context.Background(), "broken", nil)
	if !result.IsError {
		t.Fatal("nil result must be converted to an error result")
	}
}

func TestRegistry_ToProviderDefs(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(NewWeatherTool("Bangalore"))

	defs := registry.ToProviderDefs()
	if len(defs) != 1 {
		t.Fatalf("defs = %d, want 1", len(defs))
	}
	if defs[0].Function.Name != "weather" {
		t.Errorf("Function.Name = %q", defs[0].Function.Name)
	}
	if defs[0].Function.Parameters == nil {
		t.Error("Function.Parameters should carry the schema")
	}
}

func TestSanitizeToolArgs_RedactsSensitiveKeys(t *testing.T) {
	args := map[string]interface{}{
		"query":   "nepal",
		"api_key": "sk-secret-value",
		"nested": map[string]interface{}{
			"Authorization": "Bearer abc",
			"city":          "Delhi",
		},
	}

	sanitized := sanitizeToolArgs(args)
	if sanitized["query"] != "nepal" {
		t.Errorf("query = %v", sanitized["query"])
	}
	if sanitized["api_key"] != "<redacted>" {
		t.Errorf("api_key = %v, want redacted", sanitized["api_key"])
	}
	nested := sanitized["nested"].(map[string]interface{})
	if nested["Authorization"] != "<redacted>" {
		t.Errorf("Authorization = %v, want redacted", nested["Authorization"])
	}
	if nested["city"] != "Delhi" {
		t.Errorf("city = %v", nested["city"])
	}
}

func TestTruncateLogString(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := truncateLogString(long)
	if len(got) >= 300 {
		t.Errorf("not truncated, len = %d", len(got))
	}
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Errorf("missing truncation marker: %q", got[len(got)-20:])
	}
	if truncateLogString("short") != "short" {
		t.Error("short strings must pass through")
	}
}
