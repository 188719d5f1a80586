package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dotsetgreg/dotchat/pkg/config"
)

func TestNewWebSearchTool_BackendSelection(t *testing.T) {
	brave := config.WebToolsConfig{
		Brave: config.BraveConfig{Enabled: true, APIKey: "bsk-test", MaxResults: 3},
	}
	tool := NewWebSearchTool(brave)
	if tool == nil {
		t.Fatal("expected a tool with Brave configured")
	}
	if _, ok := tool.provider.(*BraveSearchProvider); !ok {
		t.Errorf("provider = %T, want Brave", tool.provider)
	}
	if tool.maxResults != 3 {
		t.Errorf("maxResults = %d", tool.maxResults)
	}

	ddg := config.WebToolsConfig{
		DuckDuckGo: config.DuckDuckGoConfig{Enabled: true},
	}
	tool = NewWebSearchTool(ddg)
	if tool == nil {
		t.Fatal("expected a tool with DuckDuckGo enabled")
	}
	if _, ok := tool.provider.(*DuckDuckGoSearchProvider); !ok {
		t.Errorf("provider = %T, want DuckDuckGo", tool.provider)
	}

	if NewWebSearchTool(config.WebToolsConfig{}) != nil {
		t.Error("expected nil with no backend enabled")
	}
}

func TestDuckDuckGoExtractResults(t *testing.T) {
	html := `
		<a rel="nofollow" class="result__a" href="https://example.com/nepal">Nepal - Overview</a>
		<a class="result__snippet" href="#">Nepal is a landlocked country in South Asia.</a>
		<a rel="nofollow" class="result__a" href="https://example.com/kathmandu">Kathmandu</a>
		<a class="result__snippet" href="#">Capital city of Nepal.</a>`

	p := &DuckDuckGoSearchProvider{}
	out, err := p.extractResults(html, 2, "nepal")
	if err != nil {
		t.Fatalf("extractResults failed: %v", err)
	}
	if !strings.Contains(out, "Nepal - Overview") || !strings.Contains(out, "https://example.com/kathmandu") {
		t.Errorf("missing results:\n%s", out)
	}
	if !strings.Contains(out, "landlocked country") {
		t.Errorf("missing snippet:\n%s", out)
	}
}

func TestDuckDuckGoExtractResults_Empty(t *testing.T) {
	p := &DuckDuckGoSearchProvider{}
	out, err := p.extractResults("<html><body>nothing here</body></html>", 5, "xyz")
	if err != nil {
		t.Fatalf("extractResults failed: %v", err)
	}
	if !strings.Contains(out, "No results") {
		t.Errorf("out = %q", out)
	}
}

func TestWeatherTool_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "Delhi") {
			t.Errorf("path = %q, want it to contain the city", r.URL.Path)
		}
		fmt.Fprint(w, "Delhi: ⛅️ +31°C\n")
	}))
	defer server.Close()

	tool := NewWeatherTool("Bangalore")
	tool.baseURL = server.URL
	tool.client = server.Client()

	result := tool.Execute(context.Background(), map[string]interface{}{"city": "Delhi"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "+31°C") {
		t.Errorf("ForLLM = %q", result.ForLLM)
	}
}

func TestWeatherTool_DefaultCityAndErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "Bangalore") {
			fmt.Fprint(w, "Bangalore: 🌦 +24°C\n")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tool := NewWeatherTool("Bangalore")
	tool.baseURL = server.URL
	tool.client = server.Client()

	result := tool.Execute(context.Background(), nil)
	if result.IsError || !strings.Contains(result.ForLLM, "Bangalore") {
		t.Errorf("default city result = %+v", result)
	}

	result = tool.Execute(context.Background(), map[string]interface{}{"city": "Atlantis"})
	if !result.IsError {
		t.Error("expected error on upstream 404")
	}
}

type fakeSearchProvider struct {
	lastQuery string
	response  string
	err       error
}

func (f *fakeSearchProvider) Search(ctx context.Context, query string, count int) (string, error) {
	f.lastQuery = query
	return f.response, f.err
}

func TestNewsTool_TopicShapesQuery(t *testing.T) {
	provider := &fakeSearchProvider{response: "1. Headline"}
	tool := NewNewsTool(provider, 5)

	result := tool.Execute(context.Background(), map[string]interface{}{"topic": "cricket"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if provider.lastQuery != "latest news cricket" {
		t.Errorf("query = %q", provider.lastQuery)
	}

	tool.Execute(context.Background(), nil)
	if provider.lastQuery != "latest news headlines today" {
		t.Errorf("general query = %q", provider.lastQuery)
	}
}

func TestNewsTool_SearchFailure(t *testing.T) {
	provider := &fakeSearchProvider{err: fmt.Errorf("backend down")}
	tool := NewNewsTool(provider, 5)

	result := tool.Execute(context.Background(), nil)
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.ForLLM, "backend down") {
		t.Errorf("ForLLM = %q", result.ForLLM)
	}
}

func TestFileSearchTool_FindsByPattern(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"report.pdf", "notes.txt", "Photo.PDF"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".cache", "hidden.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewFileSearchTool(root, 10)
	result := tool.Execute(context.Background(), map[string]interface{}{"pattern": "*.pdf"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "report.pdf") {
		t.Errorf("missing report.pdf:\n%s", result.ForLLM)
	}
	// Matching is case-insensitive on the file name.
	if !strings.Contains(result.ForLLM, "Photo.PDF") {
		t.Errorf("missing Photo.PDF:\n%s", result.ForLLM)
	}
	if strings.Contains(result.ForLLM, "hidden.pdf") {
		t.Errorf("hidden directories must be skipped:\n%s", result.ForLLM)
	}
	if strings.Contains(result.ForLLM, "notes.txt") {
		t.Errorf("notes.txt should not match *.pdf:\n%s", result.ForLLM)
	}
}

func TestFileSearchTool_CapsHits(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 10; i++ {
		name := filepath.Join(root, fmt.Sprintf("doc-%d.txt", i))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tool := NewFileSearchTool(root, 3)
	result := tool.Execute(context.Background(), map[string]interface{}{"pattern": "*.txt"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	hits := strings.Count(result.ForLLM, "doc-")
	if hits != 3 {
		t.Errorf("hits = %d, want 3", hits)
	}
}

func TestFileSearchTool_NoMatches(t *testing.T) {
	tool := NewFileSearchTool(t.TempDir(), 10)
	result := tool.Execute(context.Background(), map[string]interface{}{"pattern": "*.xyz"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "No files matching") {
		t.Errorf("ForLLM = %q", result.ForLLM)
	}
}

func TestSystemInfoTool_ReadsProc(t *testing.T) {
	procRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(procRoot, "loadavg"), []byte("0.52 0.58 0.59 1/257 12345\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	meminfo := "MemTotal:       16384000 kB\nMemFree:         2048000 kB\nMemAvailable:    8192000 kB\n"
	if err := os.WriteFile(filepath.Join(procRoot, "meminfo"), []byte(meminfo), 0o644); err != nil {
		t.Fatal(err)
	}

	tool := NewSystemInfoTool()
	tool.procRoot = procRoot
	tool.sysRoot = t.TempDir()

	result := tool.Execute(context.Background(), nil)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "0.52 (1m)") {
		t.Errorf("missing load average:\n%s", result.ForLLM)
	}
	if !strings.Contains(result.ForLLM, "Memory:") || !strings.Contains(result.ForLLM, "50%") {
		t.Errorf("missing memory line:\n%s", result.ForLLM)
	}
	// No battery under the fake sysfs root: the line is simply absent.
	if strings.Contains(result.ForLLM, "Battery:") {
		t.Errorf("unexpected battery line:\n%s", result.ForLLM)
	}
}

func TestBuildRegistry_HonorsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	registry := BuildRegistry(cfg)
	defer registry.Close()

	for _, name := range []string{"web_search", "news", "weather", "system_info", "file_search"} {
		if _, ok := registry.Get(name); !ok {
			t.Errorf("tool %q missing from default registry", name)
		}
	}

	cfg.Tools.Web.DuckDuckGo.Enabled = false
	cfg.Tools.Weather.Enabled = false
	registry = BuildRegistry(cfg)
	if _, ok := registry.Get("web_search"); ok {
		t.Error("web_search present with all backends disabled")
	}
	if _, ok := registry.Get("news"); ok {
		t.Error("news requires a search backend")
	}
	if _, ok := registry.Get("weather"); ok {
		t.Error("weather present while disabled")
	}
}

func TestFileSearchTool_CancelledContext(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	tool := NewFileSearchTool(root, 10)
	result := tool.Execute(ctx, map[string]interface{}{"pattern": "*"})
	if !result.IsError {
		t.Error("expected cancellation error")
	}
}
