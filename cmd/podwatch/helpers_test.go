package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"podwatch/internal/config"
	"podwatch/internal/testsupport"
)

const cliReply = `{
  "synopsis": "The hosts frame the budget deal as a betrayal.",
  "key_topics": ["Budget", "spending"],
  "notable_quotes": [],
  "political_attacks": [{"target": "Congress", "claim": "Caved on spending."}],
  "narrative_themes": ["betrayal"],
  "messaging_opportunities": ["Point to the deal's deficit cuts."],
  "threat_level": "high",
  "threat_rationale": "Repeatable frame with a large audience."
}`

type cliEnv struct {
	cfg        *config.Config
	configPath string
}

// newCLIEnv writes cfg to a TOML file under a temporary HOME.
func newCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	home := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("PODWATCH_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")

	configPath := filepath.Join(home, ".config", "podwatch", "config.toml")
	writeConfig(t, configPath, cfg)
	return &cliEnv{cfg: cfg, configPath: configPath}
}

func writeConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, string(data))
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got:\n%s", substr, output)
	}
}

func rosterJSON(feedURL string) string {
	return fmt.Sprintf(`{
  "left": [{"name": "Pod Save America", "host": "Crooked Media", "rss": %q}],
  "right": [{"name": "The Ben Shapiro Show", "host": "Ben Shapiro", "rss": %q, "youtube_channel_id": "UCnQC_G5Xsjhp9fEJKuIcrSw"}]
}`, feedURL+"/left.xml", feedURL+"/right.xml")
}

// feedServer serves one RSS item per feed path, published an hour ago.
func feedServer(t *testing.T, descriptionWords int) *httptest.Server {
	t.Helper()
	published := time.Now().Add(-time.Hour).UTC().Format(time.RFC1123Z)
	body := strings.TrimSpace(strings.Repeat("word ", descriptionWords))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".xml")
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>%[1]s</title>
<item><guid>%[1]s-1</guid><title>%[1]s episode</title><pubDate>%[2]s</pubDate><description>%[3]s</description></item>
</channel></rss>`, name, published, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func llmServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}
