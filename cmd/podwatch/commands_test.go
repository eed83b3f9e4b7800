package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"podwatch/internal/analysis"
	"podwatch/internal/roster"
	"podwatch/internal/store"
	"podwatch/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "podwatch", "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsRoster(t *testing.T) {
	env := newCLIEnv(t, testsupport.WithRoster(rosterJSON("http://feeds.invalid")))

	out, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Roster: 2 podcasts")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateChecksLLM(t *testing.T) {
	llm := llmServer(t, `{"ok":true}`)
	env := newCLIEnv(t,
		testsupport.WithRoster(rosterJSON("http://feeds.invalid")),
		testsupport.WithLLMBaseURL(llm.URL),
	)

	out, err := runCLI(t, env.configPath, "config", "validate", "--check-llm")
	if err != nil {
		t.Fatalf("config validate --check-llm: %v", err)
	}
	requireContains(t, out, "LLM: ok ("+env.cfg.LLM.Model+")")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateCheckLLMFailsOnBadReply(t *testing.T) {
	llm := llmServer(t, `{"ok":false}`)
	env := newCLIEnv(t,
		testsupport.WithRoster(rosterJSON("http://feeds.invalid")),
		testsupport.WithLLMBaseURL(llm.URL),
	)

	if _, err := runCLI(t, env.configPath, "config", "validate", "--check-llm"); err == nil {
		t.Fatal("expected unhealthy model reply to fail validation")
	}
	if _, err := runCLI(t, env.configPath, "config", "validate"); err != nil {
		t.Fatalf("validate without --check-llm should not contact the model: %v", err)
	}
}

func TestConfigValidateFailsWithoutRoster(t *testing.T) {
	env := newCLIEnv(t)

	if _, err := runCLI(t, env.configPath, "config", "validate"); err == nil {
		t.Fatal("expected missing roster to fail validation")
	}
}

func TestPodcastsListsRoster(t *testing.T) {
	env := newCLIEnv(t, testsupport.WithRoster(rosterJSON("http://feeds.invalid")))

	out, err := runCLI(t, env.configPath, "podcasts")
	if err != nil {
		t.Fatalf("podcasts: %v", err)
	}
	requireContains(t, out, "Pod Save America")
	requireContains(t, out, "The Ben Shapiro Show")
	requireContains(t, out, "2 podcasts (left 1, neutral 0, right 1)")

	out, err = runCLI(t, env.configPath, "podcasts", "--lean", "right")
	if err != nil {
		t.Fatalf("podcasts --lean: %v", err)
	}
	if strings.Contains(out, "Pod Save America") {
		t.Fatalf("expected lean filter to hide left podcasts, got:\n%s", out)
	}

	if _, err := runCLI(t, env.configPath, "podcasts", "--lean", "center"); err == nil {
		t.Fatal("expected unknown lean to fail")
	}
}

func TestReportsReadSeededStore(t *testing.T) {
	env := newCLIEnv(t)
	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	right := roster.Podcast{Name: "The Ben Shapiro Show", Host: "Ben Shapiro", Lean: roster.LeanRight}
	testsupport.SeedPodcasts(t, st, right)
	published := time.Now().Add(-2 * time.Hour).UTC()
	testsupport.InsertEpisode(t, st, right, "ep-1", "Budget betrayal", published)
	testsupport.InsertEpisode(t, st, right, "ep-2", "Quiet episode", published.Add(-time.Hour))

	a, err := analysis.Validate(cliReply)
	if err != nil {
		t.Fatalf("validate reply: %v", err)
	}
	a.AnalyzedAt = time.Now().UTC()
	if err := st.UpsertAnalysis(t.Context(), "ep-1", a); err != nil {
		t.Fatalf("UpsertAnalysis: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	cases := []struct {
		args []string
		want []string
	}{
		{[]string{"report", "episodes"}, []string{"Budget betrayal", "Quiet episode", "analyzed", "pending"}},
		{[]string{"report", "episodes", "--lean", "left"}, []string{"No episodes found"}},
		{[]string{"report", "threats", "--level", "high"}, []string{"Budget betrayal", "Repeatable frame"}},
		{[]string{"report", "threats", "--level", "low"}, []string{"No analyses found"}},
		{[]string{"report", "topics"}, []string{"budget", "spending"}},
		{[]string{"report", "attacks"}, []string{"Congress", "Caved on spending."}},
		{[]string{"report", "opportunities"}, []string{"Point to the deal"}},
		{[]string{"report", "stats"}, []string{"Episodes", "Analyzed", "Threat high"}},
		{[]string{"report", "volume", "--days", "3"}, []string{"Day", "Right", published.Format("2006-01-02")}},
	}
	for _, tc := range cases {
		out, err := runCLI(t, env.configPath, tc.args...)
		if err != nil {
			t.Fatalf("%v: %v", tc.args, err)
		}
		for _, want := range tc.want {
			requireContains(t, out, want)
		}
	}

	if _, err := runCLI(t, env.configPath, "report", "threats", "--level", "extreme"); err == nil {
		t.Fatal("expected invalid threat level to fail")
	}
}

func TestDBSeedLoadsOnce(t *testing.T) {
	env := newCLIEnv(t)
	script := `INSERT INTO episodes (id, podcast_name, lean, title, published_at, description, link, guid, audio_url, discovered_at)
VALUES ('seed-1', 'Seeded Show', 'neutral', 'Seeded episode', '2026-10-17T10:00:00Z', 'desc', '', 'g1', '', '2026-10-17T10:05:00Z');`
	seedPath := filepath.Join(t.TempDir(), "seed.sql")
	testsupport.WriteFile(t, seedPath, script)

	out, err := runCLI(t, env.configPath, "db", "seed", seedPath)
	if err != nil {
		t.Fatalf("db seed: %v", err)
	}
	requireContains(t, out, "Seeded database with 1 episodes")

	out, err = runCLI(t, env.configPath, "db", "seed", seedPath)
	if err != nil {
		t.Fatalf("second db seed: %v", err)
	}
	requireContains(t, out, "seed skipped")

	out, err = runCLI(t, env.configPath, "db", "info")
	if err != nil {
		t.Fatalf("db info: %v", err)
	}
	requireContains(t, out, env.cfg.DatabasePath())
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := newCLIEnv(t)

	out, err := runCLI(t, env.configPath, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}
