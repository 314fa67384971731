package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/dashboard"
	"github.com/p-n-ai/exam-atlas/internal/platform/config"
	"github.com/p-n-ai/exam-atlas/internal/statsource"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cur := filepath.Join(dir, "curriculum.json")
	qs := filepath.Join(dir, "questions.json")
	if err := os.WriteFile(cur, []byte(`{"distributedSystemsCurriculum": [
		{"chapterNumber": "1", "chapterTitle": "Intro", "content": ["Resource Sharing"]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(qs, []byte(`{"questions": [
		{"id": "Q1", "title": "t", "type": "Essay", "refer": "Chapter 1", "knowledge_points": ["resource sharing"]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Data:   config.DataConfig{CurriculumPath: cur, QuestionsPath: qs},
		Stats: config.StatsConfig{
			Source:     config.StatsSourceSQLite,
			SQLitePath: filepath.Join(dir, "stats.db"),
		},
	}
}

func startServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, ready) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("run() did not return after cancel")
		}
	})

	select {
	case addr := <-ready:
		return "http://" + addr
	case err := <-done:
		t.Fatalf("run() exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	return ""
}

func TestRun_ServesStatistics(t *testing.T) {
	base := startServer(t, testConfig(t))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthz returns 200", "/healthz", http.StatusOK, `{"status":"ok"}`},
		{"readyz returns 200", "/readyz", http.StatusOK, `{"status":"ready"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(base + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}

	resp, err := http.Get(base + "/api/statistics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var stats analysis.Statistics
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	want := analysis.Statistics{TotalQuestions: 1, UniqueTypes: 1, UniqueKnowledgePoints: 1, ChaptersCovered: 1}
	if stats != want {
		t.Errorf("statistics = %+v, want %+v", stats, want)
	}
}

func TestRun_StartsWithoutData(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.QuestionsPath = filepath.Join(t.TempDir(), "missing.json")
	cfg.Stats.Source = config.StatsSourceNone

	base := startServer(t, cfg)

	resp, err := http.Get(base + "/api/overview")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestRun_WebsocketOrigins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.WSOrigins = []string{"dashboard.example.edu"}
	base := startServer(t, cfg)
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/api/ws"

	tests := []struct {
		name    string
		origin  string
		wantErr bool
	}{
		{"configured origin", "https://dashboard.example.edu", false},
		{"foreign origin", "https://elsewhere.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()

			conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
				HTTPHeader: http.Header{"Origin": {tt.origin}},
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dial() error = %v, wantErr %v", err, tt.wantErr)
			}
			if conn != nil {
				conn.Close(websocket.StatusNormalClosure, "")
			}
		})
	}
}

func TestAddStatsCheck(t *testing.T) {
	checks := map[string]dashboard.Checker{}
	addStatsCheck(checks, statsource.NewMemory(0))
	if len(checks) != 0 {
		t.Errorf("in-memory source registered %d checks, want 0", len(checks))
	}

	src, err := statsource.OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "stats.db"), 0)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	addStatsCheck(checks, src)
	check, ok := checks["statistics"]
	if !ok {
		t.Fatal("statistics check not registered")
	}
	if err := check.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	src.Close()
	if err := check.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() should fail once the store is closed")
	}
}
