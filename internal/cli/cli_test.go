package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragcloud/internal/domain"
)

func setupWorkspace(t *testing.T, generationURL string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
store:
  path: %s
embedding:
  provider: hash
  dimension: 4096
retrieve:
  cache_size: 0
generation:
  provider: gemini
  base_url: %s
  api_key_env: RAGCLOUD_TEST_GEN_KEY
  plain_text: true
sync:
  backend: dir
  path: %s
logging:
  level: error
`, filepath.Join(dir, "data"), generationURL, filepath.Join(dir, "remote"))
	if err := os.WriteFile(filepath.Join(dir, "ragcloud.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgFile, logLevel = "", ""
	queryText, queryTopK, queryJSON = "", 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLibraryCommands(t *testing.T) {
	dir := setupWorkspace(t, "http://127.0.0.1:0")

	out, err := run(t, dir, "", "add", "cat facts about purring")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "Added blok-") {
		t.Errorf("expected timestamped block name, got %q", out)
	}

	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("dog facts"), 0644); err != nil {
		t.Fatal(err)
	}
	if out, err = run(t, dir, "", "upload", notes); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.Contains(out, "Added notes.txt") {
		t.Errorf("expected notes.txt added, got %q", out)
	}

	if out, err = run(t, dir, "", "list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "0. blok-") || !strings.Contains(out, "1. notes.txt (1 chunks)") {
		t.Errorf("unexpected list output %q", out)
	}

	if out, err = run(t, dir, "", "query", "-q", "dog", "-k", "1", "--json"); err != nil {
		t.Fatalf("query: %v", err)
	}
	var chunks []string
	if err := json.Unmarshal([]byte(out), &chunks); err != nil {
		t.Fatalf("expected json output, got %q", out)
	}
	if len(chunks) != 1 || chunks[0] != "dog facts" {
		t.Errorf("expected [dog facts], got %v", chunks)
	}

	if out, err = run(t, dir, "", "delete", "0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(out, "Deleted blok-") {
		t.Errorf("unexpected delete output %q", out)
	}

	_, err = run(t, dir, "", "delete", "5")
	if !domain.IsValidation(err) {
		t.Errorf("expected ValidationError for out-of-range delete, got %v", err)
	}

	if out, err = run(t, dir, "", "debug"); err != nil {
		t.Fatalf("debug: %v", err)
	}
	if !strings.Contains(out, "mode=dir") || !strings.Contains(out, "faiss_index.bin") {
		t.Errorf("unexpected debug output %q", out)
	}
}

func TestAddFromStdin(t *testing.T) {
	dir := setupWorkspace(t, "http://127.0.0.1:0")

	if _, err := run(t, dir, "piped text\n", "add"); err != nil {
		t.Fatalf("add: %v", err)
	}
	out, err := run(t, dir, "", "query", "-q", "piped", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "piped text") {
		t.Errorf("expected piped text retrievable, got %q", out)
	}
}

func TestQueryEmptyLibrary(t *testing.T) {
	dir := setupWorkspace(t, "http://127.0.0.1:0")

	out, err := run(t, dir, "", "query", "-q", "anything", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, domain.SentinelNoDocuments) {
		t.Errorf("expected sentinel, got %q", out)
	}
}

func TestAskAndChat(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompts = append(prompts, req.Contents[0].Parts[0].Text)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"dogs **bark**"}]}}]}`))
	}))
	defer server.Close()
	t.Setenv("RAGCLOUD_TEST_GEN_KEY", "test-key")

	dir := setupWorkspace(t, server.URL)
	if _, err := run(t, dir, "", "add", "dog facts"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "", "ask", "-q", "what about dogs?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if strings.TrimSpace(out) != "dogs bark" {
		t.Errorf("expected formatting stripped, got %q", out)
	}
	if len(prompts) != 1 || !strings.Contains(prompts[0], "dog facts") {
		t.Errorf("expected retrieved chunk in prompt, got %v", prompts)
	}

	out, err = run(t, dir, "what about dogs?\n:history\n:clear\n:history\n:quit\n", "chat")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.Count(out, "Q: what about dogs?") != 1 {
		t.Errorf("expected one history entry before clear, got %q", out)
	}
	if !strings.Contains(out, "History cleared.") {
		t.Errorf("expected clear confirmation, got %q", out)
	}
}
