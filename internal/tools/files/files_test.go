package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenReadRoundtrip(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	write := NewWriteTool(cfg)
	read := NewReadTool(cfg)

	res, err := write.Execute(context.Background(), json.RawMessage(
		`{"path":"notes/hello.txt","content":"hello sandbox"}`))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.IsError {
		t.Fatalf("write failed: %s", res.Content)
	}

	res, err = read.Execute(context.Background(), json.RawMessage(`{"path":"notes/hello.txt"}`))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.IsError {
		t.Fatalf("read failed: %s", res.Content)
	}
	var out struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatalf("decode read result: %v", err)
	}
	if out.Content != "hello sandbox" || out.Truncated {
		t.Errorf("read = %+v, want content %q untruncated", out, "hello sandbox")
	}
}

func TestWriteAppend(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	write := NewWriteTool(cfg)

	for _, chunk := range []string{"one\n", "two\n"} {
		params, _ := json.Marshal(map[string]interface{}{
			"path": "log.txt", "content": chunk, "append": true,
		})
		res, err := write.Execute(context.Background(), params)
		if err != nil || res.IsError {
			t.Fatalf("append write: err=%v res=%+v", err, res)
		}
	}

	data, err := os.ReadFile(filepath.Join(cfg.Root, "log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("file = %q, want %q", data, "one\ntwo\n")
	}
}

func TestReadOffsetAndLimit(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	if err := os.WriteFile(filepath.Join(cfg.Root, "big.txt"), []byte("abcdefghij"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewReadTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"path":"big.txt","offset":2,"max_bytes":3}`))
	if err != nil || res.IsError {
		t.Fatalf("read: err=%v res=%+v", err, res)
	}
	var out struct {
		Content   string `json:"content"`
		Truncated bool   `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if out.Content != "cde" || !out.Truncated {
		t.Errorf("read = %+v, want content %q truncated", out, "cde")
	}
}

func TestReadMissingFileHidesOSDetail(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	res, err := NewReadTool(cfg).Execute(context.Background(), json.RawMessage(`{"path":"nope.txt"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("read of missing file succeeded")
	}
	if !strings.Contains(res.Content, "no such file") {
		t.Errorf("error = %q, want coarse reason", res.Content)
	}
	if strings.Contains(res.Content, cfg.Root) {
		t.Errorf("error leaks absolute sandbox path: %q", res.Content)
	}
}

func TestEditSingleMatch(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	path := filepath.Join(cfg.Root, "main.go")
	if err := os.WriteFile(path, []byte("package main\n\nvar answer = 41\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewEditTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"path":"main.go","edits":[{"old_text":"answer = 41","new_text":"answer = 42"}]}`))
	if err != nil || res.IsError {
		t.Fatalf("edit: err=%v res=%+v", err, res)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "answer = 42") {
		t.Errorf("file after edit = %q", data)
	}
}

func TestEditAmbiguousMatchFails(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	path := filepath.Join(cfg.Root, "dup.txt")
	if err := os.WriteFile(path, []byte("x\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewEditTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"path":"dup.txt","edits":[{"old_text":"x","new_text":"y"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "replace_all") {
		t.Errorf("ambiguous edit result = %+v, want replace_all hint", res)
	}

	// The file must be untouched after the failed edit.
	data, _ := os.ReadFile(path)
	if string(data) != "x\nx\n" {
		t.Errorf("file modified by failed edit: %q", data)
	}

	res, err = NewEditTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"path":"dup.txt","edits":[{"old_text":"x","new_text":"y","replace_all":true}]}`))
	if err != nil || res.IsError {
		t.Fatalf("replace_all edit: err=%v res=%+v", err, res)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "y\ny\n" {
		t.Errorf("file after replace_all = %q", data)
	}
}

func TestEditMissingTextFails(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	if err := os.WriteFile(filepath.Join(cfg.Root, "f.txt"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewEditTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"path":"f.txt","edits":[{"old_text":"zzz","new_text":"y"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError || !strings.Contains(res.Content, "not found") {
		t.Errorf("edit result = %+v, want not-found error", res)
	}
}

func TestListDirectory(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	if err := os.Mkdir(filepath.Join(cfg.Root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Root, "a.txt"), []byte("aa"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewListTool(cfg).Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil || res.IsError {
		t.Fatalf("list: err=%v res=%+v", err, res)
	}
	var out struct {
		Entries []struct {
			Name  string `json:"name"`
			IsDir bool   `json:"is_dir"`
			Size  int64  `json:"size"`
		} `json:"entries"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Entries) != 2 {
		t.Fatalf("entries = %+v, want 2", out.Entries)
	}
	if out.Entries[0].Name != "a.txt" || out.Entries[0].IsDir || out.Entries[0].Size != 2 {
		t.Errorf("entry 0 = %+v", out.Entries[0])
	}
	if out.Entries[1].Name != "sub" || !out.Entries[1].IsDir {
		t.Errorf("entry 1 = %+v", out.Entries[1])
	}
}

func TestSearchFindsMatches(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	if err := os.WriteFile(filepath.Join(cfg.Root, "a.go"), []byte("func Alpha() {}\nfunc beta() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.Root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Root, ".git", "b.go"), []byte("func Alpha() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewSearchTool(cfg).Execute(context.Background(), json.RawMessage(
		`{"pattern":"func [A-Z]"}`))
	if err != nil || res.IsError {
		t.Fatalf("search: err=%v res=%+v", err, res)
	}
	var out struct {
		Matches []struct {
			Path string `json:"path"`
			Line int    `json:"line"`
		} `json:"matches"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Matches) != 1 {
		t.Fatalf("matches = %+v, want exactly one (skipping .git)", out.Matches)
	}
	if out.Matches[0].Path != "a.go" || out.Matches[0].Line != 1 {
		t.Errorf("match = %+v", out.Matches[0])
	}
}

func TestSearchCapsMatches(t *testing.T) {
	cfg := Config{Root: t.TempDir()}
	var sb strings.Builder
	for i := 0; i < maxSearchMatches+50; i++ {
		fmt.Fprintf(&sb, "hit %d\n", i)
	}
	if err := os.WriteFile(filepath.Join(cfg.Root, "many.txt"), []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewSearchTool(cfg).Execute(context.Background(), json.RawMessage(`{"pattern":"hit"}`))
	if err != nil || res.IsError {
		t.Fatalf("search: err=%v res=%+v", err, res)
	}
	var out struct {
		Matches   []json.RawMessage `json:"matches"`
		Truncated bool              `json:"truncated"`
	}
	if err := json.Unmarshal([]byte(res.Content), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Matches) != maxSearchMatches || !out.Truncated {
		t.Errorf("got %d matches truncated=%v, want %d truncated", len(out.Matches), out.Truncated, maxSearchMatches)
	}
}
