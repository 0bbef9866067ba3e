package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFileTool(t *testing.T) {
	tool := &ReadFileTool{}
	ctx := context.Background()

	t.Run("reads content with summary", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("line one\nline two"), 0644); err != nil {
			t.Fatal(err)
		}

		res := tool.Execute(ctx, map[string]any{"path": "notes.txt"}, dir)
		if !res.Success {
			t.Fatalf("read failed: %s", res.Error)
		}
		if !strings.Contains(res.Output, "line one") {
			t.Errorf("output missing file content: %q", res.Output)
		}
		if !strings.Contains(res.Output, "(2 lines, 17 chars)") {
			t.Errorf("output missing summary: %q", res.Output)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		res := tool.Execute(ctx, map[string]any{"path": "nope.txt"}, t.TempDir())
		if res.Success || !strings.Contains(res.Error, "File not found") {
			t.Errorf("expected not-found error, got %+v", res)
		}
	})

	t.Run("directory is not a regular file", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
			t.Fatal(err)
		}
		res := tool.Execute(ctx, map[string]any{"path": "sub"}, dir)
		if res.Success || !strings.Contains(res.Error, "Not a regular file") {
			t.Errorf("expected regular-file error, got %+v", res)
		}
	})

	t.Run("traversal denied", func(t *testing.T) {
		res := tool.Execute(ctx, map[string]any{"path": "../../etc/passwd"}, t.TempDir())
		if res.Success || !strings.Contains(res.Error, "Path traversal denied") {
			t.Errorf("expected traversal error, got %+v", res)
		}
	})

	t.Run("truncates long files", func(t *testing.T) {
		dir := t.TempDir()
		big := strings.Repeat("x", fileReadCap+100)
		if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte(big), 0644); err != nil {
			t.Fatal(err)
		}
		res := tool.Execute(ctx, map[string]any{"path": "big.txt"}, dir)
		if !res.Success || !strings.Contains(res.Output, "truncated") {
			t.Errorf("expected truncation notice, got %+v", res)
		}
	})
}

func TestWriteFileTool(t *testing.T) {
	tool := &WriteFileTool{}
	ctx := context.Background()

	t.Run("writes and creates parents", func(t *testing.T) {
		dir := t.TempDir()
		res := tool.Execute(ctx, map[string]any{
			"path":    "sub/deep/out.txt",
			"content": "hello",
		}, dir)
		if !res.Success {
			t.Fatalf("write failed: %s", res.Error)
		}
		if !strings.Contains(res.Output, "Wrote 5 bytes") {
			t.Errorf("output = %q", res.Output)
		}

		data, err := os.ReadFile(filepath.Join(dir, "sub", "deep", "out.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "hello" {
			t.Errorf("file content = %q, want hello", data)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		res := tool.Execute(ctx, map[string]any{"path": "a.txt"}, t.TempDir())
		if res.Success || !strings.Contains(res.Error, "content") {
			t.Errorf("expected missing-content error, got %+v", res)
		}
	})

	t.Run("traversal denied", func(t *testing.T) {
		dir := t.TempDir()
		res := tool.Execute(ctx, map[string]any{
			"path":    "../escape.txt",
			"content": "x",
		}, dir)
		if res.Success || !strings.Contains(res.Error, "Path traversal denied") {
			t.Errorf("expected traversal error, got %+v", res)
		}
		if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.txt")); err == nil {
			t.Error("file escaped the working directory")
		}
	})
}

func TestContainedPath(t *testing.T) {
	dir := t.TempDir()
	// t.TempDir may itself live behind a symlink (macOS /tmp).
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("relative inside", func(t *testing.T) {
		got, err := containedPath(dir, "a/b.txt")
		if err != nil {
			t.Fatal(err)
		}
		if got != filepath.Join(resolved, "a", "b.txt") {
			t.Errorf("got %q", got)
		}
	})

	t.Run("dot segments resolving inside are fine", func(t *testing.T) {
		if _, err := containedPath(dir, "a/../b.txt"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("absolute path outside denied", func(t *testing.T) {
		if _, err := containedPath(dir, "/etc/passwd"); err == nil {
			t.Error("expected denial for absolute outside path")
		}
	})

	t.Run("symlinked directory escaping the root is denied", func(t *testing.T) {
		outside := t.TempDir()
		inside := t.TempDir()
		if err := os.Symlink(outside, filepath.Join(inside, "link")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		if _, err := containedPath(inside, "link/secret.txt"); err == nil {
			t.Error("expected denial for a symlink pointing outside the root")
		}
	})

	t.Run("symlinked file escaping the root is denied", func(t *testing.T) {
		outside := t.TempDir()
		secret := filepath.Join(outside, "secret.txt")
		if err := os.WriteFile(secret, []byte("top secret"), 0644); err != nil {
			t.Fatal(err)
		}
		inside := t.TempDir()
		if err := os.Symlink(secret, filepath.Join(inside, "alias.txt")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		if _, err := containedPath(inside, "alias.txt"); err == nil {
			t.Error("expected denial for a file symlink pointing outside the root")
		}
	})

	t.Run("symlink staying inside the root is fine", func(t *testing.T) {
		inside := t.TempDir()
		if err := os.Mkdir(filepath.Join(inside, "real"), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.Symlink(filepath.Join(inside, "real"), filepath.Join(inside, "link")); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		if _, err := containedPath(inside, "link/new.txt"); err != nil {
			t.Errorf("internal symlink should be allowed: %v", err)
		}
	})
}

func TestReadFileToolSymlinkEscape(t *testing.T) {
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("top secret"), 0644); err != nil {
		t.Fatal(err)
	}
	cwd := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(cwd, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res := (&ReadFileTool{}).Execute(context.Background(), map[string]any{"path": "link/secret.txt"}, cwd)
	if res.Success {
		t.Fatalf("read escaped the working directory: %q", res.Output)
	}
	if !strings.Contains(res.Error, "Path traversal denied") {
		t.Errorf("expected traversal error, got %+v", res)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if r.Get("shell") == nil || r.Get("read_file") == nil || r.Get("write_file") == nil ||
		r.Get("run_tests") == nil || r.Get("lint") == nil {
		t.Fatal("registry missing a built-in tool")
	}
	if r.Get("bogus") != nil {
		t.Error("unknown tool lookup should return nil")
	}

	all := r.All()
	if len(all) != 5 {
		t.Fatalf("got %d tools, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name() >= all[i].Name() {
			t.Errorf("tools not sorted: %s before %s", all[i-1].Name(), all[i].Name())
		}
	}

	if r.Get("read_file").Permission() != PermissionAuto {
		t.Error("read_file should be auto")
	}
	if r.Get("shell").Permission() != PermissionAsk {
		t.Error("shell should be ask")
	}
}
