package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileReadCap bounds the characters returned when reading a file.
const fileReadCap = 20_000

// containedPath resolves raw against cwd and rejects anything that escapes
// the working directory. Both sides are canonicalized through symlinks
// before the check, so a link inside cwd pointing outside it is denied.
// Returns the absolute, resolved target path.
func containedPath(cwd, raw string) (string, error) {
	base, err := filepath.Abs(cwd)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(base); err == nil {
		base = resolved
	}

	target := filepath.Join(base, raw)
	if filepath.IsAbs(raw) {
		target = filepath.Clean(raw)
	}

	target, err = resolveExisting(target)
	if err != nil {
		return "", fmt.Errorf("Path traversal denied: path must be within the working directory")
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("Path traversal denied: path must be within the working directory")
	}
	return target, nil
}

// resolveExisting canonicalizes path through symlinks. For targets that do
// not exist yet (a file about to be written), the deepest existing ancestor
// is resolved and the remaining components are rejoined.
func resolveExisting(path string) (string, error) {
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(path)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", err
		}
		tail = append([]string{filepath.Base(path)}, tail...)
		path = parent
	}
}

// ReadFileTool reads the contents of a file within the working directory.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string { return "read_file" }

func (t *ReadFileTool) Description() string {
	return "Read a file's contents. Arguments: path (string, required)."
}

func (t *ReadFileTool) Permission() Permission { return PermissionAuto }

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	raw := stringArg(args, "path")
	if raw == "" {
		return errorf("Missing required argument: path")
	}

	target, err := containedPath(cwd, raw)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return errorf("File not found: %s", raw)
	}
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if !info.Mode().IsRegular() {
		return errorf("Not a regular file: %s", raw)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	content := string(data)
	lines := strings.Count(content, "\n") + 1
	chars := len(content)

	shown := truncate(content, fileReadCap)
	suffix := ""
	if chars > fileReadCap {
		suffix = fmt.Sprintf("\n... (truncated, showing %d of %d chars)", fileReadCap, chars)
	}
	return Result{
		Success: true,
		Output:  fmt.Sprintf("%s%s\n\n(%d lines, %d chars)", shown, suffix, lines, chars),
	}
}

// WriteFileTool writes content to a file within the working directory,
// creating parent directories as needed.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string { return "write_file" }

func (t *WriteFileTool) Description() string {
	return "Write content to a file. Creates parent directories as needed. " +
		"Arguments: path (string, required), content (string, required)."
}

func (t *WriteFileTool) Permission() Permission { return PermissionAsk }

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	raw := stringArg(args, "path")
	if raw == "" {
		return errorf("Missing required argument: path")
	}
	content, ok := args["content"].(string)
	if !ok {
		return errorf("Missing required argument: content")
	}

	target, err := containedPath(cwd, raw)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Output: fmt.Sprintf("Wrote %d bytes to %s", len(content), raw)}
}
