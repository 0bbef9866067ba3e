package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// fileExists reports whether a regular file exists at dir/name.
func fileExists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.Mode().IsRegular()
}

// runProjectCommand runs a detected test or lint command and merges its
// output streams, capped at outputCap.
func runProjectCommand(ctx context.Context, cwd, command string) (combined string, exitCode int, err error) {
	stdout, stderr, code, err := runShell(ctx, cwd, command, projectToolTimeout)
	if err != nil {
		return "", 0, err
	}
	combined = stdout
	if stderr != "" {
		if combined != "" {
			combined += "\n" + stderr
		} else {
			combined = stderr
		}
	}
	return combined, code, nil
}

// RunTestsTool auto-detects and runs the project's test suite.
type RunTestsTool struct{}

func (t *RunTestsTool) Name() string { return "run_tests" }

func (t *RunTestsTool) Description() string {
	return "Detect the test runner and execute tests. " +
		"Arguments: args (string, optional extra arguments)."
}

func (t *RunTestsTool) Permission() Permission { return PermissionAsk }

func (t *RunTestsTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	command := detectTestRunner(cwd, stringArg(args, "args"))
	if command == "" {
		return errorf("No test runner detected in this project")
	}

	combined, code, err := runProjectCommand(ctx, cwd, command)
	if err != nil {
		if strings.Contains(err.Error(), "timed out") {
			return errorf("Tests timed out after %ds", int(projectToolTimeout/time.Second))
		}
		return Result{Success: false, Error: err.Error()}
	}
	if code == 0 {
		if combined == "" {
			combined = "Tests passed (no output)"
		}
		return Result{Success: true, Output: combined}
	}
	return errorf("Tests failed (exit %d):\n%s", code, strings.TrimSpace(combined))
}

// detectTestRunner returns a shell command for the project's test framework,
// or empty if none is recognized.
func detectTestRunner(cwd, extraArgs string) string {
	suffix := ""
	if extraArgs != "" {
		suffix = " " + extraArgs
	}

	// Python: pytest
	if fileExists(cwd, "pytest.ini") {
		return "python -m pytest" + suffix
	}
	if data, err := os.ReadFile(filepath.Join(cwd, "pyproject.toml")); err == nil {
		if strings.Contains(string(data), "pytest") {
			return "python -m pytest" + suffix
		}
	}

	// JavaScript/TypeScript: vitest or jest
	if data, err := os.ReadFile(filepath.Join(cwd, "package.json")); err == nil {
		var pkg struct {
			Dependencies    map[string]string `json:"dependencies"`
			DevDependencies map[string]string `json:"devDependencies"`
		}
		if json.Unmarshal(data, &pkg) == nil {
			if _, ok := pkg.DevDependencies["vitest"]; ok {
				return "npx vitest run" + suffix
			}
			if _, ok := pkg.Dependencies["vitest"]; ok {
				return "npx vitest run" + suffix
			}
			if _, ok := pkg.DevDependencies["jest"]; ok {
				return "npx jest" + suffix
			}
			if _, ok := pkg.Dependencies["jest"]; ok {
				return "npx jest" + suffix
			}
		}
	}

	// Rust
	if fileExists(cwd, "Cargo.toml") {
		return "cargo test" + suffix
	}

	// Go
	if fileExists(cwd, "go.mod") {
		return "go test ./..." + suffix
	}

	return ""
}

// LintTool auto-detects and runs the project's linter.
type LintTool struct{}

func (t *LintTool) Name() string { return "lint" }

func (t *LintTool) Description() string {
	return "Detect the linter and run it. " +
		"Arguments: args (string, optional extra arguments)."
}

func (t *LintTool) Permission() Permission { return PermissionAsk }

func (t *LintTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	command := detectLinter(cwd, stringArg(args, "args"))
	if command == "" {
		return errorf("No linter detected in this project")
	}

	combined, code, err := runProjectCommand(ctx, cwd, command)
	if err != nil {
		if strings.Contains(err.Error(), "timed out") {
			return errorf("Linter timed out after %ds", int(projectToolTimeout/time.Second))
		}
		return Result{Success: false, Error: err.Error()}
	}
	if code == 0 {
		if combined == "" {
			combined = "No lint issues found"
		}
		return Result{Success: true, Output: combined}
	}
	return errorf("Lint issues found (exit %d):\n%s", code, strings.TrimSpace(combined))
}

// detectLinter returns a shell command for the project's linter, or empty
// if none is recognized.
func detectLinter(cwd, extraArgs string) string {
	suffix := ""
	if extraArgs != "" {
		suffix = " " + extraArgs
	}

	// Python: ruff, if installed
	if _, err := exec.LookPath("ruff"); err == nil {
		return fmt.Sprintf("ruff check .%s", suffix)
	}

	// JavaScript/TypeScript: eslint
	if fileExists(cwd, "package.json") {
		return "npx eslint ." + suffix
	}

	// Go: golangci-lint
	if fileExists(cwd, "go.mod") {
		return "golangci-lint run" + suffix
	}

	return ""
}
