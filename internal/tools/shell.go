package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// outputCap bounds the characters returned from command output.
	outputCap = 10_000
	// defaultShellTimeout applies when the call does not pass one.
	defaultShellTimeout = 30 * time.Second
	// maxShellTimeout is the ceiling for caller-supplied timeouts.
	maxShellTimeout = 120 * time.Second
	// projectToolTimeout bounds test and lint runs.
	projectToolTimeout = 120 * time.Second
)

// dangerousPatterns matches commands that are never executed, whatever
// permission level or yolo mode says.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+-rf\s+/`),
	regexp.MustCompile(`rm\s+-rf\s+~`),
	regexp.MustCompile(`\bmkfs\b`),
	regexp.MustCompile(`dd\s+if=`),
	regexp.MustCompile(`\bshutdown\b`),
	regexp.MustCompile(`\breboot\b`),
	regexp.MustCompile(`:\(\)\{\s*:\|:&\s*\};:`), // fork bomb
	regexp.MustCompile(`>\s*/dev/sd`),
	regexp.MustCompile(`chmod\s+-R\s+777\s+/`),
}

// isDangerous reports whether command matches a known destructive pattern.
func isDangerous(command string) bool {
	for _, p := range dangerousPatterns {
		if p.MatchString(command) {
			return true
		}
	}
	return false
}

// ShellTool executes a shell command inside the working directory.
type ShellTool struct{}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Description() string {
	return "Run a shell command. Arguments: command (string, required), " +
		"timeout (seconds, optional, default 30, max 120)."
}

func (t *ShellTool) Permission() Permission { return PermissionAsk }

func (t *ShellTool) Execute(ctx context.Context, args map[string]any, cwd string) Result {
	command := stringArg(args, "command")
	if command == "" {
		return errorf("Missing required argument: command")
	}
	if isDangerous(command) {
		return errorf("Blocked: command matches a dangerous pattern: %s", command)
	}

	timeout := time.Duration(intArg(args, "timeout", int(defaultShellTimeout/time.Second))) * time.Second
	if timeout > maxShellTimeout {
		timeout = maxShellTimeout
	}

	stdout, stderr, exitCode, err := runShell(ctx, cwd, command, timeout)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	if exitCode == 0 {
		if stdout == "" {
			stdout = "(no output)"
		}
		return Result{Success: true, Output: stdout}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Exit code %d", exitCode)
	if stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", stdout)
	}
	if stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", stderr)
	}
	return Result{Success: false, Error: strings.TrimSpace(b.String())}
}

// runShell executes command through "sh -c" with a bounded timeout and
// returns capped stdout and stderr plus the exit code.
func runShell(ctx context.Context, cwd, command string, timeout time.Duration) (stdout, stderr string, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if cwd != "" {
		cmd.Dir = cwd
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = truncate(outBuf.String(), outputCap)
	stderr = truncate(errBuf.String(), outputCap)

	if ctx.Err() == context.DeadlineExceeded {
		return "", "", 0, fmt.Errorf("Command timed out after %ds", int(timeout/time.Second))
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return stdout, stderr, exitErr.ExitCode(), nil
		}
		return "", "", 0, runErr
	}
	return stdout, stderr, 0, nil
}
