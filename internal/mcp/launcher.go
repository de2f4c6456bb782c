// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"
)

const (
	// defaultSpawnGrace is how long the launcher waits after spawn before
	// declaring the child healthy enough to talk to.
	defaultSpawnGrace = 500 * time.Millisecond

	// stdioToken is the transport argument some server definitions carry.
	// Stdio is the implicit default transport, so the token is never passed.
	stdioToken = "stdio"
)

// ServerProcess is a live MCP server child process with its stdio pipes.
// It is owned exclusively by the Registry entry that launched it.
type ServerProcess struct {
	// Definition is the configuration this process was launched from.
	Definition ServerDefinition

	// Stdin is the child's standard input (the client writes requests here).
	Stdin io.WriteCloser

	// Stdout is the child's standard output (one JSON object per line).
	Stdout io.ReadCloser

	cmd    *exec.Cmd
	stderr *StderrBuffer

	// done is closed when the child has been reaped.
	done chan struct{}

	// stderrDone is closed once the stderr consumer has drained to EOF.
	stderrDone chan struct{}
}

// Alive reports whether the child process is still running.
func (p *ServerProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the child exits.
func (p *ServerProcess) Done() <-chan struct{} {
	return p.done
}

// Pid returns the child's process id, or 0 if unavailable.
func (p *ServerProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// StderrTail returns the last captured stderr lines, for failure detail.
func (p *ServerProcess) StderrTail() string {
	return p.stderr.Tail(20)
}

// Stderr returns the full captured stderr buffer.
func (p *ServerProcess) Stderr() *StderrBuffer {
	return p.stderr
}

// Terminate asks the child to exit, escalating to SIGKILL after the grace
// period. It is safe to call repeatedly and on an already-dead process.
func (p *ServerProcess) Terminate(grace time.Duration) {
	if !p.Alive() {
		return
	}
	if p.cmd.Process == nil {
		return
	}

	// Best effort; the process may have just exited.
	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-p.done:
		return
	case <-time.After(grace):
	}

	_ = p.cmd.Process.Kill()

	// The reaper goroutine closes done once Wait returns.
	<-p.done
}

// Launcher starts MCP server child processes.
type Launcher struct {
	// spawnGrace is how long to wait after spawn before declaring success.
	spawnGrace time.Duration

	// logger is used for structured logging
	logger *slog.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		spawnGrace: defaultSpawnGrace,
		logger:     logger,
	}
}

// Launch starts the child described by def, appending extraArgs to its argv
// (used to scope the filesystem provider to a directory). The definition's
// env overlays the current process environment. If the child exits within
// the spawn grace period, Launch returns SpawnFailed with its stderr.
func (l *Launcher) Launch(def ServerDefinition, extraArgs ...string) (*ServerProcess, error) {
	args := make([]string, 0, len(def.Args)+len(extraArgs))
	for _, arg := range def.Args {
		// The default transport is implicit; never pass the token through.
		if arg == stdioToken {
			continue
		}
		args = append(args, arg)
	}
	args = append(args, extraArgs...)

	cmd := exec.Command(def.Command, args...)
	cmd.Env = mergeEnv(os.Environ(), def.Env)

	// The pipes are created here rather than through the cmd helpers: Wait
	// only closes pipes it created itself, so the readers keep draining
	// until real EOF even when the child exits mid-write.
	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, ErrSpawnFailed(def.Name, "", fmt.Errorf("failed to open stdin pipe: %w", err))
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, ErrSpawnFailed(def.Name, "", fmt.Errorf("failed to open stdout pipe: %w", err))
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, ErrSpawnFailed(def.Name, "", fmt.Errorf("failed to open stderr pipe: %w", err))
	}

	cmd.Stdin = stdinR
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	l.logger.Info("launching mcp server",
		"server", def.Name,
		"command", def.Command,
		"args", args,
	)

	if err := cmd.Start(); err != nil {
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		stderrR.Close()
		stderrW.Close()
		return nil, ErrSpawnFailed(def.Name, "", err)
	}

	// The child holds duplicates of its ends now; release this process's
	// copies so EOF propagates when the child exits.
	stdinR.Close()
	stdoutW.Close()
	stderrW.Close()

	proc := &ServerProcess{
		Definition: def,
		Stdin:      stdinW,
		Stdout:     stdoutR,
		cmd:        cmd,
		stderr:     NewStderrBuffer(defaultStderrCapacity),
		done:       make(chan struct{}),
		stderrDone: make(chan struct{}),
	}

	go func() {
		proc.stderr.Consume(stderrR)
		stderrR.Close()
		close(proc.stderrDone)
	}()
	go func() {
		_ = cmd.Wait()
		close(proc.done)
	}()

	// A short grace period catches commands that exec fine but die
	// immediately (missing package, bad flag, unset env var).
	select {
	case <-proc.done:
		// Let the consumer finish draining; the child's write end is
		// closed so EOF is imminent.
		select {
		case <-proc.stderrDone:
		case <-time.After(200 * time.Millisecond):
		}
		stderr := proc.StderrTail()
		l.logger.Error("mcp server exited during spawn grace",
			"server", def.Name,
			"stderr", stderr,
		)
		return nil, ErrSpawnFailed(def.Name, stderr, fmt.Errorf("process exited immediately"))
	case <-time.After(l.spawnGrace):
	}

	return proc, nil
}

// mergeEnv overlays the definition's environment variables on the base
// environment, in sorted key order for determinism.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make([]string, len(base), len(base)+len(overrides))
	copy(merged, base)
	for _, k := range keys {
		merged = append(merged, k+"="+overrides[k])
	}
	return merged
}
