package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/renbytes/spexplug/internal/core/domain"
	"github.com/renbytes/spexplug/internal/core/ports"
)

// Executor implements ports.ProcessExecutor on top of os/exec. Stdout and
// stderr are captured as separate pipes and never merged; stdin is wired to
// the null device since the handshake protocol has no input channel.
type Executor struct {
	env []string
}

// NewExecutor creates a process executor inheriting the host environment.
func NewExecutor() *Executor {
	return &Executor{env: os.Environ()}
}

// Execute starts a plugin process with its streams captured. The context
// governs the process lifetime: cancellation kills the child, so an
// abandoned handshake wait can never leak a plugin.
func (e *Executor) Execute(ctx context.Context, cmd ports.Command) (ports.Process, error) {
	if info, err := os.Stat(cmd.Executable); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrExecutableNotFound, cmd.Executable, err)
	} else if info.IsDir() || info.Mode()&0111 == 0 {
		return nil, fmt.Errorf("%w: %s is not an executable file", domain.ErrExecutableNotFound, cmd.Executable)
	}

	execCmd := exec.CommandContext(ctx, cmd.Executable, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = e.buildEnvironment(cmd.Env)
	execCmd.Stdin = nil // /dev/null; the protocol has no stdin

	// The pipes are owned here rather than via StdoutPipe so that Wait
	// cannot close them under a reader: a handshake line buffered in the
	// pipe must stay readable even after the child exits.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", domain.ErrSpawnFailed, err)
	}
	stderr, stderrW, err := os.Pipe()
	if err != nil {
		stdout.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("%w: stderr pipe: %v", domain.ErrSpawnFailed, err)
	}
	execCmd.Stdout = stdoutW
	execCmd.Stderr = stderrW

	startErr := execCmd.Start()
	// The parent's copies of the write ends are closed in all cases; the
	// child keeps its own, so EOF on the read ends tracks child exit.
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		stdout.Close()
		stderr.Close()
		if errors.Is(startErr, exec.ErrNotFound) || errors.Is(startErr, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrExecutableNotFound, cmd.Executable, startErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSpawnFailed, cmd.Executable, startErr)
	}

	proc := &osProcess{
		cmd:      execCmd,
		stdout:   stdout,
		stderr:   stderr,
		exitCode: -1,
		done:     make(chan struct{}),
	}
	go proc.monitor()

	return proc, nil
}

func (e *Executor) buildEnvironment(extra map[string]string) []string {
	env := append([]string(nil), e.env...)
	for key, value := range extra {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	return env
}

// osProcess implements ports.Process
type osProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser

	mu       sync.RWMutex
	exited   bool
	exitCode int
	waitErr  error
	done     chan struct{}
}

func (p *osProcess) PID() int {
	if p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

func (p *osProcess) HandshakeStream() io.ReadCloser { return p.stdout }

func (p *osProcess) DiagnosticStream() io.ReadCloser { return p.stderr }

func (p *osProcess) Wait() error {
	<-p.done
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waitErr
}

func (p *osProcess) Signal(sig ports.ProcessSignal) error {
	if p.cmd.Process == nil {
		return fmt.Errorf("process not started")
	}
	return p.cmd.Process.Signal(convertSignal(sig))
}

func (p *osProcess) Kill() error {
	p.mu.RLock()
	exited := p.exited
	p.mu.RUnlock()
	if exited || p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *osProcess) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.exited
}

func (p *osProcess) ExitCode() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitCode
}

// monitor reaps the process exactly once and records its exit state.
func (p *osProcess) monitor() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.waitErr = err
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		p.exitCode = 0
	case errors.As(err, &exitErr):
		p.exitCode = exitErr.ExitCode()
	default:
		p.exitCode = -1
	}
	p.mu.Unlock()

	close(p.done)
}

func convertSignal(sig ports.ProcessSignal) os.Signal {
	switch sig {
	case ports.SignalTerminate:
		return syscall.SIGTERM
	case ports.SignalInterrupt:
		return syscall.SIGINT
	case ports.SignalKill:
		return syscall.SIGKILL
	default:
		return syscall.SIGTERM
	}
}
