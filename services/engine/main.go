package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"tilevar/api/models"
	"tilevar/api/repositories/tiledb"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"
)

var (
	// the engine process could not be spawned at all
	// (executable missing, permission denied)
	ErrEngineSpawnFailure = errors.New("engine spawn failure")
	// the process was spawned but never became ready
	// within the configured startup bound
	ErrEngineStartTimeout = errors.New("engine start timeout")
)

type State int

const (
	Cold State = iota // no process, no socket
	Starting
	Ready
	Dead // process exited; next EnsureRunning respawns
)

func (s State) String() string {
	switch s {
	case Starting:
		return "Starting"
	case Ready:
		return "Ready"
	case Dead:
		return "Dead"
	}
	return "Cold"
}

type (
	// EngineService owns the lifecycle of the single
	// out-of-process storage engine instance : lazy spawn,
	// readiness probing, single-flight startup, graceful
	// shutdown and socket-file hygiene. It is an explicit,
	// injectable session object -- the composition root
	// creates exactly one and registers Shutdown with its
	// exit/signal hooks.
	EngineService struct {
		Config *models.Config
		Client *tiledb.Client

		startFlight singleflight.Group

		sessionMux sync.Mutex
		state      State
		process    *os.Process
	}
)

func NewEngineService(client *tiledb.Client, cfg *models.Config) *EngineService {
	return &EngineService{
		Config: cfg,
		Client: client,
		state:  Cold,
	}
}

func (s *EngineService) State() State {
	s.sessionMux.Lock()
	defer s.sessionMux.Unlock()
	return s.state
}

func (s *EngineService) setState(state State) {
	s.sessionMux.Lock()
	defer s.sessionMux.Unlock()
	s.state = state
}

// EnsureRunning brings the engine process up if it isn't
// already, spawning at most one process concurrently per socket
// path : concurrent callers against a Cold session share a
// single spawn attempt rather than racing.
func (s *EngineService) EnsureRunning(ctx context.Context) error {
	if s.State() == Ready {
		// liveness probe; a failure silently demotes the
		// session and falls through to one respawn attempt
		if pingErr := s.Client.Ping(ctx); pingErr == nil {
			return nil
		}
		fmt.Printf("[%s] - Engine ping failed on a Ready session; demoting to Cold\n", time.Now())
		s.setState(Cold)
	}

	_, err, _ := s.startFlight.Do(s.Config.Engine.SocketPath, func() (interface{}, error) {
		// another caller's flight may have just completed
		if s.State() == Ready {
			return nil, nil
		}
		return nil, s.spawnAndAwaitReadiness(ctx)
	})
	return err
}

func (s *EngineService) spawnAndAwaitReadiness(ctx context.Context) error {
	socketPath := s.Config.Engine.SocketPath

	commandFields := strings.Fields(s.Config.Engine.Command)
	if len(commandFields) == 0 {
		return fmt.Errorf("%w : no engine command configured", ErrEngineSpawnFailure)
	}

	s.setState(Starting)

	// socket-file hygiene : a stale socket left over from a
	// previous run would fool the readiness probe
	if _, statErr := os.Stat(socketPath); statErr == nil {
		os.Remove(socketPath)
	}
	os.MkdirAll(filepath.Dir(socketPath), 0755)

	args := append(commandFields[1:], s.Config.Engine.WorkspacePath, socketPath)
	cmd := exec.Command(commandFields[0], args...)

	if startErr := cmd.Start(); startErr != nil {
		s.setState(Cold)
		return fmt.Errorf("%w : %v", ErrEngineSpawnFailure, startErr)
	}

	s.sessionMux.Lock()
	s.state = Starting
	s.process = cmd.Process
	s.sessionMux.Unlock()

	fmt.Printf("[%s] - Spawned engine process %d, awaiting readiness on %s\n", time.Now(), cmd.Process.Pid, socketPath)

	// observe the child's termination; no automatic restart
	// happens here -- respawn is always lazy and caller-triggered
	go func(spawned *os.Process) {
		cmd.Wait()
		s.sessionMux.Lock()
		defer s.sessionMux.Unlock()
		if s.process == spawned {
			fmt.Printf("[%s] - Engine process %d exited\n", time.Now(), spawned.Pid)
			s.state = Dead
			s.process = nil
		}
	}(cmd.Process)

	// poll for socket existence plus a successful ping, backing
	// off at short intervals up to the configured startup bound
	startupBound := time.Duration(s.Config.Engine.StartupTimeoutSeconds) * time.Second
	retryBackoff := backoff.NewExponentialBackOff()
	retryBackoff.InitialInterval = 100 * time.Millisecond
	retryBackoff.MaxInterval = 500 * time.Millisecond
	retryBackoff.MaxElapsedTime = startupBound

	probe := func() error {
		if _, statErr := os.Stat(socketPath); statErr != nil {
			return fmt.Errorf("socket not present yet : %v", statErr)
		}
		return s.Client.Ping(ctx)
	}

	if probeErr := backoff.Retry(probe, backoff.WithContext(retryBackoff, ctx)); probeErr != nil {
		// give up on this attempt : terminate the half-started
		// process so the next attempt begins from a clean slate
		s.sessionMux.Lock()
		if s.process != nil {
			s.process.Signal(syscall.SIGTERM)
			s.process = nil
		}
		s.state = Cold
		s.sessionMux.Unlock()

		return fmt.Errorf("%w : not ready within %s : %v", ErrEngineStartTimeout, startupBound, probeErr)
	}

	s.setState(Ready)
	fmt.Printf("[%s] - Engine ready on %s\n", time.Now(), socketPath)
	return nil
}

// Shutdown terminates the engine process and removes the socket
// file. Registered with the host's exit and termination-signal
// hooks so it fires on every exit path; safe to call twice.
func (s *EngineService) Shutdown() {
	s.sessionMux.Lock()
	defer s.sessionMux.Unlock()

	if s.process != nil {
		fmt.Printf("[%s] - Terminating engine process %d\n", time.Now(), s.process.Pid)
		s.process.Signal(syscall.SIGTERM)
		s.process = nil
	}

	if _, statErr := os.Stat(s.Config.Engine.SocketPath); statErr == nil {
		os.Remove(s.Config.Engine.SocketPath)
	}

	s.state = Cold
}
