// Package process implements §4.10: the launch process registry and
// its playtime-accounting supervisor. Generalizes the teacher's
// LaunchMinecraft (src/launcher/launcher.go), which merely wires
// exec.Command's stdio and returns the *exec.Cmd, into a concurrent
// registry that tracks every running instance, polls for exit, and
// fires pre-launch/wrapper/post-exit hooks the teacher never had.
package process

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	shellparse "github.com/arkady-emelyanov/go-shellparse"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/domainerr"
	"github.com/MangriMen/aether-core/internal/events"
)

// pollInterval matches spec.md §4.10's 50ms supervisor tick.
const pollInterval = 50 * time.Millisecond

// playtimeCreditInterval is the minimum wall-clock chunk credited to an
// instance's playtime counter while it is still running.
const playtimeCreditInterval = 60 * time.Second

// Process is one running (or just-finished) launch.
type Process struct {
	UUID       string
	InstanceID string
	StartedAt  time.Time
	cmd        *exec.Cmd
}

// Manager is the uuid -> *Process registry plus supervisor spawner.
type Manager struct {
	bus   *events.Bus
	log   zerolog.Logger
	procs sync.Map // uuid -> *Process
	byInst sync.Map // instanceID -> uuid, enforcing at-most-one-running-per-instance
}

func NewManager(bus *events.Bus, log zerolog.Logger) *Manager {
	return &Manager{bus: bus, log: log}
}

// Spec describes one launch, already fully resolved by the caller
// (instance service): the command to run, its working directory, and
// the hooks to fire around it.
type Spec struct {
	InstanceID  string
	JavaPath    string
	Args        []string
	WorkDir     string
	Env         map[string]string
	PreLaunch   *string
	Wrapper     *string
	PostExit    *string
}

// IsRunning reports whether instanceID already has an active process.
func (m *Manager) IsRunning(instanceID string) (string, bool) {
	v, ok := m.byInst.Load(instanceID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Launch executes spec's pre-launch hook, spawns the game process, and
// starts its supervisor goroutine. onPlaytime is called with each credited
// chunk of elapsed playtime, and onExit with the instance id, process uuid
// and success flag once the process exits (fire-and-forget from the caller's
// perspective; Launch itself returns as soon as the child is spawned).
//
// The at-most-one-running-per-instance slot (spec.md §8: two concurrent
// Launch(id) calls must yield exactly one Launched event and one
// InstanceAlreadyRunning error) is claimed with a single LoadOrStore
// before anything is spawned, rather than a separate IsRunning check
// followed by a later Store — the earlier check-then-act split left a
// window where two concurrent calls could both observe "not running" and
// both spawn a process.
func (m *Manager) Launch(ctx context.Context, spec Spec, onPlaytime func(instanceID string, elapsed time.Duration), onExit func(instanceID string, uuid string, success bool)) (string, error) {
	claimID := uuid.NewString()
	if existing, taken := m.byInst.LoadOrStore(spec.InstanceID, claimID); taken {
		return "", domainerr.WithField(domainerr.New(domainerr.KindInstanceAlreadyRunning, spec.InstanceID), "uuid", existing.(string))
	}

	id, err := m.doLaunch(ctx, claimID, spec, onPlaytime, onExit)
	if err != nil {
		m.byInst.Delete(spec.InstanceID)
		return "", err
	}
	return id, nil
}

func (m *Manager) doLaunch(ctx context.Context, id string, spec Spec, onPlaytime func(instanceID string, elapsed time.Duration), onExit func(instanceID string, uuid string, success bool)) (string, error) {
	if spec.PreLaunch != nil && strings.TrimSpace(*spec.PreLaunch) != "" {
		if err := runHook(ctx, *spec.PreLaunch, spec.WorkDir, nil); err != nil {
			return "", domainerr.Wrap(domainerr.KindPrelaunchFailed, *spec.PreLaunch, err)
		}
	}

	javaPath, args := spec.JavaPath, spec.Args
	if spec.Wrapper != nil && strings.TrimSpace(*spec.Wrapper) != "" {
		wrapperArgs, err := splitCommand(*spec.Wrapper)
		if err == nil && len(wrapperArgs) > 0 {
			args = append(append([]string{}, wrapperArgs[1:]...), append([]string{javaPath}, args...)...)
			javaPath = wrapperArgs[0]
		}
	}

	cmd := exec.Command(javaPath, args...)
	cmd.Dir = spec.WorkDir
	cmd.Env = buildEnv(spec.Env)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return "", domainerr.Wrap(domainerr.KindProcessorFailed, javaPath, err)
	}

	proc := &Process{UUID: id, InstanceID: spec.InstanceID, StartedAt: time.Now(), cmd: cmd}
	m.procs.Store(id, proc)

	m.bus.Publish(events.Event{Kind: events.KindProcessLaunched, Payload: events.ProcessPayload{
		ProcessID: id, InstanceID: spec.InstanceID,
	}})

	go m.supervise(proc, spec.PostExit, onPlaytime, onExit)

	return id, nil
}

func (m *Manager) supervise(proc *Process, postExit *string, onPlaytime func(string, time.Duration), onExit func(string, string, bool)) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastCredit := proc.StartedAt
	done := make(chan error, 1)
	go func() { done <- proc.cmd.Wait() }()

	for {
		select {
		case err := <-done:
			now := time.Now()
			if onPlaytime != nil {
				onPlaytime(proc.InstanceID, now.Sub(lastCredit))
			}
			success := err == nil
			m.finish(proc, success, postExit)
			if onExit != nil {
				onExit(proc.InstanceID, proc.UUID, success)
			}
			return
		case <-ticker.C:
			now := time.Now()
			if now.Sub(lastCredit) >= playtimeCreditInterval {
				if onPlaytime != nil {
					onPlaytime(proc.InstanceID, now.Sub(lastCredit))
				}
				lastCredit = now
			}
		}
	}
}

func (m *Manager) finish(proc *Process, success bool, postExit *string) {
	m.procs.Delete(proc.UUID)
	m.byInst.Delete(proc.InstanceID)

	m.bus.Publish(events.Event{Kind: events.KindProcessFinished, Payload: events.ProcessPayload{
		ProcessID: proc.UUID, InstanceID: proc.InstanceID, Success: success,
	}})

	if success && postExit != nil && strings.TrimSpace(*postExit) != "" {
		go func() { _ = runHook(context.Background(), *postExit, "", nil) }()
	}
}

// Kill sends an immediate termination signal; the supervisor still
// observes the exit and credits playtime up to that point.
func (m *Manager) Kill(uuid string) error {
	v, ok := m.procs.Load(uuid)
	if !ok {
		return domainerr.New(domainerr.KindInstanceNotFound, uuid)
	}
	proc := v.(*Process)
	if proc.cmd.Process == nil {
		return nil
	}
	return proc.cmd.Process.Kill()
}

func runHook(ctx context.Context, command, workDir string, env map[string]string) error {
	args, err := splitCommand(command)
	if err != nil || len(args) == 0 {
		return err
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = workDir
	if len(env) > 0 {
		cmd.Env = buildEnv(env)
	}
	return cmd.Run()
}

// splitCommand uses go-shellparse (the corpus's own shell-command-string
// splitter, per nickheyer-discopanel's module.go) for quote-aware
// splitting, falling back to strings.Fields for the common
// no-quotes case if the library errors out.
func splitCommand(command string) ([]string, error) {
	args, err := shellparse.StringToSlice(command)
	if err != nil || len(args) == 0 {
		return strings.Fields(command), nil
	}
	return args, nil
}

// buildEnv merges the process environment with overrides, stripping
// _JAVA_OPTIONS unconditionally and DYLD_FALLBACK_LIBRARY_PATH only on
// macOS under the CARGO test harness, per spec.md §4.10 / the Rust
// reference's `if std::env::var("CARGO").is_ok() { command.env_remove(...) }`
// guard (e.g. features/java/utils/check.rs, launcher/launch.rs) — a real
// macOS launch must keep the user's DYLD_FALLBACK_LIBRARY_PATH intact.
func buildEnv(overrides map[string]string) []string {
	stripDyldFallback := runtime.GOOS == "darwin" && os.Getenv("CARGO") != ""

	base := os.Environ()
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if key == "_JAVA_OPTIONS" {
			continue
		}
		if key == "DYLD_FALLBACK_LIBRARY_PATH" && stripDyldFallback {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}
