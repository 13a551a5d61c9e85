package process

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/MangriMen/aether-core/internal/events"
)

func TestLaunchRejectsSecondConcurrentLaunchForSameInstance(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a 'sleep'-equivalent unix binary")
	}

	bus := events.NewBus()
	m := NewManager(bus, zerolog.Nop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	wg.Add(1)

	_, err := m.Launch(context.Background(), Spec{InstanceID: "inst-1", JavaPath: "sleep", Args: []string{"2"}},
		func(id string, d time.Duration) {},
		func(id, uuid string, success bool) { mu.Lock(); wg.Done(); mu.Unlock() })
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Launch(context.Background(), Spec{InstanceID: "inst-1", JavaPath: "sleep", Args: []string{"2"}}, nil, nil)
	if err == nil {
		t.Fatal("expected second launch for the same instance to be rejected")
	}

	if err := m.Kill(mustUUID(t, m, "inst-1")); err != nil {
		t.Fatal(err)
	}
	wg.Wait()
}

func TestLaunchAtMostOneWinsUnderConcurrentCalls(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a 'sleep'-equivalent unix binary")
	}

	bus := events.NewBus()
	m := NewManager(bus, zerolog.Nop())

	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes, failures int
	wg.Add(attempts)

	var doneWG sync.WaitGroup
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := m.Launch(context.Background(), Spec{InstanceID: "inst-race", JavaPath: "sleep", Args: []string{"1"}},
				func(id string, d time.Duration) {},
				func(id, uuid string, success bool) { doneWG.Done() })
			mu.Lock()
			if err == nil {
				successes++
				doneWG.Add(1)
			} else {
				failures++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful launch, got %d successes and %d failures", successes, failures)
	}
	if failures != attempts-1 {
		t.Fatalf("expected %d rejections, got %d", attempts-1, failures)
	}

	if err := m.Kill(mustUUID(t, m, "inst-race")); err != nil {
		t.Fatal(err)
	}
	doneWG.Wait()
}

func mustUUID(t *testing.T, m *Manager, instanceID string) string {
	t.Helper()
	id, ok := m.IsRunning(instanceID)
	if !ok {
		t.Fatal("expected a running process")
	}
	return id
}

func TestSplitCommandSplitsPlainWords(t *testing.T) {
	args, err := splitCommand("echo hello world")
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 3 || args[0] != "echo" {
		t.Fatalf("got %v", args)
	}
}

func TestBuildEnvAlwaysStripsJavaOptions(t *testing.T) {
	t.Setenv("_JAVA_OPTIONS", "-Xmx1g")

	env := buildEnv(map[string]string{"FOO": "bar"})
	for _, kv := range env {
		if kv == "_JAVA_OPTIONS=-Xmx1g" {
			t.Fatal("expected _JAVA_OPTIONS stripped")
		}
	}
	found := false
	for _, kv := range env {
		if kv == "FOO=bar" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected override to be present")
	}
}

func TestBuildEnvKeepsDyldFallbackOutsideCargoHarness(t *testing.T) {
	t.Setenv("DYLD_FALLBACK_LIBRARY_PATH", "/usr/lib")
	t.Setenv("CARGO", "")

	env := buildEnv(nil)
	found := false
	for _, kv := range env {
		if kv == "DYLD_FALLBACK_LIBRARY_PATH=/usr/lib" {
			found = true
		}
	}
	if runtime.GOOS == "darwin" {
		if !found {
			t.Fatal("expected DYLD_FALLBACK_LIBRARY_PATH kept on a real macOS launch")
		}
	} else {
		if !found {
			t.Fatal("expected DYLD_FALLBACK_LIBRARY_PATH kept outside the CARGO test harness")
		}
	}
}

func TestBuildEnvStripsDyldFallbackUnderDarwinCargoHarness(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("CARGO-gated stripping only applies on darwin")
	}
	t.Setenv("DYLD_FALLBACK_LIBRARY_PATH", "/usr/lib")
	t.Setenv("CARGO", "1")

	env := buildEnv(nil)
	for _, kv := range env {
		if kv == "DYLD_FALLBACK_LIBRARY_PATH=/usr/lib" {
			t.Fatal("expected DYLD_FALLBACK_LIBRARY_PATH stripped under the CARGO harness on darwin")
		}
	}
}
