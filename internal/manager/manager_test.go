package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"aigated/internal/backend"
	"aigated/pkg/types"
)

func writeModelFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	return p
}

func testRegistry(t *testing.T) []types.Model {
	t.Helper()
	return []types.Model{
		{ID: "gen-small", Name: "gen small", Capability: types.CapGenerate, Path: writeModelFile(t, "gen-small.bin"), EstMB: 100},
		{ID: "gen-large", Name: "gen large", Capability: types.CapGenerate, Path: writeModelFile(t, "gen-large.bin"), EstMB: 400},
		{ID: "embed-1", Name: "embedder", Capability: types.CapEmbed, Path: writeModelFile(t, "embed.bin"), EstMB: 50},
	}
}

func newTestManager(t *testing.T, mutate func(*ManagerConfig)) (*Manager, map[types.Capability]*backend.SimEngine) {
	t.Helper()
	engines := map[types.Capability]*backend.SimEngine{
		types.CapGenerate: backend.NewSimEngine(types.CapGenerate),
		types.CapEmbed:    backend.NewSimEngine(types.CapEmbed),
	}
	for _, e := range engines {
		e.SetLoadDelay(0)
	}
	cfg := ManagerConfig{
		Registry: testRegistry(t),
		Engines: map[types.Capability]backend.Engine{
			types.CapGenerate: engines[types.CapGenerate],
			types.CapEmbed:    engines[types.CapEmbed],
		},
		DefaultModels: map[types.Capability]string{
			types.CapGenerate: "gen-small",
			types.CapEmbed:    "embed-1",
		},
		MaxWait: 250 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() { _ = m.Close() })
	return m, engines
}

func TestAcquireSingleFlight(t *testing.T) {
	m, engines := newTestManager(t, nil)
	engines[types.CapGenerate].SetLoadDelay(50 * time.Millisecond)

	const callers = 16
	var wg sync.WaitGroup
	handles := make([]*Handle, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = m.Acquire(context.Background(), "gen-small")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		m.Release(handles[i])
	}
	if got := engines[types.CapGenerate].Loads(); got != 1 {
		t.Fatalf("expected exactly 1 load for %d concurrent callers, got %d", callers, got)
	}
}

func TestAcquireUnknownModel(t *testing.T) {
	m, _ := newTestManager(t, nil)
	_, err := m.Acquire(context.Background(), "nope")
	if !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found, got %v", err)
	}
}

func TestAcquireReleaseRefcounts(t *testing.T) {
	m, _ := newTestManager(t, nil)
	h1, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}

	st := m.Status()
	if len(st.Slots) != 1 || st.Slots[0].Refs != 2 {
		t.Fatalf("expected one slot with 2 refs, got %+v", st.Slots)
	}

	m.Release(h1)
	m.Release(h2)
	st = m.Status()
	if st.Slots[0].Refs != 0 {
		t.Fatalf("expected 0 refs after release, got %d", st.Slots[0].Refs)
	}
	// Released slots stay ready; unload is lazy.
	if st.Slots[0].State != "ready" {
		t.Fatalf("expected ready slot, got %s", st.Slots[0].State)
	}
}

func TestLoadFailureThenRetry(t *testing.T) {
	m, engines := newTestManager(t, nil)
	engines[types.CapGenerate].FailNextLoad(errors.New("weights corrupt"))

	_, err := m.Acquire(context.Background(), "gen-small")
	if !IsModelUnavailable(err) {
		t.Fatalf("expected model-unavailable, got %v", err)
	}

	// Failure is one-shot; the next acquire reloads.
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatalf("retry after failed load: %v", err)
	}
	m.Release(h)
	if got := engines[types.CapGenerate].Loads(); got != 2 {
		t.Fatalf("expected 2 load attempts, got %d", got)
	}
}

func TestEvictionLRU(t *testing.T) {
	pub := NewMemoryPublisher()
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.BudgetMB = 420
		cfg.Publisher = pub
	})

	// 100 + 50 fit together; loading the 400MB model must evict both,
	// oldest first.
	h1, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	m.Release(h1)
	time.Sleep(5 * time.Millisecond)
	h2, err := m.Acquire(context.Background(), "embed-1")
	if err != nil {
		t.Fatal(err)
	}
	m.Release(h2)

	h3, err := m.Acquire(context.Background(), "gen-large")
	if err != nil {
		t.Fatalf("acquire within budget after eviction: %v", err)
	}
	defer m.Release(h3)

	var evicted []string
	for _, ev := range pub.Events() {
		if ev.Name == "evict" {
			evicted = append(evicted, ev.ModelID)
		}
	}
	if len(evicted) != 2 || evicted[0] != "gen-small" || evicted[1] != "embed-1" {
		t.Fatalf("expected LRU eviction order [gen-small embed-1], got %v", evicted)
	}

	st := m.Status()
	if st.UsedMB != 400 {
		t.Fatalf("expected 400MB accounted after eviction, got %d", st.UsedMB)
	}
}

func TestEvictionSkipsReferencedSlots(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.BudgetMB = 450
	})

	// Hold a reference so the slot cannot be evicted.
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	_, err = m.Acquire(context.Background(), "gen-large")
	if !IsResourceExhausted(err) {
		t.Fatalf("expected resource exhausted with all slots referenced, got %v", err)
	}
}

func TestPreflight(t *testing.T) {
	reg := testRegistry(t)

	t.Run("ok", func(t *testing.T) {
		m, _ := newTestManager(t, nil)
		if err := m.Preflight(); err != nil {
			t.Fatalf("preflight: %v", err)
		}
	})

	t.Run("missing engine", func(t *testing.T) {
		m := NewWithConfig(ManagerConfig{
			Registry: reg,
			Engines: map[types.Capability]backend.Engine{
				types.CapGenerate: backend.NewSimEngine(types.CapGenerate),
			},
		})
		if err := m.Preflight(); err == nil {
			t.Fatal("expected error for capability without engine")
		}
	})

	t.Run("budget too small", func(t *testing.T) {
		m, _ := newTestManager(t, func(cfg *ManagerConfig) {
			cfg.BudgetMB = 300 // gen-large is 400
		})
		if err := m.Preflight(); err == nil {
			t.Fatal("expected error for model that can never fit")
		}
	})

	t.Run("bad default", func(t *testing.T) {
		m, _ := newTestManager(t, func(cfg *ManagerConfig) {
			cfg.DefaultModels = map[types.Capability]string{types.CapGenerate: "embed-1"}
		})
		if err := m.Preflight(); err == nil {
			t.Fatal("expected error for default model with wrong capability")
		}
	})
}

func TestResolveModel(t *testing.T) {
	m, _ := newTestManager(t, nil)

	mdl, err := m.ResolveModel(types.CapGenerate, "")
	if err != nil || mdl.ID != "gen-small" {
		t.Fatalf("default resolution: %v %+v", err, mdl)
	}
	mdl, err = m.ResolveModel(types.CapGenerate, "gen-large")
	if err != nil || mdl.ID != "gen-large" {
		t.Fatalf("explicit resolution: %v %+v", err, mdl)
	}
	if _, err = m.ResolveModel(types.CapEmbed, "gen-small"); !IsModelNotFound(err) {
		t.Fatalf("expected not-found for capability mismatch, got %v", err)
	}
	if _, err = m.ResolveModel(types.CapOCR, ""); !IsModelNotFound(err) {
		t.Fatalf("expected not-found with no default, got %v", err)
	}
}

func TestAdmitQueueOverflow(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.Concurrency = map[types.Capability]int{types.CapGenerate: 1}
		cfg.MaxQueueDepth = 1
		cfg.MaxWait = 50 * time.Millisecond
	})
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	release, err := m.Admit(context.Background(), "gen-small")
	if err != nil {
		t.Fatalf("first admit: %v", err)
	}
	defer release()

	// The single queue slot is held by the admitted request.
	_, err = m.Admit(context.Background(), "gen-small")
	if !IsTooBusy(err) {
		t.Fatalf("expected too-busy on full queue, got %v", err)
	}
}

func TestAdmitWaitTimeout(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.Concurrency = map[types.Capability]int{types.CapGenerate: 1}
		cfg.MaxQueueDepth = 4
		cfg.MaxWait = 50 * time.Millisecond
	})
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	release, err := m.Admit(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}

	// Room in the queue, but the execution slot never frees.
	_, err = m.Admit(context.Background(), "gen-small")
	if !IsWaitTimeout(err) {
		t.Fatalf("expected wait-timeout, got %v", err)
	}

	release()
	release2, err := m.Admit(context.Background(), "gen-small")
	if err != nil {
		t.Fatalf("admit after release: %v", err)
	}
	release2()
}

func TestAdmitCanceledContext(t *testing.T) {
	m, _ := newTestManager(t, nil)
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Admit(ctx, "gen-small"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// A canceled admit must not leak queue slots.
	release, err := m.Admit(context.Background(), "gen-small")
	if err != nil {
		t.Fatalf("admit after canceled admit: %v", err)
	}
	release()
}

func TestAdmitFIFOOrder(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.Concurrency = map[types.Capability]int{types.CapGenerate: 1}
		cfg.MaxQueueDepth = 8
		cfg.MaxWait = 2 * time.Second
	})
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	first, err := m.Admit(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}

	const waiters = 4
	order := make(chan int, waiters)
	var started sync.WaitGroup
	var done sync.WaitGroup
	for i := 0; i < waiters; i++ {
		started.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			started.Done()
			// Stagger arrival so queue order is deterministic.
			time.Sleep(time.Duration(i*20) * time.Millisecond)
			release, err := m.Admit(context.Background(), "gen-small")
			if err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			order <- i
			release()
		}(i)
	}
	started.Wait()
	time.Sleep(150 * time.Millisecond) // let all waiters enqueue
	first()
	done.Wait()
	close(order)

	want := 0
	for got := range order {
		if got != want {
			t.Fatalf("expected arrival-order admission, got waiter %d before %d", got, want)
		}
		want++
	}
}

func TestUnload(t *testing.T) {
	m, _ := newTestManager(t, nil)
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	m.Release(h)

	if err := m.Unload("gen-small"); err != nil {
		t.Fatalf("unload idle slot: %v", err)
	}
	st := m.Status()
	if len(st.Slots) != 0 || st.UsedMB != 0 {
		t.Fatalf("expected empty slot table after unload, got %+v", st)
	}
	if err := m.Unload("gen-small"); !IsModelNotFound(err) {
		t.Fatalf("expected not-found unloading twice, got %v", err)
	}
}

func TestUnloadRefusesWhileReferenced(t *testing.T) {
	m, _ := newTestManager(t, func(cfg *ManagerConfig) {
		cfg.DrainTimeout = 50 * time.Millisecond
	})
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatal(err)
	}
	defer m.Release(h)

	if err := m.Unload("gen-small"); !IsModelUnavailable(err) {
		t.Fatalf("expected drain timeout with live reference, got %v", err)
	}
	st := m.Status()
	if len(st.Slots) != 1 || st.Slots[0].Refs != 1 {
		t.Fatalf("slot must survive a refused unload, got %+v", st.Slots)
	}
}

func TestCloseUnloadsEverything(t *testing.T) {
	m, _ := newTestManager(t, nil)
	for _, id := range []string{"gen-small", "embed-1"} {
		h, err := m.Acquire(context.Background(), id)
		if err != nil {
			t.Fatal(err)
		}
		m.Release(h)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if st := m.Status(); len(st.Slots) != 0 {
		t.Fatalf("expected no slots after close, got %d", len(st.Slots))
	}
}

func TestAcquireCallerCancelDoesNotKillSharedLoad(t *testing.T) {
	m, engines := newTestManager(t, nil)
	engines[types.CapGenerate].SetLoadDelay(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, "gen-small"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	// The shared load keeps running; a patient caller gets the slot
	// without a second load.
	h, err := m.Acquire(context.Background(), "gen-small")
	if err != nil {
		t.Fatalf("patient acquire: %v", err)
	}
	m.Release(h)
	if got := engines[types.CapGenerate].Loads(); got != 1 {
		t.Fatalf("expected 1 load, got %d", got)
	}
}
