package collectors

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeCollector is a minimal Collector for registry tests.
type fakeCollector struct {
	name string
}

func (f *fakeCollector) Name() string            { return f.name }
func (f *fakeCollector) Description() string     { return "fake " + f.name }
func (f *fakeCollector) Interval() time.Duration { return time.Minute }
func (f *fakeCollector) Collect(_ context.Context) (*CollectResult, error) {
	return &CollectResult{Collector: f.name, Timestamp: time.Now()}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCollector{name: "host"})
	r.Register(&fakeCollector{name: "docker"})

	c, ok := r.Get("host")
	if !ok {
		t.Fatal("Get(host) not found")
	}
	if c.Name() != "host" {
		t.Errorf("Name = %s, want host", c.Name())
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("Get(missing) reported found")
	}
}

func TestRegistryDuplicateReplaces(t *testing.T) {
	r := NewRegistry()
	first := &fakeCollector{name: "host"}
	second := &fakeCollector{name: "host"}
	r.Register(first)
	r.Register(second)

	if got := len(r.All()); got != 1 {
		t.Fatalf("len(All) = %d, want 1", got)
	}
	c, _ := r.Get("host")
	if c != Collector(second) {
		t.Error("duplicate registration did not replace the original")
	}
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"host", "docker", "journal"}
	for _, n := range names {
		r.Register(&fakeCollector{name: n})
	}

	all := r.All()
	for i, c := range all {
		if c.Name() != names[i] {
			t.Errorf("All()[%d] = %s, want %s", i, c.Name(), names[i])
		}
	}

	// All returns a copy; mutating it must not affect the registry.
	all[0] = &fakeCollector{name: "evil"}
	if c, _ := r.Get("host"); c.Name() != "host" {
		t.Error("mutating All() result changed the registry")
	}
}

func TestTimeoutIsCollectionError(t *testing.T) {
	if !errors.Is(ErrTimeout, ErrCollection) {
		t.Error("ErrTimeout must satisfy errors.Is against ErrCollection")
	}
}

func TestMockSeriesAscends(t *testing.T) {
	end := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	samples := MockSeries(end, 5, time.Hour, 0.5)

	if len(samples) != 5 {
		t.Fatalf("len = %d, want 5", len(samples))
	}
	if !samples[4].Timestamp.Equal(end) {
		t.Errorf("last timestamp = %s, want %s", samples[4].Timestamp, end)
	}
	for i := 1; i < len(samples); i++ {
		if !samples[i].Timestamp.After(samples[i-1].Timestamp) {
			t.Errorf("timestamps not ascending at %d", i)
		}
		if samples[i].DiskUsedPct <= samples[i-1].DiskUsedPct {
			t.Errorf("disk usage not drifting upward at %d", i)
		}
	}
}
