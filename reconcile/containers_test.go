package reconcile

import (
	"reflect"
	"testing"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
)

func observed(running, stopped []string) []collectors.ContainerInfo {
	return collectors.MockDockerStatus(running, stopped).Containers
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name        string
		desired     []string
		running     []string
		stopped     []string
		wantRunning []string
		wantStopped []string
		wantMissing []string
	}{
		{
			name:        "partition preserves desired order",
			desired:     []string{"A", "B", "C"},
			running:     []string{"A", "C"},
			wantRunning: []string{"A", "C"},
			wantStopped: []string{},
			wantMissing: []string{"B"},
		},
		{
			name:        "all running",
			desired:     []string{"web", "db"},
			running:     []string{"db", "web"},
			wantRunning: []string{"web", "db"},
			wantStopped: []string{},
			wantMissing: []string{},
		},
		{
			name:        "stopped container",
			desired:     []string{"web", "db"},
			running:     []string{"web"},
			stopped:     []string{"db"},
			wantRunning: []string{"web"},
			wantStopped: []string{"db"},
			wantMissing: []string{},
		},
		{
			name:        "nothing observed",
			desired:     []string{"web"},
			wantRunning: []string{},
			wantStopped: []string{},
			wantMissing: []string{"web"},
		},
		{
			name:        "empty desired list",
			desired:     nil,
			running:     []string{"web"},
			wantRunning: []string{},
			wantStopped: []string{},
			wantMissing: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Reconcile(tt.desired, observed(tt.running, tt.stopped))
			if !reflect.DeepEqual(p.Running, tt.wantRunning) {
				t.Errorf("Running = %v, want %v", p.Running, tt.wantRunning)
			}
			if !reflect.DeepEqual(p.Stopped, tt.wantStopped) {
				t.Errorf("Stopped = %v, want %v", p.Stopped, tt.wantStopped)
			}
			if !reflect.DeepEqual(p.Missing, tt.wantMissing) {
				t.Errorf("Missing = %v, want %v", p.Missing, tt.wantMissing)
			}
		})
	}
}

func TestReconcile_ExtraContainers(t *testing.T) {
	p := Reconcile([]string{"web"}, observed([]string{"web", "sidecar"}, []string{"old-job"}))

	if !reflect.DeepEqual(p.Extra, []string{"sidecar", "old-job"}) {
		t.Errorf("Extra = %v, want [sidecar old-job]", p.Extra)
	}
	if !p.Healthy() {
		t.Error("extras alone must not make the partition unhealthy")
	}
}

func TestReconcile_DuplicateObservationRunningWins(t *testing.T) {
	obs := []collectors.ContainerInfo{
		{Name: "web", Status: "Exited (1) 5 minutes ago", Running: false},
		{Name: "web", Status: "Up 1 minute", Running: true},
	}
	p := Reconcile([]string{"web"}, obs)
	if !reflect.DeepEqual(p.Running, []string{"web"}) {
		t.Errorf("Running = %v, want [web]", p.Running)
	}
}

func TestReconcile_DuplicateDesiredCollapsed(t *testing.T) {
	p := Reconcile([]string{"web", "web"}, observed([]string{"web"}, nil))
	if len(p.Running) != 1 {
		t.Errorf("duplicate desired counted twice: %v", p.Running)
	}
}

func TestPartitionHealthy(t *testing.T) {
	healthy := Partition{Running: []string{"a"}, Stopped: []string{}, Missing: []string{}}
	if !healthy.Healthy() {
		t.Error("all running should be healthy")
	}

	stopped := Partition{Running: []string{}, Stopped: []string{"a"}, Missing: []string{}}
	if stopped.Healthy() {
		t.Error("stopped container should not be healthy")
	}

	missing := Partition{Running: []string{}, Stopped: []string{}, Missing: []string{"a"}}
	if missing.Healthy() {
		t.Error("missing container should not be healthy")
	}
}

func TestReconcile_IsPure(t *testing.T) {
	desired := []string{"a", "b"}
	obs := observed([]string{"a"}, []string{"b"})

	first := Reconcile(desired, obs)
	second := Reconcile(desired, obs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ: %v vs %v", first, second)
	}
	if desired[0] != "a" || obs[0].Name != "a" {
		t.Error("inputs were mutated")
	}
}
