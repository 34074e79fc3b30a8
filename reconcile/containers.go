// Package reconcile partitions observed container state against a desired
// list. It is pure bookkeeping: no Docker calls, no side effects, just the
// classification the report layer folds into overall status.
package reconcile

import "gitlab.com/tinyland/lab/host-pulse/collectors"

// Partition splits the desired container names by their observed state.
// Slices preserve the order of the desired list and are never nil, so the
// JSON report always carries all three arrays.
type Partition struct {
	// Running holds desired containers observed up.
	Running []string `json:"running"`

	// Stopped holds desired containers observed but not running.
	Stopped []string `json:"stopped"`

	// Missing holds desired containers not observed at all.
	Missing []string `json:"missing"`

	// Extra holds observed containers nobody asked for, in observation
	// order. They never affect status, they are surfaced for review.
	Extra []string `json:"extra,omitempty"`
}

// Healthy reports whether every desired container is running.
func (p Partition) Healthy() bool {
	return len(p.Stopped) == 0 && len(p.Missing) == 0
}

// Reconcile classifies each desired container against the observed set.
// Desired names are matched exactly; duplicates in observed collapse to the
// first occurrence with a running state winning over a stopped one.
func Reconcile(desired []string, observed []collectors.ContainerInfo) Partition {
	state := make(map[string]bool, len(observed))
	for _, c := range observed {
		running, seen := state[c.Name]
		if !seen || (!running && c.Running) {
			state[c.Name] = c.Running
		}
	}

	p := Partition{
		Running: []string{},
		Stopped: []string{},
		Missing: []string{},
	}

	wanted := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		if _, dup := wanted[name]; dup {
			continue
		}
		wanted[name] = struct{}{}

		running, seen := state[name]
		switch {
		case !seen:
			p.Missing = append(p.Missing, name)
		case running:
			p.Running = append(p.Running, name)
		default:
			p.Stopped = append(p.Stopped, name)
		}
	}

	for _, c := range observed {
		if _, ok := wanted[c.Name]; !ok {
			p.Extra = append(p.Extra, c.Name)
			wanted[c.Name] = struct{}{}
		}
	}

	return p
}
