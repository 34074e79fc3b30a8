package collectors

import "time"

// MockSample returns a healthy-looking Sample at the given timestamp.
// Useful for tests and for seeding the watch TUI before real data arrives.
func MockSample(ts time.Time) Sample {
	const gib = 1 << 30
	return Sample{
		Timestamp:       ts,
		DiskUsedPct:     9.0,
		DiskUsedBytes:   9 * gib,
		DiskTotalBytes:  100 * gib,
		MemUsedBytes:    4 * gib,
		MemTotalBytes:   16 * gib,
		Load1:           0.42,
		Load5:           0.38,
		Load15:          0.31,
		ContainersUp:    3,
		ContainersTotal: 3,
	}
}

// MockSeries returns n Samples spaced interval apart, ending at end, with
// disk usage drifting upward by stepPct per sample. Timestamps ascend.
func MockSeries(end time.Time, n int, interval time.Duration, stepPct float64) []Sample {
	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		s := MockSample(end.Add(-time.Duration(n-1-i) * interval))
		s.DiskUsedPct += stepPct * float64(i)
		s.DiskUsedBytes = uint64(s.DiskUsedPct / 100.0 * float64(s.DiskTotalBytes))
		samples = append(samples, s)
	}
	return samples
}

// MockDockerStatus returns a DockerStatus with the given containers running
// and stopped, in that order.
func MockDockerStatus(running, stopped []string) *DockerStatus {
	st := &DockerStatus{}
	for _, name := range running {
		st.Containers = append(st.Containers, ContainerInfo{
			Name:    name,
			Image:   name + ":latest",
			Status:  "Up 2 hours",
			Running: true,
		})
	}
	for _, name := range stopped {
		st.Containers = append(st.Containers, ContainerInfo{
			Name:    name,
			Image:   name + ":latest",
			Status:  "Exited (0) 3 hours ago",
			Running: false,
		})
	}
	st.Up = len(running)
	st.Total = len(st.Containers)
	return st
}
