// seed-history populates a history file with mock samples so -trend and
// -watch can be exercised without waiting for the daemon to accumulate data.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gitlab.com/tinyland/lab/host-pulse/collectors"
	"gitlab.com/tinyland/lab/host-pulse/history"
)

func main() {
	path := flag.String("history", "", "History file to seed (required)")
	count := flag.Int("count", 48, "Number of samples to write")
	interval := flag.Duration("interval", 30*time.Minute, "Spacing between samples")
	stepPct := flag.Float64("step", 0.1, "Disk usage growth per sample, in percent")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: seed-history -history <file> [-count N] [-interval D] [-step P]")
		os.Exit(1)
	}

	hist, err := history.Open(*path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open history: %v\n", err)
		os.Exit(1)
	}

	samples := collectors.MockSeries(time.Now(), *count, *interval, *stepPct)
	written := 0
	for _, s := range samples {
		if err := hist.Append(s); err != nil {
			fmt.Fprintf(os.Stderr, "skipping sample %s: %v\n", s.Timestamp.Format(time.RFC3339), err)
			continue
		}
		written++
	}

	fmt.Printf("wrote %d samples to %s (%d total in series)\n", written, hist.Path(), hist.Len())
}
