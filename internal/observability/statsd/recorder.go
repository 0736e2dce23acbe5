package statsd

import (
	"sync"
	"time"
)

// Sample is one metric captured by Recorder.
type Sample struct {
	Kind  string // count, gauge or timing
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory Sink that keeps every sample, for tests and dry runs.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) add(kind, name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, Sample{Kind: kind, Name: name, Value: value, Tags: cloneTags(tags)})
}

// Count records a counter sample.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add("count", name, float64(value), tags)
}

// Gauge records a gauge sample.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add("gauge", name, value, tags)
}

// Timing records a timing sample in milliseconds.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add("timing", name, float64(value)/float64(time.Millisecond), tags)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Named returns the samples recorded under name.
func (r *Recorder) Named(name string) []Sample {
	var out []Sample
	for _, s := range r.Samples() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}
