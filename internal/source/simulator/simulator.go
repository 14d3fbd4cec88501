// Package simulator is a heart-rate Source that needs no hardware.
//
// It produces a bounded random walk around a resting baseline, encodes every
// sample as a real Heart Rate Measurement frame and decodes it again, so the
// hub sees exactly what a strap would deliver. A non-zero session length ends
// each stream after that long to exercise the hub's reconnect path.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/source/hrm"
	"github.com/jonboulle/clockwork"
)

const (
	sourceName = "simulator"

	minBPM          = 40
	maxBPM          = 200
	maxDrift        = 25
	defaultInterval = time.Second
	defaultBaseline = 70
)

type Options struct {
	Interval time.Duration
	Session  time.Duration
	Baseline int
	Seed     uint64
}

type Source struct {
	clock   clockwork.Clock
	opts    Options
	metrics *metrics.SourceMetrics

	mu  sync.Mutex
	rng *rand.Rand
	bpm int
}

var _ domain.Source = (*Source)(nil)

// New creates a simulator. m may be nil.
func New(clock clockwork.Clock, opts Options, m *metrics.SourceMetrics) *Source {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Baseline <= 0 {
		opts.Baseline = defaultBaseline
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(clock.Now().UnixNano())
	}
	return &Source{
		clock:   clock,
		opts:    opts,
		metrics: m,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
		bpm:     opts.Baseline,
	}
}

// Connect starts a new simulated link.
func (s *Source) Connect(ctx context.Context) (<-chan domain.Reading, error) {
	out := make(chan domain.Reading)
	go s.stream(ctx, out)
	return out, nil
}

func (s *Source) stream(ctx context.Context, out chan<- domain.Reading) {
	defer close(out)

	ticker := s.clock.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	started := s.clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		if s.opts.Session > 0 && s.clock.Since(started) >= s.opts.Session {
			slog.Info("Simulated heart rate link dropped", "session", s.opts.Session)
			return
		}

		frame := hrm.Encode(s.next(), hrm.ContactDetected)
		r, err := hrm.Reading(frame, s.clock.Now().Unix())
		if err != nil {
			slog.Error("Simulator produced an undecodable frame", "error", err)
			if s.metrics != nil {
				s.metrics.MalformedFrames.WithLabelValues(sourceName).Inc()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.FramesReceived.WithLabelValues(sourceName).Inc()
		}

		select {
		case out <- r:
		case <-ctx.Done():
			return
		}
	}
}

// next advances the random walk, pulled back toward the baseline when it drifts.
func (s *Source) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	step := s.rng.IntN(5) - 2
	switch {
	case s.bpm > s.opts.Baseline+maxDrift:
		step = -1
	case s.bpm < s.opts.Baseline-maxDrift:
		step = 1
	}
	s.bpm = min(max(s.bpm+step, minBPM), maxBPM)
	return s.bpm
}
