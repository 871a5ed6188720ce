package progress

import "strings"

// Sampler suppresses repetitive progress logs while preserving signal when
// the status or the fraction bucket changes.
type Sampler struct {
	bucketSize float64
	lastStatus string
	lastBucket int
}

// NewSampler constructs a sampler that emits when the fraction crosses bucket
// boundaries (default 5%) or when the status changes.
func NewSampler(bucketSize float64) *Sampler {
	if bucketSize <= 0 {
		bucketSize = 0.05
	}
	return &Sampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event carries enough new signal to log.
func (s *Sampler) ShouldLog(evt Event) bool {
	if s == nil {
		return true
	}
	status := strings.TrimSpace(evt.Status)
	emit := false
	if status != "" && status != s.lastStatus {
		s.lastStatus = status
		s.lastBucket = -1
		emit = true
	}
	bucket := int(evt.Fraction / s.bucketSize)
	if evt.Fraction >= 1 {
		bucket = int(1 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset clears the sampler state, typically when a new batch starts.
func (s *Sampler) Reset() {
	if s == nil {
		return
	}
	s.lastStatus = ""
	s.lastBucket = -1
}
