package ingest

import (
	"log"
	"sync"
	"time"
)

// SampleStats tracks datagram and decode counters for the UDP listener.
type SampleStats struct {
	mu            sync.Mutex
	packetCount   int64
	byteCount     int64
	motionCount   int64
	locationCount int64
	decodeErrors  int64
	lastReset     time.Time
}

// NewSampleStats creates a new SampleStats instance
func NewSampleStats() *SampleStats {
	return &SampleStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (ss *SampleStats) AddPacket(bytes int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.packetCount++
	ss.byteCount += int64(bytes)
}

// AddSample increments the per-kind decoded sample counter
func (ss *SampleStats) AddSample(kind string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	switch kind {
	case KindMotion:
		ss.motionCount++
	case KindLocation:
		ss.locationCount++
	}
}

// AddDecodeError increments the decode failure counter
func (ss *SampleStats) AddDecodeError() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.decodeErrors++
}

// LogStats logs counters since the last reset, then resets them.
func (ss *SampleStats) LogStats() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	elapsed := time.Since(ss.lastReset).Seconds()
	if elapsed <= 0 {
		return
	}

	log.Printf("sample stats: %d packets (%.1f/s), %d motion, %d location, %d decode errors, %d bytes",
		ss.packetCount, float64(ss.packetCount)/elapsed,
		ss.motionCount, ss.locationCount, ss.decodeErrors, ss.byteCount)

	ss.packetCount = 0
	ss.byteCount = 0
	ss.motionCount = 0
	ss.locationCount = 0
	ss.decodeErrors = 0
	ss.lastReset = time.Now()
}
