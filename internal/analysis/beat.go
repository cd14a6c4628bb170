// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"wavefield/internal/log"
	"wavefield/internal/transport"
)

// DefaultBeatCooldown is the minimum spacing between two beat events.
const DefaultBeatCooldown = 100 * time.Millisecond

// BeatEvent is sent on the transport for every detected beat. The
// WebSocket transport encodes it as JSON.
type BeatEvent struct {
	Type   string  `json:"type"` // Always "event".
	Name   string  `json:"name"` // Always "kick".
	Energy float64 `json:"energy"`
	Count  uint64  `json:"count"`
}

// BeatDetector detects kick drum hits from jumps in buffer energy. It is a
// capture sink: Write runs on the capture thread.
type BeatDetector struct {
	threshold      float64             // RMS level a beat must exceed.
	minEnergyRatio float64             // Minimum rise over the previous buffer.
	cooldown       time.Duration       // Suppresses rapid-fire events.
	transport      transport.Transport // Receives BeatEvents.
	now            func() time.Time

	mu         sync.Mutex
	lastEnergy float64
	lastBeat   time.Time

	beats atomic.Uint64
}

func NewBeatDetector(threshold, minEnergyRatio float64, cooldown time.Duration, t transport.Transport) *BeatDetector {
	log.Infof("Analysis: Initializing BeatDetector (Threshold: %.2f, MinRatio: %.2f)", threshold, minEnergyRatio)
	return &BeatDetector{
		threshold:      threshold,
		minEnergyRatio: minEnergyRatio,
		cooldown:       cooldown,
		transport:      t,
		now:            time.Now,
	}
}

// Write analyses one capture buffer.
func (kd *BeatDetector) Write(buffer []float32) {
	currentEnergy := calculateRMS(buffer)
	now := kd.now()

	kd.mu.Lock()
	beat := currentEnergy > kd.threshold &&
		(kd.lastEnergy == 0 || currentEnergy/kd.lastEnergy > kd.minEnergyRatio) &&
		now.Sub(kd.lastBeat) >= kd.cooldown
	if beat {
		kd.lastBeat = now
	}
	kd.lastEnergy = currentEnergy
	kd.mu.Unlock()

	if !beat {
		return
	}
	n := kd.beats.Add(1)
	if kd.transport == nil {
		return
	}
	event := BeatEvent{Type: "event", Name: "kick", Energy: currentEnergy, Count: n}
	if err := kd.transport.Send(event); err != nil {
		log.Debugf("BeatDetector: sending kick event: %v", err)
	}
}

// Beats returns the number of beats detected so far.
func (kd *BeatDetector) Beats() uint64 { return kd.beats.Load() }

// calculateRMS calculates the Root Mean Square energy of the buffer.
func calculateRMS(buffer []float32) float64 {
	if len(buffer) == 0 {
		return 0.0
	}
	var sumSquares float64
	for _, sample := range buffer {
		s := float64(sample)
		sumSquares += s * s
	}
	return math.Sqrt(sumSquares / float64(len(buffer)))
}
