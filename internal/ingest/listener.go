package ingest

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// UDPListener receives sample datagrams and feeds them to a Pipeline.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	buffer      []byte
	stats       *SampleStats
	pipeline    *Pipeline
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Stats       *SampleStats
	Pipeline    *Pipeline
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	stats := config.Stats
	if stats == nil {
		stats = NewSampleStats()
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: config.LogInterval,
		buffer:      make([]byte, 2048), // sample envelopes are well under one MTU
		stats:       stats,
		pipeline:    config.Pipeline,
	}
}

// Start begins listening for sample datagrams and processing them.
// Returns when the context is cancelled or an unrecoverable error occurs.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %v", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %v", err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			log.Printf("Warning: failed to set UDP receive buffer to %d bytes: %v", l.rcvBuf, err)
		}
	}

	log.Printf("Listening for sensor samples on %s", l.address)

	if l.logInterval > 0 {
		go l.startStatsLogging(ctx)
	}

	timeoutCount := 0

	for {
		select {
		case <-ctx.Done():
			log.Println("UDP listener shutting down")
			return ctx.Err()
		default:
			// Read timeout allows checking for context cancellation.
			if err := conn.SetReadDeadline(time.Now().Add(1 * time.Second)); err != nil {
				log.Printf("Error setting read deadline: %v", err)
				continue
			}

			n, _, err := conn.ReadFromUDP(l.buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					timeoutCount++
					if timeoutCount%30 == 0 {
						log.Printf("No samples received for %d seconds", timeoutCount)
					}
					continue
				}
				log.Printf("Error reading UDP packet: %v", err)
				continue
			}

			timeoutCount = 0
			l.handlePacket(l.buffer[:n])
		}
	}
}

// handlePacket processes a single received datagram.
func (l *UDPListener) handlePacket(packet []byte) {
	l.stats.AddPacket(len(packet))

	env, err := DecodeEnvelope(packet)
	if err != nil {
		l.stats.AddDecodeError()
		log.Printf("Sample decode failed: %v", err)
		return
	}
	l.stats.AddSample(env.Kind)

	switch env.Kind {
	case KindMotion:
		l.pipeline.HandleMotion(*env.Motion)
	case KindLocation:
		l.pipeline.HandleLocation(*env.Location)
	}
}

// startStatsLogging logs receive statistics at regular intervals.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}
