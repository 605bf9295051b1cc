package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// ReplayConfig controls pcap replay pacing and destination.
type ReplayConfig struct {
	// Dest is the UDP address samples are re-sent to.
	Dest string

	// SpeedMultiplier controls replay speed (1.0 = recorded pace, 0 = as
	// fast as possible).
	SpeedMultiplier float64
}

// ReplayPcap reads a capture of sample traffic and re-sends each UDP
// payload to the configured destination, pacing by the recorded packet
// timestamps. Returns the number of datagrams sent.
func ReplayPcap(ctx context.Context, path string, cfg ReplayConfig) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open capture %s: %w", path, err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("read capture %s: %w", path, err)
	}

	conn, err := net.Dial("udp", cfg.Dest)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", cfg.Dest, err)
	}
	defer conn.Close()

	var sent int
	var lastCapture time.Time

	for {
		select {
		case <-ctx.Done():
			log.Printf("pcap replay stopping (%d datagrams sent)", sent)
			return sent, ctx.Err()
		default:
		}

		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return sent, nil
		}
		if err != nil {
			return sent, fmt.Errorf("read packet: %w", err)
		}

		payload := udpPayload(data, reader.LinkType())
		if payload == nil {
			continue
		}

		if cfg.SpeedMultiplier > 0 && !lastCapture.IsZero() {
			delay := time.Duration(float64(ci.Timestamp.Sub(lastCapture)) / cfg.SpeedMultiplier)
			if delay > 0 {
				select {
				case <-ctx.Done():
					return sent, ctx.Err()
				case <-time.After(delay):
				}
			}
		}
		lastCapture = ci.Timestamp

		if _, err := conn.Write(payload); err != nil {
			return sent, fmt.Errorf("send datagram: %w", err)
		}
		sent++
	}
}

// udpPayload extracts the UDP payload from a raw captured frame, or nil
// if the frame carries no UDP layer.
func udpPayload(data []byte, link layers.LinkType) []byte {
	packet := gopacket.NewPacket(data, link, gopacket.Default)
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil
	}
	if len(udp.Payload) == 0 {
		return nil
	}
	return udp.Payload
}
