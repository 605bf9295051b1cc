// pcap-replay re-sends captured sample traffic at a running gaitd
// instance, pacing by the recorded packet timing. Useful for reproducing
// field rides on a development machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tetratrack/gaitd/internal/ingest"
)

var (
	dest  = flag.String("dest", "127.0.0.1:9870", "UDP address of the gaitd sample listener")
	speed = flag.Float64("speed", 1.0, "Replay speed multiplier (0 = as fast as possible)")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pcap-replay [flags] <capture.pcap>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent, err := ingest.ReplayPcap(ctx, flag.Arg(0), ingest.ReplayConfig{
		Dest:            *dest,
		SpeedMultiplier: *speed,
	})
	if err != nil && err != context.Canceled {
		log.Fatalf("Replay failed after %d datagrams: %v", sent, err)
	}
	log.Printf("Replay complete: %d datagrams sent to %s", sent, *dest)
}
