package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/tetratrack/gaitd/internal/imu"
)

// Sample kinds carried in the UDP envelope.
const (
	KindMotion   = "motion"
	KindLocation = "location"
)

// Envelope is the wire format for one sample datagram: a kind tag plus
// the sample payload.
type Envelope struct {
	Kind     string              `json:"kind"`
	Motion   *imu.MotionSample   `json:"motion,omitempty"`
	Location *imu.LocationSample `json:"location,omitempty"`
}

// DecodeEnvelope parses one datagram payload.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode sample envelope: %w", err)
	}
	switch env.Kind {
	case KindMotion:
		if env.Motion == nil {
			return nil, fmt.Errorf("motion envelope missing motion payload")
		}
	case KindLocation:
		if env.Location == nil {
			return nil, fmt.Errorf("location envelope missing location payload")
		}
	default:
		return nil, fmt.Errorf("unknown sample kind %q", env.Kind)
	}
	return &env, nil
}

// EncodeMotion wraps a motion sample for the wire.
func EncodeMotion(sample imu.MotionSample) ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindMotion, Motion: &sample})
}

// EncodeLocation wraps a location sample for the wire.
func EncodeLocation(loc imu.LocationSample) ([]byte, error) {
	return json.Marshal(Envelope{Kind: KindLocation, Location: &loc})
}
