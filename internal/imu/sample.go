package imu

import "time"

// MotionSample is one snapshot from the device motion provider, delivered at
// the sensor cadence (typically 50-100 Hz). Acceleration is user (linear)
// acceleration with gravity removed; Gravity carries the gravity direction
// separately so the frame transformer can track calibration drift.
type MotionSample struct {
	Timestamp    time.Time `json:"timestamp"`
	Acceleration Vec3      `json:"acceleration"`  // m/s², device frame, gravity removed
	RotationRate Vec3      `json:"rotation_rate"` // rad/s, device frame
	Gravity      Vec3      `json:"gravity"`       // m/s², device frame
	Attitude     Quat      `json:"attitude"`      // unit quaternion, device→reference
	Pitch        float64   `json:"pitch"`         // rad
	Roll         float64   `json:"roll"`          // rad
	Yaw          float64   `json:"yaw"`           // rad
}

// LocationSample is one snapshot from the location provider.
type LocationSample struct {
	Timestamp time.Time `json:"timestamp"`
	SpeedMps  float64   `json:"speed_mps"`
	DistanceM float64   `json:"distance_m"` // cumulative since session start
}
