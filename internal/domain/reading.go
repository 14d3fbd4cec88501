package domain

// Reading is one heart-rate observation. It is a value type and is never
// mutated after construction; the hub only replaces which Reading is current.
type Reading struct {
	// Value is the heart rate in beats per minute as reported by the sensor.
	Value int `json:"value"`
	// SensorContactDetected is passed through verbatim from the source.
	SensorContactDetected string `json:"sensor_contact_detected"`
	// Timestamp is the capture time in unix seconds on the source clock.
	// It may go backwards across reconnects.
	Timestamp int64 `json:"timestamp"`
}
