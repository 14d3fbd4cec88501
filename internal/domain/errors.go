package domain

import "errors"

var (
	ErrSourceUnavailable = errors.New("heart rate source unavailable")
	ErrMalformedFrame    = errors.New("malformed heart rate frame")
	ErrHubRunning        = errors.New("hub is already running")
)
