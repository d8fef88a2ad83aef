package models

import (
	"encoding/json"
	"time"
)

// RateLimitState is the pacing state of one named external service
type RateLimitState struct {
	Service     string        `json:"service"`
	MinInterval time.Duration `json:"min_interval_ns"`
	LastCall    time.Time     `json:"last_call,omitempty"`
}

// NextAllowed returns the earliest time the next call may start
func (s RateLimitState) NextAllowed() time.Time {
	if s.LastCall.IsZero() {
		return s.LastCall
	}
	return s.LastCall.Add(s.MinInterval)
}

// MarshalJSON adds next_allowed once the service has been called
func (s RateLimitState) MarshalJSON() ([]byte, error) {
	type state RateLimitState
	out := struct {
		state
		NextAllowed *time.Time `json:"next_allowed,omitempty"`
	}{state: state(s)}
	if next := s.NextAllowed(); !next.IsZero() {
		out.NextAllowed = &next
	}
	return json.Marshal(out)
}
