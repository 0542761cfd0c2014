// ABOUTME: HTTP request bodies for the location API
// ABOUTME: Accepts both the web client field names and the device agent aliases

package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/tagtrack/internal/locations"
)

// Timestamp decodes RFC 3339 or zone-less ISO-8601 strings.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string")
	}
	parsed, err := locations.ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// LocationRequest is the POST /api/locations body.
// signalStrength wins over rssi, and observedAt over timestamp, when both are sent.
type LocationRequest struct {
	DeviceID       string     `json:"deviceId"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	Altitude       *float64   `json:"altitude"`
	Accuracy       *float64   `json:"accuracy"`
	SignalStrength *int       `json:"signalStrength"`
	RSSI           *int       `json:"rssi"`
	ObservedAt     *Timestamp `json:"observedAt"`
	Timestamp      *Timestamp `json:"timestamp"`
}

// Submission converts the request into a façade submission.
func (r LocationRequest) Submission() locations.Submission {
	sub := locations.Submission{
		DeviceID:       r.DeviceID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Altitude:       r.Altitude,
		Accuracy:       r.Accuracy,
		SignalStrength: r.SignalStrength,
	}
	if sub.SignalStrength == nil {
		sub.SignalStrength = r.RSSI
	}

	ts := r.ObservedAt
	if ts == nil {
		ts = r.Timestamp
	}
	if ts != nil {
		observed := ts.Time
		sub.ObservedAt = &observed
	}
	return sub
}
