// ABOUTME: Decodes MQTT location payloads into façade submissions
// ABOUTME: Handles the device agent JSON message and NMEA 0183 GGA/RMC sentences

package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"

	"github.com/harper/tagtrack/internal/locations"
)

// Payload formats, also used as metric labels.
const (
	FormatJSON = "json"
	FormatNMEA = "nmea"
)

// ErrNoFix is returned for NMEA sentences that carry no usable position.
var ErrNoFix = errors.New("nmea sentence has no position fix")

// agentMessage is the JSON location message published by device agents.
type agentMessage struct {
	DeviceID  string   `json:"device_id"`
	Timestamp string   `json:"timestamp"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  *float64 `json:"accuracy"`
	Altitude  *float64 `json:"altitude"`
	RSSI      *int     `json:"rssi"`
}

// PayloadFormat reports which decoder handles payload.
func PayloadFormat(payload []byte) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && (trimmed[0] == '$' || trimmed[0] == '!') {
		return FormatNMEA
	}
	return FormatJSON
}

// DeviceFromTopic returns the second topic level, e.g. "tag-7" for "tagtrack/tag-7/location".
func DeviceFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

// Decode turns one MQTT message into a submission. now anchors GGA sentences,
// which carry a time of day but no date.
func Decode(topic string, payload []byte, now time.Time) (locations.Submission, string, error) {
	format := PayloadFormat(payload)
	var (
		sub locations.Submission
		err error
	)
	switch format {
	case FormatNMEA:
		sub, err = decodeNMEA(string(bytes.TrimSpace(payload)), now)
		sub.DeviceID = DeviceFromTopic(topic)
	default:
		sub, err = decodeJSON(payload)
		if err == nil && sub.DeviceID == "" {
			sub.DeviceID = DeviceFromTopic(topic)
		}
	}
	return sub, format, err
}

func decodeJSON(payload []byte) (locations.Submission, error) {
	var msg agentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return locations.Submission{}, fmt.Errorf("decode json payload: %w", err)
	}

	sub := locations.Submission{
		DeviceID:       msg.DeviceID,
		Latitude:       msg.Latitude,
		Longitude:      msg.Longitude,
		Altitude:       msg.Altitude,
		Accuracy:       msg.Accuracy,
		SignalStrength: msg.RSSI,
	}
	if msg.Timestamp != "" {
		ts, err := locations.ParseTimestamp(msg.Timestamp)
		if err != nil {
			return locations.Submission{}, err
		}
		sub.ObservedAt = &ts
	}
	return sub, nil
}

func decodeNMEA(raw string, now time.Time) (locations.Submission, error) {
	sentence, err := nmea.Parse(raw)
	if err != nil {
		return locations.Submission{}, fmt.Errorf("parse nmea: %w", err)
	}

	switch s := sentence.(type) {
	case nmea.GGA:
		if s.FixQuality == nmea.Invalid {
			return locations.Submission{}, ErrNoFix
		}
		lat, lng, alt := s.Latitude, s.Longitude, s.Altitude
		sub := locations.Submission{Latitude: &lat, Longitude: &lng, Altitude: &alt}
		if s.Time.Valid {
			observed := timeOfDay(s.Time, now)
			sub.ObservedAt = &observed
		}
		return sub, nil

	case nmea.RMC:
		if s.Validity != nmea.ValidRMC {
			return locations.Submission{}, ErrNoFix
		}
		lat, lng := s.Latitude, s.Longitude
		sub := locations.Submission{Latitude: &lat, Longitude: &lng}
		if s.Time.Valid && s.Date.Valid {
			observed := dateTime(s.Date, s.Time)
			sub.ObservedAt = &observed
		}
		return sub, nil

	default:
		return locations.Submission{}, fmt.Errorf("unsupported nmea sentence %s", sentence.DataType())
	}
}

// timeOfDay places a UTC time of day on now's date, or the previous day when
// that would be in the future.
func timeOfDay(t nmea.Time, now time.Time) time.Time {
	now = now.UTC()
	ts := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
	if ts.After(now) {
		ts = ts.AddDate(0, 0, -1)
	}
	return ts
}

// dateTime combines an RMC date and time. Two-digit years from 80 up are 19xx.
func dateTime(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
