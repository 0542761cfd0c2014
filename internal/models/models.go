// ABOUTME: Core data models for BLE tag location records
// ABOUTME: Immutable stored records, pre-insert drafts, and the shared ordering rule

package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// MaxDeviceIDLength mirrors the column width used by the SQL backends.
const MaxDeviceIDLength = 100

// ValidateLatitude checks that lat is a finite value in [-90, 90].
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		return fmt.Errorf("latitude must be a finite number")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	return nil
}

// ValidateLongitude checks that lng is a finite value in [-180, 180].
func ValidateLongitude(lng float64) error {
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("longitude must be a finite number")
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// Observation times must fit RFC 3339 and the microsecond integers the SQL backends store.
var (
	MinObservedAt = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	MaxObservedAt = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)
)

// ValidateObservedAt checks an explicitly supplied observation time.
// The zero time is rejected because it cannot be told apart from an absent value.
func ValidateObservedAt(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("observedAt must be a real timestamp, not the zero time")
	}
	if t.Before(MinObservedAt) || t.After(MaxObservedAt) {
		return fmt.Errorf("observedAt must be between years 0001 and 9999")
	}
	return nil
}

// ValidateDeviceID checks if a device identifier is usable (non-blank, within length limits).
func ValidateDeviceID(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return fmt.Errorf("device id is required")
	}
	if len(deviceID) > MaxDeviceIDLength {
		return fmt.Errorf("device id too long (max %d characters)", MaxDeviceIDLength)
	}
	return nil
}

// LocationDraft is a validated observation that has not been stored yet.
// A zero ObservedAt means the observation time was not supplied.
type LocationDraft struct {
	DeviceID       string
	Latitude       float64
	Longitude      float64
	Altitude       *float64
	Accuracy       *float64
	SignalStrength *int
	ObservedAt     time.Time
}

// LocationRecord is one stored observation of a device's position.
// Values are never modified after the store returns them.
type LocationRecord struct {
	ID             int64     `json:"id" yaml:"id"`
	DeviceID       string    `json:"deviceId" yaml:"device_id"`
	Latitude       float64   `json:"latitude" yaml:"latitude"`
	Longitude      float64   `json:"longitude" yaml:"longitude"`
	Altitude       *float64  `json:"altitude,omitempty" yaml:"altitude,omitempty"`
	Accuracy       *float64  `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
	SignalStrength *int      `json:"signalStrength,omitempty" yaml:"signal_strength,omitempty"`
	ObservedAt     time.Time `json:"observedAt" yaml:"observed_at"`
	RecordedAt     time.Time `json:"recordedAt" yaml:"recorded_at"`
}

// NewRecord builds the stored form of a draft. Stores call this once, at insert
// time, with the identifier they assigned and the instant they accepted the write.
// A draft without an observation time is stamped with recordedAt.
func NewRecord(id int64, draft LocationDraft, recordedAt time.Time) LocationRecord {
	recordedAt = Normalize(recordedAt)
	observedAt := draft.ObservedAt
	if observedAt.IsZero() {
		observedAt = recordedAt
	}
	return LocationRecord{
		ID:             id,
		DeviceID:       draft.DeviceID,
		Latitude:       draft.Latitude,
		Longitude:      draft.Longitude,
		Altitude:       copyFloat(draft.Altitude),
		Accuracy:       copyFloat(draft.Accuracy),
		SignalStrength: copyInt(draft.SignalStrength),
		ObservedAt:     Normalize(observedAt),
		RecordedAt:     recordedAt,
	}
}

// Draft returns the caller-supplied part of a record, used when copying
// records into another store.
func (r LocationRecord) Draft() LocationDraft {
	return LocationDraft{
		DeviceID:       r.DeviceID,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Altitude:       copyFloat(r.Altitude),
		Accuracy:       copyFloat(r.Accuracy),
		SignalStrength: copyInt(r.SignalStrength),
		ObservedAt:     r.ObservedAt,
	}
}

// String is a short log-friendly form of the record.
func (r LocationRecord) String() string {
	return fmt.Sprintf("LocationRecord[id=%d, device=%s, lat=%.6f, lon=%.6f, time=%s]",
		r.ID, r.DeviceID, r.Latitude, r.Longitude, r.ObservedAt.Format(time.RFC3339))
}

// TimePrecision is the resolution every backend keeps timestamps at.
const TimePrecision = time.Microsecond

// Normalize strips the monotonic clock reading, converts to UTC, and truncates
// to TimePrecision so that timestamps compare and round-trip identically across
// every backend.
func Normalize(t time.Time) time.Time {
	return t.Round(0).UTC().Truncate(TimePrecision)
}

// NewerFirst reports whether a sorts before b: later observation first,
// later insertion (higher ID) first among equal observation times.
func NewerFirst(a, b LocationRecord) bool {
	if !a.ObservedAt.Equal(b.ObservedAt) {
		return a.ObservedAt.After(b.ObservedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst orders records in place by NewerFirst.
func SortNewestFirst(records []LocationRecord) {
	sort.Slice(records, func(i, j int) bool {
		return NewerFirst(records[i], records[j])
	})
}

// Clone returns a copy that shares no pointers with r.
func (r LocationRecord) Clone() LocationRecord {
	r.Altitude = copyFloat(r.Altitude)
	r.Accuracy = copyFloat(r.Accuracy)
	r.SignalStrength = copyInt(r.SignalStrength)
	return r
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
