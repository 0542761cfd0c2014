// ABOUTME: Query façade over the location record store
// ABOUTME: Validates and normalizes submissions, shapes reads, and logs writes

package locations

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/harper/tagtrack/internal/models"
	"github.com/harper/tagtrack/internal/storage"
)

// RecentLimit caps RecentLocations.
const RecentLimit = storage.DefaultRecentLimit

// Submission is an inbound location report before validation.
// Nil pointers mark fields the client did not send.
type Submission struct {
	DeviceID       string
	Latitude       *float64
	Longitude      *float64
	Altitude       *float64
	Accuracy       *float64
	SignalStrength *int
	ObservedAt     *time.Time
}

// ValidationError lists every rejected field with a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return "invalid location: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Stats is a point-in-time summary of the store.
type Stats struct {
	TotalCount  int       `json:"totalLocations"`
	DeviceCount int64     `json:"deviceCount"`
	ComputedAt  time.Time `json:"timestamp"`
}

// MetricsRecorder receives one observation per façade operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records operation outcomes and latency.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now for defaulting observation times and stamping stats.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the single entry point used by the HTTP, MQTT, MCP, and CLI surfaces.
type Service struct {
	repo    storage.RecordRepository
	logger  zerolog.Logger
	metrics MetricsRecorder
	now     func() time.Time
}

// NewService wires a façade to its store.
func NewService(repo storage.RecordRepository, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: logger.With().Str("component", "locations").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe is deferred with a pointer to the named error result so it sees the final value.
func (s *Service) observe(ctx context.Context, op string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Observe(ctx, op, *err == nil, time.Since(start))
}

// Validate checks a submission and returns the draft it would store.
// A missing observation time is left zero for SubmitLocation to default.
func Validate(sub Submission) (models.LocationDraft, error) {
	fields := make(map[string]string)

	if err := models.ValidateDeviceID(sub.DeviceID); err != nil {
		fields["deviceId"] = err.Error()
	}
	checkCoordinate(fields, "latitude", sub.Latitude, models.ValidateLatitude)
	checkCoordinate(fields, "longitude", sub.Longitude, models.ValidateLongitude)
	checkOptional(fields, "altitude", sub.Altitude)
	if sub.Accuracy != nil {
		if math.IsNaN(*sub.Accuracy) || math.IsInf(*sub.Accuracy, 0) || *sub.Accuracy < 0 {
			fields["accuracy"] = "accuracy must be a non-negative number"
		}
	}

	if sub.ObservedAt != nil {
		if err := models.ValidateObservedAt(*sub.ObservedAt); err != nil {
			fields["observedAt"] = err.Error()
		}
	}

	if len(fields) > 0 {
		return models.LocationDraft{}, &ValidationError{Fields: fields}
	}

	draft := models.LocationDraft{
		DeviceID:       sub.DeviceID,
		Latitude:       *sub.Latitude,
		Longitude:      *sub.Longitude,
		Altitude:       sub.Altitude,
		Accuracy:       sub.Accuracy,
		SignalStrength: sub.SignalStrength,
	}
	if sub.ObservedAt != nil {
		draft.ObservedAt = *sub.ObservedAt
	}
	return draft, nil
}

func checkCoordinate(fields map[string]string, name string, v *float64, validate func(float64) error) {
	if v == nil {
		fields[name] = name + " is required"
		return
	}
	if err := validate(*v); err != nil {
		fields[name] = err.Error()
	}
}

func checkOptional(fields map[string]string, name string, v *float64) {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		fields[name] = name + " must be a finite number"
	}
}

// SubmitLocation validates a report, defaults its observation time, and stores it.
func (s *Service) SubmitLocation(ctx context.Context, sub Submission) (rec models.LocationRecord, err error) {
	defer s.observe(ctx, "submit_location", time.Now(), &err)

	draft, err := Validate(sub)
	if err != nil {
		s.logger.Warn().Err(err).Str("device", sub.DeviceID).Msg("rejected location")
		return models.LocationRecord{}, err
	}
	if draft.ObservedAt.IsZero() {
		draft.ObservedAt = s.now()
	}

	rec, err = s.repo.Insert(ctx, draft)
	if err != nil {
		s.logger.Error().Err(err).Str("device", draft.DeviceID).Msg("failed to store location")
		return models.LocationRecord{}, fmt.Errorf("submit location: %w", err)
	}

	s.logger.Info().
		Int64("id", rec.ID).
		Str("device", rec.DeviceID).
		Float64("latitude", rec.Latitude).
		Float64("longitude", rec.Longitude).
		Msg("stored location")
	return rec, nil
}

// RecentLocations returns the RecentLimit newest records.
func (s *Service) RecentLocations(ctx context.Context) (records []models.LocationRecord, err error) {
	defer s.observe(ctx, "recent_locations", time.Now(), &err)
	return s.repo.ListRecent(ctx, RecentLimit)
}

// AllLocations returns every record.
func (s *Service) AllLocations(ctx context.Context) (records []models.LocationRecord, err error) {
	defer s.observe(ctx, "all_locations", time.Now(), &err)
	return s.repo.ListAll(ctx)
}

// DeviceLocations returns a device's history, newest first.
func (s *Service) DeviceLocations(ctx context.Context, deviceID string) (records []models.LocationRecord, err error) {
	defer s.observe(ctx, "device_locations", time.Now(), &err)
	return s.repo.ListByDevice(ctx, deviceID)
}

// LatestForDevice returns a device's newest record.
func (s *Service) LatestForDevice(ctx context.Context, deviceID string) (rec models.LocationRecord, found bool, err error) {
	defer s.observe(ctx, "latest_location", time.Now(), &err)
	return s.repo.GetLatestByDevice(ctx, deviceID)
}

// LocationsInRange returns records observed within [start, end].
func (s *Service) LocationsInRange(ctx context.Context, start, end time.Time) (records []models.LocationRecord, err error) {
	defer s.observe(ctx, "locations_in_range", time.Now(), &err)
	return s.repo.ListByTimeRange(ctx, start, end)
}

// LocationByID looks a record up by id.
func (s *Service) LocationByID(ctx context.Context, id int64) (rec models.LocationRecord, found bool, err error) {
	defer s.observe(ctx, "location_by_id", time.Now(), &err)
	return s.repo.GetByID(ctx, id)
}

// DeviceCount counts distinct devices.
func (s *Service) DeviceCount(ctx context.Context) (n int64, err error) {
	defer s.observe(ctx, "device_count", time.Now(), &err)
	return s.repo.CountDistinctDevices(ctx)
}

// DeleteLocation removes one record and reports whether it existed.
func (s *Service) DeleteLocation(ctx context.Context, id int64) (deleted bool, err error) {
	defer s.observe(ctx, "delete_location", time.Now(), &err)

	deleted, err = s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete location %d: %w", id, err)
	}
	if deleted {
		s.logger.Info().Int64("id", id).Msg("deleted location")
	} else {
		s.logger.Warn().Int64("id", id).Msg("location to delete not found")
	}
	return deleted, nil
}

// PurgeAll removes every record.
func (s *Service) PurgeAll(ctx context.Context) (err error) {
	defer s.observe(ctx, "purge_all", time.Now(), &err)

	if err = s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("purge locations: %w", err)
	}
	s.logger.Info().Msg("deleted all locations")
	return nil
}

// Stats computes totals fresh on every call.
func (s *Service) Stats(ctx context.Context) (stats Stats, err error) {
	defer s.observe(ctx, "stats", time.Now(), &err)

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count locations: %w", err)
	}
	devices, err := s.repo.CountDistinctDevices(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count devices: %w", err)
	}
	return Stats{
		TotalCount:  len(all),
		DeviceCount: devices,
		ComputedAt:  models.Normalize(s.now()),
	}, nil
}
