// ABOUTME: Terminal UI formatting utilities
// ABOUTME: Provides human-readable output for location records and store statistics

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/harper/tagtrack/internal/models"
)

// TimestampLayout matches the index page and markdown export.
const TimestampLayout = "2006-01-02 15:04:05"

var faint = color.New(color.Faint)

// FormatTimestamp renders t in loc (UTC when nil) with the zone abbreviation.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimestampLayout + " MST")
}

func coords(rec *models.LocationRecord) string {
	return fmt.Sprintf("(%.6f, %.6f)", rec.Latitude, rec.Longitude)
}

// measurements lists the optional fields that are present, e.g. "alt 12.0m, -64 dBm".
func measurements(rec *models.LocationRecord) string {
	var parts []string
	if rec.Altitude != nil {
		parts = append(parts, fmt.Sprintf("alt %.1fm", *rec.Altitude))
	}
	if rec.Accuracy != nil {
		parts = append(parts, fmt.Sprintf("±%.1fm", *rec.Accuracy))
	}
	if rec.SignalStrength != nil {
		parts = append(parts, fmt.Sprintf("%d dBm", *rec.SignalStrength))
	}
	return strings.Join(parts, ", ")
}

// FormatRecord formats a record on one line for list output.
func FormatRecord(rec *models.LocationRecord, loc *time.Location) string {
	if rec == nil {
		return faint.Sprint("(no location)")
	}
	line := fmt.Sprintf("%s %s %s %s - %s",
		faint.Sprintf("#%d", rec.ID),
		color.GreenString(rec.DeviceID),
		color.CyanString(coords(rec)),
		FormatTimestamp(rec.ObservedAt, loc),
		faint.Sprint(FormatRelativeTime(rec.ObservedAt)))
	if m := measurements(rec); m != "" {
		line += " " + faint.Sprintf("[%s]", m)
	}
	return line
}

// FormatRecordForTimeline formats a record for a single device's timeline.
func FormatRecordForTimeline(rec *models.LocationRecord, loc *time.Location) string {
	if rec == nil {
		return faint.Sprint("  (no location)")
	}
	line := fmt.Sprintf("  %s %s",
		color.CyanString(coords(rec)),
		FormatTimestamp(rec.ObservedAt, loc))
	if m := measurements(rec); m != "" {
		line += " " + faint.Sprintf("[%s]", m)
	}
	return line
}

// FormatDeviceWithLatest formats a device with its newest record.
func FormatDeviceWithLatest(deviceID string, rec *models.LocationRecord) string {
	if deviceID == "" {
		return faint.Sprint("(invalid device)")
	}
	if rec == nil {
		return fmt.Sprintf("%s - %s",
			color.GreenString(deviceID),
			faint.Sprint("no location"))
	}
	return fmt.Sprintf("%s - %s (%s)",
		color.GreenString(deviceID),
		coords(rec),
		faint.Sprint(FormatRelativeTime(rec.ObservedAt)))
}

// FormatRecordDetail formats every field of a record, one per line.
func FormatRecordDetail(rec *models.LocationRecord, loc *time.Location) string {
	if rec == nil {
		return faint.Sprint("(no location)")
	}
	var sb strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&sb, "%s %s\n", faint.Sprintf("%-12s", label), value)
	}
	optional := func(v *float64, format string) string {
		if v == nil {
			return faint.Sprint("-")
		}
		return fmt.Sprintf(format, *v)
	}

	row("id", fmt.Sprintf("%d", rec.ID))
	row("device", color.GreenString(rec.DeviceID))
	row("latitude", fmt.Sprintf("%.6f", rec.Latitude))
	row("longitude", fmt.Sprintf("%.6f", rec.Longitude))
	row("altitude", optional(rec.Altitude, "%.1f m"))
	row("accuracy", optional(rec.Accuracy, "%.1f m"))
	if rec.SignalStrength != nil {
		row("signal", fmt.Sprintf("%d dBm", *rec.SignalStrength))
	} else {
		row("signal", faint.Sprint("-"))
	}
	row("observed", FormatTimestamp(rec.ObservedAt, loc))
	row("recorded", FormatTimestamp(rec.RecordedAt, loc))
	return sb.String()
}

// FormatStats formats store totals.
func FormatStats(total int, devices int64, computedAt time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s locations from %s devices %s",
		color.CyanString("%d", total),
		color.GreenString("%d", devices),
		faint.Sprintf("(as of %s)", FormatTimestamp(computedAt, loc)))
}

// FormatRelativeTime formats a time as relative to now.
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	// Handle future times (clock skew, bad data)
	if diff < 0 {
		return color.YellowString("in the future")
	}

	if diff < time.Minute {
		return "just now"
	}
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}
	days := int(diff.Hours() / 24)
	if days == 1 {
		return "1 day ago"
	}
	return fmt.Sprintf("%d days ago", days)
}
