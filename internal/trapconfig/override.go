package trapconfig

import (
	"codeberg.org/mutker/trapbridge/internal/collector"
	"github.com/google/uuid"
)

// Override is a sparse, typed configuration. A nil field means "keep the
// baseline".
type Override struct {
	DefaultDataCollection    *ProfileOverride
	LowBatteryDataCollection *ProfileOverride
	LowDataDataCollection    *ProfileOverride
	LowBatteryThreshold      *float64
	QueueSize                *int
	SessionIDFilter          *string
	Reporter                 *ReporterOverride
}

type ProfileOverride struct {
	AccelerationMaxReportLatencyMs  *int
	AccelerationSamplingPeriodMs    *int
	CollectCoalescedPointerEvents   *bool
	CollectCoalescedStylusEvents    *bool
	CollectCoalescedTouchEvents     *bool
	Collectors                      *[]collector.Type
	GravityMaxReportLatencyMs       *int
	GravitySamplingPeriodMs         *int
	GyroscopeMaxReportLatencyMs     *int
	GyroscopeSamplingPeriodMs       *int
	MagnetometerMaxReportLatencyMs  *int
	MagnetometerSamplingPeriodMs    *int
	MaxNumberOfLogMessagesPerMinute *int
	MetadataSubmissionInterval      *int
	UseGestureRecognizer            *bool
}

type ReporterOverride struct {
	APIKeyName       *string
	APIKeyValue      *string
	CachedTransport  *bool
	Compress         *bool
	ConnectTimeout   *int
	Interval         *int64
	MaxFileCacheSize *int64
	ReadTimeout      *int
	SessionID        *uuid.UUID
	URL              *string
}

// Merge folds o onto baseline and returns the result. It never fails and
// does not modify baseline. A collector list in o replaces the baseline list.
func Merge(baseline Config, o Override) Config {
	out := baseline.Clone()

	set(&out.LowBatteryThreshold, o.LowBatteryThreshold)
	set(&out.QueueSize, o.QueueSize)
	set(&out.SessionIDFilter, o.SessionIDFilter)

	out.DefaultDataCollection = mergeProfile(out.DefaultDataCollection, o.DefaultDataCollection)
	out.LowBatteryDataCollection = mergeProfile(out.LowBatteryDataCollection, o.LowBatteryDataCollection)
	out.LowDataDataCollection = mergeProfile(out.LowDataDataCollection, o.LowDataDataCollection)
	out.Reporter = mergeReporter(out.Reporter, o.Reporter)

	return out
}

func mergeProfile(d DataCollection, o *ProfileOverride) DataCollection {
	if o == nil {
		return d
	}

	set(&d.AccelerationMaxReportLatencyMs, o.AccelerationMaxReportLatencyMs)
	set(&d.AccelerationSamplingPeriodMs, o.AccelerationSamplingPeriodMs)
	set(&d.CollectCoalescedPointerEvents, o.CollectCoalescedPointerEvents)
	set(&d.CollectCoalescedStylusEvents, o.CollectCoalescedStylusEvents)
	set(&d.CollectCoalescedTouchEvents, o.CollectCoalescedTouchEvents)
	set(&d.GravityMaxReportLatencyMs, o.GravityMaxReportLatencyMs)
	set(&d.GravitySamplingPeriodMs, o.GravitySamplingPeriodMs)
	set(&d.GyroscopeMaxReportLatencyMs, o.GyroscopeMaxReportLatencyMs)
	set(&d.GyroscopeSamplingPeriodMs, o.GyroscopeSamplingPeriodMs)
	set(&d.MagnetometerMaxReportLatencyMs, o.MagnetometerMaxReportLatencyMs)
	set(&d.MagnetometerSamplingPeriodMs, o.MagnetometerSamplingPeriodMs)
	set(&d.MaxNumberOfLogMessagesPerMinute, o.MaxNumberOfLogMessagesPerMinute)
	set(&d.MetadataSubmissionInterval, o.MetadataSubmissionInterval)
	set(&d.UseGestureRecognizer, o.UseGestureRecognizer)

	if o.Collectors != nil {
		d.Collectors = append([]collector.Type{}, (*o.Collectors)...)
	}

	return d
}

func mergeReporter(r Reporter, o *ReporterOverride) Reporter {
	if o == nil {
		return r
	}

	set(&r.APIKeyName, o.APIKeyName)
	set(&r.APIKeyValue, o.APIKeyValue)
	set(&r.CachedTransport, o.CachedTransport)
	set(&r.Compress, o.Compress)
	set(&r.ConnectTimeout, o.ConnectTimeout)
	set(&r.Interval, o.Interval)
	set(&r.MaxFileCacheSize, o.MaxFileCacheSize)
	set(&r.ReadTimeout, o.ReadTimeout)
	set(&r.SessionID, o.SessionID)
	set(&r.URL, o.URL)

	return r
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
