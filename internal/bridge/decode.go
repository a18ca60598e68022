package bridge

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/telemetry"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"codeberg.org/mutker/trapbridge/internal/value"
	"github.com/google/uuid"
)

// Discard records an override entry that was ignored because its value did
// not have the expected type.
type Discard struct {
	Path   string
	Reason string
	Value  any
}

// Field is Path without list indices.
func (d Discard) Field() string {
	field, _, _ := strings.Cut(d.Path, "[")
	return field
}

const (
	reasonInteger   = "expected integer"
	reasonNumber    = "expected number"
	reasonBool      = "expected boolean"
	reasonString    = "expected string"
	reasonUUID      = "expected session UUID"
	reasonObject    = "expected object"
	reasonList      = "expected list of collectors"
	reasonCollector = "unknown collector"
)

var (
	rootFields = map[string]bool{
		"defaultDataCollection": true, "lowBatteryDataCollection": true, "lowDataDataCollection": true,
		"lowBatteryThreshold": true, "queueSize": true, "sessionIdFilter": true, "reporter": true,
	}
	profileFields = map[string]bool{
		"accelerationMaxReportLatencyMs": true, "accelerationSamplingPeriodMs": true,
		"collectCoalescedPointerEvents": true, "collectCoalescedStylusEvents": true,
		"collectCoalescedTouchEvents": true, "collectors": true,
		"gravityMaxReportLatencyMs": true, "gravitySamplingPeriodMs": true,
		"gyroscopeMaxReportLatencyMs": true, "gyroscopeSamplingPeriodMs": true,
		"magnetometerMaxReportLatencyMs": true, "magnetometerSamplingPeriodMs": true,
		"maxNumberOfLogMessagesPerMinute": true, "metadataSubmissionInterval": true,
		"useGestureRecognizer": true,
	}
	reporterFields = map[string]bool{
		"apiKeyName": true, "apiKeyValue": true, "cachedTransport": true, "compress": true,
		"connectTimeout": true, "interval": true, "maxFileCacheSize": true,
		"readTimeout": true, "sessionId": true, "url": true,
	}
)

// DecodeOverride reads a host configuration object into a sparse override.
// Entries whose value has the wrong type are left out and returned as
// discards; they never fail the call. Missing and null entries keep the
// baseline.
func DecodeOverride(raw map[string]any) (trapconfig.Override, []Discard) {
	d := &decoder{}
	o := d.root(raw)

	for _, dis := range d.discards {
		logger.Warn().
			Str("field", dis.Path).
			Str("reason", dis.Reason).
			Interface("value", dis.Value).
			Msg("Ignoring configuration value")
		telemetry.ObserveDiscard(dis.Field())
	}

	return o, d.discards
}

type decoder struct {
	discards []Discard
}

func (d *decoder) root(raw map[string]any) trapconfig.Override {
	d.unknown(raw, "", rootFields)

	return trapconfig.Override{
		DefaultDataCollection:    d.profile(raw, "defaultDataCollection"),
		LowBatteryDataCollection: d.profile(raw, "lowBatteryDataCollection"),
		LowDataDataCollection:    d.profile(raw, "lowDataDataCollection"),
		LowBatteryThreshold:      d.float(raw, "", "lowBatteryThreshold"),
		QueueSize:                d.int(raw, "", "queueSize"),
		SessionIDFilter:          d.string(raw, "", "sessionIdFilter"),
		Reporter:                 d.reporter(raw, "reporter"),
	}
}

func (d *decoder) profile(parent map[string]any, key string) *trapconfig.ProfileOverride {
	m, ok := d.object(parent, "", key)
	if !ok {
		return nil
	}
	p := key + "."
	d.unknown(m, p, profileFields)

	return &trapconfig.ProfileOverride{
		AccelerationMaxReportLatencyMs:  d.int(m, p, "accelerationMaxReportLatencyMs"),
		AccelerationSamplingPeriodMs:    d.int(m, p, "accelerationSamplingPeriodMs"),
		CollectCoalescedPointerEvents:   d.bool(m, p, "collectCoalescedPointerEvents"),
		CollectCoalescedStylusEvents:    d.bool(m, p, "collectCoalescedStylusEvents"),
		CollectCoalescedTouchEvents:     d.bool(m, p, "collectCoalescedTouchEvents"),
		Collectors:                      d.collectors(m, p, "collectors"),
		GravityMaxReportLatencyMs:       d.int(m, p, "gravityMaxReportLatencyMs"),
		GravitySamplingPeriodMs:         d.int(m, p, "gravitySamplingPeriodMs"),
		GyroscopeMaxReportLatencyMs:     d.int(m, p, "gyroscopeMaxReportLatencyMs"),
		GyroscopeSamplingPeriodMs:       d.int(m, p, "gyroscopeSamplingPeriodMs"),
		MagnetometerMaxReportLatencyMs:  d.int(m, p, "magnetometerMaxReportLatencyMs"),
		MagnetometerSamplingPeriodMs:    d.int(m, p, "magnetometerSamplingPeriodMs"),
		MaxNumberOfLogMessagesPerMinute: d.int(m, p, "maxNumberOfLogMessagesPerMinute"),
		MetadataSubmissionInterval:      d.int(m, p, "metadataSubmissionInterval"),
		UseGestureRecognizer:            d.bool(m, p, "useGestureRecognizer"),
	}
}

func (d *decoder) reporter(parent map[string]any, key string) *trapconfig.ReporterOverride {
	m, ok := d.object(parent, "", key)
	if !ok {
		return nil
	}
	p := key + "."
	d.unknown(m, p, reporterFields)

	return &trapconfig.ReporterOverride{
		APIKeyName:       d.string(m, p, "apiKeyName"),
		APIKeyValue:      d.string(m, p, "apiKeyValue"),
		CachedTransport:  d.bool(m, p, "cachedTransport"),
		Compress:         d.bool(m, p, "compress"),
		ConnectTimeout:   d.int(m, p, "connectTimeout"),
		Interval:         d.int64(m, p, "interval"),
		MaxFileCacheSize: d.int64(m, p, "maxFileCacheSize"),
		ReadTimeout:      d.int(m, p, "readTimeout"),
		SessionID:        d.sessionID(m, p, "sessionId"),
		URL:              d.string(m, p, "url"),
	}
}

// lookup returns the entry at key; nil entries count as absent.
func lookup(m map[string]any, key string) (any, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, false
	}
	return raw, true
}

func (d *decoder) reject(path, reason string, raw any) {
	d.discards = append(d.discards, Discard{Path: path, Reason: reason, Value: raw})
}

func (d *decoder) unknown(m map[string]any, prefix string, known map[string]bool) {
	for key := range m {
		if !known[key] {
			logger.Debug().Str("field", prefix+key).Msg("Ignoring unknown configuration field")
		}
	}
}

func (d *decoder) object(m map[string]any, prefix, key string) (map[string]any, bool) {
	raw, ok := lookup(m, key)
	if !ok {
		return nil, false
	}
	obj, ok := Args{key: raw}.Object(key)
	if !ok {
		d.reject(prefix+key, reasonObject, raw)
		return nil, false
	}
	return obj, true
}

func (d *decoder) int(m map[string]any, prefix, key string) *int {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	n, ok := value.AsInt(raw)
	if !ok || int64(int(n)) != n {
		d.reject(prefix+key, reasonInteger, raw)
		return nil
	}
	out := int(n)
	return &out
}

func (d *decoder) int64(m map[string]any, prefix, key string) *int64 {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	n, ok := value.AsInt(raw)
	if !ok {
		d.reject(prefix+key, reasonInteger, raw)
		return nil
	}
	return &n
}

func (d *decoder) float(m map[string]any, prefix, key string) *float64 {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	f, ok := value.AsFloat(raw)
	if !ok {
		d.reject(prefix+key, reasonNumber, raw)
		return nil
	}
	return &f
}

func (d *decoder) bool(m map[string]any, prefix, key string) *bool {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	b, ok := raw.(bool)
	if !ok {
		d.reject(prefix+key, reasonBool, raw)
		return nil
	}
	return &b
}

func (d *decoder) string(m map[string]any, prefix, key string) *string {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		d.reject(prefix+key, reasonString, raw)
		return nil
	}
	return &s
}

func (d *decoder) sessionID(m map[string]any, prefix, key string) *uuid.UUID {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		d.reject(prefix+key, reasonUUID, raw)
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		d.reject(prefix+key, reasonUUID, raw)
		return nil
	}
	return &id
}

// collectors keeps the recognised entries of a list and reports the rest
// one by one. A value that is not a list is discarded whole.
func (d *decoder) collectors(m map[string]any, prefix, key string) *[]collector.Type {
	raw, ok := lookup(m, key)
	if !ok {
		return nil
	}
	items, ok := value.From(raw).Array()
	if !ok {
		d.reject(prefix+key, reasonList, raw)
		return nil
	}

	out := make([]collector.Type, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("%s%s[%d]", prefix, key, i)
		tag, ok := item.Str()
		if !ok {
			d.reject(path, reasonString, item.Native())
			continue
		}
		t, err := collector.Parse(tag)
		if err != nil {
			d.reject(path, reasonCollector, tag)
			continue
		}
		out = append(out, t)
	}
	return &out
}
