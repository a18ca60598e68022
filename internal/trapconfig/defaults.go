package trapconfig

import (
	"codeberg.org/mutker/trapbridge/internal/collector"
	"github.com/google/uuid"
)

const (
	defaultAPIKeyName       = "graboxy-api-key"
	defaultAPIKeyValue      = "api-key-value"
	defaultConnectTimeout   = 500
	defaultReadTimeout      = 500
	defaultInterval         = 1000
	defaultMaxFileCacheSize = 5_000_000
	defaultURL              = "https://trap.graboxy.com/api/1/submit/{sessionId}/{streamId}"

	defaultReportLatencyMs   = 200
	defaultSamplingPeriodMs  = 10
	defaultLogMessagesPerMin = 100
	defaultMetadataInterval  = 60_000

	DefaultLowBatteryThreshold = 0.1
	DefaultQueueSize           = 10000
)

// Default returns the built-in baseline. Every call yields independent
// slices and a freshly generated session id.
func Default() Config {
	return Config{
		DefaultDataCollection: profile(
			collector.Accelerometer,
			collector.Battery,
			collector.Bluetooth,
			collector.CoarseLocation,
			collector.Gravity,
			collector.Gyroscope,
			collector.Magnetometer,
			collector.Metadata,
			collector.Pointer,
			collector.Stylus,
			collector.Touch,
			collector.WiFi,
		),
		LowBatteryDataCollection: reducedProfile(),
		LowDataDataCollection:    reducedProfile(),
		LowBatteryThreshold:      DefaultLowBatteryThreshold,
		QueueSize:                DefaultQueueSize,
		Reporter: Reporter{
			APIKeyName:       defaultAPIKeyName,
			APIKeyValue:      defaultAPIKeyValue,
			CachedTransport:  true,
			Compress:         false,
			ConnectTimeout:   defaultConnectTimeout,
			Interval:         defaultInterval,
			MaxFileCacheSize: defaultMaxFileCacheSize,
			ReadTimeout:      defaultReadTimeout,
			SessionID:        uuid.New(),
			URL:              defaultURL,
		},
	}
}

func reducedProfile() DataCollection {
	return profile(
		collector.Battery,
		collector.Metadata,
		collector.Pointer,
		collector.Stylus,
		collector.Touch,
	)
}

func profile(collectors ...collector.Type) DataCollection {
	return DataCollection{
		AccelerationMaxReportLatencyMs:  defaultReportLatencyMs,
		AccelerationSamplingPeriodMs:    defaultSamplingPeriodMs,
		CollectCoalescedPointerEvents:   true,
		CollectCoalescedStylusEvents:    true,
		CollectCoalescedTouchEvents:     true,
		Collectors:                      collectors,
		GravityMaxReportLatencyMs:       defaultReportLatencyMs,
		GravitySamplingPeriodMs:         defaultSamplingPeriodMs,
		GyroscopeMaxReportLatencyMs:     defaultReportLatencyMs,
		GyroscopeSamplingPeriodMs:       defaultSamplingPeriodMs,
		MagnetometerMaxReportLatencyMs:  defaultReportLatencyMs,
		MagnetometerSamplingPeriodMs:    defaultSamplingPeriodMs,
		MaxNumberOfLogMessagesPerMinute: defaultLogMessagesPerMin,
		MetadataSubmissionInterval:      defaultMetadataInterval,
		UseGestureRecognizer:            true,
	}
}
