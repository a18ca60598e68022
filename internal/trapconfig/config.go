package trapconfig

import (
	"strings"

	"codeberg.org/mutker/trapbridge/internal/collector"
	"github.com/google/uuid"
)

// DataCollection is one collection profile.
type DataCollection struct {
	AccelerationMaxReportLatencyMs  int              `json:"accelerationMaxReportLatencyMs" yaml:"accelerationMaxReportLatencyMs" mapstructure:"accelerationMaxReportLatencyMs"`
	AccelerationSamplingPeriodMs    int              `json:"accelerationSamplingPeriodMs" yaml:"accelerationSamplingPeriodMs" mapstructure:"accelerationSamplingPeriodMs"`
	CollectCoalescedPointerEvents   bool             `json:"collectCoalescedPointerEvents" yaml:"collectCoalescedPointerEvents" mapstructure:"collectCoalescedPointerEvents"`
	CollectCoalescedStylusEvents    bool             `json:"collectCoalescedStylusEvents" yaml:"collectCoalescedStylusEvents" mapstructure:"collectCoalescedStylusEvents"`
	CollectCoalescedTouchEvents     bool             `json:"collectCoalescedTouchEvents" yaml:"collectCoalescedTouchEvents" mapstructure:"collectCoalescedTouchEvents"`
	Collectors                      []collector.Type `json:"collectors" yaml:"collectors" mapstructure:"collectors"`
	GravityMaxReportLatencyMs       int              `json:"gravityMaxReportLatencyMs" yaml:"gravityMaxReportLatencyMs" mapstructure:"gravityMaxReportLatencyMs"`
	GravitySamplingPeriodMs         int              `json:"gravitySamplingPeriodMs" yaml:"gravitySamplingPeriodMs" mapstructure:"gravitySamplingPeriodMs"`
	GyroscopeMaxReportLatencyMs     int              `json:"gyroscopeMaxReportLatencyMs" yaml:"gyroscopeMaxReportLatencyMs" mapstructure:"gyroscopeMaxReportLatencyMs"`
	GyroscopeSamplingPeriodMs       int              `json:"gyroscopeSamplingPeriodMs" yaml:"gyroscopeSamplingPeriodMs" mapstructure:"gyroscopeSamplingPeriodMs"`
	MagnetometerMaxReportLatencyMs  int              `json:"magnetometerMaxReportLatencyMs" yaml:"magnetometerMaxReportLatencyMs" mapstructure:"magnetometerMaxReportLatencyMs"`
	MagnetometerSamplingPeriodMs    int              `json:"magnetometerSamplingPeriodMs" yaml:"magnetometerSamplingPeriodMs" mapstructure:"magnetometerSamplingPeriodMs"`
	MaxNumberOfLogMessagesPerMinute int              `json:"maxNumberOfLogMessagesPerMinute" yaml:"maxNumberOfLogMessagesPerMinute" mapstructure:"maxNumberOfLogMessagesPerMinute"`
	MetadataSubmissionInterval      int              `json:"metadataSubmissionInterval" yaml:"metadataSubmissionInterval" mapstructure:"metadataSubmissionInterval"`
	UseGestureRecognizer            bool             `json:"useGestureRecognizer" yaml:"useGestureRecognizer" mapstructure:"useGestureRecognizer"`
}

// Reporter holds the transport parameters handed to the manager.
type Reporter struct {
	APIKeyName       string    `json:"apiKeyName" yaml:"apiKeyName" mapstructure:"apiKeyName"`
	APIKeyValue      string    `json:"apiKeyValue" yaml:"apiKeyValue" mapstructure:"apiKeyValue"`
	CachedTransport  bool      `json:"cachedTransport" yaml:"cachedTransport" mapstructure:"cachedTransport"`
	Compress         bool      `json:"compress" yaml:"compress" mapstructure:"compress"`
	ConnectTimeout   int       `json:"connectTimeout" yaml:"connectTimeout" mapstructure:"connectTimeout"`
	Interval         int64     `json:"interval" yaml:"interval" mapstructure:"interval"`
	MaxFileCacheSize int64     `json:"maxFileCacheSize" yaml:"maxFileCacheSize" mapstructure:"maxFileCacheSize"`
	ReadTimeout      int       `json:"readTimeout" yaml:"readTimeout" mapstructure:"readTimeout"`
	SessionID        uuid.UUID `json:"sessionId" yaml:"sessionId" mapstructure:"sessionId"`
	URL              string    `json:"url" yaml:"url" mapstructure:"url"`
}

// SubmitURL expands the session and stream placeholders of the URL template.
func (r Reporter) SubmitURL(streamID string) string {
	return strings.NewReplacer(
		"{sessionId}", r.SessionID.String(),
		"{streamId}", streamID,
	).Replace(r.URL)
}

// Config is the fully resolved configuration handed to the manager.
type Config struct {
	DefaultDataCollection    DataCollection `json:"defaultDataCollection" yaml:"defaultDataCollection" mapstructure:"defaultDataCollection"`
	LowBatteryDataCollection DataCollection `json:"lowBatteryDataCollection" yaml:"lowBatteryDataCollection" mapstructure:"lowBatteryDataCollection"`
	LowDataDataCollection    DataCollection `json:"lowDataDataCollection" yaml:"lowDataDataCollection" mapstructure:"lowDataDataCollection"`
	LowBatteryThreshold      float64        `json:"lowBatteryThreshold" yaml:"lowBatteryThreshold" mapstructure:"lowBatteryThreshold"`
	QueueSize                int            `json:"queueSize" yaml:"queueSize" mapstructure:"queueSize"`
	SessionIDFilter          string         `json:"sessionIdFilter,omitempty" yaml:"sessionIdFilter,omitempty" mapstructure:"sessionIdFilter"`
	Reporter                 Reporter       `json:"reporter" yaml:"reporter" mapstructure:"reporter"`
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	out := c
	out.DefaultDataCollection = c.DefaultDataCollection.clone()
	out.LowBatteryDataCollection = c.LowBatteryDataCollection.clone()
	out.LowDataDataCollection = c.LowDataDataCollection.clone()
	return out
}

func (d DataCollection) clone() DataCollection {
	out := d
	if d.Collectors != nil {
		out.Collectors = append([]collector.Type{}, d.Collectors...)
	}
	return out
}

// CollectionAllowed applies the session id filter: collection is enabled
// only when no filter is set or the session id sorts at or below it.
func (c Config) CollectionAllowed() bool {
	if c.SessionIDFilter == "" {
		return true
	}
	return c.Reporter.SessionID.String() <= strings.ToLower(c.SessionIDFilter)
}
