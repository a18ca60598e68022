package bridge_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/mutker/trapbridge/internal/bridge"
	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/telemetry"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardPaths(discards []bridge.Discard) []string {
	paths := make([]string, len(discards))
	for i, d := range discards {
		paths[i] = d.Path
	}
	return paths
}

func TestDecodeTakesMatchingFields(t *testing.T) {
	session := uuid.New()
	o, discards := bridge.DecodeOverride(map[string]any{
		"queueSize":           500,
		"lowBatteryThreshold": 0.2,
		"sessionIdFilter":     "8fffffff",
		"reporter": map[string]any{
			"sessionId":        session.String(),
			"interval":         json.Number("2500"),
			"compress":         true,
			"url":              "https://example.com/{sessionId}/{streamId}",
			"maxFileCacheSize": 1e6,
		},
		"lowDataDataCollection": map[string]any{
			"collectors":                 []any{"Touch", "Battery"},
			"metadataSubmissionInterval": 30000,
		},
	})
	assert.Empty(t, discards)

	require.NotNil(t, o.QueueSize)
	assert.Equal(t, 500, *o.QueueSize)
	assert.InDelta(t, 0.2, *o.LowBatteryThreshold, 1e-9)
	assert.Equal(t, "8fffffff", *o.SessionIDFilter)

	require.NotNil(t, o.Reporter)
	assert.Equal(t, session, *o.Reporter.SessionID)
	assert.Equal(t, int64(2500), *o.Reporter.Interval)
	assert.Equal(t, int64(1_000_000), *o.Reporter.MaxFileCacheSize)
	assert.True(t, *o.Reporter.Compress)
	assert.Nil(t, o.Reporter.APIKeyName)

	require.NotNil(t, o.LowDataDataCollection)
	assert.Equal(t, []collector.Type{collector.Touch, collector.Battery}, *o.LowDataDataCollection.Collectors)
	assert.Equal(t, 30000, *o.LowDataDataCollection.MetadataSubmissionInterval)
	assert.Nil(t, o.DefaultDataCollection)
}

func TestDecodeDiscardsMismatchedFieldsIndividually(t *testing.T) {
	o, discards := bridge.DecodeOverride(map[string]any{
		"queueSize":           "big",
		"lowBatteryThreshold": true,
		"reporter": map[string]any{
			"sessionId": "not-a-uuid",
			"interval":  1.5,
			"compress":  1,
			"url":       "https://example.com",
		},
		"defaultDataCollection": map[string]any{
			"collectors":           []any{"Touch", "Bogus", 3},
			"useGestureRecognizer": "yes",
		},
		"lowBatteryDataCollection": "fast",
	})

	assert.ElementsMatch(t, []string{
		"queueSize",
		"lowBatteryThreshold",
		"reporter.sessionId",
		"reporter.interval",
		"reporter.compress",
		"defaultDataCollection.collectors[1]",
		"defaultDataCollection.collectors[2]",
		"defaultDataCollection.useGestureRecognizer",
		"lowBatteryDataCollection",
	}, discardPaths(discards))

	assert.Nil(t, o.QueueSize)
	assert.Nil(t, o.LowBatteryThreshold)
	assert.Nil(t, o.LowBatteryDataCollection)
	require.NotNil(t, o.Reporter)
	assert.Equal(t, "https://example.com", *o.Reporter.URL)
	assert.Nil(t, o.Reporter.SessionID)
	require.NotNil(t, o.DefaultDataCollection)
	assert.Equal(t, []collector.Type{collector.Touch}, *o.DefaultDataCollection.Collectors)

	merged := trapconfig.Merge(trapconfig.Default(), o)
	assert.Equal(t, trapconfig.DefaultQueueSize, merged.QueueSize)
	assert.InDelta(t, trapconfig.DefaultLowBatteryThreshold, merged.LowBatteryThreshold, 1e-9)
}

func TestDecodeCollectorsNotAList(t *testing.T) {
	o, discards := bridge.DecodeOverride(map[string]any{
		"defaultDataCollection": map[string]any{"collectors": "Touch"},
	})

	require.Len(t, discards, 1)
	assert.Equal(t, "defaultDataCollection.collectors", discards[0].Path)
	assert.Equal(t, "Touch", discards[0].Value)
	require.NotNil(t, o.DefaultDataCollection)
	assert.Nil(t, o.DefaultDataCollection.Collectors)
}

func TestDecodeNullIsAbsent(t *testing.T) {
	o, discards := bridge.DecodeOverride(map[string]any{
		"queueSize": nil,
		"reporter":  nil,
	})

	assert.Empty(t, discards)
	assert.Nil(t, o.QueueSize)
	assert.Nil(t, o.Reporter)
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	o, discards := bridge.DecodeOverride(map[string]any{
		"enableDataCollection": true,
		"queueSize":            7,
	})

	assert.Empty(t, discards)
	assert.Equal(t, 7, *o.QueueSize)
}

func TestDiscardFieldDropsListIndex(t *testing.T) {
	_, discards := bridge.DecodeOverride(map[string]any{
		"queueSize": "many",
		"lowDataDataCollection": map[string]any{
			"collectors": []any{"Touch", "Sonar", 3},
		},
	})

	fields := map[string]string{}
	for _, d := range discards {
		fields[d.Path] = d.Field()
	}
	assert.Equal(t, map[string]string{
		"queueSize":                           "queueSize",
		"lowDataDataCollection.collectors[1]": "lowDataDataCollection.collectors",
		"lowDataDataCollection.collectors[2]": "lowDataDataCollection.collectors",
	}, fields)
}

func TestDiscardMetricUsesFieldLabel(t *testing.T) {
	items := make([]any, 40)
	for i := range items {
		items[i] = "Touch"
	}
	items[37] = "Sonar"
	bridge.DecodeOverride(map[string]any{
		"defaultDataCollection": map[string]any{"collectors": items},
	})

	rec := httptest.NewRecorder()
	telemetry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, `trapbridge_config_discards_total{field="defaultDataCollection.collectors"}`)
	assert.NotContains(t, body, `collectors[37]`)
}
