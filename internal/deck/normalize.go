package deck

import "encoding/json"

// Record is a delta-only view of device state: a mapping from a small fixed
// set of semantic field names to their current values. Only fields present in
// the originating notification are included; a Record is never a full state
// snapshot.
type Record map[string]any

// Notification is a single property-change event as emitted by the device
// event stream.
type Notification struct {
	Property string          `json:"property"`
	Value    json.RawMessage `json:"value"`
}

// fieldMapping describes how one recognized property path becomes one
// broadcast field.
type fieldMapping struct {
	// field is the output field name.
	field string

	// extract pulls the broadcast value out of the raw property value.
	// Returning false drops the notification.
	extract func(raw json.RawMessage) (any, bool)
}

// propertyMappings is the normalization table. One entry per recognized
// property path, each producing exactly one output field. Adding a recognized
// property is a data change here, not a control-flow change. Paths absent
// from the table are ignored on purpose: device firmware may expose
// properties this bridge does not yet understand.
var propertyMappings = map[string]fieldMapping{
	"/transports/0/timecode": {
		field:   "timecode",
		extract: extractDisplay,
	},
	"/transports/0/play": {
		field:   "playing",
		extract: extractVerbatim,
	},
	"/transports/0/stop": {
		field:   "stopped",
		extract: extractVerbatim,
	},
	"/transports/0/clipIndex": {
		field:   "clipIndex",
		extract: extractVerbatim,
	},
	"/system/codecFormat": {
		field:   "codecFormat",
		extract: extractVerbatim,
	},
}

// Normalize maps a raw device notification to a delta Record.
//
// It is a pure, stateless function. Unrecognized property paths and values
// that fail extraction yield an empty Record; callers must not publish empty
// records.
func Normalize(n Notification) Record {
	mapping, ok := propertyMappings[n.Property]
	if !ok {
		return Record{}
	}

	value, ok := mapping.extract(n.Value)
	if !ok {
		return Record{}
	}

	return Record{mapping.field: value}
}

// extractVerbatim decodes the raw value and passes it through unchanged.
func extractVerbatim(raw json.RawMessage) (any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}

// extractDisplay pulls the "display" sub-field out of a structured value,
// e.g. a timecode notification {"display":"01:02:03:04",...} becomes the
// display string alone.
func extractDisplay(raw json.RawMessage) (any, bool) {
	var v struct {
		Display any `json:"display"`
	}
	if err := json.Unmarshal(raw, &v); err != nil || v.Display == nil {
		return nil, false
	}
	return v.Display, true
}
