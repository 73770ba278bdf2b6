package tap

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type exportEntry struct {
	Seq       int             `json:"seq"`
	At        json.RawMessage `json:"at"`
	Direction string          `json:"direction,omitempty"`
	Type      string          `json:"type,omitempty"`
	Summary   string          `json:"summary"`
	Error     string          `json:"error,omitempty"`
}

// Export renders entries as an indented JSON array. Each entry's capture
// timestamp is formatted via timestamppb+protojson, used purely for its
// RFC 3339 JSON rendering, with no generated service code involved.
func Export(entries []Entry) ([]byte, error) {
	out := make([]exportEntry, 0, len(entries))
	for _, e := range entries {
		atJSON, err := protojson.Marshal(timestamppb.New(e.At))
		if err != nil {
			return nil, fmt.Errorf("tap: export: marshal timestamp: %w", err)
		}
		ee := exportEntry{Seq: e.Seq, At: atJSON, Summary: Summary(e)}
		if e.Err != nil {
			ee.Error = e.Err.Error()
		} else {
			ee.Direction = e.Direction.String()
			ee.Type = typeName(e.Command)
		}
		out = append(out, ee)
	}
	return json.MarshalIndent(out, "", "  ")
}

// Span reports the wall-clock duration between the first and last
// captured entry, formatted via durationpb+protojson — the JSON wire
// encoding (e.g. "5.250s"), not Go's time.Duration.String() shape.
func Span(entries []Entry) string {
	if len(entries) < 2 {
		return "0s"
	}
	d := entries[len(entries)-1].At.Sub(entries[0].At)
	raw, err := protojson.Marshal(durationpb.New(d))
	if err != nil {
		return d.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return d.String()
	}
	return s
}
