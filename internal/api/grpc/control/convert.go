package control

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/energy-sim/internal/simulation"
)

// toStruct converts a JSON-like map to a protobuf Struct.
func toStruct(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}

	return s, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func stringList(values []string) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}

	return out
}

func failures(errs []*simulation.ChildError) []any {
	out := make([]any, 0, len(errs))
	for _, f := range errs {
		out = append(out, map[string]any{
			"id":       f.ID,
			"attempts": f.Attempts,
			"timeout":  f.Timeout(),
			"error":    f.Err.Error(),
		})
	}

	return out
}

func statusFields(st *Status) map[string]any {
	fields := map[string]any{}

	if st == nil || st.Clock == nil {
		return fields
	}

	fields["running"] = st.Clock.Running
	fields["seq"] = st.Clock.Seq
	fields["interval"] = st.Clock.Interval.String()
	fields["started_at"] = formatTime(st.Clock.StartedAt)
	fields["top_level"] = stringList(st.Clock.TopLevel)

	if st.LastTick != nil {
		fields["last_tick"] = tickFields(st.LastTick)
	}

	return fields
}

func tickFields(tick *simulation.ClockTick) map[string]any {
	if tick == nil {
		return map[string]any{}
	}

	return map[string]any{
		"seq":        tick.Seq,
		"nations":    tick.Nations,
		"failures":   failures(tick.Failures),
		"started_at": formatTime(tick.StartedAt),
		"duration":   tick.Duration.String(),
	}
}

func snapshotFields(snap *simulation.Snapshot) map[string]any {
	if snap == nil || snap.State == nil {
		return map[string]any{}
	}

	fields := map[string]any{
		"id":          snap.State.ID,
		"name":        snap.State.Name,
		"level":       string(snap.State.Level),
		"parent_id":   snap.State.ParentID,
		"children":    stringList(snap.State.Children),
		"population":  snap.State.Population,
		"total":       snap.Total,
		"per_capita":  snap.PerCapita,
		"partial":     false,
		"breakdown":   map[string]any{},
		"last_seq":    uint64(0),
		"failed":      []any{},
		"computed_at": "",
	}

	if last := snap.Last; last != nil {
		breakdown := make(map[string]any, len(last.Breakdown))
		for id, v := range last.Breakdown {
			breakdown[id] = v
		}

		fields["partial"] = last.Partial
		fields["breakdown"] = breakdown
		fields["last_seq"] = last.Seq
		fields["failed"] = failures(last.Failures)
		fields["computed_at"] = formatTime(last.CompletedAt)
	}

	return fields
}
