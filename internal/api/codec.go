package api

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/time-conductor/conductor"
	"github.com/signalsfoundry/time-conductor/model"
)

// Struct field names shared by requests and state responses.
const (
	fieldStart                = "start"
	fieldEnd                  = "end"
	fieldMode                 = "mode"
	fieldTimeSystem           = "timeSystem"
	fieldBounds               = "bounds"
	fieldDeltas               = "deltas"
	fieldFollowing            = "following"
	fieldTickSource           = "tickSource"
	fieldAvailableModes       = "availableModes"
	fieldAvailableTimeSystems = "availableTimeSystems"
	fieldAvailableTickSources = "availableTickSources"
	fieldValue                = "value"
)

// EncodeWindow builds the {start, end} Struct used by SetDeltas and SetBounds.
func EncodeWindow(start, end float64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldStart: structpb.NewNumberValue(start),
		fieldEnd:   structpb.NewNumberValue(end),
	}}
}

// DecodeWindow reads a {start, end} Struct. Both fields must be numbers.
func DecodeWindow(s *structpb.Struct) (float64, float64, error) {
	start, err := numberField(s, fieldStart)
	if err != nil {
		return 0, 0, err
	}
	end, err := numberField(s, fieldEnd)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// EncodeLatest builds the PushLatest request.
func EncodeLatest(tickSource string, value float64) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTickSource: structpb.NewStringValue(tickSource),
		fieldValue:      structpb.NewNumberValue(value),
	}}
}

// DecodeLatest reads a PushLatest request.
func DecodeLatest(s *structpb.Struct) (string, float64, error) {
	key := s.GetFields()[fieldTickSource].GetStringValue()
	if key == "" {
		return "", 0, fmt.Errorf("%w: missing %q", ErrInvalidRequest, fieldTickSource)
	}
	value, err := numberField(s, fieldValue)
	if err != nil {
		return "", 0, err
	}
	return key, value, nil
}

func numberField(s *structpb.Struct, name string) (float64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidRequest, name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidRequest, name)
	}
	return n.NumberValue, nil
}

// EncodeState renders an engine snapshot. Bounds and deltas are null when
// absent; the mode is an empty string before the first SetMode.
func EncodeState(st conductor.State) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldMode:                 string(st.Mode),
		fieldTimeSystem:           st.TimeSystem,
		fieldBounds:               nil,
		fieldDeltas:               nil,
		fieldFollowing:            st.Following,
		fieldTickSource:           st.TickSource,
		fieldAvailableModes:       modeList(st.AvailableModes),
		fieldAvailableTimeSystems: stringList(st.AvailableTimeSystems),
		fieldAvailableTickSources: stringList(st.AvailableTickSources),
	}
	if st.HasBounds {
		fields[fieldBounds] = map[string]any{fieldStart: st.Bounds.Start, fieldEnd: st.Bounds.End}
	}
	if st.Deltas != nil {
		fields[fieldDeltas] = map[string]any{fieldStart: st.Deltas.Start, fieldEnd: st.Deltas.End}
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return out, nil
}

// DecodeState is the inverse of EncodeState.
func DecodeState(s *structpb.Struct) (conductor.State, error) {
	var st conductor.State
	if s == nil {
		return st, fmt.Errorf("%w: empty state", ErrInvalidRequest)
	}
	f := s.GetFields()

	st.Mode = model.ModeKey(f[fieldMode].GetStringValue())
	st.TimeSystem = f[fieldTimeSystem].GetStringValue()
	st.Following = f[fieldFollowing].GetBoolValue()
	st.TickSource = f[fieldTickSource].GetStringValue()

	if b := f[fieldBounds].GetStructValue(); b != nil {
		start, end, err := DecodeWindow(b)
		if err != nil {
			return st, fmt.Errorf("decode bounds: %w", err)
		}
		st.Bounds, st.HasBounds = model.Bounds{Start: start, End: end}, true
	}
	if d := f[fieldDeltas].GetStructValue(); d != nil {
		start, end, err := DecodeWindow(d)
		if err != nil {
			return st, fmt.Errorf("decode deltas: %w", err)
		}
		st.Deltas = &model.Deltas{Start: start, End: end}
	}

	for _, v := range f[fieldAvailableModes].GetListValue().GetValues() {
		st.AvailableModes = append(st.AvailableModes, model.ModeKey(v.GetStringValue()))
	}
	st.AvailableTimeSystems = decodeStrings(f[fieldAvailableTimeSystems])
	st.AvailableTickSources = decodeStrings(f[fieldAvailableTickSources])
	return st, nil
}

func modeList(keys []model.ModeKey) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func stringList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func decodeStrings(v *structpb.Value) []string {
	var out []string
	for _, item := range v.GetListValue().GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}
