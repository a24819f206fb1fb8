package session

// State is the per-request session attribute map. The middleware installs one
// State into each request's context before business logic runs and diffs it
// against a snapshot on the way out. A State is owned by a single request and
// is never shared across requests, so it carries no locking.
type State struct {
	attrs map[string]any
}

// NewState wraps the loaded attribute map. A nil map is treated as empty.
func NewState(attrs map[string]any) *State {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &State{attrs: attrs}
}

func (s *State) Get(key string) (any, bool) {
	v, ok := s.attrs[key]
	return v, ok
}

func (s *State) Set(key string, value any) {
	s.attrs[key] = value
}

func (s *State) Delete(key string) {
	delete(s.attrs, key)
}

// Clear empties all attributes; the middleware exit phase sees this as a
// cleared session and deletes the store key and cookie.
func (s *State) Clear() {
	s.attrs = map[string]any{}
}

func (s *State) Empty() bool {
	return len(s.attrs) == 0
}

// Snapshot returns a deep value copy of the attributes. The middleware takes
// one at entry so later in-place mutation cannot alias the initial state.
func (s *State) Snapshot() map[string]any {
	return copyMap(s.attrs)
}

// Attributes exposes the live attribute map for persistence. Callers other
// than the middleware go through the identity accessors instead.
func (s *State) Attributes() map[string]any {
	return s.attrs
}

func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		// scalars as produced by encoding/json
		return v
	}
}
