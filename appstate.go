package urlnav

// AppState is the consumed application-state codec: a state blob that
// serializes itself into a single query parameter.
type AppState interface {
	// QueryParamName returns the query parameter the state serializes under.
	QueryParamName() string

	// QueryParam returns the serialized state value.
	QueryParam() string
}

// QueryParamState is a literal AppState: a fixed parameter name and an
// already serialized value.
type QueryParamState struct {
	Name  string
	Value string
}

// QueryParamName returns the parameter name.
func (s QueryParamState) QueryParamName() string { return s.Name }

// QueryParam returns the serialized value.
func (s QueryParamState) QueryParam() string { return s.Value }
