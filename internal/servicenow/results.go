package servicenow

import "fmt"

// Result is the shared outcome header of every check. A failed check carries
// an error description and nothing else of significance; callers must inspect
// Success before trusting the check-specific fields.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result {
	return Result{Success: true}
}

func failure(msg string) Result {
	return Result{Error: msg}
}

func failuref(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// ConnectResult is the outcome of the connectivity/credential probe.
type ConnectResult struct {
	Result
	Message string `json:"message,omitempty"`
}

// EnabledResult reports whether the embeddables system property is "true".
type EnabledResult struct {
	Result
	Enabled bool `json:"enabled"`
}

// PluginResult reports whether a plugin record is active.
type PluginResult struct {
	Result
	Active bool `json:"active"`
}

// CORSResult reports whether any CORS rule matches a domain and whether at
// least one matching rule is active. An empty rule set yields active=false,
// consistent with "any rule active" over an empty set.
type CORSResult struct {
	Result
	Exists bool `json:"exists"`
	Active bool `json:"active"`
}

// Embeddable is one macroponent record's activation state.
type Embeddable struct {
	Name         string `json:"name"`
	InternalName string `json:"internal_name,omitempty"`
	Active       bool   `json:"active"`
	SysID        string `json:"sys_id"`
}

// EmbeddablesResult lists every embeddable macroponent and its state.
type EmbeddablesResult struct {
	Result
	TotalCount  int          `json:"total_count"`
	ActiveCount int          `json:"active_count"`
	Embeddables []Embeddable `json:"embeddables"`
}

// MatchResult lists the embeddables whose macroponent name matches a prefix.
// AllActive is false for an empty match set, never vacuously true.
type MatchResult struct {
	Result
	Found       bool         `json:"found"`
	Count       int          `json:"count"`
	AllActive   bool         `json:"all_active"`
	Embeddables []Embeddable `json:"embeddables"`
}
