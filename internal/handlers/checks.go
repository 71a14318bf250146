package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"sndiag/internal/database"
	"sndiag/internal/logger"
	"sndiag/internal/notify"
	"sndiag/internal/servicenow"
	"sndiag/internal/web"

	"github.com/google/uuid"
)

// ChecksHandler exposes the embeddables diagnostics over REST.
type ChecksHandler struct {
	client          *servicenow.Client
	defaultInstance string
	defaultCreds    servicenow.Credentials
	runs            *database.CheckRunRepo
	notifier        *notify.Manager
}

func NewChecksHandler(client *servicenow.Client, defaultInstance string, defaultCreds servicenow.Credentials, runs *database.CheckRunRepo, notifier *notify.Manager) *ChecksHandler {
	return &ChecksHandler{
		client:          client,
		defaultInstance: defaultInstance,
		defaultCreds:    defaultCreds,
		runs:            runs,
		notifier:        notifier,
	}
}

// connectRequest is the optional JSON body for POST endpoints. Every field
// falls back to request headers and then to the configured defaults.
type connectRequest struct {
	InstanceURL string `json:"instance_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Domain      string `json:"domain"`
}

// resolve merges explicit request values over header credentials and
// configured defaults. An empty instance after fallback is an error.
func (h *ChecksHandler) resolve(r *http.Request, req connectRequest) (string, servicenow.Credentials, bool) {
	instance := req.InstanceURL
	if instance == "" {
		instance = r.URL.Query().Get("instance_url")
	}
	if instance == "" {
		instance = h.defaultInstance
	}
	if instance == "" {
		return "", servicenow.Credentials{}, false
	}
	instance = servicenow.NormalizeInstanceURL(instance)

	creds := servicenow.ResolveCredentials(req.Username, req.Password, r.Header)
	if creds.Username == "" {
		creds.Username = h.defaultCreds.Username
	}
	if creds.Password == "" {
		creds.Password = h.defaultCreds.Password
	}
	return instance, creds, true
}

// decodeBody reads an optional JSON body. An empty body is fine.
func decodeBody(r *http.Request) (connectRequest, bool) {
	var req connectRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}

func (h *ChecksHandler) record(instance, check string, success bool, elapsed time.Duration, detail any) {
	if h.runs == nil {
		return
	}
	raw, _ := json.Marshal(detail)
	h.runs.Create(&database.CheckRun{
		RunID:      uuid.NewString(),
		Instance:   instance,
		CheckName:  check,
		Success:    success,
		DurationMs: elapsed.Milliseconds(),
		Detail:     string(raw),
		Source:     "rest",
	})
}

// Connect verifies connectivity and credentials against an instance.
func (h *ChecksHandler) Connect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	instance, creds, ok := h.resolve(r, req)
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}

	start := time.Now()
	res := h.client.Connect(r.Context(), instance, creds)
	h.record(instance, servicenow.CheckNameConnect, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// EmbeddablesEnabled checks the embeddables system property.
func (h *ChecksHandler) EmbeddablesEnabled(w http.ResponseWriter, r *http.Request) {
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckEmbeddablesEnabled(r.Context(), instance, creds)
	h.record(instance, servicenow.CheckNameEmbeddablesEnabled, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// EmbeddablesPlugin checks the UX Embeddables plugin state.
func (h *ChecksHandler) EmbeddablesPlugin(w http.ResponseWriter, r *http.Request) {
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckEmbeddablesPlugin(r.Context(), instance, creds)
	h.record(instance, servicenow.CheckNameEmbeddablesPlugin, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// ClientAccessPlugin checks the Client Access Security plugin state.
func (h *ChecksHandler) ClientAccessPlugin(w http.ResponseWriter, r *http.Request) {
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckClientAccessPlugin(r.Context(), instance, creds)
	h.record(instance, servicenow.CheckNameClientAccessPlugin, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// CORSRule checks for a CORS rule covering the domain query param.
func (h *ChecksHandler) CORSRule(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		web.FailErr(w, r, web.ErrInvalidParam, "domain query parameter required")
		return
	}
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckCORSRule(r.Context(), instance, creds, domain)
	h.record(instance, servicenow.CheckNameCORSRule, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// Embeddables lists all embeddables with their activation state.
func (h *ChecksHandler) Embeddables(w http.ResponseWriter, r *http.Request) {
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckAllEmbeddablesActivated(r.Context(), instance, creds)
	h.record(instance, servicenow.CheckNameEmbeddableActivation, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// EmbeddablesByName checks activation of embeddables matching a name prefix.
func (h *ChecksHandler) EmbeddablesByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		web.FailErr(w, r, web.ErrInvalidParam, "name query parameter required")
		return
	}
	instance, creds, ok := h.resolve(r, connectRequest{})
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}
	start := time.Now()
	res := h.client.CheckEmbeddableActivated(r.Context(), instance, creds, name)
	h.record(instance, servicenow.CheckNameEmbeddableMatch, res.Success, time.Since(start), res)
	web.OK(w, r, res)
}

// RunAll runs the full diagnostic suite and returns the combined report.
func (h *ChecksHandler) RunAll(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeBody(r)
	if !ok {
		web.FailErr(w, r, web.ErrInvalidBody)
		return
	}
	if req.Domain == "" {
		req.Domain = r.URL.Query().Get("domain")
	}
	instance, creds, ok := h.resolve(r, req)
	if !ok {
		web.FailErr(w, r, web.ErrInstanceRequired)
		return
	}

	start := time.Now()
	report := h.client.RunAllChecks(r.Context(), instance, creds, req.Domain)
	elapsed := time.Since(start)

	failed := report.FailedChecks()
	h.record(instance, servicenow.CheckNameReport, len(failed) == 0, elapsed, report)
	if len(failed) > 0 && h.notifier != nil {
		h.notifier.SendReportFailure(instance, failed)
	}
	logger.Web.Info().
		Str("instance", instance).
		Int("failed", len(failed)).
		Dur("elapsed", elapsed).
		Msg("full diagnostic run completed")

	web.OK(w, r, report)
}
