package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sndiag/internal/database"
	"sndiag/internal/logger"
	"sndiag/internal/notify"
	"sndiag/internal/servicenow"
	"sndiag/internal/version"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Deps carries the shared dependencies every tool handler needs.
type Deps struct {
	Client          *servicenow.Client
	DefaultInstance string
	DefaultCreds    servicenow.Credentials
	Runs            *database.CheckRunRepo
	Notifier        *notify.Manager
}

// ConnectInput is shared by every diagnostic tool: all connection
// parameters are optional and fall back to request headers or config.
type ConnectInput struct {
	InstanceURL string `json:"instance_url,omitempty" jsonschema:"ServiceNow instance URL, e.g. https://example.service-now.com"`
	Username    string `json:"username,omitempty" jsonschema:"ServiceNow username for basic auth"`
	Password    string `json:"password,omitempty" jsonschema:"ServiceNow password for basic auth"`
}

// CORSInput adds the domain to look up in the CORS rule table.
type CORSInput struct {
	ConnectInput
	Domain string `json:"domain,omitempty" jsonschema:"Domain to check for a CORS rule, e.g. https://myapp.example.com; empty lists all rules"`
}

// EmbeddableInput adds the embeddable name prefix to match.
type EmbeddableInput struct {
	ConnectInput
	Name string `json:"name" jsonschema:"Embeddable (macroponent) name prefix to check"`
}

// resolve merges explicit tool arguments over the per-request header
// credentials and the configured defaults. Explicit values always win.
func (d *Deps) resolve(in ConnectInput, headers http.Header) (string, servicenow.Credentials) {
	instance := in.InstanceURL
	if instance == "" {
		instance = d.DefaultInstance
	}
	instance = servicenow.NormalizeInstanceURL(instance)

	creds := servicenow.ResolveCredentials(in.Username, in.Password, headers)
	if creds.Username == "" {
		creds.Username = d.DefaultCreds.Username
	}
	if creds.Password == "" {
		creds.Password = d.DefaultCreds.Password
	}
	return instance, creds
}

// record persists a single check outcome to the history table.
func (d *Deps) record(runID, instance, check string, success bool, elapsed time.Duration, detail any) {
	if d.Runs == nil {
		return
	}
	raw, _ := json.Marshal(detail)
	d.Runs.Create(&database.CheckRun{
		RunID:      runID,
		Instance:   instance,
		CheckName:  check,
		Success:    success,
		DurationMs: elapsed.Milliseconds(),
		Detail:     string(raw),
		Source:     "mcp",
	})
}

// NewServer builds an MCP server with all diagnostic tools registered.
// headers carry the inbound HTTP headers for credential fallback; pass
// nil for stdio transport.
func NewServer(deps *Deps, headers http.Header) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "sndiag",
		Version: version.Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "connect_to_instance",
		Description: "Verify connectivity and credentials against a ServiceNow instance.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConnectInput) (*mcp.CallToolResult, *servicenow.ConnectResult, error) {
		instance, creds := deps.resolve(input, headers)
		start := time.Now()
		res := deps.Client.Connect(ctx, instance, creds)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameConnect, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_embeddables_enabled",
		Description: "Check whether the glide.uxf.lib.embeddables.enabled system property is set to true.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConnectInput) (*mcp.CallToolResult, *servicenow.EnabledResult, error) {
		instance, creds := deps.resolve(input, headers)
		start := time.Now()
		res := deps.Client.CheckEmbeddablesEnabled(ctx, instance, creds)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameEmbeddablesEnabled, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_embeddables_plugin",
		Description: "Check whether the UX Embeddables plugin (com.glide.ux.embeddables) is active.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConnectInput) (*mcp.CallToolResult, *servicenow.PluginResult, error) {
		instance, creds := deps.resolve(input, headers)
		start := time.Now()
		res := deps.Client.CheckEmbeddablesPlugin(ctx, instance, creds)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameEmbeddablesPlugin, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_client_access_plugin",
		Description: "Check whether the Client Access Security plugin (com.glide.security.client_access) is active.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConnectInput) (*mcp.CallToolResult, *servicenow.PluginResult, error) {
		instance, creds := deps.resolve(input, headers)
		start := time.Now()
		res := deps.Client.CheckClientAccessPlugin(ctx, instance, creds)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameClientAccessPlugin, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_cors_rule",
		Description: "Check whether a CORS rule exists and is active for the given domain.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CORSInput) (*mcp.CallToolResult, *servicenow.CORSResult, error) {
		instance, creds := deps.resolve(input.ConnectInput, headers)
		start := time.Now()
		res := deps.Client.CheckCORSRule(ctx, instance, creds, input.Domain)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameCORSRule, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_all_embeddable_activated",
		Description: "List all UX embeddables on the instance with their activation state.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input ConnectInput) (*mcp.CallToolResult, *servicenow.EmbeddablesResult, error) {
		instance, creds := deps.resolve(input, headers)
		start := time.Now()
		res := deps.Client.CheckAllEmbeddablesActivated(ctx, instance, creds)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameEmbeddableActivation, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "check_embeddable_activated",
		Description: "Check whether all embeddables whose name starts with the given prefix are activated.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input EmbeddableInput) (*mcp.CallToolResult, *servicenow.MatchResult, error) {
		instance, creds := deps.resolve(input.ConnectInput, headers)
		start := time.Now()
		res := deps.Client.CheckEmbeddableActivated(ctx, instance, creds, input.Name)
		deps.record(uuid.NewString(), instance, servicenow.CheckNameEmbeddableMatch, res.Success, time.Since(start), res)
		return nil, res, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_all_checks",
		Description: "Run the full embeddables diagnostic suite and return a combined report.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input CORSInput) (*mcp.CallToolResult, *servicenow.Report, error) {
		instance, creds := deps.resolve(input.ConnectInput, headers)
		start := time.Now()
		report := deps.Client.RunAllChecks(ctx, instance, creds, input.Domain)
		elapsed := time.Since(start)

		runID := uuid.NewString()
		failed := report.FailedChecks()
		deps.record(runID, instance, servicenow.CheckNameReport, len(failed) == 0, elapsed, report)

		if len(failed) > 0 && deps.Notifier != nil {
			deps.Notifier.SendReportFailure(instance, failed)
		}
		logger.Tools.Info().
			Str("run_id", runID).
			Str("instance", instance).
			Int("failed", len(failed)).
			Dur("elapsed", elapsed).
			Msg("full diagnostic run completed")
		return nil, report, nil
	})

	return server
}

// NewHTTPHandler wraps the MCP server in a streamable HTTP handler. A
// fresh server is built per request so credential headers on each
// request are honored by the tools.
func NewHTTPHandler(deps *Deps) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return NewServer(deps, r.Header)
	}, nil)
}

// RunStdio serves the MCP server over stdin/stdout until ctx is done.
func RunStdio(ctx context.Context, deps *Deps) error {
	server := NewServer(deps, nil)
	logger.Tools.Info().Msg("MCP server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}
