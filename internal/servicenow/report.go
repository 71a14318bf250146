package servicenow

import (
	"context"
	"fmt"
	"strings"

	"sndiag/internal/logger"
)

// Report check names, in execution order.
const (
	CheckNameEmbeddablesEnabled   = "embeddables_enabled"
	CheckNameEmbeddablesPlugin    = "embeddables_plugin"
	CheckNameClientAccessPlugin   = "client_access_plugin"
	CheckNameCORSRule             = "cors_rule"
	CheckNameEmbeddableActivation = "embeddable_activation"
)

// Names for the standalone operations recorded in run history.
const (
	CheckNameConnect         = "connect"
	CheckNameEmbeddableMatch = "embeddable_match"
	CheckNameReport          = "report"
)

// Report is the composite outcome of a full diagnostic pass. The five keys
// are fixed; a failure in one check never prevents the others from running.
type Report struct {
	EmbeddablesEnabled   *EnabledResult     `json:"embeddables_enabled"`
	EmbeddablesPlugin    *PluginResult      `json:"embeddables_plugin"`
	ClientAccessPlugin   *PluginResult      `json:"client_access_plugin"`
	CORSRule             *CORSResult        `json:"cors_rule"`
	EmbeddableActivation *EmbeddablesResult `json:"embeddable_activation"`
}

// RunAllChecks sequentially runs every check against one instance. Each check
// performs its own connectivity probe and failures surface per check, never
// as a Go error.
func (c *Client) RunAllChecks(ctx context.Context, instance string, creds Credentials, domain string) *Report {
	logger.Diag.Info().
		Str("instance", NormalizeInstanceURL(instance)).
		Str("domain", domain).
		Msg("running full diagnostic report")

	return &Report{
		EmbeddablesEnabled:   c.CheckEmbeddablesEnabled(ctx, instance, creds),
		EmbeddablesPlugin:    c.CheckEmbeddablesPlugin(ctx, instance, creds),
		ClientAccessPlugin:   c.CheckClientAccessPlugin(ctx, instance, creds),
		CORSRule:             c.CheckCORSRule(ctx, instance, creds, domain),
		EmbeddableActivation: c.CheckAllEmbeddablesActivated(ctx, instance, creds),
	}
}

// FailedChecks returns the names of the checks that did not succeed, in
// execution order.
func (r *Report) FailedChecks() []string {
	var failed []string
	for _, entry := range r.entries() {
		if !entry.result.Success {
			failed = append(failed, entry.name)
		}
	}
	return failed
}

// Summary renders a one-line human summary of the report.
func (r *Report) Summary() string {
	failed := r.FailedChecks()
	if len(failed) == 0 {
		return "all embeddables diagnostics passed"
	}
	return fmt.Sprintf("%d/%d checks failed: %s",
		len(failed), len(r.entries()), strings.Join(failed, ", "))
}

type reportEntry struct {
	name   string
	result Result
}

func (r *Report) entries() []reportEntry {
	return []reportEntry{
		{CheckNameEmbeddablesEnabled, r.EmbeddablesEnabled.Result},
		{CheckNameEmbeddablesPlugin, r.EmbeddablesPlugin.Result},
		{CheckNameClientAccessPlugin, r.ClientAccessPlugin.Result},
		{CheckNameCORSRule, r.CORSRule.Result},
		{CheckNameEmbeddableActivation, r.EmbeddableActivation.Result},
	}
}
