package servicenow

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sndiag/internal/logger"
)

// Fixed identifiers of the records under audit.
const (
	PropertyEmbeddablesEnabled = "glide.uxf.lib.embeddables.enabled"
	PluginEmbeddables          = "com.glide.ux.embeddables"
	PluginClientAccess         = "com.glide.security.client_access"
)

// Connect normalizes the instance URL and probes connectivity and credentials
// with a single-row sys_properties query. It never returns a Go error; every
// failure mode ends up as a failed result.
func (c *Client) Connect(ctx context.Context, instance string, creds Credentials) *ConnectResult {
	base := NormalizeInstanceURL(instance)
	logger.Diag.Info().Str("instance", base).Msg("connecting")

	status, _, err := c.tableGet(ctx, base, creds, "sys_properties", url.Values{
		"sysparm_limit": {"1"},
	})
	if err != nil {
		return &ConnectResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &ConnectResult{Result: failuref("HTTP %d", status)}
	}
	return &ConnectResult{Result: ok(), Message: "Connected"}
}

// CheckEmbeddablesEnabled reads the embeddables system property. A missing
// row is treated as enabled=false, not an error.
func (c *Client) CheckEmbeddablesEnabled(ctx context.Context, instance string, creds Credentials) *EnabledResult {
	if connect := c.Connect(ctx, instance, creds); !connect.Success {
		return &EnabledResult{Result: connect.Result}
	}

	base := NormalizeInstanceURL(instance)
	status, rows, err := c.tableGet(ctx, base, creds, "sys_properties", url.Values{
		"sysparm_query":  {"name=" + PropertyEmbeddablesEnabled},
		"sysparm_fields": {"name,value"},
	})
	if err != nil {
		return &EnabledResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &EnabledResult{Result: failuref("HTTP %d", status)}
	}

	enabled := firstField(rows, "value") == "true"
	return &EnabledResult{Result: ok(), Enabled: enabled}
}

// CheckPluginStatus queries v_plugin for one plugin ID. An empty result set
// yields active=false.
func (c *Client) CheckPluginStatus(ctx context.Context, instance string, creds Credentials, pluginID string) *PluginResult {
	if connect := c.Connect(ctx, instance, creds); !connect.Success {
		return &PluginResult{Result: connect.Result}
	}

	base := NormalizeInstanceURL(instance)
	status, rows, err := c.tableGet(ctx, base, creds, "v_plugin", url.Values{
		"sysparm_query":  {"id=" + pluginID},
		"sysparm_fields": {"id,active,name"},
	})
	if err != nil {
		return &PluginResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &PluginResult{Result: failuref("HTTP %d", status)}
	}

	active := firstField(rows, "active") == "active"
	return &PluginResult{Result: ok(), Active: active}
}

// CheckEmbeddablesPlugin checks the embeddables UX plugin.
func (c *Client) CheckEmbeddablesPlugin(ctx context.Context, instance string, creds Credentials) *PluginResult {
	return c.CheckPluginStatus(ctx, instance, creds, PluginEmbeddables)
}

// CheckClientAccessPlugin checks the client access security plugin.
func (c *Client) CheckClientAccessPlugin(ctx context.Context, instance string, creds Credentials) *PluginResult {
	return c.CheckPluginStatus(ctx, instance, creds, PluginClientAccess)
}

// corsQuery builds the sys_cors_rule filter for a domain. A scheme-less
// domain matches under https://, http:// and bare; a domain with a scheme
// matches exactly; an empty domain fetches all rules.
func corsQuery(domain string) string {
	if domain == "" {
		return ""
	}
	if strings.HasPrefix(domain, "http") {
		return "domain=" + domain
	}
	domain = strings.TrimSuffix(domain, "/")
	return fmt.Sprintf("domain=https://%s^ORdomain=http://%s^ORdomain=%s", domain, domain, domain)
}

// CheckCORSRule audits the CORS rules matching a domain.
func (c *Client) CheckCORSRule(ctx context.Context, instance string, creds Credentials, domain string) *CORSResult {
	if connect := c.Connect(ctx, instance, creds); !connect.Success {
		return &CORSResult{Result: connect.Result}
	}

	base := NormalizeInstanceURL(instance)
	status, rows, err := c.tableGet(ctx, base, creds, "sys_cors_rule", url.Values{
		"sysparm_query":  {corsQuery(domain)},
		"sysparm_fields": {"domain,active"},
	})
	if err != nil {
		return &CORSResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &CORSResult{Result: failuref("HTTP %d", status)}
	}

	active := false
	for _, row := range rows {
		if row["active"] == "true" {
			active = true
			break
		}
	}
	return &CORSResult{Result: ok(), Exists: len(rows) > 0, Active: active}
}

// CheckAllEmbeddablesActivated lists every sys_ux_embeddable_macroponent
// record with its activation state.
func (c *Client) CheckAllEmbeddablesActivated(ctx context.Context, instance string, creds Credentials) *EmbeddablesResult {
	if connect := c.Connect(ctx, instance, creds); !connect.Success {
		return &EmbeddablesResult{Result: connect.Result}
	}

	base := NormalizeInstanceURL(instance)
	status, rows, err := c.tableGet(ctx, base, creds, "sys_ux_embeddable_macroponent", url.Values{
		"sysparm_fields": {"tag_name,active,sys_id"},
	})
	if err != nil {
		return &EmbeddablesResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &EmbeddablesResult{Result: failuref("HTTP %d", status)}
	}

	embeddables := make([]Embeddable, 0, len(rows))
	activeCount := 0
	for _, row := range rows {
		e := Embeddable{
			Name:   row["tag_name"],
			Active: row["active"] == "true",
			SysID:  row["sys_id"],
		}
		if e.Active {
			activeCount++
		}
		embeddables = append(embeddables, e)
	}
	return &EmbeddablesResult{
		Result:      ok(),
		TotalCount:  len(embeddables),
		ActiveCount: activeCount,
		Embeddables: embeddables,
	}
}

// CheckEmbeddableActivated audits the embeddables whose macroponent name
// starts with the given prefix.
func (c *Client) CheckEmbeddableActivated(ctx context.Context, instance string, creds Credentials, macroponentName string) *MatchResult {
	if connect := c.Connect(ctx, instance, creds); !connect.Success {
		return &MatchResult{Result: connect.Result}
	}

	base := NormalizeInstanceURL(instance)
	status, rows, err := c.tableGet(ctx, base, creds, "sys_ux_embeddable_macroponent", url.Values{
		"sysparm_query":  {"macroponent.nameSTARTSWITH" + macroponentName},
		"sysparm_fields": {"tag_name,active,sys_id"},
	})
	if err != nil {
		return &MatchResult{Result: failure(err.Error())}
	}
	if status != http.StatusOK {
		return &MatchResult{Result: failuref("HTTP %d", status)}
	}

	embeddables := make([]Embeddable, 0, len(rows))
	allActive := len(rows) > 0
	for _, row := range rows {
		e := Embeddable{
			Name:         row["tag_name"],
			InternalName: row["name"],
			Active:       row["active"] == "true",
			SysID:        row["sys_id"],
		}
		if !e.Active {
			allActive = false
		}
		embeddables = append(embeddables, e)
	}
	return &MatchResult{
		Result:      ok(),
		Found:       len(embeddables) > 0,
		Count:       len(embeddables),
		AllActive:   allActive,
		Embeddables: embeddables,
	}
}

// firstField returns a field of the first row, or "" for an empty result set.
// Zero rows behave like a default empty record.
func firstField(rows []map[string]string, field string) string {
	if len(rows) == 0 {
		return ""
	}
	return rows[0][field]
}
