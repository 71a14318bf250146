package servicenow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sndiag/internal/logger"
)

// Credentials is a basic-auth username/password pair for the target instance.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credential value is set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// ResolveCredentials applies the credential precedence: an explicit value wins
// over the matching inbound request header, per field. Absent values stay
// empty and the request proceeds unauthenticated.
func ResolveCredentials(username, password string, headers http.Header) Credentials {
	if username == "" && headers != nil {
		username = headers.Get("username")
	}
	if password == "" && headers != nil {
		password = headers.Get("password")
	}
	return Credentials{Username: username, Password: password}
}

// NormalizeInstanceURL strips a trailing slash and prefixes https:// when the
// raw value carries no scheme. Both transformations are idempotent and
// order-independent.
func NormalizeInstanceURL(raw string) string {
	raw = strings.TrimSuffix(raw, "/")
	if !strings.HasPrefix(raw, "http") {
		raw = "https://" + raw
	}
	return raw
}

// Client issues read-only queries against the ServiceNow Table API and
// normalizes each response into a diagnostic result. It holds no session
// state; every check is a fresh authenticated GET.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// tableResponse is the Table API envelope: a top-level result array of rows
// with string-typed fields.
type tableResponse struct {
	Result []map[string]string `json:"result"`
}

// tableGet performs one authenticated GET against /api/now/table/<table> and
// decodes the result rows. A non-nil error means the request never produced a
// decodable 200 response (transport failure, bad URL, malformed body).
func (c *Client) tableGet(ctx context.Context, instance string, creds Credentials, table string, params url.Values) (int, []map[string]string, error) {
	u := fmt.Sprintf("%s/api/now/table/%s", instance, table)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if !creds.IsZero() {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	logger.Diag.Debug().
		Str("table", table).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("table query")

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}

	var decoded tableResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, decoded.Result, nil
}
