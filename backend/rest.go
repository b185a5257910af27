package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RESTClient implements Querier over the backend's PostgREST-style HTTP
// API. It encodes filters, ordering, ranges and exact counts the way the
// hosted service expects and never retries on its own.
type RESTClient struct {
	baseURL string
	apiKey  string
	http    *http.Client

	// token returns the current session's access token, or "" when no
	// user is signed in (the anon key is used then).
	token func() string
}

// NewRESTClient creates a REST querier for the backend at baseURL.
// tokenSource may be nil; pass AuthClient.AccessToken to issue queries
// with the signed-in user's privileges so row-level security applies.
func NewRESTClient(baseURL, apiKey string, tokenSource func() string) *RESTClient {
	if tokenSource == nil {
		tokenSource = func() string { return "" }
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   tokenSource,
	}
}

// Query runs a table read described by spec.
func (c *RESTClient) Query(ctx context.Context, table string, spec QuerySpec) (Result, error) {
	params := url.Values{}

	sel := spec.Select
	if sel == "" {
		sel = "*"
	}
	params.Set("select", compactSelect(sel))

	for _, cond := range spec.Conds {
		params.Add(cond.Column, encodeCond(cond))
	}
	if len(spec.Or) > 0 {
		parts := make([]string, len(spec.Or))
		for i, cond := range spec.Or {
			parts[i] = cond.Column + "." + encodeCond(cond)
		}
		params.Set("or", "("+strings.Join(parts, ",")+")")
	}
	if spec.OrderBy != nil {
		dir := "asc"
		if spec.OrderBy.Descending {
			dir = "desc"
		}
		params.Set("order", spec.OrderBy.Column+"."+dir)
	}
	if spec.Limit > 0 {
		params.Set("limit", strconv.Itoa(spec.Limit))
		if spec.Offset > 0 {
			params.Set("offset", strconv.Itoa(spec.Offset))
		}
	}

	method := http.MethodGet
	if spec.Head {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1/"+table+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("backend: failed to build request: %w", err)
	}
	c.setHeaders(req)
	if spec.Count || spec.Head {
		req.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Result{}, rejectionFrom(resp)
	}

	res := Result{Count: -1}
	if spec.Count || spec.Head {
		res.Count = parseContentRange(resp.Header.Get("Content-Range"))
	}
	if !spec.Head {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result{}, fmt.Errorf("backend: failed to read response: %w", err)
		}
		res.Rows = body
	}
	return res, nil
}

// Mutate patches the matched rows and returns the updated row.
func (c *RESTClient) Mutate(ctx context.Context, table string, match map[string]any, patch map[string]any) (json.RawMessage, error) {
	params := url.Values{}
	for col, v := range match {
		params.Add(col, "eq."+formatValue(v))
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to encode patch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.baseURL+"/rest/v1/"+table+"?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	// Single-object response so callers get the row, not a one-item array.
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, rejectionFrom(resp)
	}

	row, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to read response: %w", err)
	}
	return row, nil
}

// RPC invokes a named server-side function.
func (c *RESTClient) RPC(ctx context.Context, fn string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to encode rpc args: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/rest/v1/rpc/"+fn, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: failed to build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, rejectionFrom(resp)
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to read response: %w", err)
	}
	return out, nil
}

func (c *RESTClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// encodeCond renders a condition's operator and value, e.g. "eq.42" or
// "ilike.*jus*" for substring search.
func encodeCond(cond Cond) string {
	if cond.Op == "ilike" {
		return "ilike.*" + formatValue(cond.Value) + "*"
	}
	return cond.Op + "." + formatValue(cond.Value)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// compactSelect strips the whitespace from a multi-line select so that
// embedded-relation projections stay readable at call sites.
func compactSelect(sel string) string {
	fields := strings.FieldsFunc(sel, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t'
	})
	return strings.Join(fields, "")
}

// parseContentRange extracts the total from a "0-19/45" content range.
// Returns -1 when the total is absent or unparsable.
func parseContentRange(header string) int {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return -1
	}
	total := header[idx+1:]
	if total == "*" {
		return -1
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return -1
	}
	return n
}

func rejectionFrom(resp *http.Response) error {
	rej := &RejectionError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(body) > 0 {
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &parsed) == nil {
			rej.Code = parsed.Code
			rej.Message = parsed.Message
		}
	}
	if rej.Message == "" {
		rej.Message = http.StatusText(resp.StatusCode)
	}
	return rej
}
