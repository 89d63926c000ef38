package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"internlink/internal/config"
)

// Failure classifies why a Result is not OK.
type Failure string

const (
	FailureNone      Failure = ""
	FailureNetwork   Failure = "network"
	FailureServer    Failure = "server"
	FailureMalformed Failure = "malformed_response"
)

// Result is the only thing a gateway call ever produces. Network errors,
// non-2xx statuses and unparsable bodies all surface here; nothing is raised
// past this boundary.
type Result struct {
	OK      bool
	Status  int
	Body    map[string]any
	RawBody string
	Failure Failure
}

// Msg extracts a human-readable diagnostic from a failed result: the server's
// msg/error field when the body parsed, the raw text when it did not.
func (r Result) Msg() string {
	for _, k := range []string{"msg", "error", "message"} {
		if v, ok := r.Body[k].(string); ok && v != "" {
			return v
		}
	}
	if raw := strings.TrimSpace(r.RawBody); raw != "" {
		return raw
	}
	if r.Status > 0 {
		return fmt.Sprintf("status %d", r.Status)
	}
	return "request failed"
}

// List returns the named array member of the body, tolerating its absence.
func (r Result) List(key string) []map[string]any {
	raw, _ := r.Body[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Object returns the named object member of the body, or the body itself when
// the member is absent (some endpoints return the record unwrapped).
func (r Result) Object(key string) map[string]any {
	if m, ok := r.Body[key].(map[string]any); ok {
		return m
	}
	return r.Body
}

func (r Result) Str(key string) string {
	v, _ := r.Body[key].(string)
	return v
}

// Client is the remote data gateway: one method per (resource, verb) pair,
// no state beyond the HTTP client itself.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.HTTPTimeout()},
	}
}

// ResolveFileURL resolves a possibly-relative file URL (the backend returns
// `/uploads/...` paths) against the backend origin.
func (c *Client) ResolveFileURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") || strings.HasPrefix(raw, "data:") {
		return raw
	}
	if strings.HasPrefix(raw, "/") {
		return c.baseURL + raw
	}
	return c.baseURL + "/" + raw
}

// --- users ---

func (c *Client) Login(ctx context.Context, email, password string, userType string) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/login", map[string]any{
		"email": email, "password": password, "userType": userType,
	})
}

func (c *Client) Signup(ctx context.Context, payload map[string]any) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/users", payload)
}

func (c *Client) ListUsers(ctx context.Context, q string) Result {
	vals := url.Values{}
	if q != "" {
		vals.Set("q", q)
	}
	return c.get(ctx, "/api/users", vals)
}

func (c *Client) UpdateUserByEmail(ctx context.Context, payload map[string]any) Result {
	return c.sendJSON(ctx, http.MethodPut, "/api/users/by-email", payload)
}

func (c *Client) SuspendUser(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/users/"+url.PathEscape(id)+"/suspend", nil)
}

func (c *Client) ActivateUser(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/users/"+url.PathEscape(id)+"/activate", nil)
}

func (c *Client) DeleteUser(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), nil)
}

// --- internships ---

func (c *Client) ListInternships(ctx context.Context, q, company string) Result {
	vals := url.Values{}
	if q != "" {
		vals.Set("q", q)
	}
	if company != "" {
		vals.Set("company", company)
	}
	return c.get(ctx, "/api/internships", vals)
}

func (c *Client) CreateInternship(ctx context.Context, payload map[string]any) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/internships", payload)
}

func (c *Client) UpdateInternship(ctx context.Context, id string, payload map[string]any) Result {
	return c.sendJSON(ctx, http.MethodPut, "/api/internships/"+url.PathEscape(id), payload)
}

func (c *Client) DeleteInternship(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodDelete, "/api/internships/"+url.PathEscape(id), nil)
}

func (c *Client) ApproveInternship(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/internships/"+url.PathEscape(id)+"/approve", nil)
}

func (c *Client) RejectInternship(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/internships/"+url.PathEscape(id)+"/reject", nil)
}

// --- applications ---

// ApplicationFilter narrows a ListApplications call; zero values are omitted.
type ApplicationFilter struct {
	StudentEmail string
	Company      string
	InternshipID string
}

func (c *Client) ListApplications(ctx context.Context, f ApplicationFilter) Result {
	vals := url.Values{}
	if f.StudentEmail != "" {
		vals.Set("studentEmail", f.StudentEmail)
	}
	if f.Company != "" {
		vals.Set("company", f.Company)
	}
	if f.InternshipID != "" {
		vals.Set("internshipId", f.InternshipID)
	}
	return c.get(ctx, "/api/applications", vals)
}

func (c *Client) GetApplication(ctx context.Context, id string) Result {
	return c.get(ctx, "/api/applications/"+url.PathEscape(id), nil)
}

func (c *Client) CreateApplication(ctx context.Context, payload map[string]any) Result {
	return c.sendJSON(ctx, http.MethodPost, "/api/applications", payload)
}

func (c *Client) UpdateApplicationStatus(ctx context.Context, id, status string) Result {
	return c.sendJSON(ctx, http.MethodPut, "/api/applications/"+url.PathEscape(id), map[string]any{"status": status})
}

func (c *Client) DeleteApplication(ctx context.Context, id string) Result {
	return c.sendJSON(ctx, http.MethodDelete, "/api/applications/"+url.PathEscape(id), nil)
}

// --- resumes ---

func (c *Client) ResumeByEmail(ctx context.Context, email string) Result {
	vals := url.Values{}
	vals.Set("email", email)
	return c.get(ctx, "/api/resume", vals)
}

func (c *Client) UploadResume(ctx context.Context, email, filename string, file io.Reader) Result {
	return c.sendMultipart(ctx, "/api/upload_resume", map[string]string{"email": email}, "resume", filename, file)
}

func (c *Client) DeleteResume(ctx context.Context, email string) Result {
	return c.sendJSON(ctx, http.MethodDelete, "/api/upload_resume", map[string]any{"email": email})
}

// --- admin ---

func (c *Client) Analytics(ctx context.Context) Result {
	return c.get(ctx, "/api/admin/analytics", nil)
}

func (c *Client) ListVerifications(ctx context.Context) Result {
	return c.get(ctx, "/api/admin/verifications", nil)
}

// ResolveVerification performs the admin approve or reject action.
func (c *Client) ResolveVerification(ctx context.Context, companyID, action string) Result {
	return c.sendJSON(ctx, http.MethodPost,
		"/api/admin/verifications/"+url.PathEscape(companyID)+"/"+url.PathEscape(action), nil)
}

// --- company verification ---

func (c *Client) CompanyByEmail(ctx context.Context, email string) Result {
	vals := url.Values{}
	vals.Set("email", email)
	return c.get(ctx, "/api/companies/by-email", vals)
}

// RequestVerification submits a verification request. When document is nil
// the request goes as JSON with the LinkedIn link only; otherwise it goes as
// multipart with the document attached.
func (c *Client) RequestVerification(ctx context.Context, email, linkedin, filename string, document io.Reader) Result {
	if document == nil {
		return c.sendJSON(ctx, http.MethodPost, "/api/company/verify", map[string]any{
			"email": email, "linkedin": linkedin,
		})
	}
	return c.sendMultipart(ctx, "/api/company/verify",
		map[string]string{"email": email, "linkedin": linkedin}, "document", filename, document)
}

func (c *Client) CompanyOverview(ctx context.Context, company string) Result {
	vals := url.Values{}
	vals.Set("company", company)
	return c.get(ctx, "/api/company/overview", vals)
}

// --- transport ---

func (c *Client) get(ctx context.Context, path string, vals url.Values) Result {
	u := c.baseURL + path
	if len(vals) > 0 {
		u += "?" + vals.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	return c.do(req)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) Result {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Result{Failure: FailureNetwork, RawBody: err.Error()}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *Client) sendMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file io.Reader) Result {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return Result{Failure: FailureNetwork, RawBody: err.Error()}
		}
	}
	part, err := mw.CreateFormFile(fileField, filename)
	if err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	if _, err := io.Copy(part, file); err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	if err := mw.Close(); err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) Result {
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Failure: FailureNetwork, RawBody: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{Failure: FailureNetwork, Status: resp.StatusCode, RawBody: err.Error()}
	}

	body := map[string]any{}
	parseErr := error(nil)
	if len(bytes.TrimSpace(raw)) > 0 {
		parseErr = json.Unmarshal(raw, &body)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	switch {
	case ok && parseErr == nil:
		return Result{OK: true, Status: resp.StatusCode, Body: body}
	case ok:
		// 2xx with an unparsable body: surface the raw text for diagnostics.
		return Result{Status: resp.StatusCode, RawBody: string(raw), Failure: FailureMalformed}
	default:
		res := Result{Status: resp.StatusCode, RawBody: string(raw), Failure: FailureServer}
		if parseErr == nil {
			res.Body = body
		}
		return res
	}
}
