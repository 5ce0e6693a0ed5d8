package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Response is the buffered result of a completed request.
type Response struct {
	StatusCode    int
	StatusMessage string
	Status        string
	Headers       map[string]string
	Body          string
	Duration      time.Duration
}

func newResponse(resp *http.Response, body string, duration time.Duration) *Response {
	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[k] = strings.Join(v, ", ")
	}
	return &Response{
		StatusCode:    resp.StatusCode,
		StatusMessage: statusMessage(resp),
		Status:        resp.Status,
		Headers:       headers,
		Body:          body,
		Duration:      duration,
	}
}

func (r *Response) BodyString() string {
	return r.Body
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal([]byte(r.Body), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	ct := r.ContentType()
	return strings.Contains(ct, "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
