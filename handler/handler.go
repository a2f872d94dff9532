package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"prompt-gateway/internal/usecase"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Handler serves API Gateway proxy events through an ordinary http.Handler,
// so the Lambda deployment exposes the same routes as the HTTP server.
type Handler struct {
	next http.Handler
}

func NewHandler(next http.Handler) (*Handler, error) {
	if next == nil {
		return nil, errors.New("handler: http handler must not be nil")
	}
	return &Handler{next: next}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toRequest(ctx, event)
	if err != nil {
		return jsonError(http.StatusBadRequest, usecase.ErrorInvalidInput, err.Error()), nil
	}

	w := newResponseWriter()
	h.next.ServeHTTP(w, req)
	return w.toResponse(), nil
}

func toRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, errors.New("request body is not valid base64")
		}
		body = decoded
	}

	u := url.URL{Path: event.Path, RawQuery: queryString(event).Encode()}
	if u.Path == "" {
		u.Path = "/"
	}

	method := event.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}
	for k, vs := range event.MultiValueHeaders {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	req.RemoteAddr = event.RequestContext.Identity.SourceIP
	return req, nil
}

func queryString(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, v := range event.QueryStringParameters {
		q.Set(k, v)
	}
	for k, vs := range event.MultiValueQueryStringParameters {
		q[k] = append([]string(nil), vs...)
	}
	return q
}

// responseWriter buffers a response for conversion into a proxy response.
type responseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseWriter() *responseWriter {
	return &responseWriter{header: http.Header{}}
}

func (w *responseWriter) Header() http.Header {
	return w.header
}

func (w *responseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(p)
}

func (w *responseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *responseWriter) toResponse() events.APIGatewayProxyResponse {
	status := w.status
	if status == 0 {
		status = http.StatusOK
	}

	headers := make(map[string]string, len(w.header))
	multi := make(map[string][]string, len(w.header))
	for k, vs := range w.header {
		if len(vs) == 0 {
			continue
		}
		headers[k] = vs[0]
		multi[k] = append([]string(nil), vs...)
	}

	resp := events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           headers,
		MultiValueHeaders: multi,
	}
	if isTextual(w.header.Get("Content-Type")) {
		resp.Body = w.body.String()
	} else {
		resp.Body = base64.StdEncoding.EncodeToString(w.body.Bytes())
		resp.IsBase64Encoded = true
	}
	return resp
}

func isTextual(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/json" ||
		strings.HasSuffix(mediaType, "+json") ||
		mediaType == "application/javascript" ||
		mediaType == "application/xml"
}

func jsonError(status int, code usecase.ErrorCode, detail string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(errorResponse{Error: string(code), Detail: detail})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
