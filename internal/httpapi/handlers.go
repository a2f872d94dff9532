package httpapi

import (
	"context"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prompt-gateway/internal/usecase"
)

// formOverhead is the slack allowed on top of the image cap for multipart
// boundaries and text fields.
const formOverhead = 1 << 20

var imageFields = []string{"image", "file"}

// Gateway is the usecase surface the HTTP layer drives.
type Gateway interface {
	Converse(ctx context.Context, in usecase.ConverseInput) (usecase.Reply, error)
	AnalyzeImage(ctx context.Context, in usecase.AnalyzeInput) (usecase.Reply, error)
	GenerateArtifact(ctx context.Context, in usecase.GenerateInput) (usecase.Artifact, error)
	Limits() usecase.Limits
}

type Handler struct {
	gateway  Gateway
	logger   *zap.Logger
	provider string
	model    string
}

type chatRequest struct {
	Message string `json:"message"`
	Prompt  string `json:"prompt"`
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "running"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.provider,
		"model":    h.model,
	})
}

// Chat accepts either a JSON body {"message": ...} or form field prompt/message.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if isJSON(c) {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, invalidBody(err))
			return
		}
	} else {
		req.Prompt = c.PostForm("prompt")
		req.Message = c.PostForm("message")
	}
	message := req.Message
	if strings.TrimSpace(message) == "" {
		message = req.Prompt
	}

	out, err := h.gateway.Converse(c.Request.Context(), usecase.ConverseInput{Message: message})
	if h.clientGone(c) {
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": out.Text})
}

func (h *Handler) Analyze(c *gin.Context) {
	maxImage := h.gateway.Limits().MaxImageBytes
	limit := bodyLimit(maxImage)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if err := c.Request.ParseMultipartForm(limit); err != nil {
		h.respondError(c, formError(err))
		return
	}
	defer func() { _ = c.Request.MultipartForm.RemoveAll() }()

	header := uploadedImage(c.Request.MultipartForm)
	if header == nil {
		h.respondError(c, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_image", Message: "image file is required"})
		return
	}

	if header.Size > maxImage {
		h.respondError(c, usecase.ImageTooLarge(header.Size, maxImage))
		return
	}

	data, err := readUpload(header, header.Size)
	if err != nil {
		h.respondError(c, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "unreadable_image", Message: "image could not be read", Err: err})
		return
	}

	out, err := h.gateway.AnalyzeImage(c.Request.Context(), usecase.AnalyzeInput{
		Image:       data,
		Caption:     c.PostForm("text"),
		ContentType: header.Header.Get("Content-Type"),
	})
	if h.clientGone(c) {
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out.Text})
}

func (h *Handler) GenerateWebsite(c *gin.Context) {
	h.generate(c, usecase.ModeWebsite, "website_code")
}

func (h *Handler) GenerateApp(c *gin.Context) {
	h.generate(c, usecase.ModeApp, "code")
}

func (h *Handler) generate(c *gin.Context, mode usecase.Mode, field string) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, invalidBody(err))
		return
	}

	out, err := h.gateway.GenerateArtifact(c.Request.Context(), usecase.GenerateInput{
		Prompt:   req.Prompt,
		Mode:     mode,
		Language: req.Language,
	})
	if h.clientGone(c) {
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{field: out.Code})
}

// clientGone reports whether the caller disconnected while the upstream call
// was in flight. The response is abandoned in that case.
func (h *Handler) clientGone(c *gin.Context) bool {
	if !errors.Is(c.Request.Context().Err(), context.Canceled) {
		return false
	}
	h.logger.Debug("client disconnected, dropping response",
		zap.String("path", c.Request.URL.Path),
		zap.String("correlation_id", correlationID(c)),
	)
	c.Abort()
	return true
}

// bodyLimit is the multipart body bound for an image cap, saturating at MaxInt64.
func bodyLimit(maxImage int64) int64 {
	if maxImage > math.MaxInt64-formOverhead {
		return math.MaxInt64
	}
	return maxImage + formOverhead
}

func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "application/json")
}

func invalidBody(err error) error {
	return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body", Message: "request body must be valid JSON", Err: err}
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return &usecase.Error{Code: usecase.ErrorPayloadTooLarge, Reason: "body_too_large", Message: "image too large: request body exceeds limit", Err: err}
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "missing_image", Message: "image file is required", Err: err}
	}
	return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_form", Message: "multipart form could not be parsed", Err: err}
}

func uploadedImage(form *multipart.Form) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	for _, field := range imageFields {
		if files := form.File[field]; len(files) > 0 {
			return files[0]
		}
	}
	return nil
}

func readUpload(header *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, limit))
}
