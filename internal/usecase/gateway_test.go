package usecase

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"

	"prompt-gateway/internal/domain"
)

type stubLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []domain.Prompt
}

func (s *stubLLM) Complete(_ context.Context, p domain.Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, p)
	return s.reply, s.err
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func (s *stubLLM) last(t *testing.T) domain.Prompt {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.prompts)
	return s.prompts[len(s.prompts)-1]
}

func newTestService(t *testing.T, llm LLMClient) *Service {
	t.Helper()
	svc, err := NewService(llm, "You are a test persona.", DefaultLimits())
	require.NoError(t, err)
	return svc
}

func expectError(t *testing.T, err error, code ErrorCode, reason string) *Error {
	t.Helper()
	var ue *Error
	require.ErrorAs(t, err, &ue)
	require.Equal(t, code, ue.Code)
	require.Equal(t, reason, ue.Reason)
	return ue
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestNewService_ValidatesDependencies(t *testing.T) {
	_, err := NewService(nil, "", DefaultLimits())
	require.Error(t, err)
}

func TestNewService_AppliesDefaults(t *testing.T) {
	svc, err := NewService(&stubLLM{}, " ", Limits{MaxTokens: map[Mode]int{ModeChat: 50, ModeApp: -1}})
	require.NoError(t, err)

	limits := svc.Limits()
	require.EqualValues(t, 1_000_000, limits.MaxImageBytes)
	require.Equal(t, 500, limits.MaxCaptionChars)
	require.Equal(t, 50, limits.MaxTokens[ModeChat])
	require.Equal(t, 1200, limits.MaxTokens[ModeApp])

	require.Equal(t, DefaultPersona, svc.templates[ModeChat].System)
}

func TestConverse_HappyPath(t *testing.T) {
	llm := &stubLLM{reply: "  hi there \n"}
	svc := newTestService(t, llm)

	out, err := svc.Converse(context.Background(), ConverseInput{Message: " hello "})
	require.NoError(t, err)
	require.Equal(t, "hi there", out.Text)

	p := llm.last(t)
	require.Equal(t, "You are a test persona.", p.System)
	require.Equal(t, "hello", p.Text)
	require.Equal(t, 300, p.MaxTokens)
	require.Nil(t, p.Image)
}

func TestConverse_EmptyMessage(t *testing.T) {
	llm := &stubLLM{reply: "x"}
	svc := newTestService(t, llm)

	_, err := svc.Converse(context.Background(), ConverseInput{Message: "   "})
	ue := expectError(t, err, ErrorInvalidInput, "empty_message")
	require.Equal(t, "message is required", ue.Detail())
	require.Zero(t, llm.calls())
}

func TestConverse_UpstreamError(t *testing.T) {
	svc := newTestService(t, &stubLLM{err: errors.New("openai: Incorrect API key provided")})

	_, err := svc.Converse(context.Background(), ConverseInput{Message: "hello"})
	ue := expectError(t, err, ErrorUpstream, "upstream_error")
	require.Equal(t, "openai: Incorrect API key provided", ue.Detail())
}

func TestConverse_EmptyReply(t *testing.T) {
	svc := newTestService(t, &stubLLM{reply: " \n "})
	_, err := svc.Converse(context.Background(), ConverseInput{Message: "hello"})
	expectError(t, err, ErrorUpstream, "empty_reply")
}

func TestAnalyzeImage_HappyPath(t *testing.T) {
	llm := &stubLLM{reply: "a grey square"}
	svc := newTestService(t, llm)
	img := testPNG(t)

	out, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: img, Caption: "what is it?"})
	require.NoError(t, err)
	require.Equal(t, "a grey square", out.Text)
	require.Equal(t, 1, llm.calls())

	p := llm.last(t)
	require.Equal(t, "what is it?", p.Text)
	require.Equal(t, 400, p.MaxTokens)
	require.NotNil(t, p.Image)
	require.Equal(t, "image/png", p.Image.ContentType)
	require.Equal(t, img, p.Image.Data)
	require.True(t, strings.HasPrefix(p.Image.DataURI(), "data:image/png;base64,"))
}

func TestAnalyzeImage_TruncatesCaption(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	caption := strings.Repeat("é", 600)
	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: testPNG(t), Caption: caption})
	require.NoError(t, err)

	text := llm.last(t).Text
	require.Equal(t, 500, len([]rune(text)))
	require.True(t, strings.HasPrefix(caption, text))
}

func TestAnalyzeImage_DefaultCaption(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: testPNG(t)})
	require.NoError(t, err)
	require.Equal(t, defaultCaption, llm.last(t).Text)
}

func TestAnalyzeImage_TooLarge_NoUpstreamCall(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	for _, size := range []int{1_000_001, 2_000_000} {
		_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: make([]byte, size), Caption: "x"})
		ue := expectError(t, err, ErrorPayloadTooLarge, "image_too_large")
		require.Contains(t, ue.Detail(), "too large")
	}
	require.Zero(t, llm.calls())
}

func TestAnalyzeImage_AtCapIsNotRejectedForSize(t *testing.T) {
	svc, err := NewService(&stubLLM{reply: "ok"}, "", Limits{MaxImageBytes: int64(len(testPNG(t)))})
	require.NoError(t, err)

	_, err = svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: testPNG(t)})
	require.NoError(t, err)
}

func TestAnalyzeImage_ValidationErrors(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{})
	expectError(t, err, ErrorInvalidInput, "empty_image")

	_, err = svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: []byte("not an image")})
	ue := expectError(t, err, ErrorInvalidInput, "unsupported_image")
	require.Equal(t, unsupportedImageMessage, ue.Detail())

	require.Zero(t, llm.calls())
}

func TestAnalyzeImage_UpstreamError(t *testing.T) {
	svc := newTestService(t, &stubLLM{err: errors.New("rate limit reached")})
	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: testPNG(t)})
	ue := expectError(t, err, ErrorUpstream, "upstream_error")
	require.Equal(t, "rate limit reached", ue.Detail())
}

func TestGenerateArtifact_Website(t *testing.T) {
	llm := &stubLLM{reply: "<html></html>\n"}
	svc := newTestService(t, llm)

	out, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: "a bakery landing page", Mode: ModeWebsite})
	require.NoError(t, err)
	require.Equal(t, "<html></html>\n", out.Code)

	p := llm.last(t)
	require.Equal(t, 3000, p.MaxTokens)
	require.Empty(t, p.System)
	require.Contains(t, p.Text, "a bakery landing page")
	require.Equal(t, "a bakery landing page", strings.TrimPrefix(p.Text, websiteRules("html")))
}

func TestGenerateArtifact_WebsiteLanguage(t *testing.T) {
	llm := &stubLLM{reply: "<?php ?>"}
	svc := newTestService(t, llm)

	_, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: "contact form", Mode: ModeWebsite, Language: "php"})
	require.NoError(t, err)
	require.Equal(t, "contact form", strings.TrimPrefix(llm.last(t).Text, websiteRules("php")))
}

func TestGenerateArtifact_App(t *testing.T) {
	llm := &stubLLM{reply: "<html>todo</html>"}
	svc := newTestService(t, llm)

	out, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: "a todo list", Mode: ModeApp, Language: "ignored"})
	require.NoError(t, err)
	require.Equal(t, "<html>todo</html>", out.Code)

	p := llm.last(t)
	require.Equal(t, 1200, p.MaxTokens)
	require.Equal(t, "a todo list", strings.TrimPrefix(p.Text, appRules()))
}

func TestGenerateArtifact_InstructionContainsLiteralPrompt(t *testing.T) {
	prompts := []string{"x", "a page with {braces} and %s verbs", "多语言 prompt", "line one\nline two", "  padded prompt \n"}
	for _, mode := range []Mode{ModeWebsite, ModeApp} {
		for _, prompt := range prompts {
			llm := &stubLLM{reply: "code"}
			svc := newTestService(t, llm)
			_, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: prompt, Mode: mode})
			require.NoError(t, err)
			require.Contains(t, llm.last(t).Text, prompt)
			require.True(t, strings.HasSuffix(llm.last(t).Text, prompt))
		}
	}
}

func TestGenerateArtifact_ValidationErrors(t *testing.T) {
	llm := &stubLLM{reply: "code"}
	svc := newTestService(t, llm)

	_, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: "x", Mode: ModeChat})
	expectError(t, err, ErrorInvalidInput, "unknown_mode")

	_, err = svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: " ", Mode: ModeApp})
	expectError(t, err, ErrorInvalidInput, "empty_prompt")

	require.Zero(t, llm.calls())
}

func TestGenerateArtifact_UpstreamError(t *testing.T) {
	svc := newTestService(t, &stubLLM{err: errors.New("context deadline exceeded")})
	_, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: "x", Mode: ModeWebsite})
	ue := expectError(t, err, ErrorUpstream, "upstream_error")
	require.Equal(t, "context deadline exceeded", ue.Detail())
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "abc", truncateRunes("abcdef", 3))
	require.Equal(t, "abc", truncateRunes("abc", 10))
	require.Equal(t, "", truncateRunes("abc", 0))
	require.Equal(t, "ée", truncateRunes("éeé", 2))
}

func TestAnalyzeImage_ContentTypeFromBytes(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	var jpeg bytes.Buffer
	require.NoError(t, imaging.Encode(&jpeg, image.NewGray(image.Rect(0, 0, 2, 2)), imaging.JPEG))

	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: jpeg.Bytes(), ContentType: "image/png"})
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", llm.last(t).Image.ContentType)
	require.True(t, strings.HasPrefix(llm.last(t).Image.DataURI(), "data:image/jpeg;base64,"))

	_, err = svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: testPNG(t), ContentType: "text/plain"})
	require.NoError(t, err)
	require.Equal(t, "image/png", llm.last(t).Image.ContentType)
}

func TestAnalyzeImage_BitmapSentAsPNG(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, llm)

	var bmp bytes.Buffer
	require.NoError(t, imaging.Encode(&bmp, image.NewGray(image.Rect(0, 0, 2, 2)), imaging.BMP))

	_, err := svc.AnalyzeImage(context.Background(), AnalyzeInput{Image: bmp.Bytes(), ContentType: "image/bmp"})
	require.NoError(t, err)
	require.Equal(t, 1, llm.calls())

	sent := llm.last(t).Image
	require.Equal(t, "image/png", sent.ContentType)
	_, err = png.Decode(bytes.NewReader(sent.Data))
	require.NoError(t, err)
}

func TestGenerateArtifact_PromptEmbeddedAsGiven(t *testing.T) {
	llm := &stubLLM{reply: "code"}
	svc := newTestService(t, llm)

	prompt := "  a bakery page \n"
	_, err := svc.GenerateArtifact(context.Background(), GenerateInput{Prompt: prompt, Mode: ModeWebsite})
	require.NoError(t, err)
	require.Equal(t, websiteRules("html")+prompt, llm.last(t).Text)
}
