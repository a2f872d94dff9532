package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prompt-gateway/internal/domain"
	"prompt-gateway/internal/media"
)

const DefaultPersona = "You are a helpful AI assistant."

// LLMClient performs one single-turn generation against the upstream provider.
type LLMClient interface {
	Complete(ctx context.Context, prompt domain.Prompt) (string, error)
}

// Service is the gateway. It holds no per-request state and is safe for
// concurrent use once constructed.
type Service struct {
	llm       LLMClient
	limits    Limits
	templates map[Mode]Template
}

type ConverseInput struct {
	Message string
}

type AnalyzeInput struct {
	Image       []byte
	Caption     string
	ContentType string
}

type GenerateInput struct {
	Prompt   string
	Mode     Mode
	Language string
}

type Reply struct {
	Text string
}

type Artifact struct {
	Code string
}

func NewService(llm LLMClient, persona string, limits Limits) (*Service, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	persona = strings.TrimSpace(persona)
	if persona == "" {
		persona = DefaultPersona
	}
	limits = limits.normalized()
	return &Service{
		llm:       llm,
		limits:    limits,
		templates: buildTemplates(persona, limits),
	}, nil
}

// Limits returns the effective caps after defaults were applied.
func (s *Service) Limits() Limits {
	return s.limits
}

func (s *Service) Converse(ctx context.Context, in ConverseInput) (Reply, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return Reply{}, invalid(ErrorInvalidInput, "empty_message", "message is required")
	}

	text, err := s.run(ctx, s.templates[ModeChat], message, "", nil)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

func (s *Service) AnalyzeImage(ctx context.Context, in AnalyzeInput) (Reply, error) {
	if len(in.Image) == 0 {
		return Reply{}, invalid(ErrorInvalidInput, "empty_image", "image is required")
	}
	if int64(len(in.Image)) > s.limits.MaxImageBytes {
		return Reply{}, ImageTooLarge(int64(len(in.Image)), s.limits.MaxImageBytes)
	}

	img, err := media.Inspect(in.Image, in.ContentType)
	if err != nil {
		return Reply{}, &Error{Code: ErrorInvalidInput, Reason: "unsupported_image", Message: unsupportedImageMessage, Err: err}
	}

	caption := truncateRunes(strings.TrimSpace(in.Caption), s.limits.MaxCaptionChars)
	if caption == "" {
		caption = defaultCaption
	}

	text, err := s.run(ctx, s.templates[ModeAnalyze], caption, "", &domain.Image{Data: img.Data, ContentType: img.ContentType})
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: text}, nil
}

func (s *Service) GenerateArtifact(ctx context.Context, in GenerateInput) (Artifact, error) {
	if in.Mode != ModeWebsite && in.Mode != ModeApp {
		return Artifact{}, invalid(ErrorInvalidInput, "unknown_mode", fmt.Sprintf("unsupported generation mode %q", in.Mode))
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return Artifact{}, invalid(ErrorInvalidInput, "empty_prompt", "prompt is required")
	}
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = defaultLanguage
	}

	tmpl := s.templates[in.Mode]
	raw, err := s.llm.Complete(ctx, domain.Prompt{
		System:    tmpl.System,
		Text:      tmpl.Instruction(in.Prompt, language),
		MaxTokens: tmpl.MaxTokens,
	})
	if err != nil {
		return Artifact{}, newError(ErrorUpstream, "upstream_error", err)
	}
	return Artifact{Code: raw}, nil
}

// run sends one templated prompt upstream and returns the trimmed reply.
func (s *Service) run(ctx context.Context, tmpl Template, text, language string, image *domain.Image) (string, error) {
	raw, err := s.llm.Complete(ctx, domain.Prompt{
		System:    tmpl.System,
		Text:      tmpl.Instruction(text, language),
		Image:     image,
		MaxTokens: tmpl.MaxTokens,
	})
	if err != nil {
		return "", newError(ErrorUpstream, "upstream_error", err)
	}
	reply := strings.TrimSpace(raw)
	if reply == "" {
		return "", &Error{Code: ErrorUpstream, Reason: "empty_reply", Message: "upstream returned an empty reply"}
	}
	return reply, nil
}
