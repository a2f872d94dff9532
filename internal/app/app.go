package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"prompt-gateway/internal/config"
	"prompt-gateway/internal/domain"
	"prompt-gateway/internal/httpapi"
	"prompt-gateway/internal/integrations/gemini"
	"prompt-gateway/internal/integrations/openai"
	"prompt-gateway/internal/integrations/paramstore"
	"prompt-gateway/internal/usecase"
)

// App is the fully wired gateway shared by the HTTP and Lambda entry points.
type App struct {
	Router   *httpapi.Router
	Provider string
	Model    string

	closeFn func() error
}

// GetterFactory opens the parameter store only when a credential must be read from it.
type GetterFactory func(ctx context.Context) (paramstore.Getter, error)

func defaultGetterFactory(ctx context.Context) (paramstore.Getter, error) {
	return paramstore.NewFromEnvironment(ctx)
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// New resolves the credential and builds every component. Any failure here is
// a startup fault and the caller must not start serving.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	return build(ctx, cfg, logger, defaultGetterFactory)
}

func build(ctx context.Context, cfg *config.Config, logger *zap.Logger, getters GetterFactory) (*App, error) {
	if !cfg.DotEnvLoaded {
		logger.Debug("no .env file found, using process environment")
	}

	apiKey, err := ResolveAPIKey(ctx, cfg, getters)
	if err != nil {
		return nil, err
	}

	llm, model, closeFn, err := newLLM(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}

	svc, err := usecase.NewService(withTimeout(llm, cfg.LLM.UpstreamTimeout), cfg.LLM.Persona, limitsFrom(cfg))
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	router, err := httpapi.NewRouter(svc, logger, httpapi.Options{
		Provider:       cfg.LLM.Provider,
		Model:          model,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	logger.Info("gateway ready",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", model),
		zap.Int64("max_image_bytes", svc.Limits().MaxImageBytes),
	)
	return &App{Router: router, Provider: cfg.LLM.Provider, Model: model, closeFn: closeFn}, nil
}

func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

// ResolveAPIKey returns the provider credential from the environment, or from
// the parameter store when API_KEY_PARAM is set.
func ResolveAPIKey(ctx context.Context, cfg *config.Config, getters GetterFactory) (string, error) {
	if key := cfg.APIKey(); key != "" {
		return key, nil
	}
	if cfg.LLM.APIKeyParam == "" {
		return "", fmt.Errorf("app: no credential for provider %q: set %s or API_KEY_PARAM", cfg.LLM.Provider, keyEnvName(cfg.LLM.Provider))
	}
	if getters == nil {
		return "", errors.New("app: parameter store is not available")
	}

	getter, err := getters(ctx)
	if err != nil {
		return "", fmt.Errorf("app: open parameter store: %w", err)
	}
	key, err := paramstore.ResolveToken(ctx, getter, cfg.LLM.APIKeyParam)
	if err != nil {
		return "", fmt.Errorf("app: resolve credential: %w", err)
	}
	return key, nil
}

func keyEnvName(provider string) string {
	if provider == config.ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func newLLM(ctx context.Context, cfg *config.Config, apiKey string) (usecase.LLMClient, string, func() error, error) {
	noop := func() error { return nil }

	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		c, err := gemini.New(ctx, apiKey, cfg.LLM.Model)
		if err != nil {
			return nil, "", noop, err
		}
		return c, c.Model(), c.Close, nil
	case config.ProviderOpenAI:
		c, err := openai.NewClient(apiKey,
			openai.WithBaseURL(cfg.LLM.BaseURL),
			openai.WithModel(cfg.LLM.Model),
			openai.WithHTTPClient(&http.Client{Timeout: cfg.LLM.UpstreamTimeout}),
		)
		if err != nil {
			return nil, "", noop, err
		}
		return c, c.Model(), noop, nil
	default:
		return nil, "", noop, fmt.Errorf("app: unknown provider %q", cfg.LLM.Provider)
	}
}

func limitsFrom(cfg *config.Config) usecase.Limits {
	return usecase.Limits{
		MaxImageBytes:   cfg.Limits.MaxImageBytes,
		MaxCaptionChars: cfg.Limits.MaxCaptionChars,
		MaxTokens: map[usecase.Mode]int{
			usecase.ModeChat:    cfg.Limits.ChatMaxTokens,
			usecase.ModeAnalyze: cfg.Limits.AnalyzeMaxTokens,
			usecase.ModeWebsite: cfg.Limits.WebsiteMaxTokens,
			usecase.ModeApp:     cfg.Limits.AppMaxTokens,
		},
	}
}

// timeoutLLM bounds each upstream call independently of the request deadline.
type timeoutLLM struct {
	next    usecase.LLMClient
	timeout time.Duration
}

func withTimeout(next usecase.LLMClient, d time.Duration) usecase.LLMClient {
	if d <= 0 {
		return next
	}
	return &timeoutLLM{next: next, timeout: d}
}

func (t *timeoutLLM) Complete(ctx context.Context, prompt domain.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt)
}
