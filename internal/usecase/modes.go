package usecase

// Mode names one generation template the gateway can run.
type Mode string

const (
	ModeChat    Mode = "chat"
	ModeAnalyze Mode = "analyze"
	ModeWebsite Mode = "website"
	ModeApp     Mode = "app"
)

const (
	defaultMaxImageBytes   = 1_000_000
	defaultMaxCaptionChars = 500
	defaultLanguage        = "html"
	defaultCaption         = "Describe this image."
)

var defaultMaxTokens = map[Mode]int{
	ModeChat:    300,
	ModeAnalyze: 400,
	ModeWebsite: 3000,
	ModeApp:     1200,
}

// Limits holds the fixed caps applied before and during upstream calls.
type Limits struct {
	MaxImageBytes   int64
	MaxCaptionChars int
	MaxTokens       map[Mode]int
}

func DefaultLimits() Limits {
	tokens := make(map[Mode]int, len(defaultMaxTokens))
	for m, n := range defaultMaxTokens {
		tokens[m] = n
	}
	return Limits{
		MaxImageBytes:   defaultMaxImageBytes,
		MaxCaptionChars: defaultMaxCaptionChars,
		MaxTokens:       tokens,
	}
}

// normalized fills unset or invalid fields with defaults.
func (l Limits) normalized() Limits {
	out := DefaultLimits()
	if l.MaxImageBytes > 0 {
		out.MaxImageBytes = l.MaxImageBytes
	}
	if l.MaxCaptionChars > 0 {
		out.MaxCaptionChars = l.MaxCaptionChars
	}
	for m, n := range l.MaxTokens {
		if _, ok := out.MaxTokens[m]; ok && n > 0 {
			out.MaxTokens[m] = n
		}
	}
	return out
}

// Template describes how one mode turns user input into an upstream prompt.
type Template struct {
	Mode      Mode
	System    string
	MaxTokens int
	build     func(text, language string) string
}

func (t Template) Instruction(text, language string) string {
	return t.build(text, language)
}

func buildTemplates(persona string, limits Limits) map[Mode]Template {
	return map[Mode]Template{
		ModeChat: {
			Mode:      ModeChat,
			System:    persona,
			MaxTokens: limits.MaxTokens[ModeChat],
			build:     func(text, _ string) string { return text },
		},
		ModeAnalyze: {
			Mode:      ModeAnalyze,
			System:    persona,
			MaxTokens: limits.MaxTokens[ModeAnalyze],
			build:     func(text, _ string) string { return text },
		},
		ModeWebsite: {
			Mode:      ModeWebsite,
			MaxTokens: limits.MaxTokens[ModeWebsite],
			build:     buildWebsiteInstruction,
		},
		ModeApp: {
			Mode:      ModeApp,
			MaxTokens: limits.MaxTokens[ModeApp],
			build:     func(text, _ string) string { return buildAppInstruction(text) },
		},
	}
}
