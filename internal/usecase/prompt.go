package usecase

import (
	"fmt"
	"strings"
)

func buildWebsiteInstruction(prompt, language string) string {
	return websiteRules(language) + prompt
}

func buildAppInstruction(prompt string) string {
	return appRules() + prompt
}

func websiteRules(language string) string {
	return strings.Join([]string{
		"Role:",
		"You are a code generator that builds complete websites.",
		"",
		"Target Language:",
		language,
		"",
		"Rules:",
		outputRules(),
		"",
		"Request:",
		"",
	}, "\n")
}

func appRules() string {
	return strings.Join([]string{
		"Role:",
		"You are a code generator that builds small interactive web apps.",
		"",
		"Rules:",
		outputRules(),
		"4) The app must run by opening the file in a browser, with no build step or external dependencies.",
		"",
		"Request:",
		"",
	}, "\n")
}

func outputRules() string {
	return strings.Join([]string{
		"1) Produce a single file.",
		"2) Put all styling and scripting inline in that file.",
		"3) Output only code. No explanation, no commentary, no markdown fences.",
	}, "\n")
}

// truncateRunes cuts s to at most n characters without splitting a UTF-8 sequence.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

const unsupportedImageMessage = "image must be a valid jpeg, png, gif, webp, bmp or tiff file"

func imageTooLargeMessage(size, limit int64) string {
	return fmt.Sprintf("image too large: %d bytes exceeds limit of %d bytes", size, limit)
}
