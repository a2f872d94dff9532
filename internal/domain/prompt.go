package domain

import "encoding/base64"

// Image is an uploaded binary image with its resolved MIME type.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURI encodes the image as a base64 data URI.
func (i Image) DataURI() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Prompt is a single-turn upstream generation request. It is provider-agnostic;
// each integration maps it onto its own wire format.
type Prompt struct {
	System    string
	Text      string
	Image     *Image
	MaxTokens int
}

// Messages renders the prompt as OpenAI-compatible chat messages.
func (p Prompt) Messages() []ChatMessage {
	var messages []ChatMessage
	if p.System != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: p.System})
	}
	if p.Image == nil {
		return append(messages, ChatMessage{Role: RoleUser, Content: p.Text})
	}
	return append(messages, ChatMessage{
		Role: RoleUser,
		Content: []ContentPart{
			{Type: PartText, Text: p.Text},
			{Type: PartImageURL, ImageURL: &ImageURL{URL: p.Image.DataURI()}},
		},
	})
}
