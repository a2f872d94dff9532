package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImage_DataURI(t *testing.T) {
	img := Image{Data: []byte("abc"), ContentType: "image/png"}
	require.Equal(t, "data:image/png;base64,YWJj", img.DataURI())
}

func TestPrompt_Messages_TextOnly(t *testing.T) {
	msgs := Prompt{System: "persona", Text: "hello"}.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, ChatMessage{Role: RoleSystem, Content: "persona"}, msgs[0])
	require.Equal(t, ChatMessage{Role: RoleUser, Content: "hello"}, msgs[1])
}

func TestPrompt_Messages_NoSystem(t *testing.T) {
	msgs := Prompt{Text: "hello"}.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, RoleUser, msgs[0].Role)
}

func TestPrompt_Messages_WithImage(t *testing.T) {
	msgs := Prompt{Text: "what is this?", Image: &Image{Data: []byte{1, 2, 3}, ContentType: "image/jpeg"}}.Messages()
	require.Len(t, msgs, 1)

	raw, err := json.Marshal(msgs[0])
	require.NoError(t, err)
	require.JSONEq(t, `{
		"role":"user",
		"content":[
			{"type":"text","text":"what is this?"},
			{"type":"image_url","image_url":{"url":"data:image/jpeg;base64,AQID"}}
		]
	}`, string(raw))
}
