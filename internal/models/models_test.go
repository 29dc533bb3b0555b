package models

import (
	"encoding/json"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"/hello":                 "Hello",
		"/menu_main":             "Menu main",
		"/GREET_User":            "Greet user",
		"/exactly_fourteen":      "Exactly fou...",
		"/twelve_chars":          "Twelve chars",
		"/fourteen_chars":        "Fourteen chars",
		"":                       "",
		"/a_very_long_menu_name": "A very long...",
	}
	for token, want := range cases {
		assert.Equal(t, want, DisplayName(token), token)
	}
}

func TestPayloadValid(t *testing.T) {
	assert.True(t, TextPayload("hi").Valid())
	assert.False(t, TextPayload("  \n").Valid())
	assert.False(t, Payload{}.Valid())
	assert.False(t, Payload{ReplyMarkup: &tgbotapi.InlineKeyboardMarkup{}}.Valid())

	markup := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("A", "/a"),
	))
	assert.True(t, Payload{ReplyMarkup: &markup}.Valid())
}

func TestNewInteraction(t *testing.T) {
	in, err := NewInteraction(Incoming, 7, TypeText, map[string]string{"text": "hi"})
	require.NoError(t, err)
	in.WithUpdateID(42)

	assert.Equal(t, Incoming, in.Direction)
	assert.JSONEq(t, `{"text":"hi"}`, string(in.Content))
	require.NotNil(t, in.UpdateID)
	assert.Equal(t, 42, *in.UpdateID)
	assert.False(t, in.Timestamp.IsZero())

	_, err = NewInteraction(Outgoing, 7, TypeMessage, func() {})
	assert.Error(t, err)
}

func TestCurrentPromptJSON(t *testing.T) {
	raw, err := json.Marshal(CurrentPrompt{Action: ActionAsk, Command: "/greet", Arguments: []string{"Alice"}, Index: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"ask","command":"/greet","arguments":["Alice"],"current_prompt_index":1}`, string(raw))
}
