package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestMessageJSON(t *testing.T) {
	t.Run("placeholder", func(t *testing.T) {
		data, err := Message{
			MessageID:      "m1",
			ConversationID: "c1",
			Sender:         "ThriveCoach",
			Model:          "gpt-4o",
		}.MarshalJSON()
		require.NoError(t, err)

		result := gjson.ParseBytes(data)
		assert.Equal(t, "m1", result.Get("messageId").String())
		assert.Equal(t, "c1", result.Get("conversationId").String())
		assert.Equal(t, "", result.Get("text").String())
		assert.True(t, result.Get("text").Exists())
		assert.False(t, result.Get("isCreatedByUser").Bool())
		assert.True(t, result.Get("isCreatedByUser").Exists())
		assert.False(t, result.Get("parentMessageId").Exists())
		assert.False(t, result.Get("finish_reason").Exists())
	})

	t.Run("final", func(t *testing.T) {
		msg := Message{
			MessageID:       "m1",
			ConversationID:  "c1",
			ParentMessageID: "p1",
			Text:            "Hello",
			Sender:          "ThriveCoach",
			Model:           "gpt-4o",
			FinishReason:    FinishReasonStop,
		}
		data, err := msg.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t, "stop", gjson.GetBytes(data, "finish_reason").String())
		assert.True(t, msg.Final())

		var decoded Message
		require.NoError(t, decoded.UnmarshalJSON(data))
		assert.Equal(t, msg, decoded)
	})
}

func TestTextJSON(t *testing.T) {
	data, err := Text{MessageID: "m1", Text: "Hel"}.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Hel","messageId":"m1"}`, string(data))
}

func TestErrorJSON(t *testing.T) {
	tests := []struct {
		name     string
		ev       Error
		expected string
	}{
		{
			name:     "default type without details",
			ev:       Error{Message: "upstream api error: 500 - boom"},
			expected: `{"message":"upstream api error: 500 - boom","type":"api_error"}`,
		},
		{
			name: "with details",
			ev: Error{
				Message: "boom",
				Type:    ErrorTypeAPI,
				Details: &ErrorDetails{ErrorName: "UpstreamError", ErrorMessage: "boom", Endpoint: "pinecone"},
			},
			expected: `{"message":"boom","type":"api_error","details":{"errorName":"UpstreamError","errorMessage":"boom","endpoint":"pinecone"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.ev.MarshalJSON()
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestDoneJSON(t *testing.T) {
	data, err := Done{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[DONE]"`, string(data))

	var d Done
	require.NoError(t, d.UnmarshalJSON(data))
	assert.Error(t, d.UnmarshalJSON([]byte(`"nope"`)))
}

func TestEnvelope(t *testing.T) {
	tests := []Event{
		Message{MessageID: "m1", ConversationID: "c1", Sender: "ThriveCoach", Model: "gpt-4o"},
		Text{MessageID: "m1", Text: "Hello"},
		Error{Message: "boom", Type: ErrorTypeAPI, Details: &ErrorDetails{ErrorName: "Error", ErrorMessage: "boom"}},
		Done{},
	}

	for _, ev := range tests {
		t.Run(ev.Name(), func(t *testing.T) {
			data, err := ToJSON(ev)
			require.NoError(t, err)
			assert.Equal(t, ev.Name(), gjson.GetBytes(data, "event").String())

			decoded, err := FromJSON(data)
			require.NoError(t, err)
			assert.Equal(t, ev, decoded)
		})
	}
}

func TestFromJSON_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", "invalid"},
		{"not an object", `[]`},
		{"unknown event", `{"event":"ping","data":{}}`},
		{"missing data", `{"event":"text"}`},
		{"bad done", `{"event":"done","data":"later"}`},
		{"message with scalar data", `{"event":"message","data":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
