package whatsapp

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "102290129340398",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550783881", "phone_number_id": "106540352242922"},
        "contacts": [{"profile": {"name": "Ada"}, "wa_id": "15551234567"}],
        "messages": [{
          "from": "15551234567",
          "id": "wamid.HBgLMTU1NTEyMzQ1NjcVAgASGBQzQTRBNjU5OUFFRTAzODEwMTQ0RgA=",
          "timestamp": "1700000000",
          "text": {"body": "What are your opening hours?"},
          "type": "text"
        }]
      }
    }]
  }]
}`

const statusDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "102290129340398",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "15550783881", "phone_number_id": "106540352242922"},
        "statuses": [{"id": "wamid.x", "status": "delivered", "timestamp": "1700000001", "recipient_id": "15551234567"}]
      }
    }]
  }]
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{name: "text message", payload: textDelivery, want: true},
		{name: "status update", payload: statusDelivery, want: false},
		{name: "invalid json", payload: `{"object":`, want: false},
		{name: "not an object", payload: `[1,2]`, want: false},
		{name: "missing object", payload: `{"entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]}]}`, want: false},
		{name: "empty object marker", payload: `{"object":"","entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]}]}`, want: false},
		{name: "no entries", payload: `{"object":"w","entry":[]}`, want: false},
		{name: "no changes", payload: `{"object":"w","entry":[{"changes":[]}]}`, want: false},
		{name: "empty value", payload: `{"object":"w","entry":[{"changes":[{"value":{}}]}]}`, want: false},
		{name: "empty messages", payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[]}}]}]}`, want: false},
		{name: "empty first message", payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[{}]}}]}]}`, want: false},
		{name: "null first message", payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[null]}}]}]}`, want: false},
		{name: "minimal", payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]}]}`, want: true},
		{name: "only first entry checked", payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[{"id":"x"}]}}]},{"changes":[]}]}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate([]byte(tt.payload)))
		})
	}
}

func TestValidatePayloadDecoded(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(textDelivery), &v))
	assert.True(t, ValidatePayload(v))
	assert.False(t, ValidatePayload(nil))
	assert.False(t, ValidatePayload("whatsapp"))
}

func TestExtract(t *testing.T) {
	msg, err := Extract([]byte(textDelivery))
	require.NoError(t, err)

	assert.Equal(t, "15551234567", msg.SenderID)
	assert.Equal(t, "Ada", msg.SenderName)
	assert.Equal(t, "What are your opening hours?", msg.Text)
	assert.Equal(t, "wamid.HBgLMTU1NTEyMzQ1NjcVAgASGBQzQTRBNjU5OUFFRTAzODEwMTQ0RgA=", msg.MessageID)
	assert.Equal(t, "106540352242922", msg.PhoneNumberID)
	assert.Equal(t, "text", msg.Type)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msg.Timestamp)
}

func TestExtractMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		path    string
	}{
		{
			name:    "no contacts",
			payload: `{"object":"w","entry":[{"changes":[{"value":{"messages":[{"text":{"body":"hi"}}]}}]}]}`,
			path:    "entry[0].changes[0].value.contacts[0].wa_id",
		},
		{
			name:    "no profile",
			payload: `{"object":"w","entry":[{"changes":[{"value":{"contacts":[{"wa_id":"1"}],"messages":[{"text":{"body":"hi"}}]}}]}]}`,
			path:    "entry[0].changes[0].value.contacts[0].profile.name",
		},
		{
			name:    "no text body",
			payload: `{"object":"w","entry":[{"changes":[{"value":{"contacts":[{"wa_id":"1","profile":{"name":"A"}}],"messages":[{"text":{}}]}}]}]}`,
			path:    "entry[0].changes[0].value.messages[0].text.body",
		},
		{
			name:    "no entry",
			payload: `{"object":"w"}`,
			path:    "entry[0].changes[0].value.contacts[0].wa_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.payload))
			var extractErr *ExtractionError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, tt.path, extractErr.Path)
		})
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	_, err := Extract([]byte("{"))
	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "$", extractErr.Path)
}

func TestExtractNonText(t *testing.T) {
	payload := `{"object":"w","entry":[{"changes":[{"value":{
		"contacts":[{"wa_id":"1","profile":{"name":"A"}}],
		"messages":[{"id":"wamid.img","type":"image","image":{"id":"media-1"}}]}}]}]}`

	msg, err := Extract([]byte(payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotText))
	assert.Equal(t, "image", msg.Type)
	assert.Equal(t, "wamid.img", msg.MessageID)
}

func TestFormatOutbound(t *testing.T) {
	data, err := FormatOutbound("15551234567", "hi")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, "whatsapp", got["messaging_product"])
	assert.Equal(t, "individual", got["recipient_type"])
	assert.Equal(t, "15551234567", got["to"])
	assert.Equal(t, "text", got["type"])
	text, ok := got["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, text["preview_url"])
	assert.Equal(t, "hi", text["body"])
}
