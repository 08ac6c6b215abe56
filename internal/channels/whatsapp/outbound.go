package whatsapp

import "encoding/json"

// OutboundMessage is the Cloud API envelope for a one-to-one text message.
type OutboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             OutboundText `json:"text"`
}

// OutboundText is the text part of an OutboundMessage.
type OutboundText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// NewTextMessage builds a text envelope with link previews disabled.
func NewTextMessage(recipient, text string) OutboundMessage {
	return OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text: OutboundText{
			PreviewURL: false,
			Body:       text,
		},
	}
}

// FormatOutbound serializes a text envelope for recipient.
func FormatOutbound(recipient, text string) ([]byte, error) {
	return json.Marshal(NewTextMessage(recipient, text))
}
