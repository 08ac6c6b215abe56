package whatsapp

import (
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	messageEventOnce   sync.Once
	messageEventSchema *jsonschema.Schema
	messageEventErr    error
)

func compiledMessageEventSchema() (*jsonschema.Schema, error) {
	messageEventOnce.Do(func() {
		messageEventSchema, messageEventErr = jsonschema.CompileString("whatsapp_message_event", messageEventSchemaJSON)
	})
	return messageEventSchema, messageEventErr
}

// Validate reports whether raw is a webhook delivery carrying at least one
// message record. Malformed JSON, status-only updates and unrelated events
// all yield false.
func Validate(raw []byte) bool {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	return ValidatePayload(payload)
}

// ValidatePayload is Validate for an already decoded JSON value.
func ValidatePayload(payload any) bool {
	schema, err := compiledMessageEventSchema()
	if err != nil {
		return false
	}
	return schema.Validate(payload) == nil
}

// Only the first entry, change and message are constrained; the rest of the
// delivery is free-form.
const messageEventSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["object", "entry"],
  "properties": {
    "object": { "type": "string", "minLength": 1 },
    "entry": {
      "type": "array",
      "minItems": 1,
      "prefixItems": [
        {
          "type": "object",
          "required": ["changes"],
          "properties": {
            "changes": {
              "type": "array",
              "minItems": 1,
              "prefixItems": [
                {
                  "type": "object",
                  "required": ["value"],
                  "properties": {
                    "value": {
                      "type": "object",
                      "minProperties": 1,
                      "required": ["messages"],
                      "properties": {
                        "messages": {
                          "type": "array",
                          "minItems": 1,
                          "prefixItems": [
                            { "type": "object", "minProperties": 1 }
                          ]
                        }
                      }
                    }
                  }
                }
              ]
            }
          }
        }
      ]
    }
  }
}`
