package httpapi

import (
	"bytes"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Only the fields the webhook handler reads are constrained; Telegram sends
// plenty more and unknown fields must stay acceptable.
const webhookSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["update_id"],
  "properties": {
    "update_id": {"type": "integer"},
    "message": {
      "type": "object",
      "required": ["message_id", "chat"],
      "properties": {
        "message_id": {"type": "integer"},
        "text": {"type": "string"},
        "from": {
          "type": "object",
          "required": ["id"],
          "properties": {
            "id": {"type": "integer"},
            "username": {"type": "string"},
            "first_name": {"type": "string"}
          }
        },
        "chat": {
          "type": "object",
          "required": ["id"],
          "properties": {
            "id": {"type": "integer"}
          }
        }
      }
    }
  }
}`

func compileWebhookSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(webhookSchemaJSON)))
	if err != nil {
		return nil, fmt.Errorf("parse webhook schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("telegram-update.json", doc); err != nil {
		return nil, fmt.Errorf("add webhook schema: %w", err)
	}
	return compiler.Compile("telegram-update.json")
}

// validateWebhookPayload returns nil when body is a well-formed update.
func validateWebhookPayload(schema *jsonschema.Schema, body []byte) error {
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return schema.Validate(instance)
}
