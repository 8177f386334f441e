package dialogue

import "encoding/json"

const clientTurnSchemaName = "sales_trainer_client_turn_v1"

// Strict-схема не допускает map с произвольными ключами, поэтому
// checklist_update — массив объектов с кодом пункта внутри.
const clientTurnSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["client_message", "end_conversation", "diagnostics"],
  "properties": {
    "client_message": { "type": "string" },
    "end_conversation": { "type": "boolean" },
    "diagnostics": {
      "type": "object",
      "additionalProperties": false,
      "required": [
        "current_phase",
        "topics_addressed",
        "topics_evaded",
        "manager_tone",
        "manager_engagement",
        "misinformation_detected",
        "checklist_update"
      ],
      "properties": {
        "current_phase": { "type": "string" },
        "topics_addressed": {
          "type": "array",
          "items": { "$ref": "#/$defs/topic_code" }
        },
        "topics_evaded": {
          "type": "array",
          "items": { "$ref": "#/$defs/topic_code" }
        },
        "manager_tone": { "enum": ["polite", "neutral", "rude"] },
        "manager_engagement": { "enum": ["active", "neutral", "passive"] },
        "misinformation_detected": { "type": "boolean" },
        "checklist_update": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["code", "status", "evidence", "comment"],
            "properties": {
              "code": {
                "enum": [
                  "greeting",
                  "self_introduction",
                  "vehicle_identification",
                  "needs_questions",
                  "active_listening",
                  "benefit_presentation",
                  "financing_offer",
                  "trade_in_offer",
                  "objection_handling",
                  "next_step_proposal",
                  "date_fixation",
                  "follow_up_commitment",
                  "polite_tone"
                ]
              },
              "status": { "enum": ["YES", "PARTIAL", "NO", "NA"] },
              "evidence": { "type": "array", "items": { "type": "string" } },
              "comment": { "type": "string" }
            }
          }
        }
      }
    }
  },
  "$defs": {
    "topic_code": {
      "enum": [
        "introduction",
        "vehicle_identification",
        "needs_discovery",
        "next_step",
        "scheduling",
        "follow_up",
        "pricing",
        "trade_in",
        "objection_handling"
      ]
    }
  }
}`

var clientTurnSchema = mustParseSchema(clientTurnSchemaJSON)

func mustParseSchema(rawSchema string) map[string]any {
	var schema map[string]any
	if err := json.Unmarshal([]byte(rawSchema), &schema); err != nil {
		panic(err)
	}
	return schema
}
