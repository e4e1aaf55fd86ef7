package api

// Request payload schemas, enforced before any JSON decoding so malformed
// bodies fail with a field-level message instead of a decode error.

const progressSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["block_id"],
  "additionalProperties": false,
  "properties": {
    "block_id":      {"type": "string", "minLength": 1},
    "chapter_id":    {"type": "string"},
    "minutes_delta": {"type": "integer", "minimum": 0},
    "kind":          {"type": "string", "enum": ["view", "complete"]},
    "at":            {"type": "string", "format": "date-time"}
  }
}`

const attemptSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["answers"],
  "additionalProperties": false,
  "properties": {
    "answers": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "selected": {"type": "array", "items": {"type": "string"}},
          "text":     {"type": "string"}
        }
      }
    },
    "started_at":  {"type": "string", "format": "date-time"},
    "finished_at": {"type": "string", "format": "date-time"}
  }
}`

const submissionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "answers":     {"type": "string"},
    "attachments": {"type": "array", "items": {"type": "string", "minLength": 1}}
  }
}`
