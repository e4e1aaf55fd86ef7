package catalog

// programSchema validates a program document before it is accepted into the
// catalog. Authoring mistakes fail loudly at load time instead of surfacing
// as wrong completion numbers later.
const programSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "name", "blocks"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "status": {"enum": ["published", "unpublished"]},
    "blocks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sequence_number", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "sequence_number": {"type": "integer", "minimum": 1},
          "name": {"type": "string"},
          "status": {"enum": ["published", "unpublished"]},
          "courses": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["id", "name"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "name": {"type": "string"},
                "status": {"enum": ["published", "unpublished"]},
                "case_study": {
                  "type": "object",
                  "required": ["id"],
                  "properties": {
                    "id": {"type": "string", "minLength": 1},
                    "name": {"type": "string"},
                    "status": {"enum": ["published", "unpublished"]}
                  }
                },
                "chapters": {
                  "type": "array",
                  "items": {
                    "type": "object",
                    "required": ["id", "name"],
                    "properties": {
                      "id": {"type": "string", "minLength": 1},
                      "name": {"type": "string"},
                      "content_type": {"enum": ["text", "video", "presentation"]},
                      "status": {"enum": ["published", "unpublished"]},
                      "quiz": {
                        "type": "object",
                        "required": ["id"],
                        "properties": {
                          "id": {"type": "string", "minLength": 1},
                          "name": {"type": "string"},
                          "status": {"enum": ["published", "unpublished"]},
                          "questions": {
                            "type": "array",
                            "items": {
                              "type": "object",
                              "required": ["id", "kind"],
                              "properties": {
                                "id": {"type": "string", "minLength": 1},
                                "kind": {"enum": ["choice_single", "choice_multiple", "true_false", "open", "attachment"]},
                                "points": {"type": "integer", "minimum": 0},
                                "correct_options": {"type": "array", "items": {"type": "string"}},
                                "status": {"enum": ["published", "unpublished"]}
                              }
                            }
                          }
                        }
                      }
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`
