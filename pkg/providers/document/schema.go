package document

import (
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// factsSchemas constrains what a facts document may assert. Derived and
// action-stamped fields are rejected so external systems cannot forge them.
var factsSchemas = map[string]string{
	models.WorkflowTypeAuthorization: `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"pathway":             {"type": "string"},
			"primary_nca":         {"type": "string"},
			"total_documents":     {"type": "integer", "minimum": 0},
			"ready_documents":     {"type": "integer", "minimum": 0},
			"mandatory_documents": {"type": "integer", "minimum": 0},
			"mandatory_ready":     {"type": "integer", "minimum": 0},
			"has_blockers":        {"type": "boolean"}
		}
	}`,
	models.WorkflowTypeIncident: `{
		"type": "object",
		"additionalProperties": false,
		"properties": {
			"category":      {"type": "string", "minLength": 1},
			"severity":      {"type": "string", "enum": ["", "low", "medium", "high", "critical"]},
			"reported_at":   {"type": "string", "format": "date-time"},
			"nca_reference": {"type": "string"}
		}
	}`,
}
