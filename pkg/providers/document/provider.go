// Package document provides a file-backed context provider. Business facts
// for an instance live in a JSON facts document maintained by the surrounding
// systems; the provider validates the document against a per-type JSON schema
// and overlays it on the instance's persisted context.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
)

// Provider loads facts documents from <root>/<workflow_type>/<instance_id>.json.
// Fields stamped by transition actions (notification timestamps, armed
// deadlines) stay on the persisted context; the facts document only overrides
// the externally owned facts it names.
type Provider struct {
	root    string
	logger  *slog.Logger
	schemas map[string]*gojsonschema.Schema
}

func NewProvider(root string, logger *slog.Logger) (*Provider, error) {
	schemas := make(map[string]*gojsonschema.Schema, len(factsSchemas))

	for workflowType, raw := range factsSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid facts schema for %q: %w", workflowType, err)
		}

		schemas[workflowType] = schema
	}

	return &Provider{
		root:    root,
		logger:  logger.With("module", "document_provider"),
		schemas: schemas,
	}, nil
}

func (p *Provider) factsPath(instance *models.WorkflowInstance) string {
	return filepath.Join(p.root, instance.WorkflowType, instance.ID+".json")
}

// Load returns a fresh context snapshot: the persisted context overlaid with
// the current facts document. A missing document means the persisted facts
// are still current.
func (p *Provider) Load(ctx context.Context, instance *models.WorkflowInstance) (models.Context, error) {
	base, err := p.baseContext(instance)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.factsPath(instance))
	if err != nil {
		if os.IsNotExist(err) {
			derive(base)

			return base, nil
		}

		return nil, fmt.Errorf("failed to read facts document for %s: %w", instance.ID, err)
	}

	err = p.validate(instance.WorkflowType, data)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, base); err != nil {
		return nil, fmt.Errorf("failed to decode facts document for %s: %w", instance.ID, err)
	}

	derive(base)

	p.logger.DebugContext(ctx, "Loaded facts document",
		"instance_id", instance.ID, "workflow_type", instance.WorkflowType)

	return base, nil
}

// baseContext deep-copies the persisted context so engine callbacks never
// mutate the caller's instance through an aliased pointer.
func (p *Provider) baseContext(instance *models.WorkflowInstance) (models.Context, error) {
	if instance.Context == nil {
		return models.DecodeContext(instance.WorkflowType, []byte("{}"))
	}

	payload, err := json.Marshal(instance.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to encode persisted context for %s: %w", instance.ID, err)
	}

	return models.DecodeContext(instance.WorkflowType, payload)
}

func (p *Provider) validate(workflowType string, data []byte) error {
	schema, ok := p.schemas[workflowType]
	if !ok {
		return fmt.Errorf("no facts schema registered for workflow type %q", workflowType)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("facts document validation errored: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, resultError := range result.Errors() {
			details = append(details, resultError.String())
		}

		return fmt.Errorf("facts document invalid: %s", strings.Join(details, "; "))
	}

	return nil
}

// derive fills in the computed facts after the overlay.
func derive(wctx models.Context) {
	authorization, ok := wctx.(*models.AuthorizationContext)
	if !ok {
		return
	}

	if authorization.TotalDocuments > 0 {
		authorization.CompletenessPercentage =
			float64(authorization.ReadyDocuments) / float64(authorization.TotalDocuments) * 100
	} else {
		authorization.CompletenessPercentage = 0
	}

	authorization.AllMandatoryComplete =
		authorization.MandatoryDocuments > 0 &&
			authorization.MandatoryReady >= authorization.MandatoryDocuments
}
