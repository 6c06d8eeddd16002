// Package web provides HTTP handlers and REST API endpoints for compliance workflows.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/registry"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/services"
)

type APIHandlers struct {
	complianceService *services.Compliance
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	complianceService *services.Compliance,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		complianceService: complianceService,
		validator:         validator,
		registry:          registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.complianceService.HealthCheck(c.Context())

	registeredTypes := h.registry.WorkflowTypes()
	regOk := len(registeredTypes) > 0

	status := "unhealthy"
	message := "Caelex API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Caelex API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registeredTypes,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateInstance(c fiber.Ctx) error {
	var req CreateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.complianceService.CreateInstance(c.Context(), services.CreateInstanceRequest{
		ID:           req.ID,
		WorkflowType: req.WorkflowType,
		Version:      req.Version,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstances(c fiber.Ctx) error {
	workflowType := c.Query("workflow_type")
	if workflowType == "" {
		return badRequest(c, "workflow_type query parameter is required")
	}

	instances, err := h.complianceService.ListInstances(c.Context(), workflowType)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"instances":   instances,
		"total_count": len(instances),
	})
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.complianceService.Instance(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

// EvaluateInstance re-reads the instance's facts and advances it through any
// automatic transitions that now apply.
func (h *APIHandlers) EvaluateInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	result, err := h.complianceService.Evaluate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) FireTransition(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.complianceService.Transition(c.Context(), services.TransitionRequest{
		InstanceID: id,
		Event:      req.Event,
		Actor:      req.Actor,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetAvailableTransitions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	transitions, err := h.complianceService.AvailableTransitions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"transitions": transitions,
	})
}

func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	history, err := h.complianceService.History(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"history": history,
	})
}

// GetDeadline reports the live NCA notification deadline position of one
// incident instance.
func (h *APIHandlers) GetDeadline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	status, err := h.complianceService.IncidentDeadlineStatus(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func (h *APIHandlers) GetClassifications(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"classifications": h.complianceService.IncidentClassifications(),
	})
}

func (h *APIHandlers) GetClassification(c fiber.Ctx) error {
	category := c.Params("category")
	if category == "" {
		return badRequest(c, "Category is required")
	}

	entry, err := h.complianceService.ClassifyIncident(category)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(entry)
}
