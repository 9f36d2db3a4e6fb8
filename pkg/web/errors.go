package web

import (
	"errors"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return notFound(c, "session_not_found", "session not found")
	case errors.Is(err, services.ErrTemplateNotFound):
		return notFound(c, "template_not_found", "template not found")
	case errors.Is(err, editor.ErrNodeNotFound):
		return notFound(c, "node_not_found", err.Error())
	case errors.Is(err, editor.ErrEdgeNotFound):
		return notFound(c, "edge_not_found", err.Error())
	case errors.Is(err, services.ErrReadOnlySession):
		return conflict(c, "read_only_session", err.Error())
	case errors.Is(err, services.ErrVersionConflict):
		return conflict(c, "version_conflict", err.Error())
	case services.IsConflictError(err):
		return conflict(c, "conflict", err.Error())
	case errors.Is(err, editor.ErrEdgeRejected):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("edge_rejected").
			WithDetail(err.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}
