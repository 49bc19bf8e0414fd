package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/zynthex/zynthex/pkg/persistence"
)

// problem renders an RFC 7807 document for the current request.
func problem(c fiber.Ctx, status int, problemType, detail string) error {
	doc := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(doc)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func notFound(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusNotFound, "not_found", detail)
}

func internalError(c fiber.Ctx, err error) error {
	return problem(c, fiber.StatusInternalServerError, "internal_error", err.Error())
}

// handleRepositoryError maps persistence errors to problem documents.
func handleRepositoryError(c fiber.Ctx, err error, detail string) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return notFound(c, detail)
	}

	return internalError(c, err)
}
