package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Lernhub/internal/pkg/entitlements"
	"github.com/ManuelReschke/Lernhub/internal/pkg/metrics"
	"github.com/ManuelReschke/Lernhub/internal/pkg/usercontext"
)

// AccessController answers course access checks for the frontend.
type AccessController struct {
	evaluator *entitlements.Evaluator
}

func NewAccessController(evaluator *entitlements.Evaluator) *AccessController {
	return &AccessController{evaluator: evaluator}
}

// HandleUserCourseAccess serves GET /api/v1/users/:userId/courses/:courseId/access
func (ac *AccessController) HandleUserCourseAccess(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userId"), 10, 64)
	if err != nil || userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_user_id"})
	}
	courseID := strings.TrimSpace(c.Params("courseId"))
	if courseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_course_id"})
	}

	access, err := ac.evaluator.Evaluate(c.UserContext(), usercontext.GetSubject(c), uint(userID), courseID)
	return ac.respond(c, access, err)
}

// HandleMyCourseAccess serves GET /api/v1/me/courses/:courseId/access
func (ac *AccessController) HandleMyCourseAccess(c *fiber.Ctx) error {
	courseID := strings.TrimSpace(c.Params("courseId"))
	if courseID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_course_id"})
	}

	access, err := ac.evaluator.EvaluateForSubject(c.UserContext(), usercontext.GetSubject(c), courseID)
	return ac.respond(c, access, err)
}

func (ac *AccessController) respond(c *fiber.Ctx, access entitlements.Access, err error) error {
	switch {
	case errors.Is(err, entitlements.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	case errors.Is(err, entitlements.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user_not_found"})
	case err != nil:
		log.Errorf("[Access] Evaluation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}

	grant := string(access.GrantType)
	if grant == "" {
		grant = "none"
	}
	metrics.AccessChecks.WithLabelValues(grant).Inc()
	return c.Status(fiber.StatusOK).JSON(access)
}
