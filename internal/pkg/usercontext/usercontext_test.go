package usercontext

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRoundTrip(t *testing.T) {
	app := fiber.New()
	app.Get("/anon", func(c *fiber.Ctx) error {
		assert.False(t, GetIdentity(c).IsAuthenticated())
		assert.Empty(t, GetSubject(c))
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/auth", func(c *fiber.Ctx) error {
		SetIdentity(c, Identity{Subject: "user_1", Email: "a@x.com"})
		id := GetIdentity(c)
		assert.True(t, id.IsAuthenticated())
		assert.Equal(t, "user_1", GetSubject(c))
		assert.Equal(t, "a@x.com", id.Email)
		return c.SendStatus(fiber.StatusNoContent)
	})

	for _, path := range []string{"/anon", "/auth"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
}
