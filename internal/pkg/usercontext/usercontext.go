package usercontext

import "github.com/gofiber/fiber/v2"

// KeyIdentity is the Locals key holding the authenticated caller.
const KeyIdentity = "IDENTITY"

// Identity is the caller resolved from a bearer token.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
}

// IsAuthenticated reports whether the identity carries a subject.
func (i Identity) IsAuthenticated() bool {
	return i.Subject != ""
}

// SetIdentity stores the caller on the request.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(KeyIdentity, id)
}

// GetIdentity retrieves the caller from fiber context.
// Returns an anonymous identity if none is set.
func GetIdentity(c *fiber.Ctx) Identity {
	if id, ok := c.Locals(KeyIdentity).(Identity); ok {
		return id
	}
	return Identity{}
}

// GetSubject returns the caller's identity-provider subject, or empty string if anonymous
func GetSubject(c *fiber.Ctx) string {
	return GetIdentity(c).Subject
}
