package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the session token for browser clients.
const SessionCookieName = "cseasy_session"

// Locals keys populated by SessionIdentity.
const (
	LocalStudentID = "student_id"
	LocalUserRole  = "user_role"
)

// SessionIdentity resolves the optional session token from the Authorization
// bearer header or the session cookie. Missing, expired or forged tokens
// leave the request anonymous; routes that need a student enforce it with
// RequireRole.
func SessionIdentity(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := sessionToken(c)
		if tokenString == "" {
			return c.Next()
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return c.Next()
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Next()
		}

		if studentID := claimString(claims, "sub"); studentID != "" {
			c.Locals(LocalStudentID, studentID)
			if role := claimString(claims, "role"); role != "" {
				c.Locals(LocalUserRole, strings.ToLower(role))
			}
		}

		return c.Next()
	}
}

// StudentIDFromContext returns the session student id, or "" for anonymous requests.
func StudentIDFromContext(c *fiber.Ctx) string {
	if value, ok := c.Locals(LocalStudentID).(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func sessionToken(c *fiber.Ctx) string {
	const bearer = "bearer "
	if authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); authorization != "" {
		if strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return strings.TrimSpace(authorization[len(bearer):])
		}
	}
	return strings.TrimSpace(c.Cookies(SessionCookieName))
}

func claimString(claims jwt.MapClaims, key string) string {
	value, ok := claims[key]
	if !ok {
		return ""
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str)
	}
	return ""
}
