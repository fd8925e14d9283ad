package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-attendance-api/internal/models"
	appErrors "github.com/noah-isme/hr-attendance-api/pkg/errors"
	"github.com/noah-isme/hr-attendance-api/pkg/response"
)

// RequireAbility allows the request when the caller's token grants ability or the wildcard.
// It must run after Bearer.
func RequireAbility(ability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil || principal.Token == nil {
			response.Error(c, appErrors.ErrUnauthenticated)
			c.Abort()
			return
		}

		for _, granted := range principal.Token.Abilities {
			if granted == models.AbilityAll || granted == ability {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
