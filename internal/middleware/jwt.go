package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lexprep/barprep-backend/internal/model"
	"github.com/lexprep/barprep-backend/internal/response"
	"github.com/lexprep/barprep-backend/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
	// ContextKeyActor is the Gin context key for the resolved exam actor.
	ContextKeyActor = "actor"
)

// RequireActor accepts both registered-user and guest tokens. Every runner
// and results route goes through this; the actor's namespace keeps user and
// guest session state apart.
func RequireActor(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		actor, err := actorFromClaims(c, authService, claims)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

// RequireUser admits registered-user tokens only. Guests hitting these
// routes get a response telling them an account is required.
func RequireUser(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		if claims.TokenType != service.TokenTypeUser {
			response.AbortFail(c, http.StatusForbidden, response.ErrAccountRequired)
			return
		}

		actor, err := actorFromClaims(c, authService, claims)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

func actorFromClaims(c *gin.Context, authService *service.AuthService, claims *service.Claims) (model.Actor, error) {
	switch claims.TokenType {
	case service.TokenTypeUser:
		if err := authService.ValidateUserSession(c.Request.Context(), claims.UserID, claims.ID); err != nil {
			return model.Actor{}, err
		}
		uid := claims.UserID
		return model.Actor{UserID: &uid, Role: claims.Role}, nil
	case service.TokenTypeGuest:
		if claims.GuestID == "" {
			return model.Actor{}, fmt.Errorf("guest token missing guest id")
		}
		return model.Actor{GuestID: claims.GuestID, Role: model.RoleGuest}, nil
	default:
		return model.Actor{}, fmt.Errorf("unknown token type %q", claims.TokenType)
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetActor retrieves the resolved actor from the Gin context. Only valid
// behind RequireActor or RequireUser.
func GetActor(c *gin.Context) model.Actor {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return model.Actor{}
	}
	actor, ok := val.(model.Actor)
	if !ok {
		return model.Actor{}
	}
	return actor
}

func extractAndValidateClaims(c *gin.Context, authService *service.AuthService) (*service.Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	// Fallback for WebSocket upgrades, which cannot send headers from browsers.
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return nil, fmt.Errorf("authorization header or token query required")
	}

	return authService.ValidateToken(tokenStr)
}
