package web

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pathwayhr/pathway/internal/config"
	"github.com/pathwayhr/pathway/internal/fault"
	"github.com/pathwayhr/pathway/internal/model"
)

const actorContextKey = "pathway.actor"

// Identity resolves bearer tokens to actors. Tokens are static and come
// from configuration; the engine itself never manages sessions.
type Identity struct {
	tokens map[string]model.Actor
}

// NewIdentity builds an Identity from configured tokens.
func NewIdentity(tokens []config.TokenConfig) *Identity {
	m := make(map[string]model.Actor, len(tokens))
	for _, t := range tokens {
		m[t.Token] = model.Actor{UserID: t.UserID, Role: t.Role}
	}
	return &Identity{tokens: m}
}

// Resolve maps a raw token to an actor.
func (i *Identity) Resolve(token string) (model.Actor, error) {
	if actor, ok := i.tokens[token]; ok {
		return actor, nil
	}
	return model.Actor{}, fault.Unauthorized("invalid token")
}

// Middleware authenticates requests via the Authorization header and stores
// the actor on the request context.
func (i *Identity) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return httpError(fault.Unauthorized("missing bearer token"))
			}
			actor, err := i.Resolve(token)
			if err != nil {
				return httpError(err)
			}
			c.Set(actorContextKey, actor)
			return next(c)
		}
	}
}

// actorFrom returns the authenticated actor for the request.
func actorFrom(c echo.Context) model.Actor {
	actor, _ := c.Get(actorContextKey).(model.Actor)
	return actor
}
