package http

import (
	"errors"
	"net/http"
	"strings"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorContextKey = "actor"

// ActorClaims identify the caller. The subject is the user id and Role the
// side the user acts on: BUYER, SELLER or SYSTEM.
type ActorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing bearer token")

// BearerAuth authenticates requests under basePath with an HS256 token and
// stores the actor in the echo context.
func BearerAuth(secret []byte, basePath string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(c.Request().URL.Path, basePath+"/") {
				return next(c)
			}

			actor, err := parseActor(parser, secret, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, Error{Code: "UNAUTHENTICATED", Message: err.Error()})
			}
			c.Set(actorContextKey, actor)
			return next(c)
		}
	}
}

func parseActor(parser *jwt.Parser, secret []byte, header string) (order.Actor, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return order.Actor{}, errMissingToken
	}

	var claims ActorClaims
	_, err := parser.ParseWithClaims(header[len(prefix):], &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		return order.Actor{}, err
	}

	id, err := kernel.UUIDFromString(claims.Subject)
	if err != nil {
		return order.Actor{}, err
	}
	return order.NewActor(id, order.Role(claims.Role))
}

// IssueToken signs a token for actor. Used by tests and operator tooling.
func IssueToken(secret []byte, actor order.Actor, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = actor.ID.String()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ActorClaims{Role: actor.Role.String(), RegisteredClaims: claims})
	return token.SignedString(secret)
}

func actorFrom(c echo.Context) (order.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(order.Actor)
	return actor, ok
}
