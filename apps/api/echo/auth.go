package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/juku/core"
)

const contextTokenKey = "userToken"

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errNoClassroom  = echo.NewHTTPError(http.StatusForbidden, "no classroom assigned")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"`
	ClassroomCode string `json:"classroom_code"`
}

func (c Claims) Actor() core.Actor {
	return core.Actor{
		UID:           c.Subject,
		Email:         c.Email,
		Role:          c.Role,
		ClassroomCode: c.ClassroomCode,
	}
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of actor, valid for ttl.
func NewClaims(actor core.Actor, issuer string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   actor.UID,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:         actor.Email,
		Role:          actor.Role,
		ClassroomCode: actor.ClassroomCode,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(secretKey string, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// actorMiddleware hands the caller (and their classroom) to the core services through the request context.
func actorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		if core.CleanString(claims.ClassroomCode) == "" {
			return errNoClassroom
		}
		req := ctx.Request()
		ctx.SetRequest(req.WithContext(core.WithActor(req.Context(), claims.Actor())))
		return next(ctx)
	}
}

func contextActor(ctx echo.Context) (core.Actor, error) {
	if actor, ok := core.ActorFrom(ctx.Request().Context()); ok {
		return actor, nil
	}
	return core.Actor{}, errUnauthorized
}
