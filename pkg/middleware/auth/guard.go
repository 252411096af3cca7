// Package auth implements the per-route access guard. Each route declares its
// Requirements once; Check evaluates them against a raw token in a fixed order
// so the first failing rule decides the error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shops_api/pkg/apperr"
	"github.com/Skotchmaster/shops_api/pkg/logging"
	"github.com/Skotchmaster/shops_api/pkg/revocation"
	"github.com/Skotchmaster/shops_api/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxClaims = "claims"
)

type Requirements struct {
	Token   bool
	Fresh   bool
	Admin   bool
	Refresh bool
}

var (
	Public       = Requirements{}
	Access       = Requirements{Token: true}
	FreshAccess  = Requirements{Token: true, Fresh: true}
	AdminAccess  = Requirements{Token: true, Admin: true}
	RefreshToken = Requirements{Token: true, Refresh: true}
)

type Guard struct {
	Tokens  *tokens.Issuer
	Revoked revocation.Store
}

func NewGuard(issuer *tokens.Issuer, revoked revocation.Store) *Guard {
	return &Guard{Tokens: issuer, Revoked: revoked}
}

// Check returns nil claims and nil error for an anonymous request on a route
// that does not require a token.
func (g *Guard) Check(ctx context.Context, raw string, req Requirements) (*tokens.Claims, error) {
	if raw == "" {
		if req.Token || req.Fresh || req.Admin || req.Refresh {
			return nil, apperr.ErrUnauthorized
		}
		return nil, nil
	}

	claims, err := g.Tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}

	revoked, err := g.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if revoked {
		return nil, apperr.ErrTokenRevoked
	}

	want := tokens.TypeAccess
	if req.Refresh {
		want = tokens.TypeRefresh
	}
	if claims.Type != want {
		return nil, apperr.ErrWrongTokenType
	}

	if req.Fresh && !claims.Fresh {
		return nil, apperr.ErrFreshTokenRequired
	}
	if req.Admin && !claims.IsAdmin {
		return nil, apperr.ErrForbidden
	}

	return claims, nil
}

func (g *Guard) Require(req Requirements) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "auth")

			claims, err := g.Check(ctx, ExtractToken(c, req.Refresh), req)
			if err != nil {
				if errors.Is(err, apperr.ErrStorage) {
					l.Error("revocation_lookup_failed", "error", err)
				} else {
					l.Warn("access_denied", "reason", err.Error())
				}
				return err
			}
			if claims == nil {
				return next(c)
			}

			uid, err := claims.UserID()
			if err != nil {
				return apperr.ErrInvalidToken
			}

			c.Set(CtxUserID, uid)
			c.Set(CtxClaims, claims)
			c.SetRequest(c.Request().WithContext(logging.With(ctx, "user_id", uid)))

			return next(c)
		}
	}
}

// ExtractToken reads the bearer token from the Authorization header, falling
// back to the cookie set at login.
func ExtractToken(c echo.Context, refresh bool) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	name := AccessCookie
	if refresh {
		name = RefreshCookie
	}
	if ck, err := c.Cookie(name); err == nil {
		return ck.Value
	}
	return ""
}

func UserID(c echo.Context) (uint, bool) {
	uid, ok := c.Get(CtxUserID).(uint)
	return uid, ok
}

func ClaimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(CtxClaims).(*tokens.Claims)
	return claims, ok && claims != nil
}
