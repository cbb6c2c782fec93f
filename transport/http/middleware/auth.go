package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"
	"slotwise/config"
	"slotwise/infras/jwt"
	"slotwise/infras/otel"
	"slotwise/permissions"
	"slotwise/shared/constant"
	"slotwise/shared/failure"
	"slotwise/shared/identity"
	"slotwise/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

type Role interface {
	RBAC(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

// Auth validates the access token and stores the acting user on the request context.
// Browsers cannot set headers on an EventSource, so the token may also come as a query parameter.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		path := routePattern(request)

		if internalCall(ctx) || (m.permission != nil && m.permission.FindPermissions(path, request.Method).Skip) {
			next.ServeHTTP(writer, request)

			return
		}

		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		claims, err := m.claims(request)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("rejected access token")
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		scope.SetAttribute("user_role", claims.Role)

		ctx = identity.WithActor(ctx, identity.Actor{
			ID:    claims.UserID,
			Email: claims.Email,
			Name:  claims.Name,
			Role:  claims.Role,
		})
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.TokenID)

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// claims prefers the Authorization header over the access_token query parameter.
func (m *authRoleImpl) claims(request *http.Request) (*jwt.Claims, error) {
	token := request.URL.Query().Get(constant.RequestParamAccessToken)

	if header := request.Header.Get(constant.RequestHeaderAuthorization); header != "" {
		extracted, err := jwt.ExtractTokenFromHeader(header)
		if err != nil {
			return nil, failure.Unauthorized("Invalid authorization header format") //nolint:wrapcheck
		}

		token = extracted
	}

	if token == "" {
		return nil, failure.Unauthorized("Missing authorization header") //nolint:wrapcheck
	}

	claims, err := m.jwtService.ValidateToken(token)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrExpiredToken):
		return nil, failure.Wrap(http.StatusUnauthorized, "Token has expired", err) //nolint:wrapcheck
	case errors.Is(err, jwt.ErrInvalidClaim):
		return nil, failure.Wrap(http.StatusUnauthorized, "Invalid token claims", err) //nolint:wrapcheck
	default:
		return nil, failure.Wrap(http.StatusUnauthorized, "Invalid token", err) //nolint:wrapcheck
	}
}

// RBAC checks the caller's role against the roles configured for the endpoint.
// Endpoints without configured roles are open to every authenticated user.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()

		if internalCall(ctx) {
			next.ServeHTTP(writer, request)

			return
		}

		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if m.permission == nil {
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		permission := m.permission.FindPermissions(routePattern(request), request.Method)
		role := identity.FromContext(ctx).Role

		if !m.permission.Skip && !permission.Skip && len(permission.Permissions) > 0 && !slices.Contains(permission.Permissions, role) {
			scope.SetAttributes(map[string]any{
				"user_role":     role,
				"allowed_roles": permission.Permissions,
				"reason":        "role_not_allowed",
			})
			scope.TraceError(failure.ForbiddenError)
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

// APIKey lets internal callers holding the shared key through without a user token.
// A key that does not match is rejected rather than treated as a user request.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		key := request.Header.Get(constant.RequestHeaderAPIKey)
		if key == "" {
			next.ServeHTTP(writer, request)

			return
		}

		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		scope.SetAttribute("http.source", "internal")

		expected := m.cfg.App.APIKey
		if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			scope.TraceError(failure.ForbiddenError)
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request.WithContext(context.WithValue(ctx, internalCallKey{}, true)))
	})
}

type internalCallKey struct{}

func internalCall(ctx context.Context) bool {
	internal, _ := ctx.Value(internalCallKey{}).(bool)

	return internal
}

// routePattern resolves the route pattern of the request, which is not known yet when
// the middleware runs in front of the router.
func routePattern(request *http.Request) string {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil || rctx.Routes == nil {
		return request.URL.Path
	}

	if pattern := rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path); pattern != "" {
		return pattern
	}

	return request.URL.Path
}
