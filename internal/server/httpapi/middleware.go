package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/gate"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func (s *Server) requestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		TargetHeader: common.RequestIDHeaderName,
	})
}

func (s *Server) recoverer() echo.MiddlewareFunc {
	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error(c.Request().Context(), "panic recovered", "error", err, "stack", string(stack))
			return err
		},
	})
}

// requestLogger writes one line per request through the service logger.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			ctx := c.Request().Context()
			if v.Status >= http.StatusInternalServerError {
				s.logger.Error(ctx, "request", append(args, "error", fmt.Sprint(v.Error))...)
				return nil
			}
			s.logger.Info(ctx, "request", args...)
			return nil
		},
	})
}

// guard runs the trust gate for a route. On success the verified caller
// and identity are attached to the request context.
func (s *Server) guard(req gate.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			res := s.chain.Evaluate(gate.Request{
				ServiceToken: r.Header.Get(common.ServiceTokenHeaderName),
				SessionToken: gate.BearerToken(r.Header.Get(common.AuthorizationHeaderName)),
				TargetID:     c.Param("id"),
				Requirement:  req,
			})

			ctx := r.Context()
			s.logger.Debug(ctx, "trust gate", "path", c.Path(), "trail", trail(res.Trail))
			if !res.Authorized() {
				return res.Err
			}

			ctx = auth.WithCaller(ctx, res.Caller)
			if res.Identity != nil {
				ctx = auth.WithIdentity(ctx, res.Identity)
			}
			c.SetRequest(r.WithContext(ctx))
			return next(c)
		}
	}
}

func trail(ts []gate.Transition) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = fmt.Sprintf("%s:%s->%s", t.Stage, t.From, t.To)
	}
	return out
}

func identity(c echo.Context) *auth.Identity {
	return auth.IdentityFrom(c.Request().Context())
}

func caller(c echo.Context) *auth.CallerInfo {
	return auth.CallerFrom(c.Request().Context())
}

func requestContext(c echo.Context) context.Context {
	return c.Request().Context()
}
