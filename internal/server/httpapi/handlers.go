package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"
	"github.com/labstack/echo/v4"
)

// bind decodes the request into v. Any decoding problem is the caller's
// fault and reported as a validation failure.
func bind(c echo.Context, v any) error {
	err := c.Bind(v)
	if err == nil {
		return nil
	}
	e := &common.Error{Kind: common.KindValidation, Message: "malformed request", Err: err}
	var be *echo.BindingError
	if errors.As(err, &be) {
		e.Field = be.Field
	}
	return e
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) register(c echo.Context) error {
	var in services.RegisterInput
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := s.accounts.Register(requestContext(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (s *Server) login(c echo.Context) error {
	var in services.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.ClientIP = c.RealIP()
	res, err := s.accounts.Login(requestContext(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getSelf(c echo.Context) error {
	v, err := s.accounts.GetSelf(requestContext(c), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) updateSelf(c echo.Context) error {
	var in services.UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := s.accounts.UpdateSelf(requestContext(c), identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) deleteSelf(c echo.Context) error {
	if err := s.accounts.DeleteSelf(requestContext(c), identity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) stats(c echo.Context) error {
	st, err := s.accounts.Stats(requestContext(c), identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) list(c echo.Context) error {
	var in services.ListInput
	if err := bind(c, &in); err != nil {
		return err
	}
	res, err := s.accounts.List(requestContext(c), identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getByID(c echo.Context) error {
	v, err := s.accounts.GetByID(requestContext(c), identity(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) updateByID(c echo.Context) error {
	var in services.UpdateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	v, err := s.accounts.UpdateByID(requestContext(c), identity(c), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (s *Server) deleteByID(c echo.Context) error {
	if err := s.accounts.DeleteByID(requestContext(c), identity(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) getForService(c echo.Context) error {
	v, err := s.accounts.GetForService(requestContext(c), caller(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}
