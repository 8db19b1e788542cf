package identity

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/deptcare/deptcare/internal/platform/auth"
	"github.com/deptcare/deptcare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterLoginRoute mounts the unauthenticated login endpoint.
func (h *Handler) RegisterLoginRoute(g *echo.Group) {
	g.POST("/auth/login", h.Login)
}

// RegisterUserRoutes mounts account administration, admin only.
func (h *Handler) RegisterUserRoutes(g *echo.Group) {
	g.POST("", h.CreateUser, auth.RequireRole("admin"))
	g.GET("", h.ListUsers, auth.RequireRole("admin"))
	g.DELETE("/:id", h.DeleteUser, auth.RequireRole("admin"))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	session, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return identityHTTPError(err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) CreateUser(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	u, err := h.svc.CreateUser(c.Request().Context(), editor, in)
	if err != nil {
		return identityHTTPError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	page := pagination.FromContext(c)

	users, total, err := h.svc.ListUsers(c.Request().Context(), page.Limit, page.Offset)
	if err != nil {
		return identityHTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, page.Limit, page.Offset))
}

func (h *Handler) DeleteUser(c echo.Context) error {
	editor, err := editorID(c)
	if err != nil {
		return err
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	if err := h.svc.DeleteUser(c.Request().Context(), editor, id); err != nil {
		return identityHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func editorID(c echo.Context) (int64, error) {
	uid := auth.UserIDFromContext(c.Request().Context())
	id, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "no user identity")
	}
	return id, nil
}

func identityHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrBadCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, ErrBadCredentials.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	case errors.Is(err, ErrDuplicateUsername):
		return echo.NewHTTPError(http.StatusConflict, ErrDuplicateUsername.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
