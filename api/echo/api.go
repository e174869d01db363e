package echo

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/gramforge/gramcast/domain"
	apierrors "github.com/gramforge/gramcast/errors"
	"github.com/gramforge/gramcast/services"
)

// API holds the handler dependencies for the public HTTP surface.
type API struct {
	auth     *services.AuthService
	dispatch *services.DispatchService
}

func NewAPI(auth *services.AuthService, dispatch *services.DispatchService) *API {
	return &API{
		auth:     auth,
		dispatch: dispatch,
	}
}

// RegisterRoutes registers the public routes.
func (a *API) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/login", a.LoginHandler)
	e.POST("/api/send-bulk-message", a.SendBulkMessageHandler)
	e.GET("/health", a.HealthHandler)
}

// LoginHandler accepts a multipart .session upload, authenticates it and
// returns the opaque session id. 400 for a bad upload, 401 for a session
// Telegram rejects, 500 otherwise.
func (a *API) LoginHandler(c echo.Context) error {
	fh, err := c.FormFile("session")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("session file is required"))
	}

	src, err := fh.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded session file")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to read upload"))
	}
	defer src.Close()

	artifact, err := io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded session file")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to read upload"))
	}

	res, err := a.auth.Authenticate(c.Request().Context(), fh.Filename, artifact)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArtifact):
			return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Invalid .session file"))
		case errors.Is(err, domain.ErrNotAuthorized):
			return c.JSON(http.StatusUnauthorized, apierrors.NewInvalidSession("Invalid session"))
		default:
			log.Error().Err(err).Msg("Login failed")
			return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Server error"))
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"stats":     res.Stats,
		"sessionId": res.SessionID,
	})
}

// maxRecipients bounds a single batch. Sends are paced at 50ms apiece, so a
// full batch takes about 250s and must finish inside the server's 5 minute
// write timeout.
const maxRecipients = 5000

// BulkMessageRequest is the bulk-send input payload.
type BulkMessageRequest struct {
	SessionID  string  `json:"sessionId"`
	Message    string  `json:"message"`
	Recipients []int64 `json:"recipients"`
}

// SendBulkMessageHandler fans a message out to the recipient list tied to a
// previously issued session id. 400 for malformed input, 401 for an expired
// or unknown session, 500 otherwise. An empty recipient list is legal and
// reports sentCount 0.
func (a *API) SendBulkMessageHandler(c echo.Context) error {
	var req BulkMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("Invalid input"))
	}
	if req.SessionID == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("sessionId and message are required"))
	}
	if len(req.Recipients) > maxRecipients {
		return c.JSON(http.StatusBadRequest, apierrors.NewInvalidRequest("too many recipients in one batch"))
	}

	sent, err := a.dispatch.Dispatch(c.Request().Context(), req.SessionID, req.Message, req.Recipients)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusUnauthorized, apierrors.NewInvalidSession("Session expired or invalid"))
		}
		log.Error().Err(err).Str("session_id", req.SessionID).Msg("Bulk dispatch failed")
		return c.JSON(http.StatusInternalServerError, apierrors.NewServerError("Failed to send messages"))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"sentCount": sent,
	})
}

// HealthHandler is a static liveness probe.
func (a *API) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
