package event

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/acre/internal/repositories/event"
	"github.com/Ramsey-B/acre/pkg/kafka"
	"github.com/Ramsey-B/acre/pkg/models"
)

var validate = validator.New()

// Register registers event routes
func Register(g *echo.Group) {
	g.GET("/:eventID", GetEvent)
	g.POST("", CreateEvent)
}

// GetEvent gets a resolved transaction by event ID
func GetEvent(c echo.Context) error {
	ctx := c.Request().Context()
	eventID := c.Param("eventID")

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	e, err := repo.GetByEventID(ctx, eventID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, e)
}

// CreateEvent accepts a transaction event and queues it for the next
// reconciliation run.
func CreateEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid event: %v", err)
	}
	if req.Source == "" {
		req.Source = "api"
	}

	ctx, producer, err := ectoinject.GetContext[*kafka.Producer](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := producer.PublishEvent(ctx, &req); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to queue event")
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
