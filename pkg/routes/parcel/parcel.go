package parcel

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/acre/internal/repositories/event"
	"github.com/Ramsey-B/acre/internal/repositories/parcel"
)

// Register registers parcel routes
func Register(g *echo.Group) {
	g.GET("/:canonicalKey", GetParcel)
	g.GET("/:canonicalKey/events", GetParcelEvents)
	g.GET("", ListParcels)
}

// GetParcel gets a parcel by canonical key
func GetParcel(c echo.Context) error {
	ctx := c.Request().Context()
	canonicalKey := c.Param("canonicalKey")

	ctx, repo, err := ectoinject.GetContext[*parcel.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	p, err := repo.GetByCanonicalKey(ctx, canonicalKey)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// GetParcelEvents lists the transactions resolved to a parcel
func GetParcelEvents(c echo.Context) error {
	ctx := c.Request().Context()
	canonicalKey := c.Param("canonicalKey")
	limit, offset := pagination(c)

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	events, err := repo.ListByParcel(ctx, canonicalKey, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, events)
}

// ListParcels lists parcels for a county
func ListParcels(c echo.Context) error {
	ctx := c.Request().Context()

	county := c.QueryParam("county")
	if county == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "county query parameter is required")
	}
	limit, offset := pagination(c)

	ctx, repo, err := ectoinject.GetContext[*parcel.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	parcels, err := repo.ListByCounty(ctx, county, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, parcels)
}

func pagination(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}
