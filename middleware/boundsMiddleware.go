package middleware

import (
	"net/http"
	"strconv"

	"tilevar/api/contexts"
	"tilevar/api/models/constants/chromosome"

	"github.com/labstack/echo"
)

/*
	Echo middleware to ensure the optional `start` and `end`
	HTTP query parameters form a calibrated position range
	within the engine's declared domain
*/
func ValidateCalibratedBounds(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.TilevarContext)

		var (
			lowerBound int
			upperBound int
		)

		startQP := c.QueryParam("start")
		if len(startQP) > 0 {
			parsedStart, conversionErr := strconv.Atoi(startQP)
			if conversionErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Error converting 'start' query parameter! Check your input")
			}
			if rangeErr := chromosome.CheckPosition(parsedStart); rangeErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "'start' query parameter is outside the engine's position domain!")
			}
			lowerBound = parsedStart
		}

		endQP := c.QueryParam("end")
		if len(endQP) > 0 {
			parsedEnd, conversionErr := strconv.Atoi(endQP)
			if conversionErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "Error converting 'end' query parameter! Check your input")
			}
			if rangeErr := chromosome.CheckPosition(parsedEnd); rangeErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "'end' query parameter is outside the engine's position domain!")
			}
			upperBound = parsedEnd
		}

		if lowerBound > 0 && upperBound > 0 && lowerBound > upperBound {
			return echo.NewHTTPError(http.StatusBadRequest, "'start' query parameter cannot exceed 'end'!")
		}

		gc.LowerBound = lowerBound
		gc.UpperBound = upperBound

		return next(gc)
	}
}
