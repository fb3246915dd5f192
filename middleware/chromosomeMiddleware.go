package middleware

import (
	"net/http"

	"tilevar/api/contexts"
	"tilevar/api/models/constants/chromosome"

	"github.com/labstack/echo"
)

/*
	Echo middleware to ensure that, if a `chromosome` HTTP query
	parameter was provided, it resolves to a valid engine
	coordinate before any RPC is issued
*/
func ValidateOptionalChromosomeAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.TilevarContext)

		chromQP := c.QueryParam("chromosome")
		if len(chromQP) == 0 {
			// no chromosome attribute : the query spans the
			// full chromosome domain
			return next(c)
		}

		if _, coordErr := chromosome.ToCoordinate(chromQP); coordErr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid 'chromosome' query parameter! Check your input")
		}

		gc.Chromosome = chromQP

		return next(gc)
	}
}
