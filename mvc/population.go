package mvc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tilevar/api/contexts"
	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/dtos"

	"github.com/labstack/echo"
)

func PopulationFrequencyGet(c echo.Context) error {
	fmt.Printf("[%s] - PopulationFrequencyGet hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)

	chromQP := c.QueryParam("chromosome")
	refQP := c.QueryParam("reference")
	altQP := c.QueryParam("alternative")
	posQP := c.QueryParam("position")

	if chromQP == "" || refQP == "" || altQP == "" || posQP == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing one of 'chromosome', 'position', 'reference', 'alternative' query parameters!")
	}

	pos, posErr := strconv.Atoi(posQP)
	if posErr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Error converting 'position' query parameter! Check your input")
	}

	frequencies, lookupErr := gc.VariantService.PopulationFrequency(c.Request().Context(), chromQP, pos, refQP, altQP)
	if lookupErr != nil {
		if errors.Is(lookupErr, chromosome.ErrInvalidChromosome) || errors.Is(lookupErr, chromosome.ErrInvalidRange) {
			return echo.NewHTTPError(http.StatusBadRequest, lookupErr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, lookupErr.Error())
	}

	return c.JSON(http.StatusOK, dtos.PopulationFrequencyResponse{
		Variants: frequencies,
	})
}

func GetPopulationStats(c echo.Context) error {
	fmt.Printf("[%s] - GetPopulationStats hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)

	stats, statsErr := gc.VariantService.PopulationStats(c.Request().Context())
	if statsErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, statsErr.Error())
	}

	return c.JSON(http.StatusOK, dtos.PopulationStatsResponse{
		TotalVariants:  stats.TotalVariants,
		CommonVariants: stats.CommonVariants,
		RareVariants:   stats.RareVariants,
		ArrayAvailable: stats.ArrayAvailable,
	})
}
