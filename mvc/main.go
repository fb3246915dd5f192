package mvc

import (
	"strconv"
	"strings"

	"tilevar/api/contexts"

	"github.com/labstack/echo"
)

func RetrieveCommonElements(c echo.Context) (string, int, int, string, string, *float64, []string, int) {
	gc := c.(*contexts.TilevarContext)

	chromosome := gc.Chromosome

	lowerBound := gc.LowerBound
	upperBound := gc.UpperBound

	reference := c.QueryParam("reference")
	alternative := c.QueryParam("alternative")

	var minQuality *float64
	minQualityQP := c.QueryParam("minQual")
	if len(minQualityQP) > 0 {
		if parsedMinQuality, parseErr := strconv.ParseFloat(minQualityQP, 64); parseErr == nil {
			minQuality = &parsedMinQuality
		}
	}

	// sample allow-list (comma separated)
	var sampleIds []string
	sampleIdsQP := c.QueryParam("samples")
	if len(sampleIdsQP) > 0 {
		for _, sampleId := range strings.Split(sampleIdsQP, ",") {
			if trimmed := strings.TrimSpace(sampleId); trimmed != "" {
				sampleIds = append(sampleIds, trimmed)
			}
		}
	}

	limit := 0
	limitQP := c.QueryParam("limit")
	if len(limitQP) > 0 {
		if parsedLimit, parseErr := strconv.Atoi(limitQP); parseErr == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	return chromosome, lowerBound, upperBound, reference, alternative, minQuality, sampleIds, limit
}
