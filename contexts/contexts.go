package contexts

import (
	"tilevar/api/models"
	"tilevar/api/services"
	"tilevar/api/services/engine"
	"tilevar/api/services/stats"
	variantsService "tilevar/api/services/variants"

	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need
	//  the engine session and other singletons
	TilevarContext struct {
		echo.Context
		Config           *models.Config
		Engine           *engine.EngineService
		IngestionService *services.IngestionService
		VariantService   *variantsService.VariantService
		StatsService     *stats.StatsService

		// populated by the validation middleware
		Chromosome string
		LowerBound int
		UpperBound int
	}
)
