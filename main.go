package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tilevar/api/contexts"
	gam "tilevar/api/middleware"
	"tilevar/api/models"
	serviceInfo "tilevar/api/models/constants/service-info"
	"tilevar/api/mvc"
	"tilevar/api/repositories/tiledb"
	"tilevar/api/services"
	engineService "tilevar/api/services/engine"
	"tilevar/api/services/maintenance"
	"tilevar/api/services/stats"
	variantsService "tilevar/api/services/variants"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n\n"+

		"\tVCF Directory Path : %s \n"+
		"\tIngestion Batch Size : %d\n"+
		"\tFile Processing Concurrency Level : %d\n\n"+

		"\tEngine Workspace Path : %s\n"+
		"\tEngine Socket Path : %s\n"+
		"\tEngine Command : %s\n"+
		"\tEngine Startup Timeout : %ds\n"+
		"\tEngine Request Timeout : %ds\n\n"+

		"\tMaintenance Enabled : %t\n\n"+

		"Running on Port : %s\n",

		cfg.Debug,
		cfg.Api.VcfPath,
		cfg.Api.IngestionBatchSize,
		cfg.Api.FileProcessingSlots,
		cfg.Engine.WorkspacePath,
		cfg.Engine.SocketPath,
		cfg.Engine.Command,
		cfg.Engine.StartupTimeoutSeconds,
		cfg.Engine.RequestTimeoutSeconds,
		cfg.Maintenance.Enabled,
		cfg.Api.Port)
	// --

	// Instantiate Server
	e := echo.New()

	// Service Connections:
	// -- storage engine RPC client
	tdbClient := tiledb.NewClient(cfg.Engine.SocketPath, time.Duration(cfg.Engine.RequestTimeoutSeconds)*time.Second)

	// Service Singletons
	es := engineService.NewEngineService(tdbClient, &cfg)
	iz := services.NewIngestionService(es, tdbClient, &cfg)
	vs := variantsService.NewVariantService(es, tdbClient, &cfg)
	ss := stats.NewStatsService(es, tdbClient, &cfg)
	maintenance.NewMaintenanceService(es, tdbClient, &cfg)

	// the engine session is torn down on every exit path :
	// normal return, server failure and termination signal
	// (Shutdown is safe to call twice)
	defer es.Shutdown()

	terminationChan := make(chan os.Signal, 1)
	signal.Notify(terminationChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-terminationChan
		fmt.Printf("[%s] - Received %s, shutting down..\n", time.Now(), sig)
		es.Shutdown()
		os.Exit(0)
	}()

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with "custom Tilevar" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.TilevarContext{
				Context:          c,
				Config:           &cfg,
				Engine:           es,
				IngestionService: iz,
				VariantService:   vs,
				StatsService:     ss,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		fmt.Printf("[%s] - Root hit!\n", time.Now())
		return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
	})

	// -- Service Info
	e.GET("/service-info", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":          serviceInfo.SERVICE_ID,
			"name":        serviceInfo.SERVICE_NAME,
			"type":        serviceInfo.SERVICE_TYPE,
			"description": serviceInfo.SERVICE_DESCRIPTION,
			"version":     serviceInfo.SERVICE_VERSION,
		})
	})

	// -- Variants
	e.GET("/variants", mvc.VariantsGet,
		// middleware
		gam.ValidateOptionalChromosomeAttribute,
		gam.ValidateCalibratedBounds)
	e.GET("/variants/overview", mvc.GetVariantsOverview)
	e.GET("/variants/allele-frequency", mvc.VariantsAlleleFrequency)

	e.GET("/variants/ingestion/run", mvc.VariantsIngest)
	e.GET("/variants/ingestion/requests", mvc.GetAllVariantIngestionRequests)

	// -- Population frequencies
	e.GET("/population/frequency", mvc.PopulationFrequencyGet)
	e.GET("/population/stats", mvc.GetPopulationStats)

	// Run
	// Shutdown is called explicitly here rather than deferred :
	// os.Exit would skip the defer
	if serverErr := e.Start(":" + cfg.Api.Port); serverErr != nil {
		fmt.Printf("[%s] - Server stopped : %v\n", time.Now(), serverErr)
		es.Shutdown()
		os.Exit(1)
	}
}
