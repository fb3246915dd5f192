package maintenance

import (
	"context"
	"fmt"
	"time"

	"tilevar/api/models"
	"tilevar/api/repositories/tiledb"
	"tilevar/api/services/engine"

	"github.com/go-co-op/gocron"
)

type (
	// MaintenanceService periodically consolidates the arrays'
	// accumulated write fragments and vacuums the consolidated
	// ones, keeping range reads fast as fragments pile up
	MaintenanceService struct {
		Initialized bool
		Config      *models.Config
		Engine      *engine.EngineService
		Client      *tiledb.Client
	}
)

func NewMaintenanceService(eng *engine.EngineService, client *tiledb.Client, cfg *models.Config) *MaintenanceService {
	ms := &MaintenanceService{
		Initialized: false,
		Config:      cfg,
		Engine:      eng,
		Client:      client,
	}

	ms.Init()

	return ms
}

func (ms *MaintenanceService) Init() {
	// initialization if necessary
	if !ms.Initialized {
		if !ms.Config.Maintenance.Enabled {
			ms.Initialized = true
			return
		}

		go func() {
			// setup cron job
			s := gocron.NewScheduler(time.UTC)

			s.Every(1).Days().At(ms.Config.Maintenance.DailyRunTimeUtc).Do(func() {
				// a cold engine is left cold : consolidation is
				// not worth a spawn on its own
				if ms.Engine.State() != engine.Ready {
					fmt.Printf("[%s] - Engine not running, skipping consolidation..\n", time.Now())
					return
				}

				fmt.Printf("[%s] - Running array consolidation..\n", time.Now())

				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				defer cancel()

				if consolidateErr := ms.Client.Consolidate(ctx, []string{"variants", "samples"}); consolidateErr != nil {
					fmt.Printf("[%s] - Consolidation failed : %v..\n", time.Now(), consolidateErr)
					return
				}

				fmt.Printf("[%s] - Consolidation complete..\n", time.Now())
			})

			// starts the scheduler in blocking mode, which blocks
			// the current execution path
			s.StartBlocking()
		}()

		ms.Initialized = true
		fmt.Println("Maintenance Service Initialized ..")
	}
}
