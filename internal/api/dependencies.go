package api

import (
	"context"
	"os"

	"partstream/fitment-engine/internal/common"
	"partstream/fitment-engine/internal/db"
	"partstream/fitment-engine/internal/db/repositories"
	"partstream/fitment-engine/internal/logging"
	"partstream/fitment-engine/internal/metrics"
	"partstream/fitment-engine/internal/services"
)

type Repositories struct {
	Mappings   *repositories.MappingRepo
	History    *repositories.HistoryRepo
	Products   *repositories.ProductRepo
	ImportJobs *repositories.ImportJobRepo
}

type Services struct {
	Cache        common.CacheInterface
	Mapping      *services.MappingService
	Import       *services.ImportService
	ImportRunner *services.ImportRunner
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Metrics  *metrics.MetricsRegistry
}

// InitDependencies wires repositories and services against the shared GORM
// handle. baseCtx bounds background import jobs.
func InitDependencies(baseCtx context.Context, metricsReg *metrics.MetricsRegistry) (*Dependencies, error) {

	repos := &Repositories{
		Mappings:   repositories.NewMappingRepo(db.PgDB),
		History:    repositories.NewHistoryRepo(db.PgDB),
		Products:   repositories.NewProductRepo(db.PgDB),
		ImportJobs: repositories.NewImportJobRepo(db.PgDB),
	}

	var cacheSvc common.CacheInterface
	if os.Getenv("REDIS_HOST") != "" {
		redisCache, err := common.NewRedisCacheService()
		if err != nil {
			logging.Warn("redis unavailable, falling back to in-memory cache", "error", err.Error())
			cacheSvc = common.NewCacheService(300, 600)
		} else {
			cacheSvc = redisCache
		}
	} else {
		cacheSvc = common.NewCacheService(300, 600)
	}

	mappingSvc := services.NewMappingService(db.PgDB, repos.Mappings, repos.History, repos.Products)
	importSvc := services.NewImportService(db.PgDB, repos.Mappings, repos.History, repos.Products, cacheSvc, metricsReg)
	runner := services.NewImportRunner(baseCtx, importSvc, repos.ImportJobs)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Cache:        cacheSvc,
			Mapping:      mappingSvc,
			Import:       importSvc,
			ImportRunner: runner,
		},
		Metrics: metricsReg,
	}, nil
}
