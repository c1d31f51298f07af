package worker

import (
	"sheetcheck/internal/config"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redis *redis.Client, cfg *config.Config) {
	validationHandler := NewValidationTaskHandler(db, redis, cfg)

	mux.HandleFunc(TypeValidationRun, validationHandler.Handle)
}
