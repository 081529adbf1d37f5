package custcon

import (
	"log"
	"time"

	"github.com/CE-Thesis-2023/aqara-ltd/internal/logger"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// New builds the worker pool that runs blocking device work: session
// opens, provisioning, property dumps and event dispatch. Submit blocks
// when every worker is busy.
func New(size int) *ants.Pool {
	pool, err := ants.NewPool(
		size,
		ants.WithPreAlloc(true),
		ants.WithNonblocking(false),
		ants.WithExpiryDuration(time.Minute),
		ants.WithPanicHandler(func(p interface{}) {
			logger.SError("worker panicked", zap.Any("panic", p))
		}),
		ants.WithLogger(logger.NewZapToAntsLogger(zap.L())),
	)
	if err != nil {
		log.Fatalf("pool.New: err = %s", err)
	}
	return pool
}
