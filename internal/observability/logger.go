package observability

import (
	"sync"

	"github.com/danmuck/pydevctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var initOnce sync.Once

// InitLogger configures the runtime logger and tags it with the app name.
// Later calls return the already-installed logger.
func InitLogger(app string) zerolog.Logger {
	initOnce.Do(func() {
		logging.ConfigureRuntime()
		log.Logger = log.Logger.With().Str("app", app).Logger()
	})
	return log.Logger
}
