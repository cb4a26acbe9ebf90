package bootstrap

import (
	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/logging"
)

// InitLogger builds the process-wide structured logger from cfg.App.LogLevel.
func InitLogger(cfg *Config) (domain.Logger, error) {
	return logging.NewZapLogger(cfg.App.LogLevel)
}
