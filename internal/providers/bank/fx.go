package bank

import (
	"github.com/smallbiznis/liblend/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.bank",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	return NewClient(cfg.Bank.Endpoint, cfg.Bank.APIKey, cfg.Bank.Timeout)
}
