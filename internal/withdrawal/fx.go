package withdrawal

import (
	"github.com/smallbiznis/liblend/internal/withdrawal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("withdrawal.service",
	fx.Provide(service.NewService),
)
