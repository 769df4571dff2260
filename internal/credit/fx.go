package credit

import (
	"github.com/smallbiznis/outreach/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit",
	fx.Provide(service.New),
)
