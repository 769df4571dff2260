package forecast

import (
	"github.com/smallbiznis/outreach/internal/forecast/service"
	"go.uber.org/fx"
)

var Module = fx.Module("forecast",
	fx.Provide(service.New),
)
