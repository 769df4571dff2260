package outreach

import (
	"github.com/smallbiznis/outreach/internal/outreach/render"
	"github.com/smallbiznis/outreach/internal/outreach/service"
	"go.uber.org/fx"
)

var Module = fx.Module("outreach",
	fx.Provide(render.New),
	fx.Provide(service.New),
)
