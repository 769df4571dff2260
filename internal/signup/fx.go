package signup

import (
	"github.com/smallbiznis/outreach/internal/signup/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("signup",
	fx.Provide(repository.Provide),
)
