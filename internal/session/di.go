package session

import (
	"log/slog"

	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/foxseedlab/kikitori/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Runner, error) {
		transport := do.MustInvoke[recognition.Transport](i)
		repo := do.MustInvoke[repository.Repository](i)
		return NewRunner(transport, repo, slog.Default()), nil
	})
}
