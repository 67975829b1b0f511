package transcriber

import (
	"log/slog"

	"github.com/foxseedlab/kikitori/internal/config"
	"github.com/foxseedlab/kikitori/internal/recognition"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (recognition.Transport, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewCloudSpeechTransport(CloudSpeechConfig{
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Endpoint:        c.SpeechEndpoint,
			Insecure:        c.SpeechInsecure,
		}, slog.Default()), nil
	})
}
