package votingsession

import (
	"log/slog"

	"plenary/contexts/governance/voting-session/adapters/credentials"
	httpadapter "plenary/contexts/governance/voting-session/adapters/http"
	"plenary/contexts/governance/voting-session/adapters/memory"
	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/application/queries"
	"plenary/contexts/governance/voting-session/domain/services"
	"plenary/contexts/governance/voting-session/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Topics  ports.TopicRepository
	Tx      ports.Transactor
	Members ports.MemberStore
	Auth    ports.AuthProvider
	Hasher  ports.SecretHasher
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	sessionQueries := queries.SessionQueries{
		Topics:  deps.Topics,
		Members: deps.Members,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Topics: commands.TopicUseCase{
				Tx:     deps.Tx,
				Clock:  deps.Clock,
				IDGen:  deps.IDGen,
				Logger: deps.Logger,
			},
			Sessions: commands.SessionUseCase{
				Tx:     deps.Tx,
				Clock:  deps.Clock,
				IDGen:  deps.IDGen,
				Logger: deps.Logger,
			},
			Votes: commands.VoteUseCase{
				Topics:    deps.Topics,
				Tx:        deps.Tx,
				Auth:      deps.Auth,
				Members:   deps.Members,
				Validator: services.VoteValidator{},
				Clock:     deps.Clock,
				IDGen:     deps.IDGen,
				Logger:    deps.Logger,
			},
			Members: commands.MemberUseCase{
				Members: deps.Members,
				Hasher:  deps.Hasher,
				Clock:   deps.Clock,
				IDGen:   deps.IDGen,
				Logger:  deps.Logger,
			},
			Queries: sessionQueries,
			Credentials: queries.CredentialQueries{
				Auth:    deps.Auth,
				Members: deps.Members,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to a fresh memory store. A nil clock
// falls back to wall-clock time.
func NewInMemoryModule(clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	if clock == nil {
		clock = store
	}
	provider := credentials.NewProvider(store)
	module := NewModule(Dependencies{
		Topics:  store,
		Tx:      store,
		Members: store,
		Auth:    provider,
		Hasher:  provider,
		Clock:   clock,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	return module
}
