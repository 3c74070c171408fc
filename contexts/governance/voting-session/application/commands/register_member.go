package commands

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	application "plenary/contexts/governance/voting-session/application"
	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

const minSecretLength = 8

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

type RegisterMemberCommand struct {
	ActorID     string
	Identity    string
	DisplayName string
	Email       string
	Secret      string
	Admin       bool
}

// MemberUseCase manages the member directory that backs credential checks.
type MemberUseCase struct {
	Members ports.MemberStore
	Hasher  ports.SecretHasher
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

// RegisterMember is restricted to administrators.
func (uc MemberUseCase) RegisterMember(ctx context.Context, cmd RegisterMemberCommand) (entities.Member, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	actor, err := uc.Members.GetMember(ctx, actorID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return entities.Member{}, domainerrors.ErrForbidden
		}
		return entities.Member{}, err
	}
	if !actor.Admin {
		logger.Warn("member registration forbidden",
			"event", "voting_member_register_forbidden",
			"module", "governance/voting-session",
			"layer", "application",
			"actor_id", actorID,
		)
		return entities.Member{}, domainerrors.ErrForbidden
	}
	return uc.register(ctx, logger, cmd)
}

// SeedAdmin registers the bootstrap administrator once; later calls are no-ops.
func (uc MemberUseCase) SeedAdmin(ctx context.Context, identity string, secret string) error {
	logger := application.ResolveLogger(uc.Logger)
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil
	}
	if _, err := uc.Members.GetMember(ctx, identity); err == nil {
		return nil
	} else if !errors.Is(err, domainerrors.ErrMemberNotFound) {
		return err
	}
	_, err := uc.register(ctx, logger, RegisterMemberCommand{
		Identity:    identity,
		DisplayName: "Administrator",
		Email:       "admin@plenary.local",
		Secret:      secret,
		Admin:       true,
	})
	if errors.Is(err, domainerrors.ErrMemberExists) {
		return nil
	}
	return err
}

func (uc MemberUseCase) register(ctx context.Context, logger *slog.Logger, cmd RegisterMemberCommand) (entities.Member, error) {
	identity := strings.TrimSpace(cmd.Identity)
	email := strings.TrimSpace(cmd.Email)
	if identity == "" || strings.TrimSpace(cmd.DisplayName) == "" || !emailPattern.MatchString(email) {
		logger.Warn("member registration validation failed",
			"event", "voting_member_register_validation_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"identity", identity,
		)
		return entities.Member{}, domainerrors.ErrInvalidMemberInput
	}
	if len(cmd.Secret) < minSecretLength {
		return entities.Member{}, domainerrors.ErrWeakSecret
	}

	hash, err := uc.Hasher.HashSecret(cmd.Secret)
	if err != nil {
		return entities.Member{}, err
	}
	memberID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Member{}, err
	}
	member := entities.Member{
		MemberID:    memberID,
		Identity:    identity,
		DisplayName: strings.TrimSpace(cmd.DisplayName),
		Email:       email,
		SecretHash:  hash,
		Admin:       cmd.Admin,
		CreatedAt:   uc.now().Truncate(time.Millisecond),
	}
	if err := uc.Members.SaveMember(ctx, member); err != nil {
		logger.Warn("member registration failed",
			"event", "voting_member_register_failed",
			"module", "governance/voting-session",
			"layer", "application",
			"identity", identity,
			"error", err.Error(),
		)
		return entities.Member{}, err
	}

	logger.Info("member registered",
		"event", "voting_member_registered",
		"module", "governance/voting-session",
		"layer", "application",
		"member_id", member.MemberID,
		"identity", identity,
		"admin", member.Admin,
	)
	return member, nil
}

func (uc MemberUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
