package queries

import (
	"context"
	"errors"
	"strings"

	"plenary/contexts/governance/voting-session/domain/entities"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"
)

type CredentialQueries struct {
	Auth    ports.AuthProvider
	Members ports.MemberDirectory
}

// Authenticate returns the member whose secret matches. Unknown identities and
// wrong secrets fail with the same auth error.
func (q CredentialQueries) Authenticate(ctx context.Context, identity string, secret string) (entities.Member, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || secret == "" {
		return entities.Member{}, domainerrors.ErrInvalidCredentials
	}
	if err := q.Auth.Validate(ctx, identity, secret); err != nil {
		return entities.Member{}, err
	}
	member, err := q.Members.GetMember(ctx, identity)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return entities.Member{}, domainerrors.ErrInvalidCredentials
		}
		return entities.Member{}, err
	}
	return member, nil
}

// MemberExists tells a client whether identity is registered, so it knows to
// ask for a secret before an external vote.
func (q CredentialQueries) MemberExists(ctx context.Context, identity string) (bool, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return false, domainerrors.ErrInvalidVoterIdentity
	}
	return q.Auth.Exists(ctx, identity)
}

func (q CredentialQueries) CurrentProfile(ctx context.Context, identity string) (entities.Profile, error) {
	member, err := q.Members.GetMember(ctx, strings.TrimSpace(identity))
	if err != nil {
		return entities.Profile{}, err
	}
	return member.Profile(), nil
}
