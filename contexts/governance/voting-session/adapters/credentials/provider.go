package credentials

import (
	"context"
	"errors"
	"strings"

	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	"plenary/contexts/governance/voting-session/ports"

	"golang.org/x/crypto/bcrypt"
)

// Provider answers credential checks against bcrypt hashes held by a member
// directory.
type Provider struct {
	Members ports.MemberDirectory
	Cost    int
}

func NewProvider(members ports.MemberDirectory) Provider {
	return Provider{Members: members, Cost: bcrypt.DefaultCost}
}

func (p Provider) Exists(ctx context.Context, identity string) (bool, error) {
	if _, err := p.Members.GetMember(ctx, strings.TrimSpace(identity)); err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p Provider) Validate(ctx context.Context, identity string, secret string) error {
	member, err := p.Members.GetMember(ctx, strings.TrimSpace(identity))
	if err != nil {
		if errors.Is(err, domainerrors.ErrMemberNotFound) {
			return domainerrors.ErrInvalidCredentials
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.SecretHash), []byte(secret)); err != nil {
		return domainerrors.ErrInvalidCredentials
	}
	return nil
}

func (p Provider) HashSecret(secret string) (string, error) {
	cost := p.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var (
	_ ports.AuthProvider = Provider{}
	_ ports.SecretHasher = Provider{}
)
