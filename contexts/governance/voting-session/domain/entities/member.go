package entities

import "time"

// Member is a registered identity with stored credentials.
type Member struct {
	MemberID    string
	Identity    string
	DisplayName string
	Email       string
	SecretHash  string
	Admin       bool
	CreatedAt   time.Time
}

// Profile is the public projection of a member used for rendering owners and voters.
type Profile struct {
	MemberID    string
	Identity    string
	DisplayName string
	Email       string
}

func (m Member) Profile() Profile {
	return Profile{
		MemberID:    m.MemberID,
		Identity:    m.Identity,
		DisplayName: m.DisplayName,
		Email:       m.Email,
	}
}
