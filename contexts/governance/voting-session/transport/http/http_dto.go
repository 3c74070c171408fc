package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type IssueTokenRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RegisterMemberRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Secret      string `json:"secret"`
	Admin       bool   `json:"admin"`
}

type MemberResponse struct {
	MemberID    string `json:"member_id"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Admin       bool   `json:"admin"`
}

type MemberExistsResponse struct {
	Identity string `json:"identity"`
	Exists   bool   `json:"exists"`
}

type ProfileResponse struct {
	MemberID    string `json:"member_id"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Admin       bool   `json:"admin"`
}

type CreateTopicRequest struct {
	Subject  string `json:"subject"`
	Category string `json:"category"`
}

type TopicResponse struct {
	TopicID   string    `json:"topic_id"`
	Subject   string    `json:"subject"`
	Category  string    `json:"category"`
	OwnerID   string    `json:"owner_id"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TopicListResponse struct {
	Items []TopicResponse `json:"items"`
}

type OpenSessionRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

type VoteResponse struct {
	VoterIdentity string    `json:"voter_identity"`
	Polarity      string    `json:"polarity"`
	CastAt        time.Time `json:"cast_at"`
}

type SessionResponse struct {
	SessionID     string         `json:"session_id"`
	TopicID       string         `json:"topic_id"`
	OpensAt       time.Time      `json:"opens_at"`
	ClosesAt      time.Time      `json:"closes_at"`
	PositiveCount int            `json:"positive_count"`
	NegativeCount int            `json:"negative_count"`
	Positive      []VoteResponse `json:"positive,omitempty"`
	Negative      []VoteResponse `json:"negative,omitempty"`
}

type InternalVoteRequest struct {
	Polarity string `json:"polarity"`
}

type ExternalVoteRequest struct {
	VoterIdentity string `json:"voter_identity"`
	Secret        string `json:"secret,omitempty"`
	Polarity      string `json:"polarity"`
}

type ActiveTopicResponse struct {
	Topic   TopicResponse   `json:"topic"`
	Session SessionResponse `json:"session"`
}

type OwnerResponse struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

type TopicDetailsResponse struct {
	Topic   TopicResponse   `json:"topic"`
	Owner   OwnerResponse   `json:"owner"`
	Session SessionResponse `json:"session"`
	Status  string          `json:"status"`
}

type StatusResponse struct {
	TopicID string `json:"topic_id"`
	Status  string `json:"status"`
}
