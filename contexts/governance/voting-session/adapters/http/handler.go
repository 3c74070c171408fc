package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"plenary/contexts/governance/voting-session/application/commands"
	"plenary/contexts/governance/voting-session/application/queries"
	"plenary/contexts/governance/voting-session/domain/entities"
	httptransport "plenary/contexts/governance/voting-session/transport/http"
)

type Handler struct {
	Topics      commands.TopicUseCase
	Sessions    commands.SessionUseCase
	Votes       commands.VoteUseCase
	Members     commands.MemberUseCase
	Queries     queries.SessionQueries
	Credentials queries.CredentialQueries
	Logger      *slog.Logger
}

// AuthenticateHandler returns the member matching identity and secret; the
// platform layer turns it into a bearer token.
func (h Handler) AuthenticateHandler(ctx context.Context, req httptransport.IssueTokenRequest) (entities.Member, error) {
	return h.Credentials.Authenticate(ctx, req.Identity, req.Secret)
}

func (h Handler) RegisterMemberHandler(
	ctx context.Context,
	actorID string,
	req httptransport.RegisterMemberRequest,
) (httptransport.MemberResponse, error) {
	member, err := h.Members.RegisterMember(ctx, commands.RegisterMemberCommand{
		ActorID:     actorID,
		Identity:    req.Identity,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Secret:      req.Secret,
		Admin:       req.Admin,
	})
	if err != nil {
		return httptransport.MemberResponse{}, err
	}
	return httptransport.MemberResponse{
		MemberID:    member.MemberID,
		Identity:    member.Identity,
		DisplayName: member.DisplayName,
		Email:       member.Email,
		Admin:       member.Admin,
	}, nil
}

func (h Handler) MemberExistsHandler(ctx context.Context, identity string) (httptransport.MemberExistsResponse, error) {
	exists, err := h.Credentials.MemberExists(ctx, identity)
	if err != nil {
		return httptransport.MemberExistsResponse{}, err
	}
	return httptransport.MemberExistsResponse{
		Identity: strings.TrimSpace(identity),
		Exists:   exists,
	}, nil
}

func (h Handler) CurrentMemberHandler(ctx context.Context, identity string, admin bool) (httptransport.ProfileResponse, error) {
	profile, err := h.Credentials.CurrentProfile(ctx, identity)
	if err != nil {
		return httptransport.ProfileResponse{}, err
	}
	return httptransport.ProfileResponse{
		MemberID:    profile.MemberID,
		Identity:    profile.Identity,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Admin:       admin,
	}, nil
}

func (h Handler) CreateTopicHandler(
	ctx context.Context,
	ownerID string,
	req httptransport.CreateTopicRequest,
) (httptransport.TopicResponse, error) {
	topic, err := h.Topics.CreateTopic(ctx, commands.CreateTopicCommand{
		OwnerID:  ownerID,
		Subject:  req.Subject,
		Category: req.Category,
	})
	if err != nil {
		return httptransport.TopicResponse{}, err
	}
	return mapTopic(topic), nil
}

func (h Handler) ListOwnerTopicsHandler(ctx context.Context, ownerID string, category string) (httptransport.TopicListResponse, error) {
	topics, err := h.Queries.ListOwnerTopics(ctx, ownerID, category)
	if err != nil {
		return httptransport.TopicListResponse{}, err
	}
	return mapTopicList(topics), nil
}

func (h Handler) ListActiveTopicsHandler(ctx context.Context, category string) (httptransport.TopicListResponse, error) {
	topics, err := h.Queries.ListActiveTopics(ctx, category)
	if err != nil {
		return httptransport.TopicListResponse{}, err
	}
	return mapTopicList(topics), nil
}

func (h Handler) GetActiveTopicHandler(ctx context.Context, topicID string) (httptransport.ActiveTopicResponse, error) {
	active, err := h.Queries.GetActiveTopic(ctx, topicID)
	if err != nil {
		return httptransport.ActiveTopicResponse{}, err
	}
	return httptransport.ActiveTopicResponse{
		Topic:   mapTopic(active.Topic),
		Session: mapSession(active.Session, false),
	}, nil
}

func (h Handler) TopicDetailsHandler(ctx context.Context, topicID string, requesterID string) (httptransport.TopicDetailsResponse, error) {
	details, err := h.Queries.TopicDetails(ctx, topicID, requesterID)
	if err != nil {
		return httptransport.TopicDetailsResponse{}, err
	}
	return httptransport.TopicDetailsResponse{
		Topic: mapTopic(details.Topic),
		Owner: httptransport.OwnerResponse{
			Identity:    details.Owner.Identity,
			DisplayName: details.Owner.DisplayName,
			Email:       details.Owner.Email,
		},
		Session: mapSession(details.Session, true),
		Status:  string(details.Status),
	}, nil
}

func (h Handler) OpenSessionHandler(
	ctx context.Context,
	topicID string,
	requesterID string,
	req httptransport.OpenSessionRequest,
) (httptransport.SessionResponse, error) {
	session, err := h.Sessions.OpenSession(ctx, commands.OpenSessionCommand{
		TopicID:         topicID,
		RequesterID:     requesterID,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, false), nil
}

func (h Handler) CastInternalVoteHandler(
	ctx context.Context,
	topicID string,
	callerIdentity string,
	req httptransport.InternalVoteRequest,
) (httptransport.SessionResponse, error) {
	session, err := h.Votes.CastInternalVote(ctx, commands.CastInternalVoteCommand{
		TopicID:        topicID,
		CallerIdentity: callerIdentity,
		Polarity:       req.Polarity,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, false), nil
}

func (h Handler) CastExternalVoteHandler(
	ctx context.Context,
	topicID string,
	req httptransport.ExternalVoteRequest,
) (httptransport.SessionResponse, error) {
	session, err := h.Votes.CastExternalVote(ctx, commands.CastExternalVoteCommand{
		TopicID:       topicID,
		VoterIdentity: req.VoterIdentity,
		Secret:        req.Secret,
		Polarity:      req.Polarity,
	})
	if err != nil {
		return httptransport.SessionResponse{}, err
	}
	return mapSession(session, false), nil
}

func (h Handler) StatusHandler(ctx context.Context, topicID string) (httptransport.StatusResponse, error) {
	status, err := h.Queries.GetStatus(ctx, topicID)
	if err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{
		TopicID: topicID,
		Status:  string(status),
	}, nil
}

func mapTopic(topic entities.Topic) httptransport.TopicResponse {
	return httptransport.TopicResponse{
		TopicID:   topic.TopicID,
		Subject:   topic.Subject,
		Category:  string(topic.Category),
		OwnerID:   topic.OwnerID,
		SessionID: topic.SessionID,
		CreatedAt: topic.CreatedAt,
	}
}

func mapTopicList(topics []entities.Topic) httptransport.TopicListResponse {
	items := make([]httptransport.TopicResponse, 0, len(topics))
	for _, topic := range topics {
		items = append(items, mapTopic(topic))
	}
	return httptransport.TopicListResponse{Items: items}
}

// mapSession only lists individual voters for the owner-facing details view.
func mapSession(session entities.Session, withVoters bool) httptransport.SessionResponse {
	resp := httptransport.SessionResponse{
		SessionID:     session.SessionID,
		TopicID:       session.TopicID,
		OpensAt:       session.OpensAt,
		ClosesAt:      session.ClosesAt,
		PositiveCount: session.PositiveCount(),
		NegativeCount: session.NegativeCount(),
	}
	if withVoters {
		resp.Positive = mapVotes(session.Positive)
		resp.Negative = mapVotes(session.Negative)
	}
	return resp
}

func mapVotes(votes []entities.Vote) []httptransport.VoteResponse {
	items := make([]httptransport.VoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, httptransport.VoteResponse{
			VoterIdentity: vote.VoterIdentity,
			Polarity:      string(vote.Polarity),
			CastAt:        vote.CastAt,
		})
	}
	return items
}
