package votingsession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"plenary/contexts/governance/voting-session/application/commands"
	domainerrors "plenary/contexts/governance/voting-session/domain/errors"
	httptransport "plenary/contexts/governance/voting-session/transport/http"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createTopic(t *testing.T, module Module, ownerID string) string {
	t.Helper()
	topic, err := module.Handler.CreateTopicHandler(context.Background(), ownerID, httptransport.CreateTopicRequest{
		Subject:  "Add a night bus line",
		Category: "transport",
	})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}
	return topic.TopicID
}

func openSession(t *testing.T, module Module, topicID string, ownerID string, minutes int) httptransport.SessionResponse {
	t.Helper()
	session, err := module.Handler.OpenSessionHandler(context.Background(), topicID, ownerID, httptransport.OpenSessionRequest{
		DurationMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("open session failed: %v", err)
	}
	return session
}

func TestVotingSessionApprovesAfterClose(t *testing.T) {
	clock := newFakeClock()
	module := NewInMemoryModule(clock, nil)
	ctx := context.Background()
	topicID := createTopic(t, module, "owner-1")

	session := openSession(t, module, topicID, "owner-1", 1)
	if !session.ClosesAt.Equal(clock.Now().Add(time.Minute)) {
		t.Fatalf("expected closes_at one minute after open, got %s", session.ClosesAt)
	}

	for _, vote := range []struct {
		voter    string
		polarity string
	}{
		{"voter-1", "positive"},
		{"voter-2", "positive"},
		{"voter-3", "negative"},
	} {
		if _, err := module.Handler.CastInternalVoteHandler(ctx, topicID, vote.voter, httptransport.InternalVoteRequest{
			Polarity: vote.polarity,
		}); err != nil {
			t.Fatalf("cast vote for %s failed: %v", vote.voter, err)
		}
	}

	status, err := module.Handler.StatusHandler(ctx, topicID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS before close, got %s", status.Status)
	}

	clock.Advance(61 * time.Second)
	status, err = module.Handler.StatusHandler(ctx, topicID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "APPROVED" {
		t.Fatalf("expected APPROVED with 2-1, got %s", status.Status)
	}

	_, err = module.Handler.CastInternalVoteHandler(ctx, topicID, "voter-4", httptransport.InternalVoteRequest{Polarity: "negative"})
	if domainerrors.KindOf(err) != domainerrors.KindNoActiveSession {
		t.Fatalf("expected no active session after close, got %v", err)
	}
}

func TestVotingSessionRejectsTieAndEmpty(t *testing.T) {
	clock := newFakeClock()
	module := NewInMemoryModule(clock, nil)
	ctx := context.Background()

	empty := createTopic(t, module, "owner-1")
	openSession(t, module, empty, "owner-1", 1)
	tied := createTopic(t, module, "owner-1")
	openSession(t, module, tied, "owner-1", 1)
	if _, err := module.Handler.CastInternalVoteHandler(ctx, tied, "voter-1", httptransport.InternalVoteRequest{Polarity: "positive"}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := module.Handler.CastInternalVoteHandler(ctx, tied, "voter-2", httptransport.InternalVoteRequest{Polarity: "negative"}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	clock.Advance(time.Minute)
	for _, topicID := range []string{empty, tied} {
		status, err := module.Handler.StatusHandler(ctx, topicID)
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if status.Status != "REJECTED" {
			t.Fatalf("expected REJECTED at closes_at, got %s", status.Status)
		}
	}
}

func TestVotingSessionEligibilityRules(t *testing.T) {
	module := NewInMemoryModule(newFakeClock(), nil)
	ctx := context.Background()
	topicID := createTopic(t, module, "owner-1")
	openSession(t, module, topicID, "owner-1", 5)

	if _, err := module.Handler.CastInternalVoteHandler(ctx, topicID, "voter-1", httptransport.InternalVoteRequest{Polarity: "positive"}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, err := module.Handler.CastInternalVoteHandler(ctx, topicID, "voter-1", httptransport.InternalVoteRequest{Polarity: "negative"})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected duplicate vote, got %v", err)
	}
	_, err = module.Handler.CastInternalVoteHandler(ctx, topicID, "owner-1", httptransport.InternalVoteRequest{Polarity: "positive"})
	if !errors.Is(err, domainerrors.ErrOwnerCannotVote) {
		t.Fatalf("expected owner ban, got %v", err)
	}
	_, err = module.Handler.CastInternalVoteHandler(ctx, topicID, "voter-2", httptransport.InternalVoteRequest{Polarity: "abstain"})
	if domainerrors.KindOf(err) != domainerrors.KindValidation {
		t.Fatalf("expected validation for unknown polarity, got %v", err)
	}
	_, err = module.Handler.CastInternalVoteHandler(ctx, "missing-topic", "voter-2", httptransport.InternalVoteRequest{Polarity: "positive"})
	if !errors.Is(err, domainerrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session for unknown topic, got %v", err)
	}

	session, err := module.Store.GetSessionByTopic(ctx, topicID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if session.PositiveCount() != 1 || session.NegativeCount() != 0 {
		t.Fatalf("rejected votes must not be recorded, got %d/%d", session.PositiveCount(), session.NegativeCount())
	}
}

func TestOpenSessionRules(t *testing.T) {
	module := NewInMemoryModule(newFakeClock(), nil)
	ctx := context.Background()
	topicID := createTopic(t, module, "owner-1")

	_, err := module.Handler.OpenSessionHandler(ctx, "missing-topic", "owner-1", httptransport.OpenSessionRequest{DurationMinutes: 0})
	if !errors.Is(err, domainerrors.ErrInvalidDuration) {
		t.Fatalf("expected duration validation before lookup, got %v", err)
	}
	_, err = module.Handler.OpenSessionHandler(ctx, topicID, "intruder", httptransport.OpenSessionRequest{DurationMinutes: 5})
	if !errors.Is(err, domainerrors.ErrTopicNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}

	openSession(t, module, topicID, "owner-1", 5)
	_, err = module.Handler.OpenSessionHandler(ctx, topicID, "owner-1", httptransport.OpenSessionRequest{DurationMinutes: 5})
	if domainerrors.KindOf(err) != domainerrors.KindConflict {
		t.Fatalf("expected conflict on second open, got %v", err)
	}

	_, err = module.Handler.StatusHandler(ctx, createTopic(t, module, "owner-1"))
	if domainerrors.KindOf(err) != domainerrors.KindNotFound {
		t.Fatalf("expected not found status without session, got %v", err)
	}
}

func TestExternalVoteCredentialPolicy(t *testing.T) {
	module := NewInMemoryModule(newFakeClock(), nil)
	ctx := context.Background()
	if err := module.Handler.Members.SeedAdmin(ctx, "admin", "admin-secret"); err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	registered, err := module.Handler.RegisterMemberHandler(ctx, "admin", httptransport.RegisterMemberRequest{
		Identity:    "11122233344",
		DisplayName: "Rita",
		Email:       "rita@example.com",
		Secret:      "rita-secret",
	})
	if err != nil {
		t.Fatalf("register member failed: %v", err)
	}

	topicID := createTopic(t, module, "owner-1")
	openSession(t, module, topicID, "owner-1", 5)

	_, err = module.Handler.CastExternalVoteHandler(ctx, topicID, httptransport.ExternalVoteRequest{
		VoterIdentity: "11122233344",
		Secret:        "wrong-secret",
		Polarity:      "positive",
	})
	if domainerrors.KindOf(err) != domainerrors.KindAuth {
		t.Fatalf("expected auth error for registered identity with bad secret, got %v", err)
	}
	if _, err := module.Handler.CastExternalVoteHandler(ctx, topicID, httptransport.ExternalVoteRequest{
		VoterIdentity: "11122233344",
		Secret:        "rita-secret",
		Polarity:      "positive",
	}); err != nil {
		t.Fatalf("expected registered identity with valid secret to vote, got %v", err)
	}
	snapshot, err := module.Handler.CastExternalVoteHandler(ctx, topicID, httptransport.ExternalVoteRequest{
		VoterIdentity: "99988877766",
		Polarity:      "negative",
	})
	if err != nil {
		t.Fatalf("expected unregistered identity to vote without secret, got %v", err)
	}
	if snapshot.PositiveCount != 1 || snapshot.NegativeCount != 1 {
		t.Fatalf("unexpected tally %d/%d", snapshot.PositiveCount, snapshot.NegativeCount)
	}

	session, err := module.Store.GetSessionByTopic(ctx, topicID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if session.Positive[0].VoterRef != registered.MemberID {
		t.Fatalf("expected voter ref %s, got %q", registered.MemberID, session.Positive[0].VoterRef)
	}
	if session.Negative[0].VoterRef != "" {
		t.Fatalf("expected empty voter ref for unregistered voter, got %q", session.Negative[0].VoterRef)
	}
}

func TestConcurrentDuplicateVotesRecordOnce(t *testing.T) {
	module := NewInMemoryModule(newFakeClock(), nil)
	ctx := context.Background()
	topicID := createTopic(t, module, "owner-1")
	openSession(t, module, topicID, "owner-1", 5)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := module.Handler.Votes.CastInternalVote(ctx, commands.CastInternalVoteCommand{
				TopicID:        topicID,
				CallerIdentity: "voter-1",
				Polarity:       "positive",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domainerrors.ErrDuplicateVote):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one recorded vote, got %d successes and %d conflicts", successes, conflicts)
	}
}

func TestTopicDetailsAndListings(t *testing.T) {
	clock := newFakeClock()
	module := NewInMemoryModule(clock, nil)
	ctx := context.Background()
	topicID := createTopic(t, module, "owner-1")
	other, err := module.Handler.CreateTopicHandler(ctx, "owner-1", httptransport.CreateTopicRequest{
		Subject:  "School lunch menu",
		Category: "food",
	})
	if err != nil {
		t.Fatalf("create topic failed: %v", err)
	}

	_, err = module.Handler.TopicDetailsHandler(ctx, topicID, "owner-1")
	if !errors.Is(err, domainerrors.ErrSessionNotFound) {
		t.Fatalf("expected details to require a session, got %v", err)
	}
	openSession(t, module, topicID, "owner-1", 2)
	if _, err := module.Handler.CastInternalVoteHandler(ctx, topicID, "voter-1", httptransport.InternalVoteRequest{Polarity: "negative"}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	details, err := module.Handler.TopicDetailsHandler(ctx, topicID, "owner-1")
	if err != nil {
		t.Fatalf("details failed: %v", err)
	}
	if details.Status != "IN_PROGRESS" || len(details.Session.Negative) != 1 || details.Owner.Identity != "owner-1" {
		t.Fatalf("unexpected details: %+v", details)
	}
	if _, err := module.Handler.TopicDetailsHandler(ctx, topicID, "voter-1"); !errors.Is(err, domainerrors.ErrTopicNotFound) {
		t.Fatalf("expected details hidden from non-owner, got %v", err)
	}

	mine, err := module.Handler.ListOwnerTopicsHandler(ctx, "owner-1", "")
	if err != nil || len(mine.Items) != 2 {
		t.Fatalf("expected two owner topics, got %d %v", len(mine.Items), err)
	}
	food, err := module.Handler.ListOwnerTopicsHandler(ctx, "owner-1", "food")
	if err != nil || len(food.Items) != 1 || food.Items[0].TopicID != other.TopicID {
		t.Fatalf("expected category filter to return the food topic, got %+v %v", food.Items, err)
	}
	if _, err := module.Handler.ListOwnerTopicsHandler(ctx, "owner-1", "politics"); !errors.Is(err, domainerrors.ErrInvalidCategory) {
		t.Fatalf("expected invalid category, got %v", err)
	}

	active, err := module.Handler.ListActiveTopicsHandler(ctx, "")
	if err != nil || len(active.Items) != 1 || active.Items[0].TopicID != topicID {
		t.Fatalf("expected one active topic, got %+v %v", active.Items, err)
	}
	if _, err := module.Handler.GetActiveTopicHandler(ctx, other.TopicID); !errors.Is(err, domainerrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session for topic without session, got %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := module.Handler.GetActiveTopicHandler(ctx, topicID); !errors.Is(err, domainerrors.ErrNoActiveSession) {
		t.Fatalf("expected expired session to read as no active session, got %v", err)
	}
	active, err = module.Handler.ListActiveTopicsHandler(ctx, "")
	if err != nil || len(active.Items) != 0 {
		t.Fatalf("expected no active topics after close, got %+v %v", active.Items, err)
	}
}

func TestRegisterMemberRequiresAdmin(t *testing.T) {
	module := NewInMemoryModule(nil, nil)
	ctx := context.Background()
	if err := module.Handler.Members.SeedAdmin(ctx, "admin", "admin-secret"); err != nil {
		t.Fatalf("seed admin failed: %v", err)
	}
	if err := module.Handler.Members.SeedAdmin(ctx, "admin", "admin-secret"); err != nil {
		t.Fatalf("expected repeated seed to be a no-op, got %v", err)
	}

	req := httptransport.RegisterMemberRequest{
		Identity:    "member-1",
		DisplayName: "Member One",
		Email:       "member1@example.com",
		Secret:      "member-secret",
	}
	if _, err := module.Handler.RegisterMemberHandler(ctx, "member-1", req); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden for unknown actor, got %v", err)
	}
	if _, err := module.Handler.RegisterMemberHandler(ctx, "admin", req); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := module.Handler.RegisterMemberHandler(ctx, "member-1", req); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin actor, got %v", err)
	}
	if _, err := module.Handler.RegisterMemberHandler(ctx, "admin", req); !errors.Is(err, domainerrors.ErrMemberExists) {
		t.Fatalf("expected duplicate member conflict, got %v", err)
	}

	weak := req
	weak.Identity = "member-2"
	weak.Secret = "short"
	if _, err := module.Handler.RegisterMemberHandler(ctx, "admin", weak); !errors.Is(err, domainerrors.ErrWeakSecret) {
		t.Fatalf("expected weak secret, got %v", err)
	}
	badEmail := req
	badEmail.Identity = "member-3"
	badEmail.Email = "not-an-email"
	if _, err := module.Handler.RegisterMemberHandler(ctx, "admin", badEmail); !errors.Is(err, domainerrors.ErrInvalidMemberInput) {
		t.Fatalf("expected invalid member input, got %v", err)
	}

	member, err := module.Handler.AuthenticateHandler(ctx, httptransport.IssueTokenRequest{Identity: "member-1", Secret: "member-secret"})
	if err != nil || member.Identity != "member-1" || member.Admin {
		t.Fatalf("unexpected authentication result %+v %v", member, err)
	}
	if _, err := module.Handler.AuthenticateHandler(ctx, httptransport.IssueTokenRequest{Identity: "member-1", Secret: "nope-nope"}); !errors.Is(err, domainerrors.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}
