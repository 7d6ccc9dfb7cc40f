// Package friends manages the device-local friends list and the
// leaderboard built from friends' shared day records.
package friends

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/vytor/stepple/internal/errors"
	"github.com/vytor/stepple/internal/logger"
	"github.com/vytor/stepple/internal/models"
	"github.com/vytor/stepple/internal/repository"
)

// Scheme is the app's deep link scheme.
const Scheme = "stepple"

// DefaultLookupConcurrency bounds concurrent leaderboard lookups.
const DefaultLookupConcurrency = 4

var (
	linkPathRe = regexp.MustCompile(`(?:^|/)add-friend/([^/]+)/?$`)
	friendIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// AddStatus is the result of adding a friend from a link.
type AddStatus int

const (
	Added AddStatus = iota
	AlreadyFriends
)

func (s AddStatus) String() string {
	if s == Added {
		return "added"
	}
	return "already-friends"
}

// StepReader reads shared day records.
type StepReader interface {
	GetStepRecord(ctx context.Context, userID, dateID string) (*models.StepRecord, error)
}

// InviteLink returns the deep link that adds userID as a friend.
func InviteLink(userID string) string {
	return Scheme + "://add-friend/" + userID
}

// ParseDeepLink extracts the friend id from stepple://add-friend/{id} or
// an https link whose path ends in /add-friend/{id}.
func ParseDeepLink(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", apperrors.NewInvalidArgumentError("invalid link")
	}

	var path string
	switch strings.ToLower(u.Scheme) {
	case Scheme:
		path = u.Host + u.Path
	case "https", "http":
		path = u.Path
	default:
		return "", apperrors.NewInvalidArgumentError("unsupported link scheme " + u.Scheme)
	}

	m := linkPathRe.FindStringSubmatch(path)
	if m == nil || !friendIDRe.MatchString(m[1]) {
		return "", apperrors.NewInvalidArgumentError("not an add-friend link")
	}
	return m[1], nil
}

// DisplayName is the name shown for a friend until they are renamed.
func DisplayName(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return "Friend " + id
}

// Service adds friends and builds the leaderboard.
type Service struct {
	repo        repository.FriendRepository
	steps       StepReader
	concurrency int
	now         func() time.Time
}

// NewService creates a Service. concurrency <= 0 uses the default.
func NewService(repo repository.FriendRepository, steps StepReader, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultLookupConcurrency
	}
	return &Service{repo: repo, steps: steps, concurrency: concurrency, now: time.Now}
}

// AddFromLink parses link and stores the friend. Adding an existing
// friend is not an error.
func (s *Service) AddFromLink(ctx context.Context, link, selfID string) (models.Friend, AddStatus, error) {
	log := logger.FromContext(ctx).WithPrefix("friends")

	id, err := ParseDeepLink(link)
	if err != nil {
		return models.Friend{}, 0, err
	}
	if id == selfID {
		return models.Friend{}, 0, apperrors.NewInvalidArgumentError("cannot add yourself as a friend")
	}

	f := models.Friend{ID: id, Name: DisplayName(id), AddedAt: s.now()}
	added, err := s.repo.Add(ctx, f)
	if err != nil {
		log.Error("failed to add friend %s: %v", id, err)
		return models.Friend{}, 0, err
	}
	if !added {
		log.Info("friend %s already on leaderboard", id)
		return f, AlreadyFriends, nil
	}
	log.Info("added friend %s", id)
	return f, Added, nil
}

// List returns all friends.
func (s *Service) List(ctx context.Context) ([]models.Friend, error) {
	return s.repo.List(ctx)
}

// Leaderboard looks up each friend's record for dateID. A failed or
// missing lookup leaves that entry's Steps nil. Entries keep list order.
func (s *Service) Leaderboard(ctx context.Context, dateID string) ([]models.LeaderboardEntry, error) {
	log := logger.FromContext(ctx).WithPrefix("friends")

	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range list {
		i, f := i, f
		entries[i].Friend = f
		g.Go(func() error {
			rec, err := s.steps.GetStepRecord(gctx, f.ID, dateID)
			if err != nil {
				log.Warn("lookup for friend %s failed: %v", f.ID, err)
				return nil
			}
			if rec != nil {
				count := rec.Count
				entries[i].Steps = &count
			}
			return nil
		})
	}
	_ = g.Wait()
	return entries, nil
}
