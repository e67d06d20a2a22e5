package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Subby02/web-project/internal/domain"
	"github.com/Subby02/web-project/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// CartObserver receives an event after every successful cart mutation.
// Delivery is best-effort: a failing observer is logged and otherwise ignored.
type CartObserver interface {
	Publish(ctx context.Context, event domain.CartEvent) error
}

type Options struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// Location sets calendar-day boundaries for sales ranges and date-only
	// discount windows. Defaults to UTC.
	Location *time.Location
	Logger   logrus.FieldLogger
}

type Service struct {
	repo store.Repository
	now  func() time.Time
	loc  *time.Location
	log  logrus.FieldLogger

	observersMu sync.RWMutex
	observers   []CartObserver
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Service{
		repo: repo,
		now:  opts.Now,
		loc:  opts.Location,
		log:  opts.Logger.WithField("component", "service"),
	}
}

// OnCartChange registers an observer for cart mutations.
func (s *Service) OnCartChange(observer CartObserver) {
	if observer == nil {
		return
	}
	s.observersMu.Lock()
	defer s.observersMu.Unlock()
	s.observers = append(s.observers, observer)
}

func (s *Service) notifyCart(ctx context.Context, ownerID string, action string) {
	s.observersMu.RLock()
	observers := append([]CartObserver(nil), s.observers...)
	s.observersMu.RUnlock()
	if len(observers) == 0 {
		return
	}

	count, err := s.CartCount(ctx, ownerID)
	if err != nil {
		s.log.WithError(err).WithField("owner", ownerID).Warn("cart count for observers failed")
		return
	}

	event := domain.CartEvent{OwnerID: ownerID, Action: action, Count: count, At: s.now().UTC()}
	for _, observer := range observers {
		if err := observer.Publish(ctx, event); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"owner": ownerID, "action": action}).Warn("cart observer failed")
		}
	}
}
