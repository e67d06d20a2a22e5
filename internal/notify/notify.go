package notify

import (
	"context"

	"github.com/Subby02/web-project/internal/domain"
)

// NoopCartNotifier drops every event. It is used when no redis is configured.
type NoopCartNotifier struct{}

func (NoopCartNotifier) Publish(_ context.Context, _ domain.CartEvent) error {
	return nil
}
