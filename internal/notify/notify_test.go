package notify

import (
	"context"
	"testing"

	"github.com/Subby02/web-project/internal/domain"
)

func TestNoopCartNotifierAcceptsEvents(t *testing.T) {
	var n NoopCartNotifier
	if err := n.Publish(context.Background(), domain.CartEvent{OwnerID: "u1", Count: 2}); err != nil {
		t.Fatalf("expected noop publish to succeed, got %v", err)
	}
}

func TestBadgeKey(t *testing.T) {
	if got := badgeKey("usr-1"); got != "cart:count:usr-1" {
		t.Fatalf("unexpected badge key %q", got)
	}
}
