package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Subby02/web-project/internal/domain"
)

// MigrateGuestCart moves a guest cart into userID's cart through the merge
// engine and returns how many lines made it. It never fails: a line that
// cannot be added is logged and dropped. The guest store itself lives on the
// client, which is told to clear it through the login response.
func (s *Service) MigrateGuestCart(ctx context.Context, userID string, lines []domain.GuestCartLine) int {
	if len(lines) == 0 {
		return 0
	}

	guest, rejected := NewGuestCart(lines)
	for _, line := range rejected {
		s.log.WithFields(logrus.Fields{"user": userID, "product": line.ProductID}).Warn("guest cart line dropped: missing product or size, or quantity out of range")
	}

	migrated := 0
	for _, line := range guest.Lines() {
		if _, _, err := s.addLine(ctx, userID, line.ProductID, string(line.Size), line.Color, line.Quantity); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"user": userID, "product": line.ProductID, "size": line.Size}).Warn("guest cart line dropped during migration")
			continue
		}
		migrated++
	}

	if migrated > 0 {
		s.notifyCart(ctx, userID, domain.CartActionMigrate)
	}
	s.log.WithFields(logrus.Fields{"user": userID, "received": len(lines), "migrated": migrated}).Info("guest cart migrated")
	return migrated
}
