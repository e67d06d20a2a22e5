package xid

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// NewOrderID returns an externally visible order id, ORD-<epochMillis>-<4 digits>.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), rand.Intn(10000))
}

func NewLineID() string {
	return uuid.NewString()
}

func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
