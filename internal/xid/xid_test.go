package xid

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderIDFormat(t *testing.T) {
	now := time.UnixMilli(1767225600123)
	id := NewOrderID(now)

	assert.Regexp(t, regexp.MustCompile(`^ORD-1767225600123-\d{4}$`), id)
}

func TestNewLineIDIsUUID(t *testing.T) {
	_, err := uuid.Parse(NewLineID())
	require.NoError(t, err)
}
