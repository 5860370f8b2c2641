package inbound_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memPruner keeps creation times in memory
type memPruner map[string]time.Time

func (m memPruner) CreatedBefore(_ context.Context, t time.Time) ([]string, error) {
	var ids []string
	for id, created := range m {
		if created.Before(t) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m memPruner) Delete(_ context.Context, ids []string) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m[id]; ok {
			delete(m, id)
			n++
		}
	}
	return n, nil
}

func TestParseRetention(t *testing.T) {
	valid := []struct {
		raw  any
		want inbound.Retention
	}{
		{nil, inbound.Retention{Never: true}},
		{"", inbound.Retention{Never: true}},
		{"null", inbound.Retention{Never: true}},
		{30, inbound.Retention{Days: 30}},
		{int64(7), inbound.Retention{Days: 7}},
		{uint8(1), inbound.Retention{Days: 1}},
		{" 14 ", inbound.Retention{Days: 14}},
	}
	for _, tt := range valid {
		got, err := inbound.ParseRetention(tt.raw)
		require.NoError(t, err, "%v", tt.raw)
		assert.Equal(t, tt.want, got, "%v", tt.raw)
	}

	invalid := []any{0, -1, "0", "-3", "thirty", 1.5, "1.5", true, []int{1}}
	for _, raw := range invalid {
		_, err := inbound.ParseRetention(raw)
		assert.True(t, inbound.IsConfigurationError(err), "%v", raw)
		assert.ErrorIs(t, err, inbound.ErrInvalidRetention, "%v", raw)
	}
}

func TestPrunable(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	store := memPruner{
		"old":    now.AddDate(0, 0, -31),
		"recent": now.AddDate(0, 0, -29),
		"today":  now,
	}

	t.Run("default window", func(t *testing.T) {
		ids, err := inbound.Prunable(context.Background(), store, inbound.DefaultRetentionDays, now)

		require.NoError(t, err)
		assert.Equal(t, []string{"old"}, ids)
	})

	t.Run("record exactly at the cutoff is kept", func(t *testing.T) {
		edge := memPruner{"edge": now.AddDate(0, 0, -30)}

		ids, err := inbound.Prunable(context.Background(), edge, 30, now)

		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("never prune", func(t *testing.T) {
		ids, err := inbound.Prunable(context.Background(), store, nil, now)

		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("error - invalid window is detected before any read", func(t *testing.T) {
		pruner := mocks.NewStore(t)

		_, err := inbound.Prunable(context.Background(), pruner, "abc", now)

		assert.True(t, inbound.IsConfigurationError(err))
		pruner.AssertNotCalled(t, "CreatedBefore", mock.Anything, mock.Anything)
	})
}

func TestSweep(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		store := memPruner{
			"a": now.AddDate(0, 0, -40),
			"b": now.AddDate(0, 0, -31),
			"c": now.AddDate(0, 0, -1),
		}

		n, err := inbound.Sweep(context.Background(), store, "30", now)

		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Contains(t, store, "c")
		assert.Len(t, store, 1)
	})

	t.Run("nothing to delete", func(t *testing.T) {
		pruner := mocks.NewStore(t)
		pruner.On("CreatedBefore", mock.Anything, now.AddDate(0, 0, -30)).Return(nil, nil).Once()

		n, err := inbound.Sweep(context.Background(), pruner, 30, now)

		require.NoError(t, err)
		assert.Zero(t, n)
		pruner.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("error - delete fails", func(t *testing.T) {
		pruner := mocks.NewStore(t)
		pruner.On("CreatedBefore", mock.Anything, mock.Anything).Return([]string{"x"}, nil).Once()
		pruner.On("Delete", mock.Anything, []string{"x"}).Return(int64(0), errors.New("boom")).Once()

		_, err := inbound.Sweep(context.Background(), pruner, 30, now)

		assert.ErrorContains(t, err, "deleting prunable records: boom")
	})
}
