package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricewatcher/internal/model"
)

// exerciseStore runs the repository contract against any Store
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	a, err := s.Create(ctx, model.Target{
		Platform:   model.Amazon,
		Reference:  "B0CHX1W1XY",
		MinPrice:   500,
		MaxPrice:   model.Float(1000),
		SendAlerts: true,
		Recipient:  "buyer@example.com",
		UserID:     "u1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)

	b, err := s.Create(ctx, model.Target{Platform: model.Croma, Reference: "300700", MinPrice: 10, UserID: "u2"})
	require.NoError(t, err)

	_, err = s.Create(ctx, model.Target{Platform: model.Amazon})
	assert.Error(t, err, "reference is required")

	all, err := s.FindAll(ctx, model.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Nil(t, all[0].Price)
	assert.Nil(t, all[0].LastCheckedAt)
	require.NotNil(t, all[0].MaxPrice)
	assert.Equal(t, 1000.0, *all[0].MaxPrice)
	assert.Nil(t, all[1].MaxPrice)

	mine, err := s.FindAll(ctx, model.Filter{UserID: "u2"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	checkedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	snap := model.Snapshot{
		Title:     "Apple iPhone 15",
		Price:     model.Float(69900),
		Currency:  "₹",
		ImageURL:  "https://img/iphone.jpg",
		URL:       "https://www.amazon.in/dp/B0CHX1W1XY",
		CheckedAt: checkedAt,
	}
	require.NoError(t, s.UpdateSnapshot(ctx, a.ID, snap))
	require.NoError(t, s.AppendHistory(ctx, a, snap))

	later := snap
	later.Price = model.Float(64900)
	later.CheckedAt = checkedAt.Add(time.Hour)
	require.NoError(t, s.UpdateSnapshot(ctx, a.ID, later))
	require.NoError(t, s.AppendHistory(ctx, a, later))

	all, err = s.FindAll(ctx, model.Filter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, "Apple iPhone 15", got.Title)
	require.NotNil(t, got.Price)
	assert.Equal(t, 64900.0, *got.Price)
	assert.Equal(t, "₹", got.Currency)
	assert.Equal(t, "https://www.amazon.in/dp/B0CHX1W1XY", got.URL)
	require.NotNil(t, got.LastCheckedAt)
	assert.True(t, got.LastCheckedAt.Equal(later.CheckedAt))
	assert.Equal(t, "buyer@example.com", got.Recipient)

	history, err := s.History(ctx, a.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 64900.0, *history[0].Price, "newest first")
	assert.Equal(t, 69900.0, *history[1].Price)
	assert.Equal(t, model.Amazon, history[0].Platform)
	assert.Equal(t, "u1", history[0].UserID)

	assert.ErrorIs(t, s.UpdateSnapshot(ctx, "00000000-0000-0000-0000-000000000000", snap), ErrNotFound)

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.ErrorIs(t, s.Delete(ctx, b.ID), ErrNotFound)

	all, err = s.FindAll(ctx, model.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "pricewatch.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLiteNullPriceSnapshot(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "pricewatch.db"))
	require.NoError(t, err)
	defer s.Close()

	tg, err := s.Create(ctx, model.Target{Platform: model.Flipkart, Reference: "MOBX"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateSnapshot(ctx, tg.ID, model.Snapshot{Title: "Phone", CheckedAt: time.Now()}))
	require.NoError(t, s.AppendHistory(ctx, tg, model.Snapshot{URL: "https://www.flipkart.com/x", CheckedAt: time.Now()}))

	all, err := s.FindAll(ctx, model.Filter{})
	require.NoError(t, err)
	assert.Nil(t, all[0].Price)

	history, err := s.History(ctx, tg.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Price)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "")
	assert.Error(t, err)
}

func TestOpenMemoryByDefault(t *testing.T) {
	s, err := Open(context.Background(), "", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
}
