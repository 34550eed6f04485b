package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"habitforge/internal/engine"
	"habitforge/internal/platform/logger"
	"habitforge/internal/storage"
)

type fakePublisher struct {
	channel string
	sent    [][]byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	if b, ok := message.([]byte); ok {
		f.sent = append(f.sent, b)
	}
	return redis.NewIntResult(1, f.err)
}

type failing struct{}

func (failing) Notify(context.Context, engine.Event) error { return errors.New("down") }

type counting struct{ n int }

func (c *counting) Notify(context.Context, engine.Event) error {
	c.n++
	return nil
}

func sampleEvent() *engine.BadgeEarned {
	e := &engine.BadgeEarned{BadgeID: "fifty", Name: "Half Century", XPReward: 50, Foreground: true}
	e.EventMeta = engine.EventMeta{ID: "evt-1", UserID: "u1", At: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	return e
}

func TestEncodeDecodeKeepsType(t *testing.T) {
	raw, err := Encode(sampleEvent())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"type":"badge_earned"`)

	got, err := Decode(raw)
	require.NoError(t, err)
	be, ok := got.(*engine.BadgeEarned)
	require.True(t, ok)
	assert.Equal(t, "fifty", be.BadgeID)
	assert.Equal(t, "u1", be.Meta().UserID)
	assert.True(t, be.Foreground)

	_, err = Decode([]byte(`{"type":"mystery","data":{}}`))
	assert.Error(t, err)
}

func TestRedisPublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	n := NewRedis(pub, "hf.events")

	require.NoError(t, n.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, "hf.events", pub.channel)
	require.Len(t, pub.sent, 1)
	assert.Contains(t, string(pub.sent[0]), `"badge_id":"fifty"`)

	pub.err = errors.New("connection refused")
	assert.Error(t, n.Notify(context.Background(), sampleEvent()))
}

func TestMultiSwallowsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c := &counting{}
	m := NewMulti(logger.FromZap(zap.New(core)), failing{}, c)

	assert.NoError(t, m.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, 1, c.n)
	assert.Equal(t, 1, logs.FilterMessage("notifier failed").Len())
}

func TestFeedRecordsActivities(t *testing.T) {
	ctx := context.Background()
	s, err := storage.OpenSQLiteStore(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer s.Close()

	repo := storage.NewActivityRepo(s.DB())
	feed := NewFeed(repo)

	final := &engine.HabitProgressed{HabitID: "h1", HabitName: "Read", DayKey: "2024-01-02", IsFinalDay: true}
	final.EventMeta = engine.EventMeta{ID: "e1", UserID: "u1", At: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
	unmark := &engine.HabitProgressed{HabitID: "h1", HabitName: "Read", DayKey: "2024-01-02", WasCompleted: true}
	unmark.EventMeta = engine.EventMeta{ID: "e2", UserID: "u1", At: time.Date(2024, 1, 2, 9, 1, 0, 0, time.UTC)}

	require.NoError(t, feed.Notify(ctx, final))
	require.NoError(t, feed.Notify(ctx, unmark))
	require.NoError(t, feed.Notify(ctx, sampleEvent()))

	got, err := repo.ListRecent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ActivityHabitGoalReached, got[0].Type)
	assert.Equal(t, "Reached the goal for Read", got[0].Title)
	assert.Equal(t, ActivityBadgeEarned, got[1].Type)
}
