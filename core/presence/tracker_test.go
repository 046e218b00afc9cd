package presence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meaaditiya/portfoliomanager-sub002/core/presence"
)

func newTestTracker(t *testing.T, now *time.Time) (*presence.Tracker, *presence.MemoryStore) {
	t.Helper()
	store := presence.NewMemoryStore()
	tracker := presence.NewTracker(store, presence.TrackerConfig{
		LiveWindow:    5 * time.Minute,
		SweepInterval: time.Minute,
	}, presence.WithTrackerClock(func() time.Time { return *now }))
	t.Cleanup(func() { _ = tracker.Close() })
	return tracker, store
}

func TestTrackerTrack(t *testing.T) {
	t.Parallel()

	t.Run("requires session id", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{Page: "/"})
		assert.ErrorIs(t, err, presence.ErrMissingSessionID)
	})

	t.Run("repeated heartbeats count once", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		for range 5 {
			count, err := tracker.Track(t.Context(), presence.JoinParams{
				SessionID: "sess-1",
				Page:      "/blog",
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		}
	})

	t.Run("heartbeat updates page and preserves first visit", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, store := newTestTracker(t, &now)

		firstSeen := now
		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-2", Page: "/"})
		require.NoError(t, err)

		now = now.Add(2 * time.Minute)
		_, err = tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-2", Page: "/projects"})
		require.NoError(t, err)

		v, ok := store.Get("sess-2")
		require.True(t, ok)
		assert.Equal(t, "/projects", v.Page)
		assert.True(t, v.IsActive)
		assert.Equal(t, firstSeen, v.FirstVisit)
		assert.Equal(t, now, v.LastActivity)
	})

	t.Run("distinct sessions count separately", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "a", Page: "/"})
		require.NoError(t, err)
		count, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "b", Page: "/"})
		require.NoError(t, err)

		assert.Equal(t, int64(2), count)
	})
}

func TestTrackerLeave(t *testing.T) {
	t.Parallel()

	t.Run("leave drops the count", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-3", Page: "/"})
		require.NoError(t, err)

		count, err := tracker.Leave(t.Context(), "sess-3")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("leave for unknown session is a no-op", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		count, err := tracker.Leave(t.Context(), "never-seen")
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejoining after leave is live again", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-4", Page: "/"})
		require.NoError(t, err)
		_, err = tracker.Leave(t.Context(), "sess-4")
		require.NoError(t, err)

		count, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-4", Page: "/"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestTrackerDisconnect(t *testing.T) {
	t.Parallel()

	t.Run("prefers session id", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, store := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{
			SessionID: "sess-5", SocketID: "sock-5", Page: "/",
		})
		require.NoError(t, err)

		require.NoError(t, tracker.Disconnect(t.Context(), "sess-5", "sock-5"))

		v, ok := store.Get("sess-5")
		require.True(t, ok)
		assert.False(t, v.IsActive)
	})

	t.Run("falls back to socket id", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, store := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{
			SessionID: "sess-6", SocketID: "sock-6", Page: "/",
		})
		require.NoError(t, err)

		// The socket never reported its session, so only the socket ID is known.
		require.NoError(t, tracker.Disconnect(t.Context(), "", "sock-6"))

		v, ok := store.Get("sess-6")
		require.True(t, ok)
		assert.False(t, v.IsActive)
	})
}

func TestTrackerLiveWindow(t *testing.T) {
	t.Parallel()

	t.Run("session ages out of the live count without a sweep", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, _ := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-7", Page: "/"})
		require.NoError(t, err)

		now = now.Add(6 * time.Minute)
		count, err := tracker.LiveCount(t.Context())
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("sweep flips crashed sessions", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		tracker, store := newTestTracker(t, &now)

		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-8", Page: "/"})
		require.NoError(t, err)

		now = now.Add(6 * time.Minute)
		flipped, err := store.DeactivateStale(t.Context(), now.Add(-5*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(1), flipped)

		v, ok := store.Get("sess-8")
		require.True(t, ok)
		assert.False(t, v.IsActive)
	})
}

func TestTrackerStats(t *testing.T) {
	t.Parallel()

	// Noon keeps all cohort boundaries inside the same day and month.
	base := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.Local)
	now := base
	tracker, _ := newTestTracker(t, &now)

	track := func(sessionID string, at time.Time) {
		now = at
		_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: sessionID, Page: "/"})
		require.NoError(t, err)
	}

	track("old", base.AddDate(0, -2, 0))      // before this month
	track("monthly", base.AddDate(0, 0, -10)) // this month, before today
	track("daily", base.Add(-4*time.Hour))    // today, before last hour
	track("fresh", base.Add(-30*time.Minute)) // last hour, outside live window
	track("live", base.Add(-time.Minute))     // live

	now = base
	stats, err := tracker.Stats(t.Context())
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.LiveViewers)
	assert.Equal(t, int64(2), stats.VisitorsLastHour)
	assert.Equal(t, int64(3), stats.VisitorsToday)
	assert.Equal(t, int64(4), stats.VisitorsThisMonth)
	assert.Equal(t, int64(5), stats.TotalVisitors)
	assert.Equal(t, base, stats.Timestamp)
}

func TestTrackerSubscribe(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tracker, _ := newTestTracker(t, &now)

	sub := tracker.Subscribe(t.Context())
	defer func() { _ = sub.Close() }()

	_, err := tracker.Track(t.Context(), presence.JoinParams{SessionID: "sess-9", Page: "/"})
	require.NoError(t, err)

	select {
	case msg := <-sub.Receive(t.Context()):
		assert.Equal(t, int64(1), msg.Data.Count)
	case <-time.After(time.Second):
		t.Fatal("expected a live count update")
	}
}
