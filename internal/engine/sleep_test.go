package engine

import (
	"testing"
	"time"
)

func TestSleepTimer(t *testing.T) {
	t.Run("TimeCountdown", func(t *testing.T) {
		current := time.Unix(1000, 0)
		timer := newSleepTimer(func() time.Time { return current })

		timer.startTime(10 * time.Minute)
		if timer.tick() {
			t.Fatal("expired immediately")
		}

		current = current.Add(9 * time.Minute)
		if timer.tick() {
			t.Fatal("expired early")
		}
		if status := timer.status(); status.Remaining != time.Minute {
			t.Errorf("Remaining = %v, want 1m", status.Remaining)
		}

		current = current.Add(2 * time.Minute)
		if !timer.tick() {
			t.Fatal("did not expire")
		}
		if timer.mode != SleepOff {
			t.Error("timer must disarm after expiry")
		}
		if timer.tick() {
			t.Error("expired twice")
		}
	})

	t.Run("SongCountdown", func(t *testing.T) {
		timer := newSleepTimer(nil)
		timer.startSongs(2)

		if timer.trackDone() {
			t.Fatal("expired after first song")
		}
		if !timer.trackDone() {
			t.Fatal("did not expire after second song")
		}
		if timer.mode != SleepOff {
			t.Error("timer must disarm after expiry")
		}
	})

	t.Run("ModesAreMutuallyExclusive", func(t *testing.T) {
		timer := newSleepTimer(func() time.Time { return time.Unix(1000, 0) })

		timer.startTime(time.Minute)
		timer.startSongs(3)
		if timer.mode != SleepAfterSongs || !timer.deadline.IsZero() {
			t.Error("song countdown must disarm the deadline")
		}

		timer.startTime(time.Minute)
		if timer.mode != SleepAfterTime || timer.songsLeft != 0 {
			t.Error("deadline must disarm the song countdown")
		}
	})

	t.Run("SongCountIgnoresTicks", func(t *testing.T) {
		timer := newSleepTimer(func() time.Time { return time.Unix(9999, 0) })
		timer.startSongs(1)
		if timer.tick() {
			t.Error("tick must not expire a song countdown")
		}
	})

	t.Run("CancelDisarms", func(t *testing.T) {
		timer := newSleepTimer(nil)
		timer.startSongs(1)
		timer.cancel()
		if timer.trackDone() {
			t.Error("cancelled timer expired")
		}
	})
}
