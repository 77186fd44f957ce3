package engine

import (
	"time"
)

// SleepMode says how a sleep timer counts down.
type SleepMode int

const (
	SleepOff SleepMode = iota
	// SleepAfterTime stops playback once a duration elapses.
	SleepAfterTime
	// SleepAfterSongs stops playback once a number of tracks finish.
	SleepAfterSongs
)

// SleepStatus is a read-only view of the timer.
type SleepStatus struct {
	Mode      SleepMode
	Remaining time.Duration
	SongsLeft int
}

// sleepTimer counts down by time or by songs. The two modes are mutually
// exclusive; arming one disarms the other.
type sleepTimer struct {
	mode      SleepMode
	deadline  time.Time
	songsLeft int
	now       func() time.Time
}

func newSleepTimer(now func() time.Time) *sleepTimer {
	if now == nil {
		now = time.Now
	}
	return &sleepTimer{now: now}
}

func (t *sleepTimer) startTime(d time.Duration) {
	t.mode = SleepAfterTime
	t.deadline = t.now().Add(d)
	t.songsLeft = 0
}

func (t *sleepTimer) startSongs(n int) {
	t.mode = SleepAfterSongs
	t.songsLeft = n
	t.deadline = time.Time{}
}

func (t *sleepTimer) cancel() {
	t.mode = SleepOff
	t.deadline = time.Time{}
	t.songsLeft = 0
}

// tick reports whether a time-based countdown just expired. An expired timer
// disarms itself.
func (t *sleepTimer) tick() bool {
	if t.mode != SleepAfterTime {
		return false
	}
	if t.now().Before(t.deadline) {
		return false
	}
	t.cancel()
	return true
}

// trackDone reports whether a songs-based countdown just expired.
func (t *sleepTimer) trackDone() bool {
	if t.mode != SleepAfterSongs {
		return false
	}
	t.songsLeft--
	if t.songsLeft > 0 {
		return false
	}
	t.cancel()
	return true
}

func (t *sleepTimer) status() SleepStatus {
	s := SleepStatus{Mode: t.mode, SongsLeft: t.songsLeft}
	if t.mode == SleepAfterTime {
		if remaining := t.deadline.Sub(t.now()); remaining > 0 {
			s.Remaining = remaining
		}
	}
	return s
}
