package player

import (
	"math/rand"

	"github.com/soundleaf/folderplay/internal/queue"
)

// playlist holds queue order, shuffle, and repeat bookkeeping shared by
// player implementations.
type playlist struct {
	tracks  []queue.Track
	index   int
	repeat  RepeatMode
	shuffle bool
	// order maps play positions to track indices when shuffling.
	order []int
}

func (p *playlist) set(tracks []queue.Track, index int) {
	p.tracks = tracks
	if index < 0 || index >= len(tracks) {
		index = 0
	}
	p.index = index
	if p.shuffle {
		p.reshuffle()
	}
}

func (p *playlist) current() (queue.Track, bool) {
	if p.index < 0 || p.index >= len(p.tracks) {
		return queue.Track{}, false
	}
	return p.tracks[p.index], true
}

// next returns the track index that follows the current one, honoring
// shuffle and repeat. ok is false when playback should stop.
func (p *playlist) next() (int, bool) {
	return p.step(1)
}

func (p *playlist) previous() (int, bool) {
	return p.step(-1)
}

func (p *playlist) step(delta int) (int, bool) {
	if len(p.tracks) == 0 {
		return 0, false
	}
	if p.repeat == RepeatOne {
		return p.index, true
	}

	pos := p.position() + delta
	switch {
	case pos < 0:
		if p.repeat != RepeatAll {
			return p.index, false
		}
		pos = len(p.tracks) - 1
	case pos >= len(p.tracks):
		if p.repeat != RepeatAll {
			return p.index, false
		}
		pos = 0
	}

	if p.shuffle {
		return p.order[pos], true
	}
	return pos, true
}

// position is the current track's place in play order.
func (p *playlist) position() int {
	if !p.shuffle {
		return p.index
	}
	for pos, idx := range p.order {
		if idx == p.index {
			return pos
		}
	}
	return 0
}

func (p *playlist) setShuffle(enabled bool) {
	if p.shuffle == enabled {
		return
	}
	p.shuffle = enabled
	if enabled {
		p.reshuffle()
	}
}

// reshuffle randomizes play order, keeping the current track first so
// enabling shuffle never interrupts it.
func (p *playlist) reshuffle() {
	p.order = rand.Perm(len(p.tracks))
	for pos, idx := range p.order {
		if idx == p.index {
			p.order[0], p.order[pos] = p.order[pos], p.order[0]
			break
		}
	}
}
