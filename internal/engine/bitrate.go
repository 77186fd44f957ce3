package engine

import (
	"context"
	"math"
	"sync"

	"github.com/soundleaf/folderplay/internal/queue"
)

// bitrateLadder holds the standard encoder rates displayed values snap to.
var bitrateLadder = []int{32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}

// mp3Ceiling is the highest rate the MP3 format supports. Measured rates
// just above it are container overhead, not a higher encode.
const mp3Ceiling = 320.5

// SnapBitrate rounds a measured bitrate in kbps to the nearest standard
// encoder rate, when the measurement is within 10 kbps or 5% of one.
// Anything else is reported as measured.
func SnapBitrate(kbps float64, mime string) int {
	if kbps <= 0 {
		return 0
	}
	if mime == "audio/mpeg" && kbps > mp3Ceiling {
		return 320
	}

	best := bitrateLadder[0]
	for _, rung := range bitrateLadder[1:] {
		if math.Abs(float64(rung)-kbps) < math.Abs(float64(best)-kbps) {
			best = rung
		}
	}

	tolerance := math.Max(10, float64(best)*0.05)
	if math.Abs(float64(best)-kbps) <= tolerance {
		return best
	}
	return int(math.Round(kbps))
}

// TagProbe reads a bitrate in kbps from a track's metadata. ok is false when
// the track carries none.
type TagProbe func(ctx context.Context, track queue.Track) (int, bool)

// BitrateResolver determines the display bitrate for a track, caching the
// answer per media identity.
//
// Precedence: what the player measures beats the file's tags, which beat an
// estimate from size and duration.
type BitrateResolver struct {
	mu    sync.Mutex
	cache map[string]int
	probe TagProbe
}

// NewBitrateResolver creates a resolver. probe may be nil.
func NewBitrateResolver(probe TagProbe) *BitrateResolver {
	return &BitrateResolver{cache: make(map[string]int), probe: probe}
}

// Resolve returns the snapped bitrate in kbps, or 0 when undeterminable.
// measuredBps is the player's measurement, 0 when it has none yet.
func (r *BitrateResolver) Resolve(ctx context.Context, track queue.Track, measuredBps, durationMs int64) int {
	r.mu.Lock()
	if cached, ok := r.cache[track.MediaID]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	kbps := r.resolve(ctx, track, measuredBps, durationMs)
	if kbps > 0 {
		r.mu.Lock()
		r.cache[track.MediaID] = kbps
		r.mu.Unlock()
	}
	return kbps
}

// Forget drops a cached value so the next Resolve re-measures.
func (r *BitrateResolver) Forget(mediaID string) {
	r.mu.Lock()
	delete(r.cache, mediaID)
	r.mu.Unlock()
}

func (r *BitrateResolver) resolve(ctx context.Context, track queue.Track, measuredBps, durationMs int64) int {
	if measuredBps > 0 {
		return SnapBitrate(float64(measuredBps)/1000, track.MIME)
	}
	if r.probe != nil {
		if kbps, ok := r.probe(ctx, track); ok && kbps > 0 {
			return SnapBitrate(float64(kbps), track.MIME)
		}
	}
	// Whole files only: a clip's byte span within the file is unknown.
	if !track.Clipped() && track.Size > 0 && durationMs > 0 {
		kbps := float64(track.Size) * 8 / float64(durationMs)
		return SnapBitrate(kbps, track.MIME)
	}
	return 0
}
