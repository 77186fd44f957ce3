package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soundleaf/folderplay/internal/engine"
	"github.com/soundleaf/folderplay/internal/formatter"
	"github.com/soundleaf/folderplay/internal/player"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play starts folder playback and blocks until interrupted, persisting
// progress as it goes.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	if cmd.IsSet("auto-next") {
		if err := r.playback.SetAutoNextFolder(ctx, cmd.Bool("auto-next")); err != nil {
			return err
		}
	}

	p, err := r.newPlayer()
	if err != nil {
		return err
	}
	defer p.Close()

	opts := engine.DefaultOptions()
	if r.config.Playback.ProgressInterval > 0 {
		opts.ProgressInterval = secondsToDuration(r.config.Playback.ProgressInterval)
	}
	opts.WebDAV = r.webdavOptions()

	eng := engine.New(p, r.sources, r.playback, r.lyrics, nil, opts, r.logger)

	if d := cmd.Duration("sleep"); d > 0 {
		eng.SleepAfter(d)
	} else if n := cmd.Int("sleep-songs"); n > 0 {
		eng.SleepAfterSongs(int(n))
	}

	if cmd.Bool("resume") {
		if err := eng.Restore(ctx); err != nil {
			if errors.Is(err, shared.ErrNotRestorable) {
				return fmt.Errorf("%w: nothing to resume", err)
			}
			return err
		}
		if err := eng.Play(ctx); err != nil {
			return err
		}
	} else {
		cfg, path, err := r.resolveFolder(ctx, cmd)
		if err != nil {
			return err
		}
		index := int(cmd.Int("index")) - 1
		if err := eng.PlayFolder(ctx, cfg.ID, path, index, cmd.Bool("shuffle")); err != nil {
			return err
		}
	}

	// An explicit repeat flag wins over whatever the restored session had.
	if cmd.IsSet("repeat") {
		if err := eng.SetRepeat(ctx, player.ParseRepeatMode(cmd.String("repeat"))); err != nil {
			return err
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(runCtx)
	}()

	r.watchPlayback(runCtx, eng, opts)
	<-done

	r.writePlain("\n")
	return nil
}

// watchPlayback renders a one-line status until the context ends.
func (r *Runner) watchPlayback(ctx context.Context, eng *engine.Engine, opts engine.Options) {
	ticker := time.NewTicker(opts.ProgressInterval)
	defer ticker.Stop()

	var lastLine string
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			np := eng.NowPlaying(ctx)
			if np.Track.MediaID == "" {
				continue
			}

			line := formatNowPlaying(np)
			if line == lastLine {
				continue
			}
			lastLine = line
			r.writePlain("\r\033[2K%s", line)
		}
	}
}

func formatNowPlaying(np engine.NowPlaying) string {
	marker := "||"
	if np.Playing {
		marker = ">"
	}

	line := fmt.Sprintf("%s %s", marker, np.Track.Title)
	if np.Track.Artist != "" {
		line += " - " + np.Track.Artist
	}
	line += fmt.Sprintf("  %s", formatter.FormatDuration(np.PositionMs))
	if np.DurationMs > 0 {
		line += "/" + formatter.FormatDuration(np.DurationMs)
	}
	if np.BitrateKbps > 0 {
		line += fmt.Sprintf("  %d kbps", np.BitrateKbps)
	}
	if np.Sleep.Mode == engine.SleepAfterTime {
		line += fmt.Sprintf("  (sleep %s)", np.Sleep.Remaining.Round(secondsToDuration(1)))
	} else if np.Sleep.Mode == engine.SleepAfterSongs {
		line += fmt.Sprintf("  (sleep in %d songs)", np.Sleep.SongsLeft)
	}
	if np.LyricLine != "" {
		line += "  | " + np.LyricLine
	}
	return line
}
