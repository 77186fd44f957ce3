package main

import (
	"context"
	"fmt"

	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// Info prints a short description of an album folder.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}
	if r.blurbs == nil {
		return fmt.Errorf("%w: set [ai] api_key in config.toml", shared.ErrMissingConfig)
	}

	cfg, path, err := r.resolveFolder(ctx, cmd)
	if err != nil {
		return err
	}

	tracks, err := r.buildQueue(ctx, cfg, path)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: %s", shared.ErrNoPlayableTracks, path)
	}

	album := queue.AlbumName(path)
	titles := make([]string, 0, len(tracks))
	artist := ""
	for _, t := range tracks {
		titles = append(titles, t.Title)
		if artist == "" {
			artist = t.Artist
		}
	}

	r.logger.Info("asking for album blurb", "album", album)
	blurb, err := r.blurbs.AlbumBlurb(ctx, album, artist, titles)
	if err != nil {
		return err
	}

	r.writePlainln("%s", album)
	return r.writePlain("%s\n", blurb)
}
