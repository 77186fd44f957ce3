package main

import (
	"context"

	"github.com/soundleaf/folderplay/internal/browse"
	"github.com/soundleaf/folderplay/internal/formatter"
	"github.com/soundleaf/folderplay/internal/prefs"
	"github.com/soundleaf/folderplay/internal/queue"
	"github.com/soundleaf/folderplay/internal/source"
	"github.com/urfave/cli/v3"
)

// listingCache survives across subcommands within one process run.
var listingCache = browse.NewCache(0)

// Browse lists a folder, remembering where the user is per source.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	cfg, path, err := r.resolveFolder(ctx, cmd)
	if err != nil {
		return err
	}
	src := r.openSource(cfg)
	browser := browse.NewBrowser(cfg, src, listingCache, r.logger)

	if cmd.Bool("up") {
		path = source.ParentPath(path)
		if path == "" || len(path) < len(browser.Root())-1 {
			path = browser.Root()
		}
	}

	field, asc, err := r.sortChoice(ctx, cmd, cfg.ID, path)
	if err != nil {
		return err
	}

	listing := browser.Load(ctx, path, field, asc)

	if cmd.Bool("save-sort") {
		o := prefs.SortOverride{Field: field, Ascending: asc}
		if err := r.sources.SetSortOverride(ctx, cfg.ID, path, o); err != nil {
			return err
		}
	}
	if err := r.sources.SetLastBrowsed(ctx, cfg.ID, path); err != nil {
		r.logger.Warn("saving last browsed failed", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(listing, true)
	}
	return r.writePlain("%s", formatter.ListingToText(listing))
}

// Queue builds and prints the play queue for a folder.
func (r *Runner) Queue(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	cfg, path, err := r.resolveFolder(ctx, cmd)
	if err != nil {
		return err
	}

	tracks, err := r.buildQueue(ctx, cfg, path)
	if err != nil {
		return err
	}

	if file := cmd.String("export"); file != "" {
		written, err := formatter.WriteQueueExport(path, tracks, file)
		if err != nil {
			return err
		}
		return r.writePlain("wrote %s\n", written)
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}
	return r.writePlain("%s", formatter.QueueToText(path, tracks))
}

// resolveFolder picks the source and folder a command operates on, falling
// back to the last browsed folder and then the source root.
func (r *Runner) resolveFolder(ctx context.Context, cmd *cli.Command) (source.Config, string, error) {
	cfg, err := r.resolveSource(ctx, cmd.String("source"))
	if err != nil {
		return source.Config{}, "", err
	}

	path := cmd.String("path")
	if path == "" {
		if last, ok, err := r.sources.LastBrowsed(ctx, cfg.ID); err != nil {
			return source.Config{}, "", err
		} else if ok {
			path = last
		} else {
			path = cfg.Root()
		}
	}
	return cfg, path, nil
}

// sortChoice resolves the sort order: explicit flags beat the per-folder
// override, which beats the default.
func (r *Runner) sortChoice(ctx context.Context, cmd *cli.Command, sourceID, path string) (source.SortField, bool, error) {
	if cmd.IsSet("sort") || cmd.IsSet("desc") {
		return source.ParseSortField(cmd.String("sort")), !cmd.Bool("desc"), nil
	}

	if override, ok, err := r.sources.SortOverrideFor(ctx, sourceID, path); err != nil {
		return source.SortByName, true, err
	} else if ok {
		return override.Field, override.Ascending, nil
	}

	def, err := r.playback.DefaultSort(ctx)
	if err != nil {
		return source.SortByName, true, err
	}
	return def.Field, def.Ascending, nil
}

func (r *Runner) buildQueue(ctx context.Context, cfg source.Config, path string) ([]queue.Track, error) {
	src := r.openSource(cfg)
	builder := queue.NewBuilder(src, r.logger)

	// A cue sheet path queues the sheet's virtual tracks directly.
	if queue.IsCueSheet(path) {
		entry := source.Entry{Name: source.BaseName(path), Path: path}
		siblings := src.List(ctx, source.ParentPath(path))
		return builder.FromCue(ctx, entry, siblings)
	}

	browser := browse.NewBrowser(cfg, src, listingCache, r.logger)

	field, asc := source.SortByName, true
	if override, ok, err := r.sources.SortOverrideFor(ctx, cfg.ID, path); err == nil && ok {
		field, asc = override.Field, override.Ascending
	} else if def, err := r.playback.DefaultSort(ctx); err == nil {
		field, asc = def.Field, def.Ascending
	}

	listing := browser.Load(ctx, path, field, asc)

	var parent []source.Entry
	if name := source.BaseName(path); len(name) <= queue.ShortFolderName {
		if pp := source.ParentPath(path); pp != "" {
			parent = src.List(ctx, pp)
		}
	}

	return builder.FromFolder(ctx, path, listing.Entries, parent), nil
}
