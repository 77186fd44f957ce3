package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
	"github.com/urfave/cli/v3"
)

// SourcesAdd registers a new music location.
func (r *Runner) SourcesAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	kind := source.KindWebDAV
	switch strings.ToLower(cmd.String("kind")) {
	case "local":
		kind = source.KindLocal
	case "webdav", "":
	default:
		return fmt.Errorf("%w: kind must be local or webdav", shared.ErrInvalidFlag)
	}

	cfg := source.NewConfig(
		cmd.String("name"),
		kind,
		cmd.String("url"),
		cmd.String("subpath"),
		cmd.String("user"),
		cmd.String("pass"),
	)
	if err := r.sources.Add(ctx, cfg); err != nil {
		return err
	}

	r.logger.Info("source added", "name", cfg.Name, "kind", cfg.Kind)
	return r.writePlain("added %s (%s)\n", cfg.Name, cfg.ID)
}

// SourcesList prints the configured sources in user order.
func (r *Runner) SourcesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	configs, err := r.sources.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		redacted := make([]source.Config, len(configs))
		copy(redacted, configs)
		for i := range redacted {
			redacted[i].Password = ""
		}
		return r.writeJSON(redacted, true)
	}

	if len(configs) == 0 {
		return r.writePlain("no sources configured; add one with `sources add`\n")
	}
	for i, cfg := range configs {
		if err := r.writePlain("%d. %s  [%s]  %s\n", i+1, cfg.Name, cfg.Kind, cfg.Root()); err != nil {
			return err
		}
	}
	return nil
}

// SourcesEdit updates fields of an existing source.
func (r *Runner) SourcesEdit(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: source to edit", shared.ErrMissingArgument)
	}

	cfg, err := r.resolveSource(ctx, ref)
	if err != nil {
		return err
	}

	changed := false
	for flag, target := range map[string]*string{
		"name":    &cfg.Name,
		"url":     &cfg.URL,
		"subpath": &cfg.SubPath,
		"user":    &cfg.Username,
		"pass":    &cfg.Password,
	} {
		if cmd.IsSet(flag) {
			*target = cmd.String(flag)
			changed = true
		}
	}
	if !changed {
		return fmt.Errorf("%w: nothing to change", shared.ErrMissingArgument)
	}

	if err := r.sources.Update(ctx, cfg); err != nil {
		return err
	}
	return r.writePlain("updated %s\n", cfg.Name)
}

// SourcesRemove deletes a source and its browse preferences.
func (r *Runner) SourcesRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: source to remove", shared.ErrMissingArgument)
	}

	cfg, err := r.resolveSource(ctx, ref)
	if err != nil {
		return err
	}
	if err := r.sources.Remove(ctx, cfg.ID); err != nil {
		return err
	}
	return r.writePlain("removed %s\n", cfg.Name)
}

// SourcesDuplicate copies a source under a new identity.
func (r *Runner) SourcesDuplicate(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("%w: source to duplicate", shared.ErrMissingArgument)
	}

	cfg, err := r.resolveSource(ctx, ref)
	if err != nil {
		return err
	}

	copied, err := r.sources.Duplicate(ctx, cfg.ID)
	if err != nil {
		return err
	}
	return r.writePlain("added %s (%s)\n", copied.Name, copied.ID)
}

// SourcesMove reorders the source list.
func (r *Runner) SourcesMove(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStore(); err != nil {
		return err
	}

	ref := cmd.Args().First()
	posArg := cmd.Args().Get(1)
	if ref == "" || posArg == "" {
		return fmt.Errorf("%w: source and position", shared.ErrMissingArgument)
	}

	position, err := strconv.Atoi(posArg)
	if err != nil || position < 1 {
		return fmt.Errorf("%w: position must be a 1-based index", shared.ErrInvalidArgument)
	}

	cfg, err := r.resolveSource(ctx, ref)
	if err != nil {
		return err
	}
	if err := r.sources.Move(ctx, cfg.ID, position-1); err != nil {
		return err
	}
	return r.writePlain("moved %s to position %d\n", cfg.Name, position)
}
