// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the preference database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a config.toml from the bundled template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path to write",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}

func sourcesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "sources",
		Aliases: []string{"src"},
		Usage:   "Manage music sources",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a local folder or WebDAV share",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.StringFlag{Name: "kind", Usage: "local or webdav", Value: "webdav"},
					&cli.StringFlag{Name: "url", Usage: "Root path or server URL", Required: true},
					&cli.StringFlag{Name: "subpath", Usage: "Path below the server root"},
					&cli.StringFlag{Name: "user", Usage: "Username for Basic auth"},
					&cli.StringFlag{Name: "pass", Usage: "Password for Basic auth"},
				},
				Action: r.SourcesAdd,
			},
			{
				Name:  "list",
				Usage: "List configured sources",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SourcesList,
			},
			{
				Name:  "edit",
				Usage: "Change fields of a source",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New display name"},
					&cli.StringFlag{Name: "url", Usage: "New root path or server URL"},
					&cli.StringFlag{Name: "subpath", Usage: "New path below the server root"},
					&cli.StringFlag{Name: "user", Usage: "New username"},
					&cli.StringFlag{Name: "pass", Usage: "New password"},
				},
				ArgsUsage: "<source>",
				Action:    r.SourcesEdit,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Remove a source",
				ArgsUsage: "<source>",
				Action:    r.SourcesRemove,
			},
			{
				Name:      "duplicate",
				Aliases:   []string{"dup"},
				Usage:     "Copy a source, placed right after the original",
				ArgsUsage: "<source>",
				Action:    r.SourcesDuplicate,
			},
			{
				Name:      "move",
				Usage:     "Move a source to a new list position (1-based)",
				ArgsUsage: "<source> <position>",
				Action:    r.SourcesMove,
			},
		},
	}
}

func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "browse",
		Aliases: []string{"ls"},
		Usage:   "List a folder in a source",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source ID, name, or position"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Folder to list; defaults to the last browsed one"},
			&cli.StringFlag{Name: "sort", Usage: "name, date, or size"},
			&cli.BoolFlag{Name: "desc", Usage: "Sort descending"},
			&cli.BoolFlag{Name: "save-sort", Usage: "Remember this sort for this folder"},
			&cli.BoolFlag{Name: "up", Usage: "List the parent of the last browsed folder"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Browse,
	}
}

func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Build and show the play queue for a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source ID, name, or position"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Folder to queue; defaults to the last browsed one"},
			&cli.StringFlag{Name: "export", Aliases: []string{"o"}, Usage: "Write the queue to a file (.txt, .csv, .json)"},
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Queue,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a folder, or resume the last session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source ID, name, or position"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Folder to play; defaults to the last browsed one"},
			&cli.IntFlag{Name: "index", Aliases: []string{"i"}, Usage: "Track to start at (1-based)", Value: 1},
			&cli.BoolFlag{Name: "shuffle", Usage: "Shuffle the queue"},
			&cli.StringFlag{Name: "repeat", Usage: "off, one, or all"},
			&cli.BoolFlag{Name: "resume", Usage: "Resume the saved session instead of starting fresh"},
			&cli.DurationFlag{Name: "sleep", Usage: "Stop playback after this long"},
			&cli.IntFlag{Name: "sleep-songs", Usage: "Stop playback after this many songs"},
			&cli.BoolFlag{Name: "auto-next", Usage: "Continue into the next sibling folder"},
		},
		Action: r.Play,
	}
}

func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Describe an album folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Source ID, name, or position"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Folder to describe; defaults to the last browsed one"},
		},
		Action: r.Info,
	}
}

func resetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reset",
		Usage:  "Clear saved playback state and browse preferences",
		Action: r.Reset,
	}
}
