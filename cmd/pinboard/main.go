// pinboard is a headless host for the board: each invocation loads the
// board from its database, applies one command through the session and the
// gesture controller, and exits. Every change is already on disk when the
// command returns.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/vbonduro/pinboard/internal/board"
	"github.com/vbonduro/pinboard/internal/config"
	"github.com/vbonduro/pinboard/internal/db"
	"github.com/vbonduro/pinboard/internal/domain"
	"github.com/vbonduro/pinboard/internal/gesture"
	"github.com/vbonduro/pinboard/internal/imagesource/local"
	"github.com/vbonduro/pinboard/internal/logging"
	"github.com/vbonduro/pinboard/internal/session"
	"github.com/vbonduro/pinboard/internal/store"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("no command given")

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var envFile, dbPath, imageRoot string

	flagSet := pflag.NewFlagSet("pinboard", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&envFile, "env-file", ".env", "file of KEY=VALUE defaults loaded before the environment is read")
	flagSet.StringVar(&dbPath, "db", "", "board database (overrides DB_PATH)")
	flagSet.StringVar(&imageRoot, "images", "", "base directory for relative image paths (overrides IMAGE_ROOT)")
	flagSet.Usage = func() {}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stdout, flagSet)
			return nil
		}
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stdout, flagSet)
		return errUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.Load()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if imageRoot != "" {
		cfg.ImageRoot = imageRoot
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd.run(ctx, a, rest[1:])
}

// app is the wiring shared by every command.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	database   *sql.DB
	session    *session.Session
	controller *gesture.Controller
	out        io.Writer

	added   []board.Item
	removed []board.Item
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	pen, err := penFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	items := store.NewItemStore(database)
	images := local.NewLocalImageSource(cfg.ImageRoot)
	sess := session.New(items, images, logger)
	if err := sess.Load(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		logger:     logger,
		database:   database,
		session:    sess,
		controller: gesture.New(sess, pen, logger),
		out:        out,
	}
	sess.OnChange(a.track)
	return a, nil
}

func penFromConfig(cfg *config.Config) (gesture.Pen, error) {
	color, err := domain.ParseRGB(cfg.PenColor)
	if err != nil {
		return gesture.Pen{}, fmt.Errorf("PEN_COLOR: %w", err)
	}
	textColor, err := domain.ParseRGB(cfg.TextColor)
	if err != nil {
		return gesture.Pen{}, fmt.Errorf("TEXT_COLOR: %w", err)
	}
	return gesture.Pen{Width: cfg.PenWidth, Color: color, TextColor: textColor}, nil
}

// track records the items a command created or removed so it can report them.
func (a *app) track(d session.Delta) {
	switch d.Op {
	case session.OpAdded:
		a.added = append(a.added, d.Item)
	case session.OpRemoved:
		a.removed = append(a.removed, d.Item)
	}
}

func (a *app) close() {
	// A focused note must not be lost when the process ends.
	if err := a.session.Blur(context.Background()); err != nil {
		a.logger.Error("failed to commit focused text", "error", err)
	}
	if err := a.database.Close(); err != nil {
		a.logger.Error("failed to close database", "error", err)
	}
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

type command struct {
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, "Usage: pinboard [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "  %-32s %s\n", name+" "+commands[name].usage, commands[name].summary)
	}
	_, _ = fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}
