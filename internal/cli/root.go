package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tutorialcms/internal/config"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/logger"
	"github.com/tutorialcms/internal/service"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	Driver   string
	Database string
	DSN      string

	cfg config.AppConfig
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. Database flags default to the
// environment configuration.
func NewRootCommand(cfg config.AppConfig) *cobra.Command {
	opts := &RootOptions{cfg: cfg}

	cmd := &cobra.Command{
		Use:   "lifecyclectl",
		Short: "Operate content versions and scheduled actions",
		Long: `lifecyclectl inspects version history and drives scheduled publish,
unpublish and delete actions directly against the content database.

Run execute-due from cron to apply every action whose time has come.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", cfg.DatabaseDriver, "database driver (sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DatabasePath, "sqlite database path")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", cfg.DatabaseDSN, "postgres connection string")

	cmd.AddCommand(NewExecuteDueCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewVersionsCommand(opts))
	cmd.AddCommand(NewRestoreCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewInitUserCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// app is the engine opened for a single command invocation.
type app struct {
	db     *gorm.DB
	engine *lifecycle.Engine
}

func (o *RootOptions) open() (*app, error) {
	gdb, err := db.Init(db.Options{
		Driver: o.Driver,
		Path:   o.Database,
		DSN:    o.DSN,
		Silent: true,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	engine := lifecycle.NewEngine(gdb, service.NewContentRepository(gdb), lifecycle.Config{
		VersionAllocAttempts: o.cfg.VersionAllocAttempts,
		ClaimLease:           o.cfg.ClaimLease,
	}, logger.With("lifecyclectl"))
	return &app{db: gdb, engine: engine}, nil
}

func (a *app) Close() {
	_ = db.Close(a.db)
}

func (o *RootOptions) withApp(fn func(*app) error) error {
	a, err := o.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func parseContentType(raw string) (db.ContentType, error) {
	t, err := db.ParseContentType(raw)
	if err != nil {
		return "", NewExitError(ExitCommandError, err.Error())
	}
	return t, nil
}

func parseID(raw, what string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid %s %q", what, raw))
	}
	return uint(id), nil
}
