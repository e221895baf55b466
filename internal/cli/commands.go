package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
)

// NewExecuteDueCommand creates the execute-due command.
func NewExecuteDueCommand(opts *RootOptions) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "execute-due",
		Short: "Apply every scheduled action that is due",
		Long: `Apply every scheduled action whose time is at or before --at (default now).

Failed actions stay pending and are retried by the next run. The command
exits with code 1 when any action failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --at", err)
				}
				now = parsed
			}

			return opts.withApp(func(a *app) error {
				summary, err := a.engine.ExecuteDue(cmd.Context(), now)
				if err != nil {
					return engineError("execute due actions", err)
				}
				if err := opts.printer(cmd).print(summary, func(w io.Writer) {
					fmt.Fprintf(w, "due: %d  executed: %d  skipped: %d  failed: %d\n",
						summary.Due, summary.Executed, summary.Skipped, len(summary.Failures))
					for _, f := range summary.Failures {
						fmt.Fprintf(w, "  #%d %s %s/%d: %s\n", f.ActionID, f.Action, f.ContentType, f.ContentID, f.Message())
					}
				}); err != nil {
					return err
				}
				if len(summary.Failures) > 0 {
					return NewExitError(ExitFailure, fmt.Sprintf("%d scheduled actions failed", len(summary.Failures)))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "evaluate due actions at this RFC3339 time")
	return cmd
}

// NewPendingCommand creates the pending command.
func NewPendingCommand(opts *RootOptions) *cobra.Command {
	var (
		contentType string
		contentID   uint
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List scheduled actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := lifecycle.ScheduleFilter{ContentID: contentID, IncludeExecuted: all}
			if contentType != "" {
				t, err := parseContentType(contentType)
				if err != nil {
					return err
				}
				filter.Type = t
			}

			return opts.withApp(func(a *app) error {
				records, err := a.engine.ListScheduledActions(cmd.Context(), filter)
				if err != nil {
					return engineError("list scheduled actions", err)
				}
				return opts.printer(cmd).print(records, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tACTION\tTARGET\tSCHEDULED FOR\tSTATE\tATTEMPTS")
					for _, r := range records {
						fmt.Fprintf(tw, "%d\t%s\t%s/%d\t%s\t%s\t%d\n",
							r.ID, r.Action, r.ContentType, r.ContentID,
							r.ScheduledFor.UTC().Format(time.RFC3339), scheduleState(r), r.Attempts)
					}
					tw.Flush()
				})
			})
		},
	}

	cmd.Flags().StringVar(&contentType, "type", "", "only actions for this content type")
	cmd.Flags().UintVar(&contentID, "content-id", 0, "only actions for this content id")
	cmd.Flags().BoolVar(&all, "all", false, "include executed actions")
	return cmd
}

func scheduleState(r db.ScheduledAction) string {
	switch {
	case r.Executed:
		return "executed"
	case r.Claimed():
		return "running"
	case r.LastError != "":
		return "retrying"
	}
	return "pending"
}

// NewVersionsCommand creates the versions command.
func NewVersionsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <type> <id>",
		Short: "List the version history of a tutorial or page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseContentType(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1], "content id")
			if err != nil {
				return err
			}

			return opts.withApp(func(a *app) error {
				versions, err := a.engine.ListVersions(cmd.Context(), t, id)
				if err != nil {
					return engineError("list versions", err)
				}
				return opts.printer(cmd).print(versions, func(w io.Writer) {
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "VERSION\tCHANGE\tAUTHOR\tCREATED\tTITLE")
					for _, v := range versions {
						change := v.ChangeType
						if v.RestoredFrom > 0 {
							change = fmt.Sprintf("%s(v%d)", change, v.RestoredFrom)
						}
						fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
							v.VersionNumber, change, v.CreatedBy, v.CreatedAt.UTC().Format(time.RFC3339), v.Title)
					}
					tw.Flush()
				})
			})
		},
	}
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(opts *RootOptions) *cobra.Command {
	var author uint

	cmd := &cobra.Command{
		Use:   "restore <type> <id> <version>",
		Short: "Roll content back to a version, recorded as a new version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseContentType(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1], "content id")
			if err != nil {
				return err
			}
			number, err := strconv.Atoi(args[2])
			if err != nil || number <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid version %q", args[2]))
			}

			return opts.withApp(func(a *app) error {
				restored, err := a.engine.RestoreVersion(cmd.Context(), t, id, number, author)
				if err != nil {
					return engineError("restore version", err)
				}
				return opts.printer(cmd).print(restored, func(w io.Writer) {
					fmt.Fprintf(w, "%s/%d restored from v%d as v%d\n", t, id, number, restored.VersionNumber)
				})
			})
		},
	}

	cmd.Flags().UintVar(&author, "author", 0, "user id recorded as the author")
	return cmd
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	var author uint

	cmd := &cobra.Command{
		Use:   "schedule <type> <id> <publish|unpublish|delete> <RFC3339 time>",
		Short: "Schedule a future state change",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseContentType(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1], "content id")
			if err != nil {
				return err
			}
			action, err := db.ParseAction(args[2])
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			at, err := time.Parse(time.RFC3339, args[3])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid time", err)
			}

			return opts.withApp(func(a *app) error {
				record, err := a.engine.ScheduleAction(cmd.Context(), lifecycle.ScheduleInput{
					Type:         t,
					ContentID:    id,
					Action:       action,
					ScheduledFor: at,
					AuthorID:     author,
				})
				if err != nil {
					return engineError("schedule action", err)
				}
				return opts.printer(cmd).print(record, func(w io.Writer) {
					fmt.Fprintf(w, "scheduled #%d: %s %s/%d at %s\n",
						record.ID, record.Action, t, id, record.ScheduledFor.Format(time.RFC3339))
				})
			})
		},
	}

	cmd.Flags().UintVar(&author, "author", 0, "user id recorded as the author")
	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <scheduled-action-id>",
		Short: "Cancel a pending scheduled action",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "scheduled action id")
			if err != nil {
				return err
			}

			return opts.withApp(func(a *app) error {
				if err := a.engine.CancelScheduledAction(cmd.Context(), id); err != nil {
					return engineError("cancel scheduled action", err)
				}
				return opts.printer(cmd).print(map[string]uint{"canceled": id}, func(w io.Writer) {
					fmt.Fprintf(w, "canceled #%d\n", id)
				})
			})
		},
	}
}

// NewInitUserCommand creates the init-user command.
func NewInitUserCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-user <username> <password>",
		Short: "Create an admin user if it does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				if err := db.EnsureUser(a.db, args[0], args[1]); err != nil {
					return WrapExitError(ExitFailure, "create user", err)
				}
				return opts.printer(cmd).print(map[string]string{"username": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "user %s is ready\n", args[0])
				})
			})
		},
	}
}

func (o *RootOptions) printer(cmd *cobra.Command) printer {
	return printer{format: o.Format, w: cmd.OutOrStdout()}
}
