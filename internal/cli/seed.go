package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/service"
)

// seedSummary 汇总 seed 命令写入的数据。
type seedSummary struct {
	Tutorials int  `json:"tutorials"`
	Pages     int  `json:"pages"`
	Scheduled int  `json:"scheduled"`
	Skipped   bool `json:"skipped"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate an empty database with demo content",
		Long: `Create a demo admin user, a few tutorials with edit history, an about
page and pending scheduled actions. Does nothing when tutorials exist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(a *app) error {
				summary, err := seedDemoContent(cmd.Context(), a, time.Now().UTC())
				if err != nil {
					return engineError("seed demo content", err)
				}
				return opts.printer(cmd).print(summary, func(w io.Writer) {
					if summary.Skipped {
						fmt.Fprintln(w, "tutorials already exist, skipping")
						return
					}
					fmt.Fprintf(w, "tutorials: %d  pages: %d  scheduled: %d\n", summary.Tutorials, summary.Pages, summary.Scheduled)
					fmt.Fprintln(w, "user: admin (password: admin123)")
				})
			})
		},
	}
}

func seedDemoContent(ctx context.Context, a *app, now time.Time) (seedSummary, error) {
	var summary seedSummary

	var count int64
	if err := a.db.WithContext(ctx).Model(&db.Tutorial{}).Count(&count).Error; err != nil {
		return summary, err
	}
	if count > 0 {
		summary.Skipped = true
		return summary, nil
	}

	if err := db.EnsureUser(a.db, "admin", "admin123"); err != nil {
		return summary, err
	}
	admin, err := db.Authenticate(a.db, "admin", "admin123")
	if err != nil {
		return summary, err
	}

	tutorials := service.NewTutorialService(a.db, a.engine.Versions)
	pages := service.NewPageService(a.db, a.engine.Versions)

	drafts := []struct {
		title    string
		body     string
		revision string
		level    string
	}{
		{"Go 并发入门", "## goroutine\n\n用 `go` 关键字启动。", "## goroutine\n\n用 `go` 关键字启动，配合 channel 传递数据。", "beginner"},
		{"使用 GORM 管理迁移", "AutoMigrate 会创建缺失的表。", "AutoMigrate 会创建缺失的表与索引，但不会删除列。", "intermediate"},
		{"Gin 中间件实践", "中间件按注册顺序执行。", "", "intermediate"},
	}

	var created []*db.Tutorial
	for _, d := range drafts {
		tutorial, err := tutorials.Create(ctx, service.ContentInput{
			Title:    d.title,
			Body:     d.body,
			Metadata: map[string]interface{}{"level": d.level},
			UserID:   admin.ID,
		})
		if err != nil {
			return summary, err
		}
		if d.revision != "" {
			if tutorial, err = tutorials.Update(ctx, tutorial.ID, service.ContentInput{
				Title:    d.title,
				Body:     d.revision,
				Metadata: map[string]interface{}{"level": d.level, "reviewed": true},
				UserID:   admin.ID,
			}); err != nil {
				return summary, err
			}
		}
		created = append(created, tutorial)
	}
	summary.Tutorials = len(created)

	if _, err := pages.Create(ctx, service.ContentInput{
		Slug:    "about",
		Title:   "关于本站",
		Summary: "一个按版本管理的教程站点。",
		Body:    "## 你好\n\n这里的每一次修改都会保存为新版本，可随时回滚。",
		UserID:  admin.ID,
	}); err != nil {
		return summary, err
	}
	summary.Pages = 1

	// 第一篇立即到期，其余排在未来
	plans := []lifecycle.ScheduleInput{
		{Type: db.ContentTutorial, ContentID: created[0].ID, Action: db.ActionPublish, ScheduledFor: now},
		{Type: db.ContentTutorial, ContentID: created[1].ID, Action: db.ActionPublish, ScheduledFor: now.Add(24 * time.Hour)},
		{Type: db.ContentTutorial, ContentID: created[1].ID, Action: db.ActionUnpublish, ScheduledFor: now.Add(30 * 24 * time.Hour)},
	}
	for _, plan := range plans {
		plan.AuthorID = admin.ID
		if _, err := a.engine.ScheduleAction(ctx, plan); err != nil {
			return summary, err
		}
	}
	summary.Scheduled = len(plans)
	return summary, nil
}
