package handler

import (
	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	engine    *lifecycle.Engine
	tutorials *service.TutorialService
	pages     *service.PageService
	log       zerolog.Logger
}

// NewAPI constructs a handler set with shared services. Every save made
// through the CRUD endpoints is recorded by the engine's version store.
func NewAPI(gdb *gorm.DB, engine *lifecycle.Engine, log zerolog.Logger) *API {
	return &API{
		db:        gdb,
		engine:    engine,
		tutorials: service.NewTutorialService(gdb, engine.Versions),
		pages:     service.NewPageService(gdb, engine.Versions),
		log:       log,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
