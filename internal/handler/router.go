// Package handler wires the HTTP routes to the dialogue services.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/handler/query"
	"github.com/ovc-dev/ovc/backend/internal/handler/store"
	"github.com/ovc-dev/ovc/backend/internal/handler/voice"
	middlewarePkg "github.com/ovc-dev/ovc/backend/internal/middleware"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/records"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
	"github.com/ovc-dev/ovc/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the dialogue engine and the read services.
func NewRouter(engine *dialog.Engine, catalogStore *catalog.Store, ledger *inventory.Ledger, sink *records.FileSink, speechSvc *speech.Service, turnTimeout time.Duration, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	queryHandler := query.New(engine, turnTimeout, log)
	storeHandler := store.New(catalogStore, ledger, sink, log)
	voiceHandler := voice.New(engine, speechSvc, turnTimeout, log)

	r.Route("/api", func(api chi.Router) {
		queryHandler.RegisterRoutes(api)
		storeHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":        "ok",
				"responder":     engine.ResponderConfigured(),
				"transcription": speechSvc.TranscriptionEnabled(),
				"synthesis":     speechSvc.SynthesisEnabled(),
			})
		})
	})

	return r
}
