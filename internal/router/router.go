package router

import (
	"net/http"

	"github.com/senyabanana/tender-workflow/internal/handlers"
	"github.com/senyabanana/tender-workflow/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func InitRoutes(tenderHandler *handlers.TenderHandler, bidHandler *handlers.BidHandler, jwtSecret string, logger *zap.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger, m))

	r.Get("/api/ping", handlers.PingHandler)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(jwtSecret, logger))

		r.Get("/api/tenders", tenderHandler.GetTenders)
		r.Post("/api/tenders/new", tenderHandler.CreateTender)
		r.Get("/api/tenders/{tenderId}", tenderHandler.GetTender)
		r.Patch("/api/tenders/{tenderId}/edit", tenderHandler.EditTender)
		r.Put("/api/tenders/{tenderId}/status", tenderHandler.UpdateTenderStatus)
		r.Get("/api/tenders/{tenderId}/bids", bidHandler.GetTenderBids)
		r.Post("/api/admin/tenders/close-expired", tenderHandler.CloseExpired)

		r.Post("/api/bids/new", bidHandler.CreateBid)
		r.Get("/api/bids/my", bidHandler.GetUserBids)
		r.Get("/api/bids/{bidId}", bidHandler.GetBid)
		r.Put("/api/bids/{bidId}/status", bidHandler.UpdateBidStatus)
		r.Post("/api/bids/{bidId}/withdraw", bidHandler.WithdrawBid)
	})

	return r
}
