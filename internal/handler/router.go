package handler

import (
	"net/http"

	"fieldops-server/internal/config"
	"fieldops-server/internal/domain"
	"fieldops-server/internal/middleware"
	"fieldops-server/pkg/response"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handlers groups every HTTP handler mounted by NewRouter.
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Catalog    *CatalogHandler
	Calendar   *CalendarHandler
	Assignment *AssignmentHandler
	History    *HistoryHandler
	Export     *ExportHandler
	Equipment  *EquipmentHandler
	Hotel      *HotelHandler
	Report     *ReportHandler
	WebSocket  *WebSocketHandler
}

func NewRouter(h *Handlers, tokens middleware.TokenValidator, cfg *config.Config, logger *logrus.Logger) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/sign-in", h.Auth.SignIn).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", h.Auth.Refresh).Methods("POST", "OPTIONS")
	api.HandleFunc("/logout", h.Auth.Logout).Methods("POST", "OPTIONS")

	cronGate := middleware.CronKeyMiddleware(cfg.Server.CronKey, tokens, domain.RoleEditor)
	api.Handle("/equipment/expiry-scan", cronGate(http.HandlerFunc(h.Equipment.ExpiryScan))).Methods("GET", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(tokens))

	protected.HandleFunc("/me", h.User.Me).Methods("GET", "OPTIONS")
	protected.HandleFunc("/account/password", h.User.ChangePassword).Methods("POST", "OPTIONS")
	protected.HandleFunc("/catalog/{kind}", h.Catalog.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/calendar/days", h.Calendar.ListDays).Methods("GET", "OPTIONS")
	protected.HandleFunc("/history/calendar-days", h.History.List).Methods("GET", "OPTIONS")
	protected.HandleFunc("/history/assignments", h.History.ListAssignment).Methods("GET", "OPTIONS")
	protected.HandleFunc("/export/assignments", h.Export.Assignments).Methods("GET", "OPTIONS")

	editor := protected.PathPrefix("").Subrouter()
	editor.Use(middleware.RequireRole(domain.RoleEditor))

	editor.HandleFunc("/calendar/upsert-day", h.Calendar.UpsertDay).Methods("POST", "OPTIONS")
	editor.HandleFunc("/assignments/create", h.Assignment.Create).Methods("POST", "OPTIONS")
	editor.HandleFunc("/assignments/update", h.Assignment.Update).Methods("POST", "OPTIONS")
	editor.HandleFunc("/assignments/delete", h.Assignment.Delete).Methods("POST", "OPTIONS")
	editor.HandleFunc("/assignments/assign-on-date", h.Assignment.AssignOnDate).Methods("POST", "OPTIONS")
	editor.HandleFunc("/assignments/on-call", h.Assignment.OnCall).Methods("POST", "OPTIONS")
	editor.HandleFunc("/history/calendar-days/restore", h.History.Restore).Methods("POST", "OPTIONS")
	editor.HandleFunc("/history/restore", h.History.RestoreRow).Methods("POST", "OPTIONS")
	editor.HandleFunc("/equipment/upload", h.Equipment.Upload).Methods("POST", "OPTIONS")
	editor.HandleFunc("/hotel-booking/request", h.Hotel.Request).Methods("POST", "OPTIONS")
	editor.HandleFunc("/reports/{kind:massiva|clientela}/operators", h.Report.Operators).Methods("POST", "OPTIONS")
	editor.HandleFunc("/reports/{kind:massiva|clientela}", h.Report.Generate).Methods("POST", "OPTIONS")

	admin := protected.PathPrefix("").Subrouter()
	admin.Use(middleware.RequireRole(domain.RoleAdmin))

	admin.HandleFunc("/admin/users", h.User.Create).Methods("POST", "OPTIONS")
	admin.HandleFunc("/catalog/{kind}", h.Catalog.Create).Methods("POST", "OPTIONS")

	if h.WebSocket != nil {
		r.HandleFunc("/ws", h.WebSocket.HandleConnection)
	}
	r.HandleFunc("/health", healthHandler).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{
		"status":  "healthy",
		"service": "fieldops-server",
	})
}
