package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Services bundles everything the router exposes.
type Services struct {
	Registry  ResourceRegistry
	Capacity  CapacityReader
	Bookings  BookingLifecycle
	Selector  ResourceSelector
	Batch     BatchScheduler
	JWTSecret string
	// CORSOrigins is the allowed-origin list; "*" allows all.
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// NewRouter wires all engine routes. Everything except /health sits
// behind tenant auth.
func NewRouter(svcs Services) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return TenantAuth(svcs.JWTSecret, next)
		})

		r.Post("/resources", HandleCreateResource(svcs.Registry))
		r.Get("/resources", HandleListResources(svcs.Registry))
		r.Get("/resources/{id}", HandleGetResource(svcs.Registry))
		r.Put("/resources/{id}/status", HandleSetResourceStatus(svcs.Registry))
		r.Get("/resources/{id}/capacity", HandleResourceCapacity(svcs.Capacity))

		r.Post("/bookings", HandleCreateBooking(svcs.Bookings))
		r.Get("/bookings", HandleListBookings(svcs.Bookings))
		r.Get("/bookings/{id}", HandleGetBooking(svcs.Bookings))
		r.Post("/bookings/{id}/transition", HandleTransitionBooking(svcs.Bookings))
		r.Post("/bookings/{id}/reschedule", HandleRescheduleBooking(svcs.Bookings))

		r.Post("/schedule/select", HandleSelectResource(svcs.Selector))
		r.Post("/schedule/batch", HandleOptimizeBatch(svcs.Batch))
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	})

	return RequestLogger(CORS(svcs.CORSOrigins, r), svcs.Logger)
}
