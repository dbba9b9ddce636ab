package fleet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes returns the fleet API router, to be mounted at /fleet.
func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/drones", h.ListDrones)
	r.Post("/drones", h.AddDrone)
	r.Delete("/drones/{entity_id}", h.RemoveDrone)
	r.Get("/drones/{entity_id}/history", h.DroneHistory)

	r.Get("/pilots", h.ListPilots)
	r.Post("/pilots", h.RegisterPilot)
	r.Get("/pilots/{id}", h.GetPilot)

	r.Get("/zones", h.ListZones)
	r.Post("/refresh", h.Refresh)

	return r
}
