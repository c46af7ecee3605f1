package handler

import (
	"net/http"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/scheduler"
)

func (h *Handler) GetSaturdayQueue(w http.ResponseWriter, r *http.Request) {
	location := r.Context().Value(LocationCtx).(*domain.Location)

	entries, err := h.repository.GetQueueEntriesByLocation(location.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// The queue view is the rotation order, not the raw table: active rows
	// only, position first, never-worked and oldest Saturdays ahead on ties.
	queue := scheduler.NewRotationQueue(location.ID, entries)
	h.successResponse(w, r, "fila de sábado obtida com sucesso", map[string]any{
		"entries": queue.Active(),
		"ledger":  queue.Entries(),
	})
}

func (h *Handler) SyncSaturdayQueue(w http.ResponseWriter, r *http.Request) {
	location := r.Context().Value(LocationCtx).(*domain.Location)

	if location.Type != domain.LocationExternal {
		h.errorResponse(w, r, "apenas plantões externos possuem fila de sábado")
		return
	}

	brokers, err := h.repository.GetAllBrokers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var eligible []int64
	for _, broker := range brokers {
		if !broker.IsActive {
			continue
		}
		if broker.Availability.Includes(time.Saturday, domain.ShiftMorning) ||
			broker.Availability.Includes(time.Saturday, domain.ShiftAfternoon) {
			eligible = append(eligible, broker.ID)
		}
	}

	entries, err := h.repository.GetQueueEntriesByLocation(location.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	queue := scheduler.NewRotationQueue(location.ID, entries)
	added, deactivated := queue.Sync(eligible)

	if err := h.repository.SaveQueueEntries(queue.Entries()); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "fila de sábado sincronizada com sucesso", map[string]any{
		"added":       added,
		"deactivated": deactivated,
		"entries":     queue.Active(),
	})
}
