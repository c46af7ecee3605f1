package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/scheduler"
)

func (h *Handler) GetReplacementCandidates(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	engine, _, err := h.buildValidationEngine([]time.Time{assignment.Date})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	candidates, err := engine.FindReplacementCandidates(assignment.LocationID, assignment.Date, assignment.Shift, assignment.BrokerID)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.successResponse(w, r, "candidatos à substituição obtidos com sucesso", candidates)
}

func (h *Handler) ApplyReplacement(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		CandidateID int64 `json:"candidateID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engine, _, err := h.buildValidationEngine([]time.Time{assignment.Date})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	plan, err := engine.PlanReplacement(assignment.ID, req.CandidateID)
	if err != nil {
		var ruleErr *scheduler.RuleError
		switch {
		case errors.As(err, &ruleErr):
			h.errorResponse(w, r, ruleErr.Detail)
		case errors.Is(err, scheduler.ErrAssignmentNotFound):
			h.errorResponse(w, r, "escala não encontrada")
		default:
			h.errorResponse(w, r, err.Error())
		}
		return
	}

	if err := h.repository.ApplyReplacementPlan(plan); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "a escala foi alterada por outra operação, tente novamente")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// Best effort: tell the new holder about the shift.
	if candidate, err := h.repository.GetBrokerByID(req.CandidateID); err == nil {
		location, err := h.repository.GetLocationByID(assignment.LocationID)
		if err == nil {
			msg := domain.NotificationMessage{
				Type: "replacement_applied",
				To:   candidate.Email,
				Data: domain.ReplacementAppliedData{
					FullName:     candidate.FullName,
					LocationName: location.Name,
					Date:         assignment.Date.Format("02/01/2006"),
					Shift:        assignment.Shift.Label(),
				},
			}
			if err := h.publishNotification(msg); err != nil {
				slog.Error("falha ao publicar notificação de substituição", "assignmentID", assignment.ID, "error", err)
			}
		}
	}

	h.successResponse(w, r, "substituição aplicada com sucesso", plan)
}

func (h *Handler) CheckRelocation(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		NewLocationID int64 `json:"newLocationID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engine, _, err := h.buildValidationEngine([]time.Time{assignment.Date})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	conflict, err := engine.CheckRelocation(assignment.ID, req.NewLocationID)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.successResponse(w, r, "verificação concluída", conflict)
}

func (h *Handler) RelocateAssignment(w http.ResponseWriter, r *http.Request) {
	assignment := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	var req struct {
		NewLocationID int64 `json:"newLocationID" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engine, _, err := h.buildValidationEngine([]time.Time{assignment.Date})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	conflict, err := engine.CheckRelocation(assignment.ID, req.NewLocationID)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if conflict.Occupied {
		h.errorResponse(w, r, "o horário de destino já está ocupado, utilize a substituição para realizar a troca")
		return
	}

	if err := h.repository.UpdateAssignmentLocation(assignment, req.NewLocationID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "a escala foi alterada por outra operação, tente novamente")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "escala transferida com sucesso", assignment)
}
