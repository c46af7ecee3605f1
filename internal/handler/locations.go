package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/utils"
)

type locationPeriodRequest struct {
	StartDate string         `json:"startDate" validate:"required"`
	EndDate   string         `json:"endDate" validate:"required"`
	Weekday   int32          `json:"weekday" validate:"gte=0,lte=6"`
	Shifts    []domain.Shift `json:"shifts" validate:"required"`
}

type locationOverrideRequest struct {
	Date   string         `json:"date" validate:"required"`
	Shifts []domain.Shift `json:"shifts"`
}

func (h *Handler) GetAllLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.repository.GetAllLocations()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "lista de plantões obtida com sucesso", locations)
}

func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string                    `json:"name" validate:"required"`
		Type           string                    `json:"type" validate:"required,oneof=internal external"`
		CompetingGroup string                    `json:"competingGroup"`
		Periods        []locationPeriodRequest   `json:"periods" validate:"dive"`
		Overrides      []locationOverrideRequest `json:"overrides" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	periods, overrides, err := parseLocationConfig(req.Periods, req.Overrides)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	location := &domain.Location{
		Name:           req.Name,
		Type:           domain.LocationType(req.Type),
		CompetingGroup: req.CompetingGroup,
		Periods:        periods,
		Overrides:      overrides,
	}

	if err := utils.ValidateLocationConfig(location); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateLocation(location); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "locations_name_key":
			h.badRequest(w, r, errors.New("já existe um plantão com este nome"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "plantão cadastrado com sucesso", location)
}

func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	location := r.Context().Value(LocationCtx).(*domain.Location)
	h.successResponse(w, r, "plantão obtido com sucesso", location)
}

func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           *string                   `json:"name"`
		CompetingGroup *string                   `json:"competingGroup"`
		IsActive       *bool                     `json:"isActive"`
		Periods        []locationPeriodRequest   `json:"periods" validate:"dive"`
		Overrides      []locationOverrideRequest `json:"overrides" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	location := r.Context().Value(LocationCtx).(*domain.Location)

	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.CompetingGroup != nil {
		location.CompetingGroup = *req.CompetingGroup
	}
	if req.IsActive != nil {
		location.IsActive = *req.IsActive
	}
	if req.Periods != nil || req.Overrides != nil {
		periods, overrides, err := parseLocationConfig(req.Periods, req.Overrides)
		if err != nil {
			h.badRequest(w, r, err)
			return
		}
		if req.Periods != nil {
			location.Periods = periods
		}
		if req.Overrides != nil {
			location.Overrides = overrides
		}
	}

	if err := utils.ValidateLocationConfig(location); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateLocation(location); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "locations_name_key":
			h.badRequest(w, r, errors.New("já existe um plantão com este nome"))
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "falha ao atualizar o plantão, tente novamente")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "plantão atualizado com sucesso", location)
}

func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	location := r.Context().Value(LocationCtx).(*domain.Location)

	if err := h.repository.DeleteLocation(location.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "plantão removido com sucesso", nil)
}

func parseLocationConfig(periodReqs []locationPeriodRequest, overrideReqs []locationOverrideRequest) ([]domain.LocationPeriod, []domain.LocationOverride, error) {
	periods := make([]domain.LocationPeriod, 0, len(periodReqs))
	for _, p := range periodReqs {
		start, err := time.Parse("2006-01-02", p.StartDate)
		if err != nil {
			return nil, nil, errors.New("data inicial inválida, use o formato AAAA-MM-DD")
		}
		end, err := time.Parse("2006-01-02", p.EndDate)
		if err != nil {
			return nil, nil, errors.New("data final inválida, use o formato AAAA-MM-DD")
		}
		periods = append(periods, domain.LocationPeriod{
			StartDate: start,
			EndDate:   end,
			Weekday:   p.Weekday,
			Shifts:    p.Shifts,
		})
	}

	overrides := make([]domain.LocationOverride, 0, len(overrideReqs))
	for _, o := range overrideReqs {
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			return nil, nil, errors.New("data inválida, use o formato AAAA-MM-DD")
		}
		overrides = append(overrides, domain.LocationOverride{
			Date:   date,
			Shifts: o.Shifts,
		})
	}

	return periods, overrides, nil
}
