package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/scheduler"
)

const generateLockKey = "schedule_generate_lock"

func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	myID := r.Context().Value(SubCtxKey).(string)

	var req struct {
		WeekStarts []string `json:"weekStarts" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if len(req.WeekStarts) > h.config.Scheduler.MaxWeeksPerRun {
		h.errorResponse(w, r, "número de semanas acima do permitido por execução")
		return
	}

	weeks := make([]time.Time, 0, len(req.WeekStarts))
	for _, ws := range req.WeekStarts {
		week, err := time.Parse("2006-01-02", ws)
		if err != nil {
			h.errorResponse(w, r, "data de início de semana inválida, use o formato AAAA-MM-DD")
			return
		}
		weeks = append(weeks, scheduler.WeekStart(week))
	}

	// Only one generation runs at a time; the run ID makes the guard owner
	// traceable in the logs.
	runID := uuid.NewString()

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Minute)
	defer cancel()

	acquired, err := h.redisClient.SetNX(ctx, generateLockKey, runID, time.Duration(h.config.Scheduler.GenerateLockExpiration)*time.Second).Result()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if !acquired {
		h.errorResponse(w, r, "já existe uma geração de escala em andamento, aguarde")
		return
	}
	defer func() {
		if err := h.redisClient.Del(context.Background(), generateLockKey).Err(); err != nil {
			slog.Error("falha ao liberar o bloqueio de geração", "runID", runID, "error", err)
		}
	}()

	engine, targetWeeks, err := h.buildEngine(weeks)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	result, err := engine.Generate(weeks)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrNoLocations):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	// Weeks skipped because of a lock keep their rows; only the weeks that
	// were actually regenerated are replaced.
	persistWeeks := make([]time.Time, 0, len(targetWeeks))
	for _, week := range targetWeeks {
		skipped := false
		for _, s := range result.SkippedWeeks {
			if s.Equal(week) {
				skipped = true
				break
			}
		}
		if !skipped {
			persistWeeks = append(persistWeeks, week)
		}
	}

	if err := h.repository.ReplaceGeneratedWeeks(persistWeeks, result.Assignments, result.QueueEntries); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// The notification is best effort; a generated schedule must not be
	// reported as a failure because the queue is down.
	if requesterID, parseErr := strconv.ParseInt(myID, 10, 64); parseErr == nil {
		h.notifyScheduleGenerated(requesterID, runID, len(persistWeeks), result)
	}

	h.successResponse(w, r, "escala gerada com sucesso", result)
}

func (h *Handler) notifyScheduleGenerated(requesterID int64, runID string, weekCount int, result *scheduler.GenerateResult) {
	requester, err := h.repository.GetBrokerByID(requesterID)
	if err != nil {
		slog.Error("falha ao carregar o solicitante da geração", "runID", runID, "error", err)
		return
	}
	msg := domain.NotificationMessage{
		Type: "schedule_generated",
		To:   requester.Email,
		Data: domain.ScheduleGeneratedData{
			FullName:       requester.FullName,
			WeekCount:      weekCount,
			AssignedCount:  len(result.Assignments),
			ViolationCount: len(result.Violations),
			RunID:          runID,
		},
	}
	if err := h.publishNotification(msg); err != nil {
		slog.Error("falha ao publicar notificação de escala gerada", "runID", runID, "error", err)
	}
}

func (h *Handler) ValidateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStarts []string `json:"weekStarts" validate:"required,min=1"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	weeks := make([]time.Time, 0, len(req.WeekStarts))
	for _, ws := range req.WeekStarts {
		week, err := time.Parse("2006-01-02", ws)
		if err != nil {
			h.errorResponse(w, r, "data de início de semana inválida, use o formato AAAA-MM-DD")
			return
		}
		weeks = append(weeks, scheduler.WeekStart(week))
	}

	engine, targetWeeks, err := h.buildValidationEngine(weeks)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var demands []scheduler.DemandSlot
	for _, week := range targetWeeks {
		demands = append(demands, engine.BuildDemand(week)...)
	}

	// Cross-boundary rules need the adjacent weeks' rows as context; the
	// report is trimmed back to the requested range afterwards.
	start := targetWeeks[0]
	end := targetWeeks[len(targetWeeks)-1].AddDate(0, 0, 6)
	assignments, err := h.repository.GetAssignmentsInRange(start.AddDate(0, 0, -7), end.AddDate(0, 0, 7))
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	report := engine.ValidateRange(assignments, demands, start, end)
	h.successResponse(w, r, "validação concluída", report)
}

func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("start")
	endParam := r.URL.Query().Get("end")

	start, err := time.Parse("2006-01-02", startParam)
	if err != nil {
		h.errorResponse(w, r, "parâmetro start inválido, use o formato AAAA-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", endParam)
	if err != nil {
		h.errorResponse(w, r, "parâmetro end inválido, use o formato AAAA-MM-DD")
		return
	}
	if end.Before(start) {
		h.errorResponse(w, r, "o período informado é inválido")
		return
	}

	assignments, err := h.repository.GetAssignmentsInRange(start, end)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "escalas obtidas com sucesso", assignments)
}

func (h *Handler) GetScheduleLocks(w http.ResponseWriter, r *http.Request) {
	locks, err := h.repository.GetAllScheduleLocks()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "bloqueios obtidos com sucesso", locks)
}

func (h *Handler) CreateScheduleLock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStart string `json:"weekStart" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	week, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		h.errorResponse(w, r, "data de início de semana inválida, use o formato AAAA-MM-DD")
		return
	}

	lock := &domain.ScheduleLock{WeekStart: scheduler.WeekStart(week)}
	if err := h.repository.CreateScheduleLock(lock); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "semana bloqueada com sucesso", lock)
}

func (h *Handler) DeleteScheduleLock(w http.ResponseWriter, r *http.Request) {
	weekParam := chi.URLParam(r, "weekStart")
	week, err := time.Parse("2006-01-02", weekParam)
	if err != nil {
		h.errorResponse(w, r, "data de início de semana inválida, use o formato AAAA-MM-DD")
		return
	}

	if err := h.repository.DeleteScheduleLock(scheduler.WeekStart(week)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "semana desbloqueada com sucesso", nil)
}

// ArchiveWeeklyStats materializes the per-broker aggregates of a committed
// week into the fallback table, which is what future generations read once
// the raw assignment rows of that week age out.
func (h *Handler) ArchiveWeeklyStats(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WeekStart string `json:"weekStart" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	week, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		h.errorResponse(w, r, "data de início de semana inválida, use o formato AAAA-MM-DD")
		return
	}
	weekStart := scheduler.WeekStart(week)

	engine, _, err := h.buildValidationEngine([]time.Time{weekStart})
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	stats := engine.ArchiveWeek(weekStart)
	if len(stats) == 0 {
		h.errorResponse(w, r, "não há plantões na semana informada para arquivar")
		return
	}

	if err := h.repository.ArchiveWeeklyStats(weekStart, stats); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "estatísticas da semana arquivadas com sucesso", stats)
}

// buildEngine loads a snapshot for a generation run over the given weeks.
// Assignment rows inside unlocked target weeks are excluded: those weeks are
// about to be regenerated and their old rows must not act as rule context.
func (h *Handler) buildEngine(weeks []time.Time) (*scheduler.Engine, []time.Time, error) {
	targetWeeks := normalizeWeeks(weeks)

	brokers, err := h.repository.GetAllBrokers()
	if err != nil {
		return nil, nil, err
	}
	locations, err := h.repository.GetAllLocations()
	if err != nil {
		return nil, nil, err
	}
	locks, err := h.repository.GetAllScheduleLocks()
	if err != nil {
		return nil, nil, err
	}

	lockedWeeks := make([]time.Time, 0, len(locks))
	for _, lock := range locks {
		lockedWeeks = append(lockedWeeks, lock.WeekStart)
	}

	// One week of context on each side of the target range.
	start := targetWeeks[0].AddDate(0, 0, -7)
	end := targetWeeks[len(targetWeeks)-1].AddDate(0, 0, 13)
	committed, err := h.repository.GetAssignmentsInRange(start, end)
	if err != nil {
		return nil, nil, err
	}

	assignments := make([]*domain.Assignment, 0, len(committed))
	for _, a := range committed {
		week := scheduler.WeekStart(a.Date)
		if isTargetWeek(targetWeeks, week) && !isLockedWeek(lockedWeeks, week) {
			continue
		}
		assignments = append(assignments, a)
	}

	queueEntries, err := h.repository.GetAllQueueEntries()
	if err != nil {
		return nil, nil, err
	}

	var fallbackStats []*domain.WeeklyStat
	for _, week := range targetWeeks {
		stats, err := h.repository.GetWeeklyStats(week.AddDate(0, 0, -7))
		if err != nil {
			return nil, nil, err
		}
		fallbackStats = append(fallbackStats, stats...)
	}

	engine, err := scheduler.New(&scheduler.Snapshot{
		Brokers:       brokers,
		Locations:     locations,
		Assignments:   assignments,
		QueueEntries:  queueEntries,
		FallbackStats: fallbackStats,
		LockedWeeks:   lockedWeeks,
	})
	if err != nil {
		return nil, nil, err
	}

	return engine, targetWeeks, nil
}

// buildValidationEngine loads a snapshot for read-only validation: all
// committed rows stay in, locked or not.
func (h *Handler) buildValidationEngine(weeks []time.Time) (*scheduler.Engine, []time.Time, error) {
	targetWeeks := normalizeWeeks(weeks)

	brokers, err := h.repository.GetAllBrokers()
	if err != nil {
		return nil, nil, err
	}
	locations, err := h.repository.GetAllLocations()
	if err != nil {
		return nil, nil, err
	}
	queueEntries, err := h.repository.GetAllQueueEntries()
	if err != nil {
		return nil, nil, err
	}

	start := targetWeeks[0].AddDate(0, 0, -7)
	end := targetWeeks[len(targetWeeks)-1].AddDate(0, 0, 13)
	assignments, err := h.repository.GetAssignmentsInRange(start, end)
	if err != nil {
		return nil, nil, err
	}

	var fallbackStats []*domain.WeeklyStat
	for _, week := range targetWeeks {
		stats, err := h.repository.GetWeeklyStats(week.AddDate(0, 0, -7))
		if err != nil {
			return nil, nil, err
		}
		fallbackStats = append(fallbackStats, stats...)
	}

	engine, err := scheduler.New(&scheduler.Snapshot{
		Brokers:       brokers,
		Locations:     locations,
		Assignments:   assignments,
		QueueEntries:  queueEntries,
		FallbackStats: fallbackStats,
	})
	if err != nil {
		return nil, nil, err
	}

	return engine, targetWeeks, nil
}

func normalizeWeeks(weeks []time.Time) []time.Time {
	seen := make(map[string]bool)
	out := make([]time.Time, 0, len(weeks))
	for _, w := range weeks {
		week := scheduler.WeekStart(w)
		key := week.Format("2006-01-02")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, week)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func isTargetWeek(targetWeeks []time.Time, week time.Time) bool {
	for _, w := range targetWeeks {
		if w.Equal(week) {
			return true
		}
	}
	return false
}

func isLockedWeek(lockedWeeks []time.Time, week time.Time) bool {
	for _, w := range lockedWeeks {
		if w.Equal(week) {
			return true
		}
	}
	return false
}
