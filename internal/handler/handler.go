package handler

import (
	"github.com/go-chi/chi/v5"
	pt_br_locale "github.com/go-playground/locales/pt_BR"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pt_br_translations "github.com/go-playground/validator/v10/translations/pt_BR"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/plantao-dev/broker-scheduler/backend/internal/config"
	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/repository"
)

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	translator    ut.Translator
	notifyChannel *amqp.Channel
	redisClient   *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, notifyCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	ptBR := pt_br_locale.New()
	uni := ut.New(ptBR, ptBR)
	trans, _ := uni.GetTranslator("pt_BR")
	if err := pt_br_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		translator:    trans,
		notifyChannel: notifyCh,
		redisClient:   rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// Everything below requires a logged-in broker.
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/update-email", func(r chi.Router) {
				r.Post("/require", h.RequireUpdateEmail)
				r.Post("/confirm", h.ConfirmUpdateEmail)
			})
		})

		r.Route("/brokers", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateBroker)
			r.Get("/", h.GetAllBrokers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.brokerInfo)
				r.Get("/", h.GetBroker)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateBroker)
				r.With(h.preventOperateInitialAdmin).With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteBroker)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/password", h.UpdateBrokerPassword)
			})
		})

		r.Route("/locations", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateLocation)
			r.Get("/", h.GetAllLocations)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.locationInfo)
				r.Get("/", h.GetLocation)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/", h.UpdateLocation)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteLocation)
				r.Route("/saturday-queue", func(r chi.Router) {
					r.Get("/", h.GetSaturdayQueue)
					r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/sync", h.SyncSaturdayQueue)
				})
			})
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/assignments", h.GetAssignments)
			r.Group(func(r chi.Router) {
				r.Use(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin}))
				r.Post("/generate", h.GenerateSchedule)
				r.Post("/validate", h.ValidateSchedule)
				r.Post("/archive", h.ArchiveWeeklyStats)
				r.Route("/locks", func(r chi.Router) {
					r.Get("/", h.GetScheduleLocks)
					r.Post("/", h.CreateScheduleLock)
					r.Delete("/{weekStart}", h.DeleteScheduleLock)
				})
			})
		})

		r.Route("/assignments/{id}", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin}))
			r.Use(h.assignmentInfo)
			r.Get("/replacement-candidates", h.GetReplacementCandidates)
			r.Post("/replace", h.ApplyReplacement)
			r.Post("/relocation-check", h.CheckRelocation)
			r.Post("/relocate", h.RelocateAssignment)
		})
	})
}
