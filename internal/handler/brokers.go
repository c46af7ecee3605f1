package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
	"github.com/plantao-dev/broker-scheduler/backend/internal/utils"
)

func (h *Handler) GetAllBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := h.repository.GetAllBrokers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "lista de corretores obtida com sucesso", brokers)
}

func (h *Handler) CreateBroker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string              `json:"username" validate:"required"`
		FullName       string              `json:"fullName" validate:"required"`
		Email          string              `json:"email" validate:"required,email"`
		RegistrationID string              `json:"registrationID" validate:"required"`
		Role           string              `json:"role" validate:"required,oneof=corretor gerente administrador"`
		Availability   domain.Availability `json:"availability" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateAvailability(req.Availability); err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := utils.GenerateRandomPassword(h.config.NewBroker.PasswordLength)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	broker := &domain.Broker{
		Username:       req.Username,
		PasswordHash:   string(hashedPassword),
		FullName:       req.FullName,
		Email:          req.Email,
		RegistrationID: req.RegistrationID,
		Role:           domain.Role(req.Role),
		Availability:   req.Availability,
	}

	if err := h.repository.CreateBroker(broker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "brokers_username_key":
				h.badRequest(w, r, errors.New("nome de usuário já existe"))
			case pgErr.ConstraintName == "brokers_email_key":
				h.badRequest(w, r, errors.New("email já existe"))
			case pgErr.ConstraintName == "brokers_registration_id_key":
				h.badRequest(w, r, errors.New("CRECI já cadastrado"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	msg := domain.NotificationMessage{
		Type: "create_broker",
		To:   broker.Email,
		Data: struct {
			FullName string `json:"fullName"`
			Username string `json:"username"`
			Password string `json:"password"`
		}{
			FullName: req.FullName,
			Username: req.Username,
			Password: password,
		},
	}

	if err := h.publishNotification(msg); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "corretor cadastrado com sucesso", broker)
}

func (h *Handler) GetBroker(w http.ResponseWriter, r *http.Request) {
	broker := r.Context().Value(BrokerInfoCtx).(*domain.Broker)
	h.successResponse(w, r, "corretor obtido com sucesso", broker)
}

func (h *Handler) UpdateBroker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName       *string             `json:"fullName"`
		Email          *string             `json:"email" validate:"omitempty,email"`
		RegistrationID *string             `json:"registrationID"`
		Role           *string             `json:"role" validate:"omitempty,oneof=corretor gerente administrador"`
		IsActive       *bool               `json:"isActive"`
		Availability   domain.Availability `json:"availability"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	broker := r.Context().Value(BrokerInfoCtx).(*domain.Broker)

	if req.FullName != nil {
		broker.FullName = *req.FullName
	}
	if req.Email != nil {
		broker.Email = *req.Email
	}
	if req.RegistrationID != nil {
		broker.RegistrationID = *req.RegistrationID
	}
	if req.Role != nil {
		broker.Role = domain.Role(*req.Role)
	}
	if req.IsActive != nil {
		broker.IsActive = *req.IsActive
	}
	if req.Availability != nil {
		if err := utils.ValidateAvailability(req.Availability); err != nil {
			h.badRequest(w, r, err)
			return
		}
		broker.Availability = req.Availability
	}

	if err := h.repository.UpdateBroker(broker); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "brokers_email_key":
				h.badRequest(w, r, errors.New("email já existe"))
			case pgErr.ConstraintName == "brokers_username_key":
				h.badRequest(w, r, errors.New("nome de usuário já existe"))
			case pgErr.ConstraintName == "brokers_registration_id_key":
				h.badRequest(w, r, errors.New("CRECI já cadastrado"))
			default:
				h.internalServerError(w, r, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "falha ao atualizar o corretor, tente novamente")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "corretor atualizado com sucesso", broker)
}

func (h *Handler) DeleteBroker(w http.ResponseWriter, r *http.Request) {
	broker := r.Context().Value(BrokerInfoCtx).(*domain.Broker)

	if err := h.repository.DeleteBroker(broker.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "corretor removido com sucesso", nil)
}

func (h *Handler) UpdateBrokerPassword(w http.ResponseWriter, r *http.Request) {
	broker := r.Context().Value(BrokerInfoCtx).(*domain.Broker)

	var req struct {
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	broker.PasswordHash = string(hashedPassword)
	if err := h.repository.UpdateBroker(broker); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "senha alterada com sucesso", nil)
}
