package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/domain"
)

func (r *Repository) GetBrokerByID(id int64) (*domain.Broker, error) {
	query := `
		SELECT username, password_hash, full_name, email, registration_id, role, is_active, availability, created_at, version
		FROM brokers WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	broker := &domain.Broker{
		ID: id,
	}

	var availability []byte
	dst := []any{&broker.Username, &broker.PasswordHash, &broker.FullName, &broker.Email, &broker.RegistrationID, &broker.Role, &broker.IsActive, &availability, &broker.CreatedAt, &broker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(availability, &broker.Availability); err != nil {
		return nil, err
	}

	return broker, nil
}

func (r *Repository) GetBrokerByUsername(username string) (*domain.Broker, error) {
	query := `
		SELECT id, password_hash, full_name, email, registration_id, role, is_active, availability, created_at, version
		FROM brokers WHERE username = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	broker := &domain.Broker{
		Username: username,
	}

	var availability []byte
	dst := []any{&broker.ID, &broker.PasswordHash, &broker.FullName, &broker.Email, &broker.RegistrationID, &broker.Role, &broker.IsActive, &availability, &broker.CreatedAt, &broker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(dst...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(availability, &broker.Availability); err != nil {
		return nil, err
	}

	return broker, nil
}

func (r *Repository) GetAllBrokers() ([]*domain.Broker, error) {
	query := `
		SELECT id, username, password_hash, full_name, email, registration_id, role, is_active, availability, created_at, version
		FROM brokers
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brokers := make([]*domain.Broker, 0)
	for rows.Next() {
		broker := &domain.Broker{}
		var availability []byte
		dst := []any{&broker.ID, &broker.Username, &broker.PasswordHash, &broker.FullName, &broker.Email, &broker.RegistrationID, &broker.Role, &broker.IsActive, &availability, &broker.CreatedAt, &broker.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(availability, &broker.Availability); err != nil {
			return nil, err
		}
		brokers = append(brokers, broker)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return brokers, nil
}

func (r *Repository) CreateBroker(broker *domain.Broker) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	availability, err := json.Marshal(broker.Availability)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO brokers (username, password_hash, full_name, email, registration_id, role, availability)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, version
	`

	args := []any{broker.Username, broker.PasswordHash, broker.FullName, broker.Email, broker.RegistrationID, broker.Role, availability}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&broker.ID, &broker.IsActive, &broker.CreatedAt, &broker.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateBroker(broker *domain.Broker) error {
	query := `
		UPDATE brokers
		SET
			password_hash = $1,
			email = $2,
			registration_id = $3,
			role = $4,
			is_active = $5,
			availability = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING username, full_name, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	availability, err := json.Marshal(broker.Availability)
	if err != nil {
		return err
	}

	args := []any{broker.PasswordHash, broker.Email, broker.RegistrationID, broker.Role, broker.IsActive, availability, broker.ID, broker.Version}
	dst := []any{&broker.Username, &broker.FullName, &broker.CreatedAt, &broker.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteBroker(id int64) error {
	query := `
		DELETE FROM brokers WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}

func (r *Repository) CheckEmailIfExists(email string) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM brokers WHERE email = $1)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, email).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}
