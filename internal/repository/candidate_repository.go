package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talentgate/talentgate-backend/internal/model"
)

var ErrDuplicateEmail = errors.New("account with this email already exists")

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, phone, linkedin_url, created_at
		 FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.PasswordHash, &c.Phone, &c.LinkedInURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByEmail retrieves a candidate by their unique email.
func (r *CandidateRepository) GetByEmail(ctx context.Context, email string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, phone, linkedin_url, created_at
		 FROM candidates WHERE email = $1`, email,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.PasswordHash, &c.Phone, &c.LinkedInURL, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (full_name, email, password_hash, phone, linkedin_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		c.FullName, c.Email, c.PasswordHash, c.Phone, c.LinkedInURL,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// UpdateProfile modifies contact details (excluding email and password).
func (r *CandidateRepository) UpdateProfile(ctx context.Context, c *model.Candidate) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE candidates SET full_name = $1, phone = $2, linkedin_url = $3 WHERE id = $4`,
		c.FullName, c.Phone, c.LinkedInURL, c.ID,
	)
	return err
}
