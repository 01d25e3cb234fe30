package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Directory reads companies, members and users straight from Postgres.
// Those tables are written by other services.
type Directory struct {
	pool *pgxpool.Pool
}

func NewDirectory(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) Company(ctx context.Context, companyID int64) (domain.Company, error) {
	var c domain.Company
	err := d.pool.QueryRow(ctx, `SELECT id, name, owner_id FROM companies WHERE id=$1`, companyID).Scan(&c.ID, &c.Name, &c.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Company{}, domain.ErrCompanyNotFound
	}
	if err != nil {
		return domain.Company{}, fmt.Errorf("load company: %w", err)
	}
	return c, nil
}

func (d *Directory) Companies(ctx context.Context) ([]domain.Company, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name, owner_id FROM companies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *Directory) Members(ctx context.Context, companyID int64) ([]domain.Member, error) {
	if _, err := d.Company(ctx, companyID); err != nil {
		return nil, err
	}
	rows, err := d.pool.Query(ctx, `SELECT user_id, company_id, is_admin FROM company_members WHERE company_id=$1 ORDER BY user_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.CompanyID, &m.Admin); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (d *Directory) User(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := d.pool.QueryRow(ctx, `SELECT id, username FROM users WHERE id=$1`, userID).Scan(&u.ID, &u.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (d *Directory) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, username FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (d *Directory) MemberCompanies(ctx context.Context, userID int64) ([]domain.Company, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT c.id, c.name, c.owner_id
		FROM companies c
		JOIN company_members m ON m.company_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list member companies: %w", err)
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CanManage is true for the company owner and its admins.
func (d *Directory) CanManage(ctx context.Context, actorID, companyID int64) (bool, error) {
	var ownerID int64
	var admin bool
	err := d.pool.QueryRow(ctx, `
		SELECT c.owner_id, COALESCE(m.is_admin, FALSE)
		FROM companies c
		LEFT JOIN company_members m ON m.company_id = c.id AND m.user_id = $2
		WHERE c.id = $1`, companyID, actorID).Scan(&ownerID, &admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, domain.ErrCompanyNotFound
	}
	if err != nil {
		return false, fmt.Errorf("check manager: %w", err)
	}
	return ownerID == actorID || admin, nil
}
