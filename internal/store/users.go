package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, email, hashed_password, first_name, last_name, role, is_active, created_by, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName,
		&u.Role, &u.IsActive, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND is_active = true`, email))
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND is_active = true`, id))
}

// GetUserByIDAndRole fetches a user only when it holds the given role.
// Used by the account endpoints so a staff id cannot be addressed
// through the franchise-admin surface and vice versa.
func (q *Queries) GetUserByIDAndRole(ctx context.Context, id uuid.UUID, role string) (User, error) {
	return scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND role = $2 AND is_active = true`, id, role))
}

// ListUsersByRole returns active users of a role. When locationIDs is
// non-nil only users assigned to at least one of those locations are
// returned; this is the same overlap predicate the single-item read
// check uses.
func (q *Queries) ListUsersByRole(ctx context.Context, role string, locationIDs []uuid.UUID) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT DISTINCT u.id, u.email, u.hashed_password, u.first_name, u.last_name,
		       u.role, u.is_active, u.created_by, u.created_at, u.updated_at
		FROM users u
		LEFT JOIN user_locations ul ON ul.user_id = u.id
		WHERE u.role = $1 AND u.is_active = true
		  AND ($2::uuid[] IS NULL OR ul.location_id = ANY($2))
		ORDER BY u.created_at, u.id`, role, locationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName,
			&u.Role, &u.IsActive, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type CreateUserParams struct {
	Email          string
	HashedPassword pgtype.Text
	FirstName      string
	LastName       string
	Role           string
	CreatedBy      pgtype.UUID
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, first_name, last_name, role, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		arg.Email, arg.HashedPassword, arg.FirstName, arg.LastName, arg.Role, arg.CreatedBy))
}

type UpdateUserParams struct {
	ID             uuid.UUID
	Email          string
	HashedPassword pgtype.Text
	FirstName      string
	LastName       string
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, `
		UPDATE users
		SET email = $2, hashed_password = $3, first_name = $4, last_name = $5, updated_at = now()
		WHERE id = $1 AND is_active = true
		RETURNING `+userColumns,
		arg.ID, arg.Email, arg.HashedPassword, arg.FirstName, arg.LastName))
}

func (q *Queries) DeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	return deleted, err
}

func (q *Queries) GetUserLocationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx,
		`SELECT location_id FROM user_locations WHERE user_id = $1 ORDER BY location_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplaceUserLocations swaps a user's location assignment for the
// given set. Callers run it inside a transaction so the replacement is
// atomic, never incremental.
func (q *Queries) ReplaceUserLocations(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error {
	if _, err := q.db.Exec(ctx,
		`DELETE FROM user_locations WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, locID := range locationIDs {
		if _, err := q.db.Exec(ctx,
			`INSERT INTO user_locations (user_id, location_id) VALUES ($1, $2)`, userID, locID); err != nil {
			return err
		}
	}
	return nil
}

// CountLocationsByIDs reports how many of the given ids exist. Used to
// reject assignment of unknown locations before any write.
func (q *Queries) CountLocationsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx,
		`SELECT count(*) FROM locations WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}
