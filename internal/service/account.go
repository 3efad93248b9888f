package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/franchise-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by the account service.
var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrUnknownLocations = errors.New("one or more locations do not exist")
)

// AccountStore defines the DB methods needed to manage accounts.
// Satisfied by *store.Queries (and its WithTx variant).
type AccountStore interface {
	GetUserByIDAndRole(ctx context.Context, id uuid.UUID, role string) (store.User, error)
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	UpdateUser(ctx context.Context, arg store.UpdateUserParams) (store.User, error)
	GetUserLocationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	ReplaceUserLocations(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error
	CountLocationsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// NewAccountStore creates an AccountStore from a DBTX (pool or tx).
type NewAccountStore func(db store.DBTX) AccountStore

// CreateAccountParams creates an admin or staff account. Password is
// empty for Google-provisioned admins, which then have no password
// login. LocationIDs is the full assigned set.
type CreateAccountParams struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        string
	LocationIDs []uuid.UUID
	CreatedBy   uuid.UUID
}

// UpdateAccountParams is a typed partial update: nil fields are left
// untouched, non-nil fields are applied. LocationIDs, when non-nil,
// replaces the whole assigned set.
type UpdateAccountParams struct {
	ID          uuid.UUID
	Role        string
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	LocationIDs *[]uuid.UUID
}

// Account is a user with its assigned location set.
type Account struct {
	User        store.User
	LocationIDs []uuid.UUID
}

// AccountService manages admin and staff accounts. User row and
// location assignment are written in one transaction, so a location
// set is always replaced atomically.
type AccountService struct {
	pool     TxBeginner
	newStore NewAccountStore
}

func NewAccountService(pool TxBeginner, newStore NewAccountStore) *AccountService {
	return &AccountService{pool: pool, newStore: newStore}
}

// Create inserts the account and assigns its locations atomically.
// Authorization and location-count validation happen in the handler
// before any write; this method still rejects unknown location ids.
func (s *AccountService) Create(ctx context.Context, arg CreateAccountParams) (*Account, error) {
	hashed := pgtype.Text{}
	if arg.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(arg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashed = pgtype.Text{String: string(h), Valid: true}
	}

	createdBy := pgtype.UUID{}
	if arg.CreatedBy != uuid.Nil {
		createdBy = pgtype.UUID{Bytes: arg.CreatedBy, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	st := s.newStore(tx)

	if err := s.checkLocationsExist(ctx, st, arg.LocationIDs); err != nil {
		return nil, err
	}

	user, err := st.CreateUser(ctx, store.CreateUserParams{
		Email:          arg.Email,
		HashedPassword: hashed,
		FirstName:      arg.FirstName,
		LastName:       arg.LastName,
		Role:           arg.Role,
		CreatedBy:      createdBy,
	})
	if err != nil {
		return nil, err
	}

	if err := st.ReplaceUserLocations(ctx, user.ID, arg.LocationIDs); err != nil {
		return nil, fmt.Errorf("assign locations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &Account{User: user, LocationIDs: arg.LocationIDs}, nil
}

// Update applies the non-nil fields of arg to the account with the
// given id and role. The location set, when supplied, is replaced in
// the same transaction as the row update.
func (s *AccountService) Update(ctx context.Context, arg UpdateAccountParams) (*Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	st := s.newStore(tx)

	current, err := st.GetUserByIDAndRole(ctx, arg.ID, arg.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	email := current.Email
	if arg.Email != nil {
		email = *arg.Email
	}
	firstName := current.FirstName
	if arg.FirstName != nil {
		firstName = *arg.FirstName
	}
	lastName := current.LastName
	if arg.LastName != nil {
		lastName = *arg.LastName
	}
	hashed := current.HashedPassword
	if arg.Password != nil {
		h, err := bcrypt.GenerateFromPassword([]byte(*arg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashed = pgtype.Text{String: string(h), Valid: true}
	}

	user, err := st.UpdateUser(ctx, store.UpdateUserParams{
		ID:             arg.ID,
		Email:          email,
		HashedPassword: hashed,
		FirstName:      firstName,
		LastName:       lastName,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if arg.LocationIDs != nil {
		if err := s.checkLocationsExist(ctx, st, *arg.LocationIDs); err != nil {
			return nil, err
		}
		if err := st.ReplaceUserLocations(ctx, user.ID, *arg.LocationIDs); err != nil {
			return nil, fmt.Errorf("replace locations: %w", err)
		}
	}

	locationIDs, err := st.GetUserLocationIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get locations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &Account{User: user, LocationIDs: locationIDs}, nil
}

func (s *AccountService) checkLocationsExist(ctx context.Context, st AccountStore, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := st.CountLocationsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("count locations: %w", err)
	}
	if n != int64(len(ids)) {
		return ErrUnknownLocations
	}
	return nil
}
