package service

import (
	"context"
	"errors"
	"testing"

	"github.com/franchise-pos/api/internal/enum"
	"github.com/franchise-pos/api/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// mockAccountStore implements AccountStore with configurable behavior.
type mockAccountStore struct {
	getUserByIDAndRoleFn   func(ctx context.Context, id uuid.UUID, role string) (store.User, error)
	createUserFn           func(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	updateUserFn           func(ctx context.Context, arg store.UpdateUserParams) (store.User, error)
	getUserLocationIDsFn   func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	replaceUserLocationsFn func(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error
	countLocationsByIDsFn  func(ctx context.Context, ids []uuid.UUID) (int64, error)
}

func (m *mockAccountStore) GetUserByIDAndRole(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
	return m.getUserByIDAndRoleFn(ctx, id, role)
}
func (m *mockAccountStore) CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error) {
	return m.createUserFn(ctx, arg)
}
func (m *mockAccountStore) UpdateUser(ctx context.Context, arg store.UpdateUserParams) (store.User, error) {
	return m.updateUserFn(ctx, arg)
}
func (m *mockAccountStore) GetUserLocationIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return m.getUserLocationIDsFn(ctx, userID)
}
func (m *mockAccountStore) ReplaceUserLocations(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error {
	return m.replaceUserLocationsFn(ctx, userID, locationIDs)
}
func (m *mockAccountStore) CountLocationsByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	return m.countLocationsByIDsFn(ctx, ids)
}

func newTestAccountService(st *mockAccountStore) (*AccountService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db store.DBTX) AccountStore { return st }
	return NewAccountService(pool, newStore), tx
}

// defaultAccountStore records writes so tests can inspect them. All
// location ids are treated as existing.
func defaultAccountStore() *mockAccountStore {
	m := &mockAccountStore{}
	m.createUserFn = func(ctx context.Context, arg store.CreateUserParams) (store.User, error) {
		return store.User{
			ID:             uuid.New(),
			Email:          arg.Email,
			HashedPassword: arg.HashedPassword,
			FirstName:      arg.FirstName,
			LastName:       arg.LastName,
			Role:           arg.Role,
			CreatedBy:      arg.CreatedBy,
		}, nil
	}
	m.updateUserFn = func(ctx context.Context, arg store.UpdateUserParams) (store.User, error) {
		return store.User{
			ID:             arg.ID,
			Email:          arg.Email,
			HashedPassword: arg.HashedPassword,
			FirstName:      arg.FirstName,
			LastName:       arg.LastName,
		}, nil
	}
	m.getUserLocationIDsFn = func(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
		return nil, nil
	}
	m.replaceUserLocationsFn = func(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error {
		return nil
	}
	m.countLocationsByIDsFn = func(ctx context.Context, ids []uuid.UUID) (int64, error) {
		return int64(len(ids)), nil
	}
	return m
}

func TestCreateAccount_HashesPassword(t *testing.T) {
	st := defaultAccountStore()
	svc, tx := newTestAccountService(st)

	locID := uuid.New()
	acct, err := svc.Create(context.Background(), CreateAccountParams{
		Email:       "admin@example.com",
		Password:    "secret123",
		FirstName:   "Ada",
		LastName:    "Admin",
		Role:        enum.RoleFranchiseAdmin,
		LocationIDs: []uuid.UUID{locID},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !acct.User.HashedPassword.Valid {
		t.Fatal("expected a stored password hash")
	}
	if acct.User.HashedPassword.String == "secret123" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.User.HashedPassword.String), []byte("secret123")); err != nil {
		t.Errorf("hash does not verify: %v", err)
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
}

func TestCreateAccount_EmptyPasswordStoresNull(t *testing.T) {
	// Google-provisioned admins have no password credential at all.
	st := defaultAccountStore()
	svc, _ := newTestAccountService(st)

	acct, err := svc.Create(context.Background(), CreateAccountParams{
		Email: "sso@example.com",
		Role:  enum.RoleFranchiseAdmin,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if acct.User.HashedPassword.Valid {
		t.Error("expected NULL hashed_password for passwordless account")
	}
}

func TestCreateAccount_UnknownLocations(t *testing.T) {
	st := defaultAccountStore()
	st.countLocationsByIDsFn = func(ctx context.Context, ids []uuid.UUID) (int64, error) {
		return int64(len(ids)) - 1, nil
	}
	svc, tx := newTestAccountService(st)

	_, err := svc.Create(context.Background(), CreateAccountParams{
		Email:       "staff@example.com",
		Password:    "pw",
		Role:        enum.RoleStaff,
		LocationIDs: []uuid.UUID{uuid.New(), uuid.New()},
	})
	if !errors.Is(err, ErrUnknownLocations) {
		t.Fatalf("expected ErrUnknownLocations, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit on validation failure")
	}
}

func TestCreateAccount_AssignsLocationsInSameTx(t *testing.T) {
	st := defaultAccountStore()
	var assigned []uuid.UUID
	st.replaceUserLocationsFn = func(ctx context.Context, userID uuid.UUID, locationIDs []uuid.UUID) error {
		assigned = locationIDs
		return nil
	}
	svc, _ := newTestAccountService(st)

	locs := []uuid.UUID{uuid.New(), uuid.New()}
	acct, err := svc.Create(context.Background(), CreateAccountParams{
		Email:       "staff@example.com",
		Password:    "pw",
		Role:        enum.RoleStaff,
		LocationIDs: locs,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(assigned) != 2 {
		t.Fatalf("assigned locations: got %d, want 2", len(assigned))
	}
	if len(acct.LocationIDs) != 2 {
		t.Errorf("returned locations: got %d, want 2", len(acct.LocationIDs))
	}
}

func TestUpdateAccount_NotFound(t *testing.T) {
	st := defaultAccountStore()
	st.getUserByIDAndRoleFn = func(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
		return store.User{}, pgx.ErrNoRows
	}
	svc, _ := newTestAccountService(st)

	_, err := svc.Update(context.Background(), UpdateAccountParams{
		ID:   uuid.New(),
		Role: enum.RoleStaff,
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got: %v", err)
	}
}

func TestUpdateAccount_PartialUpdateKeepsOtherFields(t *testing.T) {
	userID := uuid.New()
	st := defaultAccountStore()
	st.getUserByIDAndRoleFn = func(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
		return store.User{
			ID:             userID,
			Email:          "old@example.com",
			HashedPassword: pgtype.Text{String: "oldhash", Valid: true},
			FirstName:      "Old",
			LastName:       "Name",
			Role:           role,
		}, nil
	}
	var updated store.UpdateUserParams
	st.updateUserFn = func(ctx context.Context, arg store.UpdateUserParams) (store.User, error) {
		updated = arg
		return store.User{ID: arg.ID, Email: arg.Email, FirstName: arg.FirstName, LastName: arg.LastName, HashedPassword: arg.HashedPassword}, nil
	}
	svc, _ := newTestAccountService(st)

	newFirst := "New"
	_, err := svc.Update(context.Background(), UpdateAccountParams{
		ID:        userID,
		Role:      enum.RoleStaff,
		FirstName: &newFirst,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.FirstName != "New" {
		t.Errorf("first name: got %q, want New", updated.FirstName)
	}
	if updated.Email != "old@example.com" {
		t.Errorf("email must be untouched, got %q", updated.Email)
	}
	if updated.LastName != "Name" {
		t.Errorf("last name must be untouched, got %q", updated.LastName)
	}
	if updated.HashedPassword.String != "oldhash" {
		t.Errorf("password hash must be untouched, got %q", updated.HashedPassword.String)
	}
}

func TestUpdateAccount_NewPasswordIsRehashed(t *testing.T) {
	userID := uuid.New()
	st := defaultAccountStore()
	st.getUserByIDAndRoleFn = func(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
		return store.User{ID: userID, Email: "a@example.com", HashedPassword: pgtype.Text{String: "oldhash", Valid: true}}, nil
	}
	var updated store.UpdateUserParams
	st.updateUserFn = func(ctx context.Context, arg store.UpdateUserParams) (store.User, error) {
		updated = arg
		return store.User{ID: arg.ID}, nil
	}
	svc, _ := newTestAccountService(st)

	newPw := "newsecret"
	_, err := svc.Update(context.Background(), UpdateAccountParams{
		ID:       userID,
		Role:     enum.RoleStaff,
		Password: &newPw,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.HashedPassword.String == "oldhash" {
		t.Fatal("password hash was not replaced")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.HashedPassword.String), []byte("newsecret")); err != nil {
		t.Errorf("new hash does not verify: %v", err)
	}
}

func TestUpdateAccount_ReplacesLocationSet(t *testing.T) {
	userID := uuid.New()
	newLocs := []uuid.UUID{uuid.New()}

	st := defaultAccountStore()
	st.getUserByIDAndRoleFn = func(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
		return store.User{ID: userID, Email: "a@example.com"}, nil
	}
	var replaced []uuid.UUID
	st.replaceUserLocationsFn = func(ctx context.Context, id uuid.UUID, locationIDs []uuid.UUID) error {
		replaced = locationIDs
		return nil
	}
	st.getUserLocationIDsFn = func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
		return replaced, nil
	}
	svc, tx := newTestAccountService(st)

	acct, err := svc.Update(context.Background(), UpdateAccountParams{
		ID:          userID,
		Role:        enum.RoleStaff,
		LocationIDs: &newLocs,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(replaced) != 1 || replaced[0] != newLocs[0] {
		t.Errorf("replaced set: got %v, want %v", replaced, newLocs)
	}
	if len(acct.LocationIDs) != 1 {
		t.Errorf("returned locations: got %d, want 1", len(acct.LocationIDs))
	}
	if !tx.committed {
		t.Error("expected transaction to be committed")
	}
}

func TestUpdateAccount_NilLocationsLeavesSetUntouched(t *testing.T) {
	userID := uuid.New()
	existing := []uuid.UUID{uuid.New(), uuid.New()}

	st := defaultAccountStore()
	st.getUserByIDAndRoleFn = func(ctx context.Context, id uuid.UUID, role string) (store.User, error) {
		return store.User{ID: userID, Email: "a@example.com"}, nil
	}
	st.replaceUserLocationsFn = func(ctx context.Context, id uuid.UUID, locationIDs []uuid.UUID) error {
		t.Fatal("locations must not be replaced when LocationIDs is nil")
		return nil
	}
	st.getUserLocationIDsFn = func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
		return existing, nil
	}
	svc, _ := newTestAccountService(st)

	acct, err := svc.Update(context.Background(), UpdateAccountParams{
		ID:   userID,
		Role: enum.RoleStaff,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(acct.LocationIDs) != 2 {
		t.Errorf("returned locations: got %d, want 2", len(acct.LocationIDs))
	}
}
