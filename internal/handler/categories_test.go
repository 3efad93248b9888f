package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/franchise-pos/api/internal/handler"
	"github.com/franchise-pos/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Mock category store ---

type mockCategoryStore struct {
	categories map[uuid.UUID]store.Category
}

func newMockCategoryStore() *mockCategoryStore {
	return &mockCategoryStore{categories: make(map[uuid.UUID]store.Category)}
}

func (m *mockCategoryStore) addCategory(locationID uuid.UUID, name string, order int32) store.Category {
	c := store.Category{
		ID:           uuid.New(),
		LocationID:   locationID,
		Name:         name,
		DisplayOrder: order,
		CreatedAt:    time.Now(),
	}
	m.categories[c.ID] = c
	return c
}

func (m *mockCategoryStore) GetCategory(_ context.Context, id uuid.UUID) (store.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return store.Category{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCategoryStore) ListCategories(_ context.Context, locationIDs []uuid.UUID) ([]store.Category, error) {
	var result []store.Category
	for _, c := range m.categories {
		if locationIDs == nil {
			result = append(result, c)
			continue
		}
		for _, id := range locationIDs {
			if c.LocationID == id {
				result = append(result, c)
				break
			}
		}
	}
	return result, nil
}

func (m *mockCategoryStore) CreateCategory(_ context.Context, arg store.CreateCategoryParams) (store.Category, error) {
	c := store.Category{
		ID:           uuid.New(),
		LocationID:   arg.LocationID,
		Name:         arg.Name,
		DisplayOrder: arg.DisplayOrder,
		CreatedAt:    time.Now(),
	}
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) UpdateCategory(_ context.Context, arg store.UpdateCategoryParams) (store.Category, error) {
	c, ok := m.categories[arg.ID]
	if !ok {
		return store.Category{}, pgx.ErrNoRows
	}
	c.Name = arg.Name
	c.DisplayOrder = arg.DisplayOrder
	m.categories[c.ID] = c
	return c, nil
}

func (m *mockCategoryStore) DeleteCategory(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.categories[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.categories, id)
	return id, nil
}

func setupCategoryRouter(st *mockCategoryStore) *chi.Mux {
	h := handler.NewCategoryHandler(st)
	r := chi.NewRouter()
	r.Route("/categories", h.RegisterRoutes)
	return r
}

// --- List / Get tests ---

func TestCategoryList_Scoped(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()
	st.addCategory(locA, "Drinks", 1)
	st.addCategory(uuid.New(), "Desserts", 1)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, staffPrincipal(locA), "GET", "/categories/", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeList(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 category, got %d", len(resp))
	}
	if resp[0]["name"] != "Drinks" {
		t.Errorf("name: got %v, want Drinks", resp[0]["name"])
	}
}

func TestCategoryGet_InScope(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()
	c := st.addCategory(locA, "Drinks", 2)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(locA), "GET", "/categories/?id="+c.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["display_order"] != float64(2) {
		t.Errorf("display_order: got %v, want 2", resp["display_order"])
	}
}

func TestCategoryGet_OutOfScopeDenied(t *testing.T) {
	st := newMockCategoryStore()
	c := st.addCategory(uuid.New(), "Hidden", 0)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(uuid.New()), "GET", "/categories/?id="+c.ID.String(), nil)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCategoryGet_NotFound(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequestAs(t, router, superAdmin(), "GET", "/categories/?id="+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Create tests ---

func TestCategoryCreate_InScope(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(locA), "POST", "/categories/", map[string]interface{}{
		"location_id":   locA.String(),
		"name":          "Beverages",
		"display_order": 3,
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["name"] != "Beverages" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["location_id"] != locA.String() {
		t.Errorf("location_id: got %v, want %s", resp["location_id"], locA)
	}
}

func TestCategoryCreate_OutOfScopeDenied(t *testing.T) {
	st := newMockCategoryStore()

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(uuid.New()), "POST", "/categories/", map[string]interface{}{
		"location_id": uuid.NewString(),
		"name":        "Rogue",
	})

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if len(st.categories) != 0 {
		t.Error("no category may be created after a denial")
	}
}

func TestCategoryCreate_StaffDenied(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, staffPrincipal(locA), "POST", "/categories/", map[string]interface{}{
		"location_id": locA.String(),
		"name":        "Nope",
	})

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestCategoryCreate_NegativeDisplayOrder(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequestAs(t, router, superAdmin(), "POST", "/categories/", map[string]interface{}{
		"location_id":   uuid.NewString(),
		"name":          "Bad",
		"display_order": -1,
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestCategoryCreate_MissingName(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequestAs(t, router, superAdmin(), "POST", "/categories/", map[string]interface{}{
		"location_id": uuid.NewString(),
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Update tests ---

func TestCategoryUpdate_InScope(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()
	c := st.addCategory(locA, "Old", 0)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(locA), "PUT", "/categories/?id="+c.ID.String(), map[string]interface{}{
		"name":          "New",
		"display_order": 5,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeObject(t, rr)
	if resp["name"] != "New" {
		t.Errorf("name: got %v", resp["name"])
	}
	if resp["display_order"] != float64(5) {
		t.Errorf("display_order: got %v, want 5", resp["display_order"])
	}
}

func TestCategoryUpdate_OutOfScopeDenied(t *testing.T) {
	st := newMockCategoryStore()
	c := st.addCategory(uuid.New(), "Protected", 0)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(uuid.New()), "PUT", "/categories/?id="+c.ID.String(), map[string]interface{}{
		"name": "Hijacked",
	})

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if st.categories[c.ID].Name != "Protected" {
		t.Error("category must not change after a denial")
	}
}

func TestCategoryUpdate_NotFound(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequestAs(t, router, superAdmin(), "PUT", "/categories/?id="+uuid.NewString(), map[string]interface{}{
		"name": "Ghost",
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Delete tests ---

func TestCategoryDelete_InScope(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()
	c := st.addCategory(locA, "Doomed", 0)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, franchiseAdmin(locA), "DELETE", "/categories/?id="+c.ID.String(), nil)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if _, ok := st.categories[c.ID]; ok {
		t.Error("expected category to be deleted")
	}
}

func TestCategoryDelete_StaffDenied(t *testing.T) {
	st := newMockCategoryStore()
	locA := uuid.New()
	c := st.addCategory(locA, "Protected", 0)

	router := setupCategoryRouter(st)
	rr := doRequestAs(t, router, staffPrincipal(locA), "DELETE", "/categories/?id="+c.ID.String(), nil)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
	if _, ok := st.categories[c.ID]; !ok {
		t.Error("category must not be deleted after a denial")
	}
}

func TestCategoryDelete_InvalidID(t *testing.T) {
	router := setupCategoryRouter(newMockCategoryStore())

	rr := doRequestAs(t, router, superAdmin(), "DELETE", "/categories/?id=not-a-uuid", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}
