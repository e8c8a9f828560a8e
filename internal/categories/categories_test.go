// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categories

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizdir/internal/apperr"
	"bizdir/internal/models"
)

// memRepo is an in-memory Repository used to exercise the manager rules.
type memRepo struct {
	items      map[uuid.UUID]models.Category
	businesses map[uuid.UUID]int
	writes     int
	findErr    error
}

func newMemRepo() *memRepo {
	return &memRepo{
		items:      make(map[uuid.UUID]models.Category),
		businesses: make(map[uuid.UUID]int),
	}
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memRepo) SlugExists(_ context.Context, s string, exclude *uuid.UUID) (bool, error) {
	for _, c := range r.items {
		if c.Slug == s && (exclude == nil || c.ID != *exclude) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) NextSortOrder(_ context.Context, parentID *uuid.UUID) (int, error) {
	next := 0
	for _, c := range r.items {
		if sameParent(c.ParentID, parentID) && c.SortOrder+1 > next {
			next = c.SortOrder + 1
		}
	}
	return next, nil
}

func (r *memRepo) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	r.writes++
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.items[c.ID] = *c
	return c, nil
}

func (r *memRepo) Update(_ context.Context, c *models.Category) error {
	r.writes++
	r.items[c.ID] = *c
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.writes++
	delete(r.items, id)
	return nil
}

func (r *memRepo) CountChildren(_ context.Context, id uuid.UUID) (int, error) {
	n := 0
	for _, c := range r.items {
		if c.ParentID != nil && *c.ParentID == id {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountBusinesses(_ context.Context, id uuid.UUID) (int, error) {
	return r.businesses[id], nil
}

func (r *memRepo) List(_ context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func newTestManager(repo *memRepo) *Manager {
	m := NewManager(repo)
	m.now = func() time.Time { return time.UnixMilli(1_717_171_234_567) }
	return m
}

func ptr[T any](v T) *T { return &v }

func mustCreate(t *testing.T, m *Manager, name string, parent *uuid.UUID) *models.Category {
	t.Helper()
	c, err := m.Create(context.Background(), CreateParams{Name: name, ParentID: parent})
	require.NoError(t, err)
	return c
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("generates slug and defaults", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		c, err := m.Create(ctx, CreateParams{Name: "  Cafés & Bakeries  "})
		require.NoError(t, err)
		assert.Equal(t, "Cafés & Bakeries", c.Name)
		assert.Equal(t, "cafes-bakeries", c.Slug)
		assert.Nil(t, c.ParentID)
		assert.True(t, c.IsActive)
		assert.Empty(t, c.Children)
	})

	t.Run("same name twice yields distinct slugs", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		first := mustCreate(t, m, "Restaurants", nil)
		second := mustCreate(t, m, "Restaurants", nil)
		assert.Equal(t, "restaurants", first.Slug)
		assert.Equal(t, "restaurants-234567", second.Slug)
		assert.NotEqual(t, first.Slug, second.Slug)
	})

	t.Run("sort order appended per parent", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		a := mustCreate(t, m, "Alpha", nil)
		b := mustCreate(t, m, "Beta", nil)
		child := mustCreate(t, m, "Child", &a.ID)
		assert.Equal(t, 0, a.SortOrder)
		assert.Equal(t, 1, b.SortOrder)
		assert.Equal(t, 0, child.SortOrder)
	})

	t.Run("rejects short and empty names before any write", func(t *testing.T) {
		repo := newMemRepo()
		m := newTestManager(repo)
		for _, name := range []string{"", " ", "a", "  b  ", "!!"} {
			_, err := m.Create(ctx, CreateParams{Name: name})
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput), "name %q: %v", name, err)
		}
		assert.Zero(t, repo.writes)
	})

	t.Run("unknown parent is not found", func(t *testing.T) {
		repo := newMemRepo()
		m := newTestManager(repo)
		_, err := m.Create(ctx, CreateParams{Name: "Orphan", ParentID: ptr(uuid.New())})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		assert.Zero(t, repo.writes)
	})

	t.Run("explicit sort order and inactive flag", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		c, err := m.Create(ctx, CreateParams{Name: "Hidden", SortOrder: ptr(7), IsActive: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, 7, c.SortOrder)
		assert.False(t, c.IsActive)
	})
}

func TestUpdateRename(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemRepo())

	c := mustCreate(t, m, "Bars", nil)
	mustCreate(t, m, "Pubs", nil)

	t.Run("rename regenerates slug", func(t *testing.T) {
		got, err := m.Update(ctx, c.ID, UpdateParams{Name: ptr("Wine Bars")})
		require.NoError(t, err)
		assert.Equal(t, "wine-bars", got.Slug)
	})

	t.Run("rename to taken slug gets suffix", func(t *testing.T) {
		got, err := m.Update(ctx, c.ID, UpdateParams{Name: ptr("Pubs")})
		require.NoError(t, err)
		assert.Equal(t, "pubs-234567", got.Slug)
	})

	t.Run("self is excluded from collision check", func(t *testing.T) {
		got, err := m.Update(ctx, c.ID, UpdateParams{Name: ptr("PUBS!")})
		require.NoError(t, err)
		// "pubs" belongs to the other category, so the suffix stays.
		assert.Equal(t, "pubs-234567", got.Slug)

		solo := mustCreate(t, m, "Clubs", nil)
		got, err = m.Update(ctx, solo.ID, UpdateParams{Name: ptr("CLUBS")})
		require.NoError(t, err)
		assert.Equal(t, "clubs", got.Slug)
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		before, err := m.Get(ctx, c.ID)
		require.NoError(t, err)
		got, err := m.Update(ctx, c.ID, UpdateParams{Description: ptr("Drinks")})
		require.NoError(t, err)
		assert.Equal(t, before.Name, got.Name)
		assert.Equal(t, before.Slug, got.Slug)
		assert.Equal(t, before.SortOrder, got.SortOrder)
		assert.Equal(t, "Drinks", got.Description)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.Update(ctx, uuid.New(), UpdateParams{Name: ptr("Nope")})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestUpdateReparent(t *testing.T) {
	ctx := context.Background()

	// A → B → C (A is the root, C the deepest).
	setup := func() (*memRepo, *Manager, *models.Category, *models.Category, *models.Category) {
		repo := newMemRepo()
		m := newTestManager(repo)
		a := mustCreate(t, m, "A root", nil)
		b := mustCreate(t, m, "B mid", &a.ID)
		c := mustCreate(t, m, "C leaf", &b.ID)
		return repo, m, a, b, c
	}

	t.Run("moving a root under its descendant fails", func(t *testing.T) {
		repo, m, a, _, c := setup()
		writes := repo.writes
		_, err := m.Update(ctx, a.ID, UpdateParams{Parent: &ParentRef{ID: &c.ID}})
		assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
		assert.Equal(t, writes, repo.writes)

		got, err := m.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("self parent fails", func(t *testing.T) {
		_, m, _, b, _ := setup()
		_, err := m.Update(ctx, b.ID, UpdateParams{Parent: &ParentRef{ID: &b.ID}})
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "self_parent", ae.Code)
	})

	t.Run("moving to an unrelated branch works", func(t *testing.T) {
		_, m, _, _, c := setup()
		other := mustCreate(t, m, "Other root", nil)
		got, err := m.Update(ctx, c.ID, UpdateParams{Parent: &ParentRef{ID: &other.ID}})
		require.NoError(t, err)
		assert.Equal(t, other.ID, *got.ParentID)
	})

	t.Run("moving to root level", func(t *testing.T) {
		_, m, _, b, _ := setup()
		got, err := m.Update(ctx, b.ID, UpdateParams{Parent: &ParentRef{ID: nil}})
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("unknown new parent", func(t *testing.T) {
		_, m, _, b, _ := setup()
		_, err := m.Update(ctx, b.ID, UpdateParams{Parent: &ParentRef{ID: ptr(uuid.New())}})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("missing intermediate ancestor terminates the walk", func(t *testing.T) {
		repo, m, a, _, c := setup()
		// Corrupt the store: B's parent A disappears without B being updated.
		delete(repo.items, a.ID)
		x := mustCreate(t, m, "Xylo", nil)
		_, err := m.Update(ctx, x.ID, UpdateParams{Parent: &ParentRef{ID: &c.ID}})
		require.NoError(t, err)
	})

	t.Run("already corrupt cycle does not loop forever", func(t *testing.T) {
		repo, m, a, _, c := setup()
		// Corrupt the store: A's parent is C, closing A → B → C → A.
		corrupt := repo.items[a.ID]
		corrupt.ParentID = &c.ID
		repo.items[a.ID] = corrupt

		x := mustCreate(t, m, "Outsider", nil)
		_, err := m.Update(ctx, x.ID, UpdateParams{Parent: &ParentRef{ID: &c.ID}})
		require.NoError(t, err)
	})

	t.Run("depth guard", func(t *testing.T) {
		repo := newMemRepo()
		m := newTestManager(repo)
		var parent *uuid.UUID
		for i := 0; i < MaxDepth+1; i++ {
			c := mustCreate(t, m, "Level node", parent)
			parent = &c.ID
		}
		x := mustCreate(t, m, "Outsider", nil)
		_, err := m.Update(ctx, x.ID, UpdateParams{Parent: &ParentRef{ID: parent}})
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "hierarchy_too_deep", ae.Code)
	})

	t.Run("repository errors propagate", func(t *testing.T) {
		repo, m, _, b, c := setup()
		repo.findErr = errors.New("db down")
		_, err := m.Update(ctx, c.ID, UpdateParams{Parent: &ParentRef{ID: &b.ID}})
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

// TestNoCycleInvariant applies a random sequence of creates and reparents
// and asserts that every parent chain still reaches a root.
func TestNoCycleInvariant(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	m := newTestManager(repo)
	rng := rand.New(rand.NewSource(42))

	var ids []uuid.UUID
	for i := 0; i < 200; i++ {
		if len(ids) < 5 || rng.Intn(3) == 0 {
			var parent *uuid.UUID
			if len(ids) > 0 && rng.Intn(2) == 0 {
				parent = &ids[rng.Intn(len(ids))]
			}
			c, err := m.Create(ctx, CreateParams{Name: "Node name", ParentID: parent})
			require.NoError(t, err)
			ids = append(ids, c.ID)
			continue
		}

		id := ids[rng.Intn(len(ids))]
		var newParent *uuid.UUID
		if rng.Intn(5) > 0 {
			newParent = &ids[rng.Intn(len(ids))]
		}
		before := repo.items[id].ParentID
		_, err := m.Update(ctx, id, UpdateParams{Parent: &ParentRef{ID: newParent}})
		if err != nil {
			require.True(t, apperr.Is(err, apperr.KindInvalidOperation), "unexpected error: %v", err)
			assert.Equal(t, before, repo.items[id].ParentID, "failed reparent must leave tree unchanged")
		}
	}

	for _, id := range ids {
		seen := map[uuid.UUID]bool{}
		cur := repo.items[id]
		for cur.ParentID != nil {
			require.False(t, seen[cur.ID], "cycle detected through %s", cur.ID)
			seen[cur.ID] = true
			cur = repo.items[*cur.ParentID]
		}
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked by children", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		parent := mustCreate(t, m, "Parent", nil)
		mustCreate(t, m, "Child", &parent.ID)
		err := m.Delete(ctx, parent.ID)
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, apperr.KindConflict, ae.Kind)
		assert.Equal(t, "category_has_children", ae.Code)
	})

	t.Run("blocked by businesses", func(t *testing.T) {
		repo := newMemRepo()
		m := newTestManager(repo)
		c := mustCreate(t, m, "Plumbers", nil)
		repo.businesses[c.ID] = 3
		err := m.Delete(ctx, c.ID)
		var ae *apperr.Error
		require.True(t, errors.As(err, &ae))
		assert.Equal(t, "category_has_businesses", ae.Code)
	})

	t.Run("removes leaf", func(t *testing.T) {
		repo := newMemRepo()
		m := newTestManager(repo)
		c := mustCreate(t, m, "Leaf", nil)
		require.NoError(t, m.Delete(ctx, c.ID))
		_, ok := repo.items[c.ID]
		assert.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		m := newTestManager(newMemRepo())
		assert.True(t, apperr.Is(m.Delete(ctx, uuid.New()), apperr.KindNotFound))
	})
}

func TestListAndRoots(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newMemRepo())

	food := mustCreate(t, m, "Food", nil)
	mustCreate(t, m, "Services", nil)
	mustCreate(t, m, "Pizza", &food.ID)
	mustCreate(t, m, "Burgers", &food.ID)

	forest, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, "Food", forest[0].Name)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, 1, forest[0].Children[0].Depth)

	roots, err := m.Roots(ctx)
	require.NoError(t, err)
	assert.Len(t, roots, 2)
	for _, r := range roots {
		assert.Nil(t, r.ParentID)
	}
}

func TestBuildForestKeepsCorruptCycles(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	root := uuid.New()
	flat := []models.Category{
		{ID: root, Name: "Root"},
		{ID: a, Name: "A", ParentID: &c},
		{ID: b, Name: "B", ParentID: &a},
		{ID: c, Name: "C", ParentID: &b},
		{ID: d, Name: "D", ParentID: &b},
	}

	forest := BuildForest(flat)
	require.Len(t, forest, 2)
	assert.Equal(t, "Root", forest[0].Name)
	assert.Equal(t, "A", forest[1].Name, "first cycle member in input order is promoted")
	assert.Equal(t, 0, forest[1].Depth)

	flatOut := Flatten(forest)
	names := make([]string, len(flatOut))
	for i, cat := range flatOut {
		names[i] = cat.Name
	}
	assert.Equal(t, []string{"Root", "A", "B", "C", "D"}, names)
	assert.Equal(t, 2, flatOut[3].Depth)
}

func TestBuildForestPromotesOrphans(t *testing.T) {
	gone, child := uuid.New(), uuid.New()
	forest := BuildForest([]models.Category{
		{ID: child, Name: "Orphan", ParentID: &gone},
		{ID: uuid.New(), Name: "Leaf", ParentID: &child},
	})
	require.Len(t, forest, 1)
	assert.Equal(t, "Orphan", forest[0].Name)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, 1, forest[0].Children[0].Depth)
	assert.Empty(t, BuildForest(nil))
}
