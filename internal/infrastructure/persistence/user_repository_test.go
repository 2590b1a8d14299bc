package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disi/commandes/internal/domain/identity"
	"github.com/disi/commandes/internal/domain/shared"
)

func TestGormUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "Alice Diallo", "alice@disi.gov", "Direction des Finances", true)
	bob := seedUser(t, db, "Bob Ndiaye", "bob@disi.gov", "direction des finances", false)
	seedUser(t, db, "Chloé Sarr", "chloe@disi.gov", "Direction des Systèmes", true)
	seedUser(t, db, "Denis Fall", "denis@disi.gov", "", false)

	t.Run("find by email ignores case", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, "  ALICE@disi.gov ")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.True(t, got.Approved)
	})

	t.Run("exists by email", func(t *testing.T) {
		ok, err := repo.ExistsByEmail(ctx, "bob@disi.gov")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByEmail(ctx, "nobody@disi.gov")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := &identity.User{
			BaseAggregateRoot: shared.NewBaseAggregateRoot(),
			Name:              "Alice bis",
			Email:             "alice@disi.gov",
			PasswordHash:      "x",
		}
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("approved filter", func(t *testing.T) {
		approved := false
		users, total, err := repo.FindAll(ctx, identity.UserFilter{Filter: shared.DefaultFilter(), Approved: &approved})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, users, 2)
	})

	t.Run("administration filter ignores case", func(t *testing.T) {
		users, total, err := repo.FindAll(ctx, identity.UserFilter{
			Filter:         shared.DefaultFilter(),
			Administration: "DIRECTION DES FINANCES",
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		ids := []uuid.UUID{users[0].ID, users[1].ID}
		assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, ids)
	})

	t.Run("unspecified administration", func(t *testing.T) {
		users, _, err := repo.FindAll(ctx, identity.UserFilter{
			Filter:         shared.DefaultFilter(),
			Administration: identity.UnspecifiedAdministration,
		})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "Denis Fall", users[0].Name)
	})

	t.Run("search", func(t *testing.T) {
		f := shared.DefaultFilter()
		f.Search = "systèmes"
		users, _, err := repo.FindAll(ctx, identity.UserFilter{Filter: f})
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "chloe@disi.gov", users[0].Email)
	})

	t.Run("administrations are deduplicated", func(t *testing.T) {
		labels, err := repo.ListAdministrations(ctx)
		require.NoError(t, err)
		assert.Len(t, labels, 2)
		assert.Contains(t, labels, "Direction des Systèmes")
	})

	t.Run("find by ids", func(t *testing.T) {
		users, err := repo.FindByIDs(ctx, []uuid.UUID{alice.ID, bob.ID})
		require.NoError(t, err)
		assert.Len(t, users, 2)

		users, err = repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("update keeps the row", func(t *testing.T) {
		u, err := repo.FindByID(ctx, bob.ID)
		require.NoError(t, err)
		require.NoError(t, u.Approve(alice.ID))
		require.NoError(t, repo.Save(ctx, u))

		got, err := repo.FindByID(ctx, bob.ID)
		require.NoError(t, err)
		assert.True(t, got.Approved)
		require.NotNil(t, got.ApprovedBy)
		assert.Equal(t, alice.ID, *got.ApprovedBy)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, bob.ID))
		_, err := repo.FindByID(ctx, bob.ID)
		assert.True(t, shared.IsNotFound(err))
		assert.ErrorIs(t, repo.Delete(ctx, bob.ID), shared.ErrNotFound)
	})
}

func TestGormUserRepository_ConcurrentUpdates(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	admin := seedUser(t, db, "Awa Ba", "awa@disi.gov", "Direction Générale", true)
	u := seedUser(t, db, "Moussa Diop", "moussa@disi.gov", "Direction des Finances", true)

	t.Run("login bookkeeping does not undo a revocation", func(t *testing.T) {
		signingIn, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)

		revoking, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		require.NoError(t, revoking.RevokeApproval())
		require.NoError(t, repo.Save(ctx, revoking))

		signingIn.RecordLoginSuccess("10.0.0.7")
		require.NoError(t, repo.RecordLogin(ctx, signingIn))

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.Approved)
		require.NotNil(t, got.LastLoginAt)
		assert.Equal(t, "10.0.0.7", got.LastLoginIP)
	})

	t.Run("stale save is refused", func(t *testing.T) {
		first, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)

		require.NoError(t, first.Approve(admin.ID))
		require.NoError(t, repo.Save(ctx, first))

		require.NoError(t, second.UpdateProfile("Moussa Diop", "+221 77 000 00 00"))
		assert.ErrorIs(t, repo.Save(ctx, second), ErrConcurrentModification)

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Approved)
		assert.Empty(t, got.Phone)
	})

	assert.ErrorIs(t, repo.RecordLogin(ctx, &identity.User{BaseAggregateRoot: shared.NewBaseAggregateRoot()}), shared.ErrNotFound)
}
