package share

import (
	"testing"

	"lexshare/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestore_AppendsOldContentInReplaceMode(t *testing.T) {
	f := newFixture(t)
	env := f.publish(t, "Restorable", dossiers("d1"))
	for _, ids := range [][]string{{"d2"}, {"d3"}} {
		_, err := f.svc.UpdateWithVersion(f.ctx, f.owner, env.ID, VersionedUpdate{
			Content:     dossiers(ids...),
			VersionMode: models.VersionCoexist,
		})
		require.NoError(t, err)
	}
	before := f.ledger(t, env.ID)
	require.Len(t, before, 3)

	restored, err := f.svc.Restore(f.ctx, f.owner, env.ID, before[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.CurrentVersion)
	assert.Equal(t, []string{"d1"}, keys(restored.Content.Dossiers))

	after := f.ledger(t, env.ID)
	require.Len(t, after, 4)
	assert.Equal(t, before[0].Content, after[3].Content)
	assert.Equal(t, "Restored v1", after[3].Changelog)
	assert.False(t, after[3].Replaced)
	assert.True(t, after[2].Replaced, "the version current before the restore is marked replaced")
	for i := 0; i < 2; i++ {
		assert.Equal(t, before[i].Content, after[i].Content)
		assert.False(t, after[i].Replaced)
	}
}

func TestRestore_Errors(t *testing.T) {
	f := newFixture(t)
	env := f.publish(t, "Restorable", dossiers("d1"))
	foreign := f.publish(t, "Somebody else", dossiers("x1"))
	own := f.ledger(t, env.ID)[0]
	alien := f.ledger(t, foreign.ID)[0]

	_, err := f.svc.Restore(f.ctx, f.other, env.ID, own.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.Restore(f.ctx, f.owner, env.ID, alien.ID)
	assert.ErrorIs(t, err, ErrNotFound, "versions of other environments cannot be restored")

	_, err = f.svc.Restore(f.ctx, f.owner, env.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, f.ledger(t, env.ID), 1)
}

func TestVersions_Visibility(t *testing.T) {
	f := newFixture(t)
	env := f.publish(t, "Ledger visibility", dossiers("d1"))

	versions, err := f.svc.Versions(f.ctx, f.other, env.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = f.svc.Withdraw(f.ctx, f.owner, env.ID)
	require.NoError(t, err)
	_, err = f.svc.Versions(f.ctx, f.other, env.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Versions(f.ctx, f.admin, env.ID)
	assert.NoError(t, err)
}
