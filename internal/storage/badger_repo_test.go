package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerArmyRepo(t *testing.T) {
	armyRepoContract(t, newTestBadger(t).Armies())
}

func TestBadgerUserRepo(t *testing.T) {
	userRepoContract(t, newTestBadger(t).Users())
}

func TestBadgerStore_OnDisk(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "Повторное закрытие должно быть безопасным")
}
