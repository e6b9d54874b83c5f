package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetMissing(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("nobody")
	assert.False(t, ok)
}

func TestStore_SetAndGet(t *testing.T) {
	store := NewStore()
	cred := Credential{
		UserID:       "user-1",
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}

	store.Set("user-1", cred)

	got, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, cred, got)
}

func TestStore_SetReplaces(t *testing.T) {
	store := NewStore()
	store.Set("user-1", Credential{UserID: "user-1", AccessToken: "old"})
	store.Set("user-1", Credential{UserID: "user-1", AccessToken: "new"})

	got, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "new", got.AccessToken)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore()
	store.Set("user-1", Credential{UserID: "user-1", AccessToken: "access"})

	store.Delete("user-1")

	_, ok := store.Get("user-1")
	assert.False(t, ok)

	// Deleting a missing key must not panic
	store.Delete("user-1")
}

func TestStore_UserIDs(t *testing.T) {
	store := NewStore()
	assert.Empty(t, store.UserIDs())

	store.Set("alice", Credential{UserID: "alice"})
	store.Set("bob", Credential{UserID: "bob"})

	assert.ElementsMatch(t, []string{"alice", "bob"}, store.UserIDs())
}

func TestStore_CopySemantics(t *testing.T) {
	store := NewStore()
	cred := Credential{UserID: "user-1", AccessToken: "access"}
	store.Set("user-1", cred)

	// Mutating the caller's copy must not affect the stored value
	cred.AccessToken = "mutated"

	got, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, "access", got.AccessToken)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.Set("shared", Credential{UserID: "shared", AccessToken: "access"})
		}()
		go func() {
			defer wg.Done()
			store.Get("shared")
		}()
	}
	wg.Wait()

	got, ok := store.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "access", got.AccessToken)
}
