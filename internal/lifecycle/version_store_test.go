package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorialcms/internal/db"
	"gorm.io/gorm"
)

func TestSnapshotAllocatesSequentialNumbers(t *testing.T) {
	gdb := setupLifecycleTestDB(t)
	store := NewVersionStore(gdb)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		v, err := store.Snapshot(ctx, SnapshotInput{
			Type:      db.ContentTutorial,
			ContentID: 7,
			Title:     fmt.Sprintf("draft %d", i),
			Body:      "body",
			AuthorID:  1,
		})
		require.NoError(t, err)
		assert.Equal(t, i, v.VersionNumber)
		assert.Equal(t, db.ChangeUpdate, v.ChangeType)
		assert.NotEmpty(t, v.ContentHash)
	}

	// 不同内容拥有各自独立的序列
	other, err := store.Snapshot(ctx, SnapshotInput{Type: db.ContentPage, ContentID: 7, Title: "about"})
	require.NoError(t, err)
	assert.Equal(t, 1, other.VersionNumber)
}

func TestSnapshotConcurrentWritersGetDistinctNumbers(t *testing.T) {
	gdb := setupLifecycleTestDB(t)
	store := NewVersionStore(gdb)
	ctx := context.Background()

	const writers = 20
	numbers := make([]int, writers)
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := store.Snapshot(ctx, SnapshotInput{
				Type:      db.ContentTutorial,
				ContentID: 1,
				Title:     fmt.Sprintf("writer %d", i),
			})
			errs[i] = err
			if err == nil {
				numbers[i] = v.VersionNumber
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	sort.Ints(numbers)
	for i, n := range numbers {
		assert.Equal(t, i+1, n)
	}
	assert.Equal(t, 0, store.locks.size())
}

func TestSnapshotTwoStoresShareOneSequence(t *testing.T) {
	gdb := setupLifecycleTestDB(t)
	first := NewVersionStore(gdb, WithAllocAttempts(20))
	second := NewVersionStore(gdb, WithAllocAttempts(20))
	ctx := context.Background()

	const perStore = 10
	var mu sync.Mutex
	var numbers []int
	var wg sync.WaitGroup
	for _, store := range []*VersionStore{first, second} {
		for i := 0; i < perStore; i++ {
			wg.Add(1)
			go func(store *VersionStore) {
				defer wg.Done()
				v, err := store.Snapshot(ctx, SnapshotInput{Type: db.ContentPage, ContentID: 3, Title: "shared"})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				numbers = append(numbers, v.VersionNumber)
				mu.Unlock()
			}(store)
		}
	}
	wg.Wait()

	require.Len(t, numbers, 2*perStore)
	sort.Ints(numbers)
	for i, n := range numbers {
		assert.Equal(t, i+1, n)
	}
}

func TestSnapshotRejectsInvalidInput(t *testing.T) {
	store := NewVersionStore(setupLifecycleTestDB(t))
	ctx := context.Background()

	_, err := store.Snapshot(ctx, SnapshotInput{Type: "video", ContentID: 1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Snapshot(ctx, SnapshotInput{Type: db.ContentTutorial})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Snapshot(ctx, SnapshotInput{Type: db.ContentTutorial, ContentID: 1, ChangeType: "rename"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListAndGetVersions(t *testing.T) {
	store := NewVersionStore(setupLifecycleTestDB(t))
	ctx := context.Background()

	for _, title := range []string{"one", "two", "three"} {
		_, err := store.Snapshot(ctx, SnapshotInput{
			Type:      db.ContentTutorial,
			ContentID: 5,
			Title:     title,
			Metadata:  map[string]interface{}{"level": title},
		})
		require.NoError(t, err)
	}

	versions, err := store.List(ctx, db.ContentTutorial, 5)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[2].VersionNumber)

	second, err := store.Get(ctx, db.ContentTutorial, 5, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", second.Title)
	assert.Equal(t, "two", second.Metadata["level"])

	latest, err := store.Latest(ctx, db.ContentTutorial, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.VersionNumber)

	_, err = store.Get(ctx, db.ContentTutorial, 5, 9)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, db.ContentTutorial, 5, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = store.Latest(ctx, db.ContentPage, 5)
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := store.List(ctx, db.ContentPage, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestHashFieldsIgnoresMetadataKeyOrder(t *testing.T) {
	a := hashFields("t", "b", map[string]interface{}{"x": "1", "y": "2"})
	b := hashFields("t", "b", map[string]interface{}{"y": "2", "x": "1"})
	c := hashFields("t", "b!", map[string]interface{}{"x": "1", "y": "2"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, isDuplicateKey(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, isDuplicateKey(errors.New("UNIQUE constraint failed: content_versions.content_type")))
	assert.True(t, isDuplicateKey(errors.New(`ERROR: duplicate key value violates unique constraint "idx_content_version"`)))
	assert.False(t, isDuplicateKey(errors.New("database is locked")))
}

func TestKeyedMutexForgetsReleasedKeys(t *testing.T) {
	locks := newKeyedMutex()
	unlockA := locks.Lock("a")
	unlockB := locks.Lock("b")
	assert.Equal(t, 2, locks.size())

	unlockA()
	unlockB()
	assert.Equal(t, 0, locks.size())
}
