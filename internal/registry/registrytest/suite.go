// Package registrytest holds behavioural tests shared by every Registry implementation.
package registrytest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty registry for one subtest.
type Factory func(t *testing.T) registry.Registry

// Run exercises the Registry contract against registries built by newRegistry.
func Run(t *testing.T, newRegistry Factory) {
	t.Helper()

	t.Run("status of unknown identity is not_found", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()

		status, err := r.Status(ctx, domain.NewJobID())
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNotFound, status)

		_, err = r.Get(ctx, domain.NewJobID())
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("create records pending", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()

		require.NoError(t, r.Create(ctx, id))

		state, err := r.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, state.ID)
		assert.Equal(t, domain.StatusPending, state.Status)
		assert.False(t, state.CreatedAt.IsZero())
		assert.False(t, state.UpdatedAt.Before(state.CreatedAt))
	})

	t.Run("create resets an existing entry", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()

		require.NoError(t, r.Create(ctx, id))
		require.NoError(t, r.TrySetProcessing(ctx, id))
		require.NoError(t, r.Create(ctx, id))

		status, err := r.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusPending, status)
	})

	t.Run("processing rejects a second start", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()
		require.NoError(t, r.Create(ctx, id))

		require.NoError(t, r.TrySetProcessing(ctx, id))
		err := r.TrySetProcessing(ctx, id)
		assert.ErrorIs(t, err, domain.ErrAlreadyProcessing)

		status, err := r.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessing, status)
	})

	t.Run("terminal states may restart", func(t *testing.T) {
		for _, terminal := range []domain.JobStatus{domain.StatusCompleted, domain.StatusFailed} {
			r := newRegistry(t)
			ctx := context.Background()
			id := domain.NewJobID()
			require.NoError(t, r.Create(ctx, id))
			require.NoError(t, r.TrySetProcessing(ctx, id))

			ok, err := r.SetTerminal(ctx, id, terminal)
			require.NoError(t, err)
			assert.True(t, ok)

			status, err := r.Status(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, terminal, status)

			assert.NoError(t, r.TrySetProcessing(ctx, id), "restart from %s should be accepted", terminal)
		}
	})

	t.Run("absent entry accepted by try set processing", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()

		require.NoError(t, r.TrySetProcessing(ctx, id))
		status, err := r.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessing, status)
	})

	t.Run("set terminal does not resurrect removed entries", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()
		require.NoError(t, r.Create(ctx, id))
		require.NoError(t, r.TrySetProcessing(ctx, id))
		require.NoError(t, r.Remove(ctx, id))

		ok, err := r.SetTerminal(ctx, id, domain.StatusCompleted)
		require.NoError(t, err)
		assert.False(t, ok)

		status, err := r.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNotFound, status)
	})

	t.Run("set terminal rejects non-terminal status", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()
		require.NoError(t, r.Create(ctx, id))

		for _, status := range []domain.JobStatus{domain.StatusPending, domain.StatusProcessing, domain.StatusNotFound} {
			_, err := r.SetTerminal(ctx, id, status)
			assert.ErrorIs(t, err, domain.ErrInvalidStatus, "status %s", status)
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()
		require.NoError(t, r.Create(ctx, id))

		require.NoError(t, r.Remove(ctx, id))
		require.NoError(t, r.Remove(ctx, id))
		require.NoError(t, r.Remove(ctx, domain.NewJobID()))

		status, err := r.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusNotFound, status)
	})

	t.Run("concurrent starts yield one acceptance", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		id := domain.NewJobID()
		require.NoError(t, r.Create(ctx, id))

		const attempts = 50
		var accepted, conflicts atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				err := r.TrySetProcessing(ctx, id)
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, domain.ErrAlreadyProcessing):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), accepted.Load())
		assert.Equal(t, int32(attempts-1), conflicts.Load())
	})

	t.Run("identities are independent", func(t *testing.T) {
		r := newRegistry(t)
		ctx := context.Background()
		a, b := domain.NewJobID(), domain.NewJobID()
		require.NoError(t, r.Create(ctx, a))
		require.NoError(t, r.Create(ctx, b))

		require.NoError(t, r.TrySetProcessing(ctx, a))
		require.NoError(t, r.TrySetProcessing(ctx, b))
		require.NoError(t, r.Remove(ctx, a))

		status, err := r.Status(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusProcessing, status)
	})
}
