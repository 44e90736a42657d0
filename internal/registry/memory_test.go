package registry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/phrazzld/enhance-api/internal/domain"
	"github.com/phrazzld/enhance-api/internal/registry"
	"github.com/phrazzld/enhance-api/internal/registry/registrytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		return registry.NewMemoryRegistry()
	})
}

func TestMemoryRegistry_CanceledContext(t *testing.T) {
	r := registry.NewMemoryRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := domain.NewJobID()
	assert.ErrorIs(t, r.Create(ctx, id), context.Canceled)
	assert.ErrorIs(t, r.TrySetProcessing(ctx, id), context.Canceled)
	_, err := r.Status(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.Len())
}

func TestMemoryRegistry_ManyIdentitiesConcurrently(t *testing.T) {
	r := registry.NewMemoryRegistry()
	ctx := context.Background()

	const jobs = 200
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := domain.NewJobID()
			assert.NoError(t, r.Create(ctx, id))
			assert.NoError(t, r.TrySetProcessing(ctx, id))
			ok, err := r.SetTerminal(ctx, id, domain.StatusCompleted)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	require.Equal(t, jobs, r.Len())
}
