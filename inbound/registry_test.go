package inbound_test

import (
	"sync"
	"testing"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	c, _ := components(t)
	cfg, err := inbound.NewEndpointConfig(defaultSettings(), c)
	require.NoError(t, err)

	t.Run("success - register and lookup", func(t *testing.T) {
		r := inbound.NewRegistry()
		require.NoError(t, r.Register(cfg))

		got, err := r.Lookup("default")

		require.NoError(t, err)
		assert.Same(t, cfg, got)
		assert.Equal(t, []string{"default"}, r.Names())
		assert.Equal(t, 1, r.Len())
	})

	t.Run("success - register overwrites by name", func(t *testing.T) {
		s := defaultSettings()
		s.SigningSecret = "rotated"
		rotated, err := inbound.NewEndpointConfig(s, c)
		require.NoError(t, err)

		r := inbound.NewRegistry()
		require.NoError(t, r.Register(cfg))
		require.NoError(t, r.Register(rotated))

		got, err := r.Lookup("default")
		require.NoError(t, err)
		assert.Equal(t, "rotated", got.SigningSecret())
		assert.Equal(t, 1, r.Len())
	})

	t.Run("error - unknown name", func(t *testing.T) {
		r := inbound.NewRegistry().Freeze()

		got, err := r.Lookup("missing")

		assert.Nil(t, got)
		assert.True(t, inbound.IsConfigurationError(err))
		assert.ErrorIs(t, err, inbound.ErrEndpointNotFound)
		assert.Contains(t, err.Error(), "missing")
	})

	t.Run("error - register after freeze", func(t *testing.T) {
		r := inbound.NewRegistry().Freeze()

		err := r.Register(cfg)

		assert.ErrorContains(t, err, "frozen")
	})

	t.Run("concurrent lookups after freeze", func(t *testing.T) {
		r := inbound.NewRegistry()
		require.NoError(t, r.Register(cfg))
		r.Freeze()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := r.Lookup("default")
				assert.NoError(t, err)
				assert.Same(t, cfg, got)
			}()
		}
		wg.Wait()
	})
}
