package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/email-enricher/internal/enrich"
)

func TestMemoryStoreDoneGuard(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, doneResult("c1")))

	regressed := doneResult("c1")
	regressed.Status = enrich.StatusFailed
	require.NoError(t, store.Record(ctx, regressed))

	done, err := store.IsDone(ctx, "c1")
	require.NoError(t, err)
	require.True(t, done)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, enrich.StatusDone, loaded["c1"].Status)
}
