package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

type fakeRebuilder struct {
	calls int
	err   error
}

func (f *fakeRebuilder) Rebuild(context.Context) (indexer.Stats, error) {
	f.calls++
	return indexer.Stats{Items: 3}, f.err
}

func TestHandleCatalogEvent(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := &fakeRebuilder{}
	h := HandleCatalogEvent(r, m)

	require.NoError(t, h(context.Background(), []byte("7"), []byte(`{"type":"item_created","item_id":7}`)))
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CatalogEventsTotal.WithLabelValues("item_created", "consumed")))
}

func TestHandleCatalogEventSkipsGarbage(t *testing.T) {
	r := &fakeRebuilder{}
	h := HandleCatalogEvent(r, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, h(context.Background(), nil, []byte(`{{`)))
	assert.Zero(t, r.calls)
}

func TestHandleCatalogEventRebuildFailure(t *testing.T) {
	r := &fakeRebuilder{err: errors.New("store down")}
	h := HandleCatalogEvent(r, metrics.New(prometheus.NewRegistry()))
	err := h(context.Background(), nil, []byte(`{"type":"item_deleted","item_id":2}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item_deleted of item 2")
}
