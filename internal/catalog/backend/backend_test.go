package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/metrics"
)

func TestOpenSQLiteAndGuard(t *testing.T) {
	cfg := &config.Config{Catalog: config.CatalogConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "nested", "catalog.db"),
	}}
	repo, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.Insert(context.Background(), catalog.Item{Name: "Robux", Currency: "PHP"})
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	g := Guard(repo, cfg.Catalog, m)
	items, err := g.Query(context.Background(), catalog.Predicate{Keyword: "rob"}, 5)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("catalog")))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Catalog: config.CatalogConfig{Driver: "mysql"}})
	require.Error(t, err)
}
