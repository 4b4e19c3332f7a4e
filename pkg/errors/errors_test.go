package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/resilience"
)

func TestRetrievalKeepsCause(t *testing.T) {
	err := Retrieval("fetching item 7", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "fetching item 7: catalog retrieval failed: context deadline exceeded", err.Error())

	// wrapping twice does not stack the sentinel
	again := Retrieval("hybrid search", err)
	assert.Same(t, err, again)
}

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("item 3: %w", ErrItemNotFound), http.StatusNotFound},
		{"invalid", ErrInvalidInput, http.StatusBadRequest},
		{"retrieval", Retrieval("query", errors.New("connection refused")), http.StatusServiceUnavailable},
		{"breaker", fmt.Errorf("store: %w", resilience.ErrCircuitOpen), http.StatusServiceUnavailable},
		{"timeout", Retrieval("fetching item 2", fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded)), http.StatusServiceUnavailable},
		{"index not ready", ErrIndexNotReady, http.StatusServiceUnavailable},
		{"app error", New(ErrInvalidInput, http.StatusUnprocessableEntity, "bad price"), http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}
