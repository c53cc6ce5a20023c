package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestMiddlewareAPIHandler() *APIHandler {
	return NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc"), nil)
}

// TestMiddlewaresStacks ensures we get both public and ops middlewares
// stacks with exact number of elements in those stacks.
func TestMiddlewaresStacks(t *testing.T) {
	api := newTestMiddlewareAPIHandler()
	pub, ops := api.MiddlewaresStacks()
	assert.Equal(t, 7, len(*pub))
	assert.Equal(t, 6, len(*ops))
}

// TestChain ensures each middleware in the stack is called as well the handler.
func TestChain(t *testing.T) {
	var ca, cb, cc, ch bool
	queue := make(chan int, 4)

	middlewareA := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 1
			ca = true
			next(w, r, ps)
		}
	}
	middlewareB := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 2
			cb = true
			next(w, r, ps)
		}
	}
	middlewareC := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 3
			cc = true
			next(w, r, ps)
		}
	}
	middlewares := Middlewares{
		middlewareA,
		middlewareB,
		middlewareC,
	}

	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		queue <- 4
		ch = true
	}

	chained := (&middlewares).Chain(handler)
	req := httptest.NewRequest("GET", "/api/books", nil)
	w := httptest.NewRecorder()
	chained(w, req, nil)

	t.Run("check calling", func(t *testing.T) {
		assert.Equal(t, true, ca)
		assert.Equal(t, true, cb)
		assert.Equal(t, true, cc)
		assert.Equal(t, true, ch)
	})

	t.Run("check ordering", func(t *testing.T) {
		assert.Equal(t, 1, <-queue)
		assert.Equal(t, 2, <-queue)
		assert.Equal(t, 3, <-queue)
		assert.Equal(t, 4, <-queue)
	})
}

// TestRequestsCounterMiddleware ensures the request counter increment.
func TestRequestsCounterMiddleware(t *testing.T) {
	api := newTestMiddlewareAPIHandler()
	req := httptest.NewRequest("GET", "/api/books", nil)
	w := httptest.NewRecorder()
	var num uint64
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		num = GetRequestNumberFromContext(req.Context())
	}
	wrapped := api.RequestsCounterMiddleware(handler)
	wrapped(w, req, nil)
	assert.Equal(t, uint64(1), num)
	assert.Equal(t, uint64(1), api.stats.called)
}

// TestRequestIDMiddleware ensures the request id and the request
// logger are available to the handler.
func TestRequestIDMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	api := NewAPIHandler(zap.New(core), &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc"), nil)
	req := httptest.NewRequest("GET", "/api/books", nil)
	w := httptest.NewRecorder()
	var requestID string
	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		requestID = GetValueFromContext(r.Context(), RequestIDContextKey)
		api.GetLoggerFromContext(r.Context()).Info("inside")
	}
	api.RequestIDMiddleware(handler)(w, req, nil)
	assert.Equal(t, "r:abc", requestID)
	assert.Equal(t, "r:abc", w.Header().Get("X-Request-ID"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r:abc", logs.All()[0].ContextMap()["request.id"])
}

// TestStatsMiddleware ensures response status codes are counted.
func TestStatsMiddleware(t *testing.T) {
	api := newTestMiddlewareAPIHandler()
	created := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.WriteHeader(http.StatusCreated)
	}
	ok := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	}
	for i := 0; i < 2; i++ {
		api.StatsMiddleware(created)(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/books", nil), nil)
	}
	api.StatsMiddleware(ok)(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/books", nil), nil)
	assert.Equal(t, uint64(2), api.stats.status[http.StatusCreated])
	assert.Equal(t, uint64(1), api.stats.status[http.StatusOK])
}

// TestPanicRecoveryMiddleware ensures a panicking handler results into 500.
func TestPanicRecoveryMiddleware(t *testing.T) {
	api := newTestMiddlewareAPIHandler()
	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		panic("boom")
	}
	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		api.PanicRecoveryMiddleware(handler)(w, httptest.NewRequest("GET", "/api/books", nil), nil)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var apiErr APIError
	require.NoError(t, json.NewDecoder(w.Body).Decode(&apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

// TestCORSMiddleware ensures the cors headers are set.
func TestCORSMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	CORSMiddleware(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {})(w, httptest.NewRequest("GET", "/", nil), nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

// TestMaintenanceModeMiddleware ensures public requests get 503 while the
// maintenance mode is enabled and reach the handler once it is disabled.
func TestMaintenanceModeMiddleware(t *testing.T) {
	api := newTestMiddlewareAPIHandler()
	var called bool
	handler := api.MaintenanceModeMiddleware(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		called = true
	})

	w := httptest.NewRecorder()
	api.Maintenance(w, httptest.NewRequest("GET", "/ops/maintenance?status=enable&msg=upgrading", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api/books", nil), nil)
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	m := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&m))
	assert.Equal(t, "upgrading", m["reason"])
	assert.Equal(t, "Sun, 02 Jul 2023 00:00:00 UTC", m["since"])

	w = httptest.NewRecorder()
	api.Maintenance(w, httptest.NewRequest("GET", "/ops/maintenance?status=disable", nil), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/api/books", nil), nil)
	assert.True(t, called)
}

// TestCoreMiddleware ensures the request and its response are logged.
func TestCoreMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	api := NewAPIHandler(zap.New(core), &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc"), nil)
	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.WriteHeader(http.StatusTeapot)
	}
	chain := &Middlewares{api.StatsMiddleware, api.CoreMiddleware}
	chain.Chain(handler)(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/books", nil), nil)

	entries := logs.FilterMessage("response").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["response.status"])
	assert.Equal(t, 1, logs.FilterMessage("request").Len())
}
