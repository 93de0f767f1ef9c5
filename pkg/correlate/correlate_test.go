package correlate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAwaitResolved(t *testing.T) {
	require := require.New(t)
	w := NewWaiter(context.Background())
	require.NoError(w.Register("abc"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Resolve("abc", []byte("ok"))
	}()

	payload, err := w.Await(context.Background(), "abc", time.Second)
	require.NoError(err)
	require.Equal([]byte("ok"), payload)
	require.Zero(w.Pending())
}

func TestAwaitReplyBeforeAwait(t *testing.T) {
	require := require.New(t)
	w := NewWaiter(context.Background())
	require.NoError(w.Register("abc"))
	require.True(w.Resolve("abc", []byte("early")))
	require.False(w.Resolve("abc", []byte("late")))

	payload, err := w.Await(context.Background(), "abc", time.Second)
	require.NoError(err)
	require.Equal([]byte("early"), payload)
}

func TestAwaitTimeout(t *testing.T) {
	require := require.New(t)
	w := NewWaiter(context.Background())
	require.NoError(w.Register("abc"))

	_, err := w.Await(context.Background(), "abc", 20*time.Millisecond)
	require.ErrorIs(err, context.DeadlineExceeded)
	require.Zero(w.Pending())
	require.False(w.Resolve("abc", nil))
}

func TestAwaitWaiterCancelled(t *testing.T) {
	require := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWaiter(ctx)
	require.NoError(w.Register("abc"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := w.Await(context.Background(), "abc", 0)
	require.ErrorIs(err, context.Canceled)
}

func TestAwaitUnknownAndDuplicate(t *testing.T) {
	require := require.New(t)
	w := NewWaiter(context.Background())

	_, err := w.Await(context.Background(), "nope", time.Second)
	require.ErrorIs(err, ErrUnknownID)

	require.NoError(w.Register("abc"))
	require.ErrorIs(w.Register("abc"), ErrDuplicateID)
	w.Forget("abc")
	require.NoError(w.Register("abc"))
}

func TestAwaitConcurrent(t *testing.T) {
	require := require.New(t)
	w := NewWaiter(context.Background())
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, id := range ids {
		require.NoError(w.Register(id))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := w.Await(context.Background(), id, time.Second)
			if err != nil {
				errs <- err
				return
			}
			if string(payload) != id {
				errs <- errors.New("mismatched reply for " + id)
			}
		}()
	}
	for i := len(ids) - 1; i >= 0; i-- {
		w.Resolve(ids[i], []byte(ids[i]))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(err)
	}
}

func TestHandler(t *testing.T) {
	w := NewWaiter(context.Background())
	require.NoError(t, w.Register("abc"))
	h := Handler(w)

	table := []struct {
		name           string
		method         string
		id             string
		expectedStatus int
	}{
		{"wrong method", http.MethodGet, "abc", http.StatusMethodNotAllowed},
		{"missing header", http.MethodPost, "", http.StatusBadRequest},
		{"unknown id", http.MethodPost, "zzz", http.StatusNotFound},
		{"resolved", http.MethodPost, "abc", http.StatusAccepted},
		{"already resolved", http.MethodPost, "abc", http.StatusNotFound},
	}
	for _, tt := range table {
		req := httptest.NewRequest(tt.method, "/replies", strings.NewReader(`{"status":201}`))
		if tt.id != "" {
			req.Header.Set(HeaderCorrelationID, tt.id)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, tt.expectedStatus, rec.Code, tt.name)
	}

	payload, err := w.Await(context.Background(), "abc", time.Second)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":201}`, string(payload))
}
