package correlate

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// HeaderCorrelationID carries the correlation id of a request and its reply.
const HeaderCorrelationID = "X-Correlation-ID"

const maxReplyBytes = 1 << 20

// Handler accepts replies posted back by the bus and resolves them on w.
func Handler(w *Waiter) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.Header().Set("Allow", http.MethodPost)
			http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id := r.Header.Get(HeaderCorrelationID)
		if id == "" {
			http.Error(rw, "missing "+HeaderCorrelationID+" header", http.StatusBadRequest)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxReplyBytes))
		if err != nil {
			http.Error(rw, "reading reply", http.StatusBadRequest)
			return
		}
		if !w.Resolve(id, payload) {
			log.Debug().Str("correlation_id", id).Msg("reply for unknown request")
			http.Error(rw, "unknown correlation id", http.StatusNotFound)
			return
		}
		log.Trace().Str("correlation_id", id).Int("bytes", len(payload)).Msg("reply received")
		rw.WriteHeader(http.StatusAccepted)
	})
}
