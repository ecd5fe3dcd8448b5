package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"bookreplay/domain/market"
	"bookreplay/infra/codec"
	"bookreplay/infra/metrics"
	"bookreplay/infra/store"
)

// newRouter exposes metrics, liveness and a JSON view of stored bars.
func newRouter(st *store.Store, reg *metrics.Registry, pairs []market.Pair) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", reg.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/bars/{pair}", func(w http.ResponseWriter, req *http.Request) {
		pair := market.Pair(mux.Vars(req)["pair"])
		bars, err := st.Bars(pair)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		rows := make([]codec.Row, len(bars))
		for i, b := range bars {
			rows[i] = codec.BarRow(pair, b)
		}
		writeJSON(w, http.StatusOK, rows)
	}).Methods(http.MethodGet)

	r.HandleFunc("/events", func(w http.ResponseWriter, _ *http.Request) {
		recs, err := st.Events()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		rows := make([]codec.Row, len(recs))
		for i, rec := range recs {
			rows[i] = codec.EventRow(rec.Event, pairs)
			rows[i]["state"] = rec.State.String()
		}
		writeJSON(w, http.StatusOK, rows)
	}).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}
