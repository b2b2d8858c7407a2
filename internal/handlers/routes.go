package handlers

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, qa *QAHandler, ingest *IngestHandler, auth *AuthHandler) {
	r.HandleFunc("/", HandleHome).Methods("GET")
	r.HandleFunc("/api/qa", qa.HandleAsk).Methods("POST")
	r.HandleFunc("/api/qa/cache/stats", qa.HandleCacheStats).Methods("GET")
	r.HandleFunc("/api/qa/cache/clear", qa.HandleCacheClear).Methods("POST")
	r.HandleFunc("/api/ingest", ingest.HandleIngest).Methods("POST")
	r.HandleFunc("/api/auth/verify", auth.HandleVerify).Methods("POST")
}
