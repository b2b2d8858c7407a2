package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/agrimech/manuals-qa/internal/config"
	"github.com/agrimech/manuals-qa/internal/gemini"
	"github.com/agrimech/manuals-qa/internal/manuals"
	"github.com/agrimech/manuals-qa/internal/qacache"
	"github.com/sirupsen/logrus"
)

// maxHistoryExchanges caps how many prior conversation turns are forwarded
// upstream.
const maxHistoryExchanges = 10

// AnswerClient is the upstream generative-language dependency. It fails
// closed: faults surface as a sentinel answer, never as an error.
type AnswerClient interface {
	Ask(ctx context.Context, question, manualContext string, history []gemini.Exchange) string
}

type QAHandler struct {
	cfg     *config.Config
	cache   *qacache.Service
	manuals manuals.Store
	llm     AnswerClient
	log     *logrus.Entry
}

func NewQAHandler(logger *logrus.Logger, cfg *config.Config, cache *qacache.Service, manualStore manuals.Store, llm AnswerClient) *QAHandler {
	return &QAHandler{
		cfg:     cfg,
		cache:   cache,
		manuals: manualStore,
		llm:     llm,
		log:     logger.WithField("component", "qa_handler"),
	}
}

type askRequest struct {
	Question            string            `json:"question"`
	Model               string            `json:"model"`
	ConversationHistory []gemini.Exchange `json:"conversation_history"`
}

type askResponse struct {
	Answer         string `json:"answer"`
	ModelUsed      string `json:"model_used"`
	Cached         bool   `json:"cached"`
	ContextFound   bool   `json:"context_found"`
	ContextLength  int    `json:"context_length"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Source         string `json:"source"`
}

// HandleAsk answers a question about an equipment manual: cache first for
// single-turn questions, otherwise manual lookup plus an upstream model call,
// re-populating the cache when the answer is cache-eligible.
func (h *QAHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}

	model := req.Model
	if model == "" {
		model = "General"
	}

	log := h.log.WithFields(logrus.Fields{
		"model":       model,
		"has_history": len(req.ConversationHistory) > 0,
	})

	// Conversation follow-ups bypass the cache entirely: a cached answer to
	// the bare question ignores the preceding turns.
	if len(req.ConversationHistory) == 0 {
		if answer, ok := h.cache.Get(ctx, req.Question); ok {
			log.WithField("duration", time.Since(start)).Info("Answered from cache")
			writeJSON(w, http.StatusOK, askResponse{
				Answer:         answer,
				ModelUsed:      model,
				Cached:         true,
				ResponseTimeMS: time.Since(start).Milliseconds(),
				Source:         "cache",
			})
			return
		}
	}

	manualContext, contextFound := h.lookupContext(ctx, model, log)

	history := trimHistory(req.ConversationHistory)
	answer := h.llm.Ask(ctx, req.Question, manualContext, history)

	if cacheEligible(answer, req.ConversationHistory) {
		h.cache.Put(ctx, req.Question, answer, model, h.cfg.CacheTTL)
	}

	log.WithFields(logrus.Fields{
		"duration":      time.Since(start),
		"context_found": contextFound,
	}).Info("Answered from upstream")

	writeJSON(w, http.StatusOK, askResponse{
		Answer:         answer,
		ModelUsed:      model,
		Cached:         false,
		ContextFound:   contextFound,
		ContextLength:  len(manualContext),
		ResponseTimeMS: time.Since(start).Milliseconds(),
		Source:         "gemini",
	})
}

// lookupContext finds manual text for the requested model, falling back to
// any stored manual. A storage fault or empty store yields an empty context.
func (h *QAHandler) lookupContext(ctx context.Context, model string, log *logrus.Entry) (string, bool) {
	manual, err := h.manuals.FindByModel(ctx, model)
	if err != nil {
		log.WithError(err).Warn("Manual lookup failed")
	}
	if manual == nil {
		manual, err = h.manuals.FindAny(ctx)
		if err != nil {
			log.WithError(err).Warn("Fallback manual lookup failed")
		}
	}
	if manual == nil {
		return "", false
	}
	return manual.Content, true
}

func trimHistory(history []gemini.Exchange) []gemini.Exchange {
	if len(history) > maxHistoryExchanges {
		history = history[len(history)-maxHistoryExchanges:]
	}
	return history
}

// cacheEligible allows caching only for single-turn questions with a real
// answer: the sentinel marks an upstream fault and must never be reused.
func cacheEligible(answer string, history []gemini.Exchange) bool {
	return answer != "" &&
		!strings.Contains(answer, gemini.FailureSentinel) &&
		len(history) == 0
}

func (h *QAHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Cache stats query failed")
		writeError(w, http.StatusInternalServerError, "Failed to read cache stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *QAHandler) HandleCacheClear(w http.ResponseWriter, r *http.Request) {
	cleared, err := h.cache.PruneExpired(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Cache prune failed")
		writeError(w, http.StatusInternalServerError, "Failed to clear expired cache entries")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Expired cache entries cleared",
		"cleared_count": cleared,
	})
}
