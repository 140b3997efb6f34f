package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vnmchuo/eagleeye/internal/auth"
	"github.com/vnmchuo/eagleeye/internal/bots"
	"github.com/vnmchuo/eagleeye/internal/provider"
	"github.com/vnmchuo/eagleeye/internal/quota"
	"github.com/vnmchuo/eagleeye/internal/telemetry"
	"github.com/vnmchuo/eagleeye/internal/workspace"
	"github.com/vnmchuo/eagleeye/pkg/ratelimit"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxHistory bounds how many stored messages are replayed to the provider.
const maxHistory = 20

type LimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
	Tier      string    `json:"tier"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message   string    `json:"message"`
	LimitInfo LimitInfo `json:"limitInfo"`
}

type limitResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	LimitInfo LimitInfo `json:"limitInfo"`
}

type usageResponse struct {
	Stats map[string]quota.BotUsage `json:"stats"`
	Tier  string                    `json:"tier"`
}

type Handler struct {
	tracker   *quota.Tracker
	completer *Completer
	history   HistoryStore
	workspace workspace.Store
	tracer    trace.Tracer

	metrics *telemetry.Metrics
	sink    telemetry.Sink
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Handler)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithSink(s telemetry.Sink) Option {
	return func(h *Handler) { h.sink = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(tracker *quota.Tracker, completer *Completer, history HistoryStore, ws workspace.Store, tracer trace.Tracer, opts ...Option) *Handler {
	h := &Handler{
		tracker:   tracker,
		completer: completer,
		history:   history,
		workspace: ws,
		tracer:    tracer,
		sink:      telemetry.NopSink{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleChat serves POST /api/ai/{bot}.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("component", "api.ai")

	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	botID := chi.URLParam(r, "bot")
	bot, ok := bots.Get(botID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid bot")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	requestID := auth.RequestID(r.Context())
	tier := h.tracker.Tier(auth.Tier(r.Context()))

	ctx, span := h.tracer.Start(r.Context(), "ai.chat")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("request_id", requestID),
		attribute.String("bot", botID),
		attribute.String("tier", tier),
	)

	decision := h.tracker.CheckLimit(ctx, userID, botID, tier)
	span.SetAttributes(
		attribute.Bool("quota.allowed", decision.Allowed),
		attribute.Int("quota.remaining", decision.Remaining),
	)

	if !decision.Allowed {
		h.deny(w, bot, tier, decision)
		return
	}

	contextPrompt, err := workspace.ContextPrompt(ctx, h.workspace, userID, h.now())
	if err != nil {
		logger.Warn("failed to load user context", "error", err, "userId", userID)
		contextPrompt = ""
	}

	// A chat that failed to load is not saved, so it cannot shadow the real one.
	saveHistory := true
	chat, err := h.history.Latest(ctx, userID, botID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("failed to load chat history", "error", err, "userId", userID, "botType", botID)
			saveHistory = false
		}
		chat = &Chat{UserID: userID, BotID: botID}
	}

	past := chat.Messages
	if len(past) > maxHistory {
		past = past[len(past)-maxHistory:]
	}
	messages := make([]provider.Message, 0, len(past)+2)
	messages = append(messages, provider.Message{Role: "system", Content: bot.SystemPrompt + contextPrompt})
	messages = append(messages, past...)
	messages = append(messages, provider.Message{Role: "user", Content: req.Message})

	resp, err := h.completer.Complete(ctx, &provider.Request{
		Messages:  messages,
		UserID:    userID,
		RequestID: requestID,
	})
	if err != nil {
		h.metrics.Completion(botID, false)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("AI chat error", "error", err, "userId", userID, "botType", botID)
		h.sink.Record(telemetry.LevelError, "ai completion failed", map[string]any{
			"error":     err.Error(),
			"userId":    userID,
			"botType":   botID,
			"requestId": requestID,
		})
		if errors.Is(err, ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "AI service temporarily unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, "Failed to get AI response")
		return
	}
	h.metrics.Completion(botID, true)
	span.SetAttributes(
		attribute.Int("ai.input_tokens", resp.InputTokens),
		attribute.Int("ai.output_tokens", resp.OutputTokens),
	)

	// The response is already paid for; accounting must outlive a client disconnect.
	bg := context.WithoutCancel(ctx)
	h.tracker.IncrementUsage(bg, userID, botID)

	chat.Messages = append(chat.Messages,
		provider.Message{Role: "user", Content: req.Message},
		provider.Message{Role: "assistant", Content: resp.Content},
	)
	if !saveHistory {
		logger.Warn("skipping chat history save after failed load", "userId", userID, "botType", botID)
	} else if err := h.history.Save(bg, chat); err != nil {
		logger.Warn("failed to save chat history", "error", err, "userId", userID, "botType", botID)
		h.sink.Record(telemetry.LevelWarn, "chat history not saved", map[string]any{
			"error":   err.Error(),
			"userId":  userID,
			"botType": botID,
		})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Message: resp.Content,
		LimitInfo: LimitInfo{
			Limit:     decision.Limit,
			Remaining: max(0, decision.Remaining-1),
			ResetAt:   decision.ResetAt,
			Tier:      tier,
		},
	})
}

func (h *Handler) deny(w http.ResponseWriter, bot bots.Bot, tier string, d quota.Decision) {
	ratelimit.SetHeaders(w.Header(), d.Limit, 0, d.ResetAt.Unix())
	retryAfter := int(d.ResetAt.Sub(h.now()).Seconds())
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	msg := fmt.Sprintf("You've reached your daily limit of %d messages with %s.", d.Limit, bot.Name)
	if premium := h.tracker.Limit(quota.TierPremium); tier != quota.TierPremium && premium > d.Limit {
		msg += fmt.Sprintf(" Upgrade to premium for %d messages per day, or come back tomorrow.", premium)
	} else {
		msg += " Your messages reset at midnight."
	}

	writeJSON(w, http.StatusTooManyRequests, limitResponse{
		Error:   "Daily limit reached",
		Message: msg,
		LimitInfo: LimitInfo{
			Limit:     d.Limit,
			Remaining: 0,
			ResetAt:   d.ResetAt,
			Tier:      tier,
		},
	})
}

// HandleLimit serves GET /api/ai/{bot}/limit.
func (h *Handler) HandleLimit(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	botID := chi.URLParam(r, "bot")
	if _, ok := bots.Get(botID); !ok {
		writeError(w, http.StatusBadRequest, "Invalid bot")
		return
	}

	tier := h.tracker.Tier(auth.Tier(r.Context()))
	writeJSON(w, http.StatusOK, h.tracker.CheckLimit(r.Context(), userID, botID, tier))
}

// HandleUsage serves GET /api/ai/usage.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tier := h.tracker.Tier(auth.Tier(r.Context()))
	stats, err := h.tracker.GetUsageStats(r.Context(), userID, tier)
	if err != nil {
		h.logger.With("component", "api.ai.usage").Error("Error fetching usage stats", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch usage stats")
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{Stats: stats, Tier: tier})
}
