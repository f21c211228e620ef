package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/linkdash/linkdash/internal/analytics"
	"github.com/linkdash/linkdash/internal/auth"
	"github.com/linkdash/linkdash/internal/database"
	"github.com/linkdash/linkdash/internal/model"
	"github.com/linkdash/linkdash/internal/service"
	"github.com/linkdash/linkdash/internal/store"
	"github.com/linkdash/linkdash/internal/util"
)

// Handler связывает HTTP-поверхность с ядром.
type Handler struct {
	Store     *store.Store
	Resolver  *service.Resolver
	Analytics *analytics.Aggregator
	Auth      *auth.Auth
	Logger    *zap.Logger
	DB        database.DBInterface // nil в режиме memory
}

func NewHandler(st *store.Store, resolver *service.Resolver, agg *analytics.Aggregator,
	authService *auth.Auth, logger *zap.Logger, db database.DBInterface) *Handler {
	return &Handler{
		Store:     st,
		Resolver:  resolver,
		Analytics: agg,
		Auth:      authService,
		Logger:    logger,
		DB:        db,
	}
}

// Redirect обрабатывает GET /{alias}: 302 на целевой URL,
// 404 для неизвестных/просроченных, 429 при enforce-режиме лимитера.
func (h *Handler) Redirect(res http.ResponseWriter, req *http.Request) {
	alias := chi.URLParam(req, "alias")
	if alias == "" {
		http.Error(res, "Bad Request: Missing alias in URL", http.StatusBadRequest)
		return
	}

	overrides := &model.ClickOverrides{
		Referrer:  req.Referer(),
		UserAgent: req.UserAgent(),
	}

	target, err := h.Resolver.Visit(req.Context(), clientKey(req), alias, overrides)
	switch {
	case errors.Is(err, service.ErrNotFound):
		http.NotFound(res, req)
		return
	case errors.Is(err, service.ErrRateLimited):
		http.Error(res, "Too Many Requests", http.StatusTooManyRequests)
		return
	case err != nil:
		h.Logger.Error("visit failed", zap.String("alias", alias), zap.Error(err))
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(res, req, target, http.StatusFound)
}

// CreateLink обрабатывает POST /api/links.
func (h *Handler) CreateLink(res http.ResponseWriter, req *http.Request) {
	var body model.CreateLinkRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(res, "Bad Request", http.StatusBadRequest)
		return
	}

	expiresAt, err := util.ParseExpiry(body.ExpiresAt)
	if err != nil {
		http.Error(res, "Bad Request: invalid expires_at", http.StatusBadRequest)
		return
	}

	owner := h.Auth.GetOrSetOwnerID(res, req)

	link, err := h.Store.Create(req.Context(), body.URL, body.Alias, expiresAt, owner)
	switch {
	case errors.Is(err, store.ErrEmptyURL):
		http.Error(res, "URL empty", http.StatusBadRequest)
		return
	case errors.Is(err, store.ErrAliasTaken):
		http.Error(res, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.Logger.Error("create link failed", zap.Error(err))
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(res, http.StatusCreated, link)
}

// ListLinks обрабатывает GET /api/links: все ссылки, новые первыми.
func (h *Handler) ListLinks(res http.ResponseWriter, _ *http.Request) {
	writeJSON(res, http.StatusOK, h.Store.ListAll())
}

// DeleteLink обрабатывает DELETE /api/links/{id}.
// Удаление идемпотентно: повторный вызов тоже отвечает 204.
func (h *Handler) DeleteLink(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if err := h.Store.Delete(req.Context(), id); err != nil {
		h.Logger.Error("delete link failed", zap.String("id", id), zap.Error(err))
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

// UpdateLink обрабатывает PATCH /api/links/{id}: включение и
// выключение ссылки без удаления записи.
func (h *Handler) UpdateLink(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Active == nil {
		http.Error(res, "Bad Request", http.StatusBadRequest)
		return
	}

	link, err := h.Store.SetActive(req.Context(), id, *body.Active)
	if err != nil {
		h.Logger.Error("update link failed", zap.String("id", id), zap.Error(err))
		http.Error(res, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if link == nil {
		http.NotFound(res, req)
		return
	}

	writeJSON(res, http.StatusOK, link)
}

// LinkStats обрабатывает GET /api/links/{id}/stats.
// Неизвестный id даёт пустую сводку, как и ссылка без кликов.
func (h *Handler) LinkStats(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	writeJSON(res, http.StatusOK, h.Analytics.Summarize(id))
}

// Ping обрабатывает GET /ping: здоровье БД в режиме database.
func (h *Handler) Ping(res http.ResponseWriter, req *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(req.Context()); err != nil {
			http.Error(res, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	res.WriteHeader(http.StatusOK)
}

// clientKey извлекает клиентскую идентичность для лимитера:
// X-Real-IP от обратного прокси, иначе адрес соединения.
func clientKey(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}
