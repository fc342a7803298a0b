package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/safanavk/smileshop-backend/api/middleware"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+key)
	}
	return id, nil
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// listEnvelope wraps a page of results with its continuation cursor.
func listEnvelope[T any](items []T, next *pagination.Cursor) map[string]any {
	payload := map[string]any{"items": items}
	if next != nil {
		payload["next_cursor"] = pagination.EncodeCursor(*next)
	}
	return payload
}

func paginationParams(r *http.Request) pagination.Params {
	params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	return params
}
