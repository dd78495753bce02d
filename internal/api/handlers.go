package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/coffeemap/internal/geo"
	"github.com/neexbeast/coffeemap/internal/lookup"
	"github.com/neexbeast/coffeemap/internal/places"
)

const maxBodyBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	shops     ShopLookup
	favorites FavoritesRepo
	log       *slog.Logger
	now       func() time.Time
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(shops ShopLookup, favorites FavoritesRepo, log *slog.Logger) *Handlers {
	return NewHandlersWithClock(shops, favorites, log, time.Now)
}

// NewHandlersWithClock constructs Handlers with a custom clock (for tests).
// The clock decides which day opening hours start from.
func NewHandlersWithClock(shops ShopLookup, favorites FavoritesRepo, log *slog.Logger, now func() time.Time) *Handlers {
	return &Handlers{shops: shops, favorites: favorites, log: log, now: now}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps lookup and provider errors to a status code.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if r.Context().Err() != nil {
		// client went away; nothing useful to write
		h.log.Debug("request abandoned", "path", r.URL.Path, "err", err)
		return
	}

	var perr *places.ProviderError
	switch {
	case errors.Is(err, lookup.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, lookup.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.As(err, &perr):
		h.log.Error("provider request failed", "path", r.URL.Path, "provider", perr.Provider, "status", perr.StatusCode, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody("upstream provider failed"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.log.Error("provider request did not complete", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody("upstream provider failed"))
	default:
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

// parseCoordinate reads the lat and lng query parameters.
func parseCoordinate(r *http.Request) (geo.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: lat must be a number", lookup.ErrValidation)
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: lng must be a number", lookup.ErrValidation)
	}
	return geo.Coordinate{Lat: lat, Lng: lng}, nil
}

// wildcardParam returns the unescaped remainder of the route. Place ids from
// OpenStreetMap contain a slash ("node/123").
func wildcardParam(r *http.Request) (string, error) {
	v, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed place id", lookup.ErrValidation)
	}
	return v, nil
}

// NearbyShops handles GET /api/v1/shops/nearby?lat=&lng=&address=.
func (h *Handlers) NearbyShops(w http.ResponseWriter, r *http.Request) {
	at, err := parseCoordinate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.shops.LookupNearby(r.Context(), at, r.URL.Query().Get("address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ShopDetail handles GET /api/v1/shops/{placeID}. Opening hours start from today.
func (h *Handlers) ShopDetail(w http.ResponseWriter, r *http.Request) {
	placeID, err := wildcardParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.shops.LookupDetail(r.Context(), placeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Copy before reordering: the detail may be shared with coalesced callers.
	if res.Data != nil {
		d := *res.Data
		d.OpeningHours = lookup.ReorderFromToday(d.OpeningHours, h.now().Weekday())
		res.Data = &d
	}
	writeJSON(w, http.StatusOK, res)
}

// Photo handles GET /api/v1/photos/{reference}, the thumbnail URL of Google
// nearby results. The cached data URI is served as a plain image.
func (h *Handlers) Photo(w http.ResponseWriter, r *http.Request) {
	ref, err := wildcardParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	uri, err := h.shops.LookupPhoto(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	mime, body, err := decodeDataURI(uri)
	if err != nil {
		h.log.Error("cached photo is not a data URI", "reference", ref, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// decodeDataURI splits "data:<mime>;base64,<payload>".
func decodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("missing data: scheme")
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return "", nil, errors.New("missing base64 marker")
	}
	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding payload: %w", err)
	}
	return mime, body, nil
}

// ReverseGeocode handles GET /api/v1/geocode/reverse?lat=&lng=.
func (h *Handlers) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	at, err := parseCoordinate(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.shops.ReverseGeocode(r.Context(), at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ForwardGeocode handles GET /api/v1/geocode/forward?q=.
func (h *Handlers) ForwardGeocode(w http.ResponseWriter, r *http.Request) {
	coord, err := h.shops.ForwardGeocode(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, coord)
}

type favoriteRequest struct {
	PlaceID string `json:"placeId" validate:"required,max=256"`
	Name    string `json:"name" validate:"required,max=200"`
}

// ListFavorites handles GET /api/v1/favorites.
func (h *Handlers) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	favs, err := h.favorites.ListFavorites(r.Context(), userID)
	if err != nil {
		h.log.Error("list favorites failed", "user", userID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"favorites": favs})
}

// AddFavorite handles POST /api/v1/favorites. Saving the same place twice is not an error.
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	var req favoriteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	req.PlaceID = strings.TrimSpace(req.PlaceID)
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(validationMessage(err)))
		return
	}

	fav, err := h.favorites.AddFavorite(r.Context(), userID, req.PlaceID, req.Name)
	if err != nil {
		h.log.Error("add favorite failed", "user", userID, "place_id", req.PlaceID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

// RemoveFavorite handles DELETE /api/v1/favorites/{placeID}.
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())

	placeID, err := wildcardParam(r)
	if err != nil || placeID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("place id is required"))
		return
	}

	removed, err := h.favorites.RemoveFavorite(r.Context(), userID, placeID)
	if err != nil {
		h.log.Error("remove favorite failed", "user", userID, "place_id", placeID, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
		return
	}
	if !removed {
		writeJSON(w, http.StatusNotFound, errorBody("favorite not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validationMessage names the first failing field using its JSON name.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	field := map[string]string{"PlaceID": "placeId", "Name": "name"}[verrs[0].Field()]
	switch verrs[0].Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + verrs[0].Param() + " characters"
	default:
		return field + " is invalid"
	}
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis
// connectivity and reports provider circuit states. Open circuits do not fail the check.
func HealthHandlerFunc(db dbPinger, redis redisPinger, breakers map[string]BreakerState, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		dbStatus := "ok"
		redisStatus := "ok"

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			dbStatus = "error"
			status = http.StatusServiceUnavailable
		}

		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			redisStatus = "error"
			status = http.StatusServiceUnavailable
		}

		providers := make(map[string]string, len(breakers))
		for name, b := range breakers {
			providers[name] = b.State()
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]any{
			"status":    overall,
			"db":        dbStatus,
			"redis":     redisStatus,
			"providers": providers,
		})
	}
}
