package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rsshub-push/models/constants"
	"rsshub-push/models/entities"
	"rsshub-push/repositories/articles"
	"rsshub-push/services/monitor"
	"rsshub-push/services/pusher"
	"rsshub-push/utils/dates"

	"github.com/dustin/go-humanize"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/hlog"
)

func (server *Server) getArticles(w http.ResponseWriter, r *http.Request) {
	useCache := r.URL.Query().Get("cache") != "false"
	refresh := r.URL.Query().Get("refresh") == "true"

	if useCache && !refresh {
		if cached, found := server.cache.Get(articlesCacheKey); found {
			items := cached.([]entities.Article)
			writeJSON(w, http.StatusOK, articlesResponse{
				Success:   true,
				Data:      items,
				Count:     len(items),
				Cached:    true,
				Timestamp: time.Now().Format(time.RFC3339),
			})
			return
		}
	}

	opts := server.deps.Feeds.DefaultOptions()
	opts.BypassCache = refresh
	items := server.deps.Aggregator.FetchAllWithOptions(r.Context(), server.deps.Aggregator.Sources(), opts)
	if useCache || refresh {
		server.cache.Set(articlesCacheKey, items, cache.DefaultExpiration)
	}

	writeJSON(w, http.StatusOK, articlesResponse{
		Success:   true,
		Data:      items,
		Count:     len(items),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (server *Server) getStoredArticles(w http.ResponseWriter, r *http.Request) {
	if server.deps.Articles == nil {
		writeError(w, http.StatusServiceUnavailable, messagePersistenceDisabled, nil)
		return
	}

	query, err := parseArticleQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}

	items, err := server.deps.Articles.Find(r.Context(), query)
	if errors.Is(err, articles.ErrInvalidOrderBy) {
		writeError(w, http.StatusBadRequest, "invalid query parameter", err)
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to query stored articles")
		writeError(w, http.StatusInternalServerError, "failed to query articles", err)
		return
	}

	query, _, _ = query.Normalize()
	if items == nil {
		items = []entities.Article{}
	}
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"data":    items,
		"count":   len(items),
		"pagination": envelope{
			"limit":  query.Limit,
			"offset": query.Offset,
		},
	})
}

func (server *Server) getStoredStats(w http.ResponseWriter, r *http.Request) {
	if server.deps.Articles == nil {
		writeError(w, http.StatusServiceUnavailable, messagePersistenceDisabled, nil)
		return
	}

	stats, err := server.deps.Articles.Stats(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Failed to compute stats")
		writeError(w, http.StatusInternalServerError, "failed to compute stats", err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{"success": true, "data": stats})
}

func (server *Server) push(w http.ResponseWriter, r *http.Request) {
	result, err := server.deps.Pusher.PushLatest(r.Context(), pusher.DefaultManualTop)
	if err != nil {
		writeError(w, http.StatusInternalServerError, pusher.MessagePushFailed, err)
		return
	}

	body := envelope{"success": result.Success, "message": result.Message}
	if result.Count > 0 {
		body["count"] = result.Count
		body["data"] = result.Articles
	}
	writeJSON(w, http.StatusOK, body)
}

func (server *Server) trigger(w http.ResponseWriter, r *http.Request) {
	err := server.deps.Scheduler.TriggerNow(r.Context())
	if errors.Is(err, pusher.ErrTickInProgress) {
		writeError(w, http.StatusConflict, "a push is already running", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, pusher.MessagePushFailed, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":     true,
		"message":     "tick completed",
		"pushedCount": server.deps.Pusher.PushedCount(),
	})
}

func (server *Server) getSourcesHealth(w http.ResponseWriter, r *http.Request) {
	sources := server.deps.Feeds.CheckHealth(r.Context(), server.deps.Aggregator.Sources())

	response := healthResponse{
		Success:   true,
		Status:    monitor.StatusHealthy,
		Sources:   sources,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	for _, source := range sources {
		if source.Status == monitor.StatusHealthy {
			response.Healthy++
		} else {
			response.Unhealthy++
		}
	}
	if response.Unhealthy > 0 {
		response.Status = "degraded"
	}
	if len(sources) > 0 && response.Healthy == 0 {
		response.Status = monitor.StatusUnhealthy
	}

	writeJSON(w, http.StatusOK, response)
}

func (server *Server) getCacheReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"data":    server.deps.Monitor.Report(),
		"responseCache": envelope{
			"entries": server.cache.ItemCount(),
			"ttl":     server.deps.CacheTTL.String(),
		},
	})
}

func (server *Server) clearCache(w http.ResponseWriter, r *http.Request) {
	server.cache.Flush()
	server.deps.Feeds.ClearCache()
	server.deps.Monitor.Reset()

	hlog.FromRequest(r).Info().Msg("Caches cleared")
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "cache cleared"})
}

func (server *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	problems := server.deps.ConfigProblems
	if problems == nil {
		problems = []string{}
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"service": envelope{
			"name":      constants.ExternalName,
			"version":   constants.Version,
			"startedAt": server.deps.Started.Format(time.RFC3339),
			"uptime":    strings.TrimSuffix(humanize.Time(server.deps.Started), " ago"),
		},
		"scheduler":      server.deps.Scheduler.Status(),
		"sources":        len(server.deps.Aggregator.Sources()),
		"persistence":    server.deps.Articles != nil,
		"configProblems": problems,
	})
}

func (server *Server) getLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func parseArticleQuery(r *http.Request) (articles.Query, error) {
	params := r.URL.Query()
	query := articles.Query{
		OrderBy:   params.Get("orderBy"),
		Ascending: strings.EqualFold(params.Get("order"), "asc"),
		Source:    params.Get("source"),
	}

	var err error
	if raw := params.Get("limit"); raw != "" {
		if query.Limit, err = strconv.Atoi(raw); err != nil {
			return query, errors.New("limit must be an integer")
		}
	}
	if raw := params.Get("offset"); raw != "" {
		if query.Offset, err = strconv.Atoi(raw); err != nil {
			return query, errors.New("offset must be an integer")
		}
	}
	if raw := params.Get("startDate"); raw != "" {
		if query.StartDate, err = dates.ParseDateParam(raw, false); err != nil {
			return query, errors.New("startDate must be a date or an RFC3339 timestamp")
		}
	}
	if raw := params.Get("endDate"); raw != "" {
		if query.EndDate, err = dates.ParseDateParam(raw, true); err != nil {
			return query, errors.New("endDate must be a date or an RFC3339 timestamp")
		}
	}

	return query, nil
}
