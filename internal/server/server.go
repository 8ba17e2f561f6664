// Package server publishes the event catalog as an iCalendar feed over HTTP
// while the process runs on a schedule.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-daily-events/internal/apperr"
	"github.com/tartampluch/go-daily-events/internal/config"
)

// snapshot is one published version of the feed.
type snapshot struct {
	data         []byte
	etag         string
	modified     time.Time
	lastModified string // RFC1123, as required by HTTP headers
}

// FeedServer serves the most recently published calendar.
// Reads are lock-free; Publish swaps the whole snapshot.
type FeedServer struct {
	Addr string

	current atomic.Pointer[snapshot]
	bound   atomic.Pointer[string]
}

// NewFeedServer creates a server that will listen on addr (host:port).
func NewFeedServer(addr string) *FeedServer {
	return &FeedServer{Addr: addr}
}

// Start listens on Addr and serves until ctx is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return apperr.WrapRuntime(err, "%s", config.ErrServerStartup)
	}
	addr := ln.Addr().String()
	s.bound.Store(&addr)

	mux := http.NewServeMux()
	mux.Handle(config.RouteRoot, s)

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  config.FeedReadTimeout,
		WriteTimeout: config.FeedWriteTimeout,
		IdleTimeout:  config.FeedIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyAddr, addr,
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return apperr.WrapRuntime(err, "%s", config.ErrServerShutdown)
		}
		return nil

	case err := <-serveErr:
		return apperr.WrapRuntime(err, "%s", config.ErrServerStartup)
	}
}

// BoundAddr returns the address actually listened on, or "" before Start.
func (s *FeedServer) BoundAddr() string {
	if p := s.bound.Load(); p != nil {
		return *p
	}
	return ""
}

// Publish replaces the served calendar. modified becomes Last-Modified.
func (s *FeedServer) Publish(data []byte, modified time.Time) {
	hash := sha256.Sum256(data)
	etag := fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:]))

	// HTTP dates have second precision.
	modified = modified.UTC().Truncate(time.Second)

	s.current.Store(&snapshot{
		data:         data,
		etag:         etag,
		modified:     modified,
		lastModified: modified.Format(http.TimeFormat),
	})

	slog.Debug(config.MsgFeedUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
		config.LogKeyETag, etag,
	)
}

// ServeHTTP serves the calendar with conditional GET support.
func (s *FeedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := s.current.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.FeedRetryAfterSecs)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)
	h.Set(config.HeaderLastModified, snap.lastModified)

	if notModified(r, snap) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(snap.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}

// notModified applies If-None-Match first; If-Modified-Since is only
// consulted when the client sent no entity tags.
func notModified(r *http.Request, snap *snapshot) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		for _, tag := range strings.Split(match, ",") {
			tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
			if tag == snap.etag || tag == config.ETagWildcard {
				return true
			}
		}
		return false
	}

	since := r.Header.Get(config.HeaderIfModifiedSince)
	if since == "" {
		return false
	}
	clientTime, err := http.ParseTime(since)
	if err != nil {
		return false
	}
	return !snap.modified.After(clientTime)
}
