// Package web exposes the HTTP surface of the server: JSON handlers over
// the service layer, the password-gate middleware, and the static client
// asset route.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/livepaste/livepaste/internal/logging"
	"github.com/livepaste/livepaste/internal/server/config"
	"github.com/livepaste/livepaste/internal/server/services"
)

type Server struct {
	cfg        *config.Config
	logger     logging.Logger
	rooms      roomSvc
	files      fileSvc
	sync       syncSvc
	ops        opSvc
	changesets changesetSvc
	secret     []byte
}

func NewServer(cfg *config.Config, l logging.Logger,
	rooms *services.RoomService, files *services.FileService, sync *services.SyncService,
	ops *services.OpService, changesets *services.ChangesetService) *Server {
	return &Server{
		cfg:        cfg,
		logger:     l.With("module", "web_server"),
		rooms:      rooms,
		files:      files,
		sync:       sync,
		ops:        ops,
		changesets: changesets,
		secret:     []byte(cfg.SecretKey),
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.EndpointAddr,
		Handler:           s.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "starting HTTP server", "address", s.cfg.EndpointAddr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) newRouter() http.Handler {
	mux := http.NewServeMux()

	// entry points
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /room/{id}", s.handleRoomAsset)

	// public room endpoints
	mux.HandleFunc("GET /api/room/{id}/info", s.withRoomID(s.handleInfo))
	mux.HandleFunc("POST /api/room/{id}/password", s.withRoomID(s.handleSetPassword))
	mux.HandleFunc("POST /api/room/{id}/verify-password", s.withRoomID(s.handleVerifyPassword))

	// protected room endpoints
	mux.HandleFunc("GET /api/room/{id}", s.protected(s.handleState))
	mux.HandleFunc("GET /api/room/{id}/version", s.protected(s.handleVersion))
	mux.HandleFunc("DELETE /api/room/{id}", s.protected(s.handleKillRoom))

	mux.HandleFunc("POST /api/room/{id}/files", s.protected(s.handleUpsertFile))
	mux.HandleFunc("DELETE /api/room/{id}/files/{fileId}", s.protected(s.handleDeleteFile))
	mux.HandleFunc("POST /api/room/{id}/files/{pathHash}/snapshot", s.protected(s.handleSnapshot))

	mux.HandleFunc("POST /api/room/{id}/sync", s.protected(s.handleSyncAll))
	mux.HandleFunc("POST /api/room/{id}/sync/begin", s.protected(s.handleSyncBegin))
	mux.HandleFunc("POST /api/room/{id}/sync/chunk", s.protected(s.handleSyncChunk))
	mux.HandleFunc("POST /api/room/{id}/sync/complete", s.protected(s.handleSyncComplete))

	mux.HandleFunc("POST /api/room/{id}/ops", s.protected(s.handleSubmitOp))
	mux.HandleFunc("GET /api/room/{id}/ops", s.protected(s.handleFetchOps))

	mux.HandleFunc("POST /api/room/{id}/changesets", s.protected(s.handleCreateChangeset))
	mux.HandleFunc("POST /api/room/{id}/changesets/{cid}/accept", s.protected(s.handleAcceptChangeset))
	mux.HandleFunc("POST /api/room/{id}/changesets/{cid}/reject", s.protected(s.handleRejectChangeset))
	mux.HandleFunc("POST /api/room/{id}/changes/{chid}/accept", s.protected(s.handleAcceptChange))
	mux.HandleFunc("POST /api/room/{id}/changes/{chid}/reject", s.protected(s.handleRejectChange))

	return s.logRequests(mux)
}
