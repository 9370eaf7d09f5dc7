package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"net/http"
	"os"
	"strconv"

	log "github.com/fclairamb/go-log"
	"github.com/gorilla/handlers"
	"golang.org/x/net/netutil"

	"github.com/OffBroadway/sdflash/pkg/flash"
)

type infoResponse struct {
	Capacity  int        `json:"capacity"`
	BlockSize int        `json:"block_size"`
	Alignment int        `json:"alignment"`
	ReadSize  int        `json:"read_size"`
	WriteSize int        `json:"write_size"`
	EraseSize int        `json:"erase_size"`
	Cache     cacheStats `json:"cache"`
}

type cacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Loaded bool   `json:"loaded"`
	Block  uint32 `json:"block"`
}

type flashServer struct {
	dev    *flash.Locked
	logger log.Logger
}

func newHandler(dev *flash.Locked, logger log.Logger) http.Handler {
	s := &flashServer{dev: dev, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /info", s.info)
	mux.HandleFunc("GET /flash", s.read)
	mux.HandleFunc("PUT /flash", s.write)
	mux.HandleFunc("DELETE /flash", s.erase)
	return mux
}

// Serve exposes dev over HTTP on listener until ctx is done.
func Serve(ctx context.Context, listener net.Listener, dev *flash.Locked, maxConns int, logger log.Logger) error {
	h := newHandler(dev, logger)
	server := &http.Server{
		Handler:  handlers.LoggingHandler(os.Stdout, handlers.RecoveryHandler()(h)),
		ErrorLog: stdlog.New(os.Stdout, "http: ", stdlog.LstdFlags),
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			server.Close()
		case <-done:
		}
	}()

	err := server.Serve(netutil.LimitListener(listener, maxConns))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *flashServer) info(w http.ResponseWriter, r *http.Request) {
	st, err := s.dev.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	geo := s.dev.Geometry()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(infoResponse{
		Capacity:  geo.Capacity,
		BlockSize: geo.BlockSize,
		Alignment: geo.Alignment,
		ReadSize:  flash.ReadSize,
		WriteSize: flash.WriteSize,
		EraseSize: geo.BlockSize,
		Cache: cacheStats{
			Hits:   st.Hits,
			Misses: st.Misses,
			Loaded: st.Loaded,
			Block:  st.Block,
		},
	})
}

func (s *flashServer) read(w http.ResponseWriter, r *http.Request) {
	offset, err := queryUint32(r, "offset")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	length, err := queryUint32(r, "len")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int(length) > s.dev.Geometry().BlockSize {
		http.Error(w, flash.ErrSpansBlocks.Error(), http.StatusBadRequest)
		return
	}

	out := make([]byte, length)
	if err := s.dev.Read(r.Context(), offset, out); err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(out)
}

func (s *flashServer) write(w http.ResponseWriter, r *http.Request) {
	offset, err := queryUint32(r, "offset")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit := int64(s.dev.Geometry().BlockSize)
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > limit {
		http.Error(w, flash.ErrSpansBlocks.Error(), http.StatusBadRequest)
		return
	}

	if err := s.dev.Write(r.Context(), offset, data); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *flashServer) erase(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint32(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := queryUint32(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.dev.Erase(r.Context(), from, to); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *flashServer) fail(w http.ResponseWriter, err error) {
	var fe *flash.Error
	if !errors.As(err, &fe) {
		// context cancelled while waiting for the device
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	switch fe.Kind {
	case flash.KindNotAligned:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case flash.KindOutOfBounds:
		http.Error(w, err.Error(), http.StatusRequestedRangeNotSatisfiable)
	default:
		s.logger.Error("Flash operation failed", "op", fe.Op, "offset", fe.Offset, "err", fe.Err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryUint32(r *http.Request, name string) (uint32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %q parameter", name)
	}
	return parseUint32(raw)
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return uint32(v), nil
}
