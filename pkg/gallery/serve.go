package gallery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"
)

// Server serves rendered galleries beneath a root directory.
type Server struct {
	root string
	ln   net.Listener
	srv  *http.Server
}

// NewServer binds addr and prepares to serve root.
func NewServer(root string, addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{root: root, ln: ln}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler serves static gallery files.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(s.root)))
	return mux
}

// URL returns the address of the gallery rendered into outDir.
func (s *Server) URL(outDir string) (string, error) {
	rel, err := filepath.Rel(s.root, outDir)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return fmt.Sprintf("http://%s/", s.ln.Addr()), nil
	}
	return fmt.Sprintf("http://%s/%s/", s.ln.Addr(), filepath.ToSlash(rel)), nil
}

// Serve blocks until ctx is canceled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(sctx); err != nil {
			klog.Warningf("shutdown: %v", err)
		}
	}()

	klog.Infof("Listening on %s...", s.ln.Addr())
	err := s.srv.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
