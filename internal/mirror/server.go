package mirror

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/danmuck/pydevctl/internal/devfiles"
	"github.com/danmuck/pydevctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// BasePath mirrors python.org's download prefix.
const BasePath = "/ftp/python"

var ErrInvalidRoot = errors.New("mirror: cache root must be an existing directory")

type Config struct {
	ID          string
	Addr        string
	Root        string
	CorsOrigins []string
	// ListDirectories enables directory indexes under BasePath.
	ListDirectories bool
}

type Server struct {
	ID      string
	Addr    string
	Root    string
	Started time.Time

	router *gin.Engine
}

func New(cfg Config) (*Server, error) {
	root := strings.TrimSpace(cfg.Root)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ErrInvalidRoot
	}
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = "pydev-mirror"
	}

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.AccessLog(log.Logger, id))
	r.Use(cors.New(corsConfig(cfg.CorsOrigins)))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		ID:      id,
		Addr:    cfg.Addr,
		Root:    root,
		Started: time.Now(),
		router:  r,
	}
	s.registerRoutes(cfg.ListDirectories)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on Addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	log.Info().Str("id", s.ID).Str("addr", ln.Addr().String()).Str("root", s.Root).Msg("mirror serving")

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Str("id", s.ID).Msg("mirror stopped")
	return nil
}

func (s *Server) registerRoutes(listDirectories bool) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(observability.Registry, promhttp.HandlerOpts{})))

	s.router.GET("/versions", func(c *gin.Context) {
		versions, err := ListVersions(s.Root)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"versions": versions})
	})

	s.router.StaticFS(BasePath, gin.Dir(s.Root, listDirectories))
}

// CachedVersion summarizes one release directory in the cache. Arches holds
// the arch directory names as python.org spells them, so pre-releases show
// up as e.g. "amd64rc2".
type CachedVersion struct {
	Version string   `json:"version"`
	Arches  []string `json:"arches,omitempty"`
	Embed   []string `json:"embed,omitempty"`
}

// ListVersions scans root for <release>/<arch><level>/ dirs and embeddable
// zips.
func ListVersions(root string) ([]CachedVersion, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	out := []CachedVersion{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		// python.org only has directories for final release numbers.
		v, err := devfiles.ParseVersion(entry.Name())
		if err != nil || v.Prerelease() {
			continue
		}
		cv := CachedVersion{Version: entry.Name()}
		children, err := os.ReadDir(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if child.IsDir() {
				if _, _, err := devfiles.ParseFTPDir(child.Name()); err == nil {
					cv.Arches = append(cv.Arches, child.Name())
				}
				continue
			}
			if strings.HasPrefix(child.Name(), "python-") && strings.HasSuffix(child.Name(), ".zip") {
				cv.Embed = append(cv.Embed, child.Name())
			}
		}
		out = append(out, cv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "HEAD"},
		AllowHeaders: []string{"Origin", "Range"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	}
	return cfg
}
