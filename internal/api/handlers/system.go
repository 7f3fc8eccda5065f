package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/vsconsole/internal/routes"
	"github.com/your-org/vsconsole/internal/storage"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type SystemHandler struct {
	checks map[string]Pinger
	routes *routes.Table
	audit  Auditor
}

func NewSystemHandler(checks map[string]Pinger, table *routes.Table, audit Auditor) *SystemHandler {
	return &SystemHandler{checks: checks, routes: table, audit: audit}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every configured dependency in parallel.
func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		checks = make(map[string]string, len(h.checks))
	)
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var g errgroup.Group
	for _, name := range names {
		p := h.checks[name]
		g.Go(func() error {
			err := p.Ping(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[name] = err.Error()
				return err
			}
			checks[name] = "ok"
			return nil
		})
	}
	healthy := g.Wait() == nil

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}

// ResolveRoute maps a URL fragment to a console view.
func (h *SystemHandler) ResolveRoute(c *gin.Context) {
	c.JSON(http.StatusOK, h.routes.Resolve(c.Query("fragment")))
}

func (h *SystemHandler) Audit(c *gin.Context) {
	limit, ok := queryInt(c, "limit", storage.DefaultAuditLimit)
	if !ok {
		return
	}
	if h.audit == nil {
		c.JSON(http.StatusOK, gin.H{"entries": []any{}, "total": 0})
		return
	}
	entries, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}
