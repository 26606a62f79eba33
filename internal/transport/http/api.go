package httptransport

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"captionkit-server-go/internal/domain/eventbus"
	"captionkit-server-go/internal/domain/session"
	"captionkit-server-go/internal/platform/config"
	"captionkit-server-go/internal/platform/logging"
)

// Service exposes the read-only API over the session registry.
type Service struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *session.Registry
	stats    *stats
	started  time.Time
}

// stats accumulates lifecycle counters from the event bus.
type stats struct {
	sessionsStarted atomic.Uint64
	sessionsClosed  atomic.Uint64
	reattachments   atomic.Uint64
	graceEntries    atomic.Uint64
	captionsFinal   atomic.Uint64
	providerErrors  atomic.Uint64
}

// NewService builds the API service and subscribes its counters to the
// event bus.
func NewService(cfg *config.Config, registry *session.Registry, logger *logging.Logger) (*Service, error) {
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		stats:    &stats{},
		started:  time.Now(),
	}

	subscriptions := []struct {
		topic   string
		handler interface{}
	}{
		{eventbus.EventSessionStarted, func(eventbus.SessionEventData) { s.stats.sessionsStarted.Add(1) }},
		{eventbus.EventSessionClosed, func(eventbus.SessionEventData) { s.stats.sessionsClosed.Add(1) }},
		{eventbus.EventSessionAttached, func(eventbus.SessionEventData) { s.stats.reattachments.Add(1) }},
		{eventbus.EventSessionGrace, func(eventbus.SessionEventData) { s.stats.graceEntries.Add(1) }},
		{eventbus.EventCaptionFinal, func(eventbus.CaptionEventData) { s.stats.captionsFinal.Add(1) }},
		{eventbus.EventProviderError, func(eventbus.ProviderEventData) { s.stats.providerErrors.Add(1) }},
	}
	for _, sub := range subscriptions {
		if err := eventbus.SubscribeAsync(sub.topic, sub.handler); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Register wires the API routes.
func (s *Service) Register(api *gin.RouterGroup) {
	api.GET("/health", s.handleHealth)
	api.GET("/sessions", s.handleSessions)
	api.GET("/system", s.handleSystem)
}

func (s *Service) handleHealth(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{
		"uptime": time.Since(s.started).Truncate(time.Second).String(),
	}, "")
}

type sessionInfo struct {
	SessionID string   `json:"session_id"`
	AccountID string   `json:"account_id"`
	Language  string   `json:"language"`
	Targets   []string `json:"targets"`
	Provider  string   `json:"provider"`
	State     string   `json:"state"`
	HasClient bool     `json:"has_client"`
}

func (s *Service) handleSessions(c *gin.Context) {
	live := s.registry.Snapshot()

	infos := make([]sessionInfo, 0, len(live))
	for _, sess := range live {
		opts := sess.Options()
		infos = append(infos, sessionInfo{
			SessionID: sess.ID,
			AccountID: sess.AccountID,
			Language:  opts.Language,
			Targets:   opts.Targets,
			Provider:  sess.Provider(),
			State:     sess.State().String(),
			HasClient: sess.HasClient(),
		})
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"count":    len(infos),
		"sessions": infos,
		"totals": gin.H{
			"started":         s.stats.sessionsStarted.Load(),
			"closed":          s.stats.sessionsClosed.Load(),
			"reattachments":   s.stats.reattachments.Load(),
			"grace_entries":   s.stats.graceEntries.Load(),
			"captions_final":  s.stats.captionsFinal.Load(),
			"provider_errors": s.stats.providerErrors.Load(),
		},
	}, "")
}

func (s *Service) handleSystem(c *gin.Context) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "memory stats unavailable")
		return
	}

	usage := gin.H{
		"memory_used_percent": vm.UsedPercent,
		"memory_total_mb":     vm.Total / 1024 / 1024,
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		usage["cpu_percent"] = percents[0]
	}

	respondSuccess(c, http.StatusOK, gin.H{
		"system":   usage,
		"sessions": s.registry.Len(),
		"uptime":   time.Since(s.started).Truncate(time.Second).String(),
	}, "")
}
