package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/zalepa/crashmap/config"
	"github.com/zalepa/crashmap/crash"
	"github.com/zalepa/crashmap/logger"
	"github.com/zalepa/crashmap/stats"
)

var (
	serveFlags settingsFlags
	servePort  int
)

// serveCmd starts the JSON API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve statistics over an HTTP JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := serveFlags.settings(cmd)
		if err != nil {
			return err
		}
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		if servePort == 0 {
			servePort = cfg.Port
		}
		if cfg.Env != config.EnvLocal {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		api := newAPIServer(ds, log, cfg.CycleInterval)
		if _, err := api.store.Recompute(s); err != nil {
			return err
		}
		go api.cycler.Run(ctx)

		server := &http.Server{
			Addr:              ":" + strconv.Itoa(servePort),
			Handler:           api.router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errc <- err
			}
		}()
		log.WithField("addr", server.Addr).Info("server listening")

		select {
		case err := <-errc:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown error")
		}
		log.Info("server exited")
		return nil
	},
}

// apiServer owns the snapshot store and the group cycle behind the API.
type apiServer struct {
	store   *stats.Store
	cycler  *stats.Cycler
	metrics *serverMetrics
	log     *logger.Logger
}

func newAPIServer(ds *crash.Dataset, log *logger.Logger, cycleInterval time.Duration) *apiServer {
	store := stats.NewStore(ds, log.Component("stats"))
	m := newServerMetrics()
	store.Observe(m.observeRecompute)
	return &apiServer{
		store:   store,
		cycler:  stats.NewCycler(store, cycleInterval),
		metrics: m,
		log:     log,
	}
}

func (a *apiServer) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLog(), a.metrics.middleware())

	r.GET("/healthz", a.health)
	r.GET("/metrics", gin.WrapH(a.metrics.handler))

	api := r.Group("/api")
	api.GET("/metadata", a.metadata)
	api.GET("/stats", a.stats)
	api.GET("/settings", a.getSettings)
	api.PUT("/settings", a.putSettings)
	api.PATCH("/settings", a.patchSettings)
	api.GET("/areas/:name", a.area)
	api.GET("/histogram", a.histogram)
	api.GET("/cycle", a.cycle)
	api.POST("/cycle/step", a.cycleStep)
	api.POST("/cycle/toggle", a.cycleToggle)
	return r
}

// requestLog tags each request with an id and logs it once it completes.
func (a *apiServer) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := logger.RequestID(c.Request)
		c.Writer.Header().Set(logger.RequestIDHeader, reqID)
		start := time.Now()
		c.Next()
		entry := a.log.WithRequest(c.Request, reqID).WithField("status", c.Writer.Status()).
			WithField("elapsed", time.Since(start))
		if len(c.Errors) > 0 {
			entry.WithField("error", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Debug("request")
	}
}

// --- responses ---

type envelope struct {
	Data  any            `json:"data,omitempty"`
	Error *apiError      `json:"error,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, data any, meta map[string]any) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, envelope{Data: data, Meta: meta})
}

func fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	_ = c.Error(err)
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(status, envelope{Error: &apiError{Code: code, Message: err.Error()}})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, stats.ErrUnknownArea):
		return http.StatusNotFound, "unknown_area"
	case errors.Is(err, stats.ErrFilterOnGroup), errors.Is(err, stats.ErrGroupOnFilter):
		return http.StatusConflict, "filter_group_conflict"
	case errors.Is(err, stats.ErrNotGroupable),
		errors.Is(err, stats.ErrThresholdRange),
		errors.Is(err, stats.ErrUnknownMode),
		errors.Is(err, stats.ErrBadBins),
		errors.Is(err, crash.ErrUnknownMetric),
		errors.Is(err, crash.ErrUnknownSplit),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, errNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	}
	return http.StatusInternalServerError, "internal"
}

var (
	errBadRequest = errors.New("bad request")
	errNotReady   = errors.New("no statistics computed yet")
)

func (a *apiServer) latest(c *gin.Context) (*stats.Result, bool) {
	res := a.store.Latest()
	if res == nil {
		fail(c, errNotReady)
		return nil, false
	}
	return res, true
}

// view reads the metric and mode query parameters, defaulting to the
// snapshot's settings.
func view(c *gin.Context, res *stats.Result) (crash.Metric, stats.Mode, error) {
	m, mode := res.Settings.Metric, res.Settings.Mode
	if q := c.Query("metric"); q != "" {
		var err error
		if m, err = crash.ParseMetric(q); err != nil {
			return m, mode, err
		}
	}
	if q := c.Query("mode"); q != "" {
		var err error
		if mode, err = stats.ParseMode(q); err != nil {
			return m, mode, err
		}
	}
	return m, mode, nil
}

// --- handlers ---

func (a *apiServer) health(c *gin.Context) {
	var version uint64
	if res := a.store.Latest(); res != nil {
		version = res.Version
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
}

type metricInfo struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Proportion bool   `json:"proportion"`
}

type splitInfo struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	Groupable bool     `json:"groupable"`
	Values    []string `json:"values"`
}

func (a *apiServer) metadata(c *gin.Context) {
	ds := a.store.Dataset()
	var metrics []metricInfo
	for _, m := range crash.Metrics() {
		metrics = append(metrics, metricInfo{Key: m.Key(), Label: m.Label(), Proportion: m.Proportion()})
	}
	var splits []splitInfo
	for _, s := range crash.Splits() {
		splits = append(splits, splitInfo{Key: s.Key(), Label: s.Label(), Groupable: s.Groupable(), Values: ds.Values().Of(s)})
	}
	respond(c, gin.H{
		"metrics":      metrics,
		"splits":       splits,
		"areas":        ds.Areas(),
		"records":      ds.Len(),
		"maxThreshold": stats.MaxThreshold,
	}, nil)
}

type areaValue struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Crashes   float64 `json:"crashes"`
	Qualifies bool    `json:"qualifies"`
}

// stats returns one value per area for the requested metric, mode and group
// value, along with the color domain. A missing domain is reported as
// noData rather than as a zero range.
func (a *apiServer) stats(c *gin.Context) {
	res, ok := a.latest(c)
	if !ok {
		return
	}
	m, mode, err := view(c, res)
	if err != nil {
		fail(c, err)
		return
	}
	value := c.Query("value")
	if value != "" && !res.Grouped() {
		fail(c, fmt.Errorf("%w: value needs an active grouping", errBadRequest))
		return
	}

	areas := make([]areaValue, 0, len(res.AreaNames()))
	for _, name := range res.AreaNames() {
		v, _ := res.Value(name, m, mode, value)
		crashes, _ := res.Stat(name, crash.Crashes)
		areas = append(areas, areaValue{Name: name, Value: v, Crashes: crashes.Total, Qualifies: res.Qualifies(name, value)})
	}

	data := gin.H{
		"version":     res.Version,
		"settings":    config.PresetOf(res.Settings),
		"selected":    res.Selected,
		"metric":      m,
		"mode":        mode,
		"groupValues": res.GroupValues,
		"unmatched":   res.Unmatched,
		"areas":       areas,
	}
	meta := map[string]any{"noData": false}
	if rg, ok := res.Range(m, mode, value); ok {
		data["domain"] = rg
	} else {
		meta["noData"] = true
		meta["message"] = fmt.Sprintf("no area reaches the minimum of %d crashes", res.Settings.Threshold)
	}
	if c.Query("full") == "true" {
		data["table"] = res.Areas
		data["ranges"] = res.Ranges.Entries()
	}
	respond(c, data, meta)
}

func (a *apiServer) getSettings(c *gin.Context) {
	res, ok := a.latest(c)
	if !ok {
		return
	}
	respond(c, config.PresetOf(res.Settings), map[string]any{"version": res.Version})
}

// putSettings replaces every setting at once.
func (a *apiServer) putSettings(c *gin.Context) {
	var p config.Preset
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	next, err := p.Settings()
	if err != nil {
		fail(c, err)
		return
	}
	res, err := a.store.Recompute(next)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, config.PresetOf(res.Settings), map[string]any{"version": res.Version})
}

// settingsPatch changes some settings. A null field leaves the setting
// alone; an empty group clears the grouping and an empty filter value list
// clears that filter.
type settingsPatch struct {
	Metric    *string      `json:"metric"`
	Mode      *string      `json:"mode"`
	Group     *string      `json:"group"`
	Threshold *int         `json:"threshold"`
	Filter    *filterPatch `json:"filter"`
}

type filterPatch struct {
	Split  string   `json:"split"`
	Values []string `json:"values"`
}

func (p settingsPatch) apply(s stats.Settings) (stats.Settings, error) {
	if p.Metric != nil {
		m, err := crash.ParseMetric(*p.Metric)
		if err != nil {
			return s, err
		}
		s = s.WithMetric(m)
	}
	if p.Mode != nil {
		mode, err := stats.ParseMode(*p.Mode)
		if err != nil {
			return s, err
		}
		s = s.WithMode(mode)
	}
	if p.Group != nil && *p.Group == "" {
		s = s.WithoutGroup()
	}
	if p.Filter != nil {
		sp, err := crash.ParseSplit(p.Filter.Split)
		if err != nil {
			return s, err
		}
		if s, err = s.WithFilter(sp, p.Filter.Values); err != nil {
			return s, err
		}
	}
	if p.Group != nil && *p.Group != "" {
		sp, err := crash.ParseSplit(*p.Group)
		if err != nil {
			return s, err
		}
		if s, err = s.WithGroup(sp); err != nil {
			return s, err
		}
	}
	if p.Threshold != nil {
		return s.WithThreshold(*p.Threshold)
	}
	return s, nil
}

func (a *apiServer) patchSettings(c *gin.Context) {
	var p settingsPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := a.store.Update(p.apply)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, config.PresetOf(res.Settings), map[string]any{"version": res.Version})
}

func (a *apiServer) area(c *gin.Context) {
	res, ok := a.latest(c)
	if !ok {
		return
	}
	m, mode, err := view(c, res)
	if err != nil {
		fail(c, err)
		return
	}
	sum, err := stats.Summarize(res, c.Param("name"), m, mode)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, gin.H{"summary": sum, "lines": sum.Lines()}, map[string]any{"version": res.Version})
}

func (a *apiServer) histogram(c *gin.Context) {
	res, ok := a.latest(c)
	if !ok {
		return
	}
	m, mode, err := view(c, res)
	if err != nil {
		fail(c, err)
		return
	}
	bins := 10
	if q := c.Query("bins"); q != "" {
		if bins, err = strconv.Atoi(q); err != nil {
			fail(c, fmt.Errorf("%w: bins must be a number", errBadRequest))
			return
		}
	}
	if err := stats.CheckBins(bins); err != nil {
		fail(c, err)
		return
	}
	h, err := stats.Histogram(res, m, mode, bins)
	if errors.Is(err, stats.ErrNoData) {
		respond(c, nil, map[string]any{"noData": true, "message": err.Error(), "version": res.Version})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, h, map[string]any{"noData": false, "version": res.Version})
}

func (a *apiServer) cycle(c *gin.Context) {
	respond(c, a.cycler.Current(), nil)
}

func (a *apiServer) cycleStep(c *gin.Context) {
	delta := 1
	if q := c.Query("delta"); q != "" {
		var err error
		if delta, err = strconv.Atoi(q); err != nil {
			fail(c, fmt.Errorf("%w: delta must be a number", errBadRequest))
			return
		}
	}
	respond(c, a.cycler.Step(delta), nil)
}

func (a *apiServer) cycleToggle(c *gin.Context) {
	respond(c, a.cycler.TogglePause(), nil)
}

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (default PORT)")
	rootCmd.AddCommand(serveCmd)
}
