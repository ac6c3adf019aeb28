// Command cullbench drives the spatial engine through a synthetic scene and
// reports per-frame cull and draw statistics.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gogpu/spatial"
	"github.com/gogpu/spatial/gpu"
)

func main() {
	var (
		scenePath   = flag.String("scene", "", "YAML scene file (defaults to a built-in scene)")
		frames      = flag.Int("frames", 0, "number of frames, overrides the scene")
		occlusion   = flag.Float64("occlusion", 0, "treat groups under this pixel area as occluded on the next frame")
		metricsAddr = flag.String("metrics", "", "serve Prometheus metrics on this address")
		logLevel    = flag.String("log-level", "info", "log level (debug|info|warn|error)")
		logEvery    = flag.Int("log-every", 10, "log stats every N frames")
	)
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	spatial.SetLogger(logger)

	cfg, err := loadScene(*scenePath)
	if err != nil {
		logger.Error("loading scene failed", "err", err)
		os.Exit(1)
	}
	if *frames > 0 {
		cfg.Frames = *frames
	}

	reg := prometheus.NewRegistry()
	opts := []spatial.SessionOption{spatial.WithMetrics(spatial.NewMetrics(reg))}
	queries := spatial.OcclusionMap{}
	if *occlusion > 0 {
		opts = append(opts, spatial.WithOcclusion(queries))
	}
	if *metricsAddr != "" {
		go serveMetrics(logger, *metricsAddr, reg)
	}

	sc, err := buildScene(cfg, opts...)
	if err != nil {
		logger.Error("building scene failed", "err", err)
		os.Exit(1)
	}
	st := sc.session.Stats()
	logger.Info("scene ready", "partitions", st.Partitions, "drawables", st.Drawables, "nodes", st.Nodes)

	if err := run(logger, sc, queries, float32(*occlusion), *logEvery); err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func serveMetrics(logger *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", "err", err)
	}
}

// run executes the frame loop. Visible groups smaller than occludedArea
// pixels are reported occluded on the next frame, standing in for GPU
// occlusion queries.
func run(logger *slog.Logger, sc *scene, queries spatial.OcclusionMap, occludedArea float32, logEvery int) error {
	s := sc.session
	result := spatial.NewCullResult()
	binder := &countingBinder{}
	renderer := spatial.NewRenderer(s, binder)

	var total spatial.RenderStats
	start := time.Now()
	for frame := 0; frame < sc.cfg.Frames; frame++ {
		cam := sc.camera(frame)
		moved := sc.jitter()

		s.BeginFrame(result)
		s.Update()
		nodes := s.Cull(cam, result, true)
		built := s.ProcessBuildQueue()
		s.PostSort(result)

		s.BeginRender()
		stats := renderer.Render(result)
		s.EndRender()
		total.Add(stats)

		clear(queries)
		for _, g := range result.VisibleGroups() {
			if g.PixelArea() < occludedArea {
				queries[g.Handle()] = true
			}
		}
		if err := result.AssertDrawMapsEmpty(); err != nil {
			return fmt.Errorf("frame %d: %w", frame, err)
		}

		if logEvery > 0 && frame%logEvery == 0 {
			q1, q2 := s.BuildQueueLen()
			logger.Info("frame",
				"frame", s.Frame(),
				"nodes", nodes,
				"visible", len(result.VisibleGroups()),
				"bridges", len(result.VisibleBridges()),
				"occluded", len(result.OcclusionGroups()),
				"moved", moved,
				"built", built,
				"queued", q1+q2,
				"draws", stats.Draws,
				"glow", stats.GlowDraws,
				"skipped", stats.Skipped,
			)
		}
	}
	elapsed := time.Since(start)
	logger.Info("done",
		"frames", sc.cfg.Frames,
		"elapsed", elapsed,
		"per_frame", elapsed/time.Duration(sc.cfg.Frames),
		"draws", total.Draws,
		"draw_calls", binder.draws,
		"texture_binds", binder.textures,
		"blend_changes", binder.blends,
		"vertices", binder.vertices,
	)
	return nil
}

// countingBinder counts the state changes and draws issued by the renderer.
type countingBinder struct {
	textures int
	blends   int
	draws    int
	vertices uint64

	lastTex   gpu.TextureID
	lastBlend spatial.BlendFunc
}

func (b *countingBinder) BindTexture(unit int, tex gpu.TextureID) {
	if unit == spatial.TextureUnitDiffuse && tex != b.lastTex {
		b.textures++
		b.lastTex = tex
	}
}

func (b *countingBinder) Uniform1f(string, float32)            {}
func (b *countingBinder) Uniform4f(string, [4]float32)         {}
func (b *countingBinder) UniformMatrix(string, spatial.Matrix) {}
func (b *countingBinder) SetDepthMask(bool)                    {}

func (b *countingBinder) SetBlend(f spatial.BlendFunc) {
	if f != b.lastBlend {
		b.blends++
		b.lastBlend = f
	}
}

func (b *countingBinder) DrawRange(_ *gpu.VertexBuffer, start, end, _, _ uint32) {
	b.draws++
	b.vertices += uint64(end-start) + 1
}
