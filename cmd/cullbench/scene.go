package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/spatial"
	"github.com/gogpu/spatial/gpu"
)

// sceneConfig is the YAML description of a benchmark scene.
type sceneConfig struct {
	Seed        uint64            `yaml:"seed"`
	Frames      int               `yaml:"frames"`
	BuildBudget int               `yaml:"build_budget"`
	Camera      cameraConfig      `yaml:"camera"`
	Partitions  []partitionConfig `yaml:"partitions"`
	Bridges     []bridgeConfig    `yaml:"bridges"`
}

type cameraConfig struct {
	Orbit  float32 `yaml:"orbit"`
	Height float32 `yaml:"height"`
	Far    float32 `yaml:"far"`
	// Step is the orbit angle advanced per frame, in radians.
	Step float32 `yaml:"step"`
}

type partitionConfig struct {
	Kind    string  `yaml:"kind"`
	Count   int     `yaml:"count"`
	Spread  float32 `yaml:"spread"`
	MaxHalf float32 `yaml:"max_half"`
	Alpha   float32 `yaml:"alpha"`
	Glow    float32 `yaml:"glow"`
	// Moving is the fraction of drawables moved every frame.
	Moving float32 `yaml:"moving"`
}

type bridgeConfig struct {
	Position [3]float32 `yaml:"position"`
	Count    int        `yaml:"count"`
	Radius   float32    `yaml:"radius"`
}

func defaultScene() sceneConfig {
	return sceneConfig{
		Seed:   1,
		Frames: 100,
		Camera: cameraConfig{Orbit: 150, Height: 20, Far: spatial.DefaultFar, Step: 0.02},
		Partitions: []partitionConfig{
			{Kind: "volume", Count: 5000, Spread: 300, MaxHalf: 3, Alpha: 0.1, Glow: 0.02, Moving: 0.01},
			{Kind: "tree", Count: 500, Spread: 300, MaxHalf: 4},
			{Kind: "particle", Count: 200, Spread: 100, MaxHalf: 0.5, Moving: 0.5},
		},
		Bridges: []bridgeConfig{
			{Position: [3]float32{40, 0, 5}, Count: 30, Radius: 6},
		},
	}
}

// loadScene reads a scene file. Fields missing from the file keep the
// defaults.
func loadScene(path string) (sceneConfig, error) {
	cfg := defaultScene()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading scene: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing scene %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c sceneConfig) validate() error {
	if c.Frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", c.Frames)
	}
	for i, p := range c.Partitions {
		if _, err := spatial.ParsePartitionKind(p.Kind); err != nil {
			return fmt.Errorf("partition %d: %w", i, err)
		}
		if p.Count < 0 || p.Spread <= 0 || p.MaxHalf <= 0 {
			return fmt.Errorf("partition %d: count, spread and max_half must be positive", i)
		}
	}
	return nil
}

// scene is a populated session.
type scene struct {
	session *spatial.Session
	cfg     sceneConfig
	rng     *rand.Rand
	moving  []movingSet
}

type movingSet struct {
	partition *spatial.Partition
	fraction  float32
	drawables []*spatial.BasicDrawable
}

func buildScene(cfg sceneConfig, opts ...spatial.SessionOption) (*scene, error) {
	sc := &scene{
		session: spatial.NewSession(append(opts, spatial.WithBuildBudget(cfg.BuildBudget))...),
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5bd1e995)),
	}
	var outer *spatial.Partition
	texture := gpu.TextureID(1)
	for _, pc := range cfg.Partitions {
		kind, err := spatial.ParsePartitionKind(pc.Kind)
		if err != nil {
			return nil, err
		}
		p := sc.session.NewPartition(kind)
		set := movingSet{partition: p, fraction: pc.Moving}
		for i := 0; i < pc.Count; i++ {
			d := sc.randomQuad(pc, texture+gpu.TextureID(i%16))
			if p.Put(d, false) != nil {
				set.drawables = append(set.drawables, d)
			}
		}
		texture += 16
		sc.moving = append(sc.moving, set)
	}
	if len(cfg.Bridges) > 0 {
		outer = sc.session.NewPartition(spatial.KindBridge)
	}
	for _, bc := range cfg.Bridges {
		pos := spatial.V3(bc.Position[0], bc.Position[1], bc.Position[2])
		parent := spatial.NewBoxDrawable(spatial.BoxFromCenter(pos, spatial.Splat(1)))
		b := sc.session.NewBridge(parent, outer, spatial.KindVolume)
		pc := partitionConfig{Spread: bc.Radius, MaxHalf: 0.5}
		for i := 0; i < bc.Count; i++ {
			b.Partition().Put(sc.randomQuad(pc, texture), false)
		}
	}
	return sc, nil
}

func (sc *scene) coord(spread float32) float32 {
	return (sc.rng.Float32()*2 - 1) * spread
}

// randomQuad returns a camera-facing square with random size and material.
func (sc *scene) randomQuad(pc partitionConfig, tex gpu.TextureID) *spatial.BasicDrawable {
	c := spatial.V3(sc.coord(pc.Spread), sc.coord(pc.Spread), sc.rng.Float32()*pc.Spread*0.1)
	h := 0.05 + sc.rng.Float32()*pc.MaxHalf
	v := func(dy, dz, u, w float32) spatial.Vertex {
		return spatial.Vertex{
			Position: c.Add(spatial.V3(0, dy, dz)),
			Normal:   spatial.V3(-1, 0, 0),
			UV:       [2]float32{u, w},
			Color:    [4]float32{1, 1, 1, 1},
		}
	}
	f := spatial.Face{
		Vertices: []spatial.Vertex{v(-h, -h, 0, 0), v(h, -h, 1, 0), v(h, h, 1, 1), v(-h, h, 0, 1)},
		Indices:  []uint16{0, 1, 2, 0, 2, 3},
		Texture:  tex,
		Alpha:    sc.rng.Float32() < pc.Alpha,
	}
	if sc.rng.Float32() < pc.Glow {
		f.Glow = 0.5
	}
	return spatial.NewBasicDrawable(c, f)
}

// camera returns the orbiting camera of frame.
func (sc *scene) camera(frame int) spatial.Camera {
	cc := sc.cfg.Camera
	angle := float32(frame) * cc.Step
	s, c := math32.Sincos(angle)
	cam := spatial.NewCamera()
	if cc.Far > 0 {
		cam.Far = cc.Far
	}
	cam.LookAt(spatial.V3(c*cc.Orbit, s*cc.Orbit, cc.Height), spatial.V3(0, 0, 0), spatial.V3(0, 0, 1))
	return cam
}

// jitter moves a fraction of the drawables of every partition.
func (sc *scene) jitter() int {
	moved := 0
	for _, set := range sc.moving {
		n := int(float32(len(set.drawables)) * set.fraction)
		for i := 0; i < n; i++ {
			d := set.drawables[sc.rng.IntN(len(set.drawables))]
			step := spatial.V3(sc.coord(1), sc.coord(1), 0)
			d.MoveTo(d.Position().Add(step))
			set.partition.Move(d, nil, false)
			moved++
		}
	}
	return moved
}
