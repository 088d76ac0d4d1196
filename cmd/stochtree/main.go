package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/aabizri/stochtree"
	"github.com/aabizri/stochtree/config"
	"github.com/aabizri/stochtree/inference"
	"github.com/aabizri/stochtree/interchange"
	"github.com/aabizri/stochtree/interchange/lsif"
	"github.com/aabizri/stochtree/interchange/rules"
	"github.com/aabizri/stochtree/logs"
	"github.com/aabizri/stochtree/render"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

func main() {
	var (
		configPaths = flag.String("config", "", "comma separated CUE configuration files")
		grammarPath = flag.String("grammar", "", "LSIF grammar file, the built-in tree grammar when empty")
		outputPath  = flag.String("output", "", "SVG output path, overrides the configuration")
		logLevel    = flag.String("log-level", "info", "debug, info, warn or error")
		logJSON     = flag.String("log-json", "", "also write JSON logs to this file")
	)
	flag.Parse()

	parsed, err := logs.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(2)
	}
	level := new(slog.LevelVar)
	level.Set(parsed)
	logOptions := logs.Options{Level: level, Journal: true}
	if *logJSON != "" {
		f, err := os.Create(*logJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening json log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOptions.JSONFile = f
	}
	logger := logs.New(os.Stderr, logOptions)

	var paths []string
	if *configPaths != "" {
		paths = strings.Split(*configPaths, ",")
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		logger.Error("loading configuration", "error", err)
		os.Exit(1)
	}
	if *outputPath != "" {
		cfg.Output = *outputPath
	}

	grammar, err := loadGrammar(*grammarPath)
	if err != nil {
		logger.Error("loading grammar", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := os.Create(cfg.Output)
	if err != nil {
		logger.Error("creating output", "error", err)
		os.Exit(1)
	}
	defer out.Close()

	if _, err := execute(ctx, cfg, grammar, out, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// loadGrammar imports the first document of an LSIF file
func loadGrammar(path string) (stochtree.Grammar, error) {
	if path == "" {
		return rules.Tree(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return stochtree.Grammar{}, err
	}
	defer f.Close()

	format, err := lsif.NewDecoder(f).Decode()
	if err == io.EOF {
		return stochtree.Grammar{}, errors.Errorf("%s holds no grammar", path)
	} else if err != nil {
		return stochtree.Grammar{}, errors.Wrapf(err, "decoding %s", path)
	}
	return importGrammar(format)
}

func importGrammar(format interchange.Format) (stochtree.Grammar, error) {
	return format.Import()
}

// run carries the state of one generate, render and infer pass
type run struct {
	ID        uuid.UUID
	Depth     int
	Statement stochtree.String
	Leaves    int
	Segments  int
	Result    inference.Result

	log *slog.Logger
	rng *rand.Rand
}

func newRun(cfg config.Config, logger *slog.Logger) *run {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	id := uuid.New()
	return &run{
		ID:  id,
		log: logger.With("run", id.String()),
		rng: rand.New(rand.NewSource(seed)),
	}
}

func execute(ctx context.Context, cfg config.Config, grammar stochtree.Grammar, out io.Writer, logger *slog.Logger) (*run, error) {
	r := newRun(cfg, logger)

	if err := r.generate(ctx, cfg, grammar); err != nil {
		return r, err
	}
	if err := r.draw(cfg, out); err != nil {
		return r, err
	}
	if err := r.infer(ctx, cfg, grammar); err != nil {
		return r, err
	}
	return r, nil
}

func (r *run) generate(ctx context.Context, cfg config.Config, grammar stochtree.Grammar) error {
	r.Depth = r.rng.Intn(cfg.Generation.MaxDepth + 1)
	if cfg.Generation.Depth != nil {
		r.Depth = *cfg.Generation.Depth
	}
	r.log.Info("chosen depth", "depth", r.Depth)

	ls, err := stochtree.New(grammar, nil, r.rng)
	if err != nil {
		return err
	}
	ls.MaxLength = cfg.Generation.MaxLength
	if err := ls.DerivateUntil(ctx, uint(r.Depth)); err != nil {
		return errors.Wrap(err, "expanding axiom")
	}

	r.Statement = ls.Export()
	r.Leaves = stochtree.CountLeaves(r.Statement)
	r.log.Info("tree generated", "symbols", len(r.Statement), "leaves", r.Leaves)
	r.log.Debug("statement", "statement", r.Statement.String())
	return nil
}

func (r *run) draw(cfg config.Config, out io.Writer) error {
	svg := render.NewSVG(out, cfg.Canvas.Width, cfg.Canvas.Height)
	turtle := stochtree.NewTurtle(svg, r.rng)
	turtle.MinLength = cfg.Trunk.MinLength

	x, y := cfg.Start()
	initial := stochtree.TurtleState{
		Position: stochtree.Point{X: x, Y: y},
		Angle:    cfg.Trunk.Angle,
		Length:   cfg.Trunk.Length,
		Width:    cfg.Trunk.Width,
	}
	if _, err := turtle.Render(r.Statement, initial); err != nil {
		return errors.Wrap(err, "rendering")
	}
	if err := svg.Close(); err != nil {
		return errors.Wrap(err, "writing svg")
	}

	r.Segments = turtle.Segments()
	r.log.Info("tree drawn", "segments", r.Segments, "output", cfg.Output)
	return nil
}

func (r *run) infer(ctx context.Context, cfg config.Config, grammar stochtree.Grammar) error {
	timeout, err := cfg.Inference.TimeoutDuration()
	if err != nil {
		return err
	}

	estimator, err := inference.New(grammar, inference.Config{
		MaxDepth:   cfg.Inference.MaxDepth,
		Samples:    cfg.Inference.Samples,
		Burn:       cfg.Inference.Burn,
		Chains:     cfg.Inference.Chains,
		Scale:      cfg.Inference.Scale,
		Likelihood: cfg.Inference.Likelihood,
		Seed:       r.rng.Int63(),
		Timeout:    timeout,
		MaxLength:  cfg.Generation.MaxLength,
	}, r.log)
	if err != nil {
		return err
	}

	res, err := estimator.Infer(ctx, r.Leaves)
	if err != nil {
		return errors.Wrap(err, "inferring depth")
	}
	r.Result = res

	r.log.Info("posterior",
		"probabilities", res.Posterior,
		"expectation", res.Expected,
		"map", res.MAP,
		"acceptance", res.Acceptance(),
		"truncated", res.Truncated,
	)
	r.log.Info("inferred depth", "depth", res.MAP, "actual", r.Depth)
	return nil
}
