// Package config loads run configuration from CUE files
package config

import (
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/pkg/errors"
)

// Schema is unified with every loaded file, its defaults filling what files omit
const Schema = `
canvas: {
	width:  number & >0 | *800
	height: number & >0 | *600
}
trunk: {
	length: number & >0 | *15
	width:  number & >0 | *6
	angle:  number | *(-3.141592653589793 / 2)
	// start position, derived from the canvas when unset
	x?: number
	y?: number
	minLength: number & >0 | *2
}
generation: {
	maxDepth: int & >=0 | *6
	// fixed depth, drawn uniformly from 0..maxDepth when unset
	depth?:    int & >=0
	maxLength: int & >=0 | *0
}
inference: {
	maxDepth:   int & >=0 | *6
	samples:    int & >0 | *5000
	burn:       int & >=0 | *0
	chains:     int & >0 | *1
	scale:      number & >0 | *100
	likelihood: string | *""
	timeout:    string | *"30s"
}
seed:   int | *0
output: string | *"tree.svg"
`

type Config struct {
	Canvas     Canvas     `json:"canvas"`
	Trunk      Trunk      `json:"trunk"`
	Generation Generation `json:"generation"`
	Inference  Inference  `json:"inference"`
	Seed       int64      `json:"seed"`
	Output     string     `json:"output"`
}

type Canvas struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Trunk struct {
	Length    float64  `json:"length"`
	Width     float64  `json:"width"`
	Angle     float64  `json:"angle"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	MinLength float64  `json:"minLength"`
}

type Generation struct {
	MaxDepth  int  `json:"maxDepth"`
	Depth     *int `json:"depth,omitempty"`
	MaxLength int  `json:"maxLength"`
}

type Inference struct {
	MaxDepth   int     `json:"maxDepth"`
	Samples    int     `json:"samples"`
	Burn       int     `json:"burn"`
	Chains     int     `json:"chains"`
	Scale      float64 `json:"scale"`
	Likelihood string  `json:"likelihood"`
	Timeout    string  `json:"timeout"`
}

// TimeoutDuration parses the timeout, zero meaning no cap
func (inf Inference) TimeoutDuration() (time.Duration, error) {
	if inf.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(inf.Timeout)
	return d, errors.Wrapf(err, "inference timeout %q", inf.Timeout)
}

// Start returns the starting position of the trunk: bottom center of the canvas unless set
func (c Config) Start() (x, y float64) {
	x, y = c.Canvas.Width/2, c.Canvas.Height
	if c.Trunk.X != nil {
		x = *c.Trunk.X
	}
	if c.Trunk.Y != nil {
		y = *c.Trunk.Y
	}
	return x, y
}

// Load unifies the files in order on top of the schema
func Load(filePaths ...string) (Config, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString("close({" + Schema + "})")
	if err := value.Err(); err != nil {
		return Config{}, errors.Wrap(err, "compiling config schema")
	}

	for _, filePath := range filePaths {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return Config{}, errors.Wrap(err, "reading config")
		}
		file := ctx.CompileBytes(content, cue.Filename(filePath))
		if err := file.Err(); err != nil {
			return Config{}, errors.Wrapf(err, "compiling %s", filePath)
		}
		value = value.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, errors.Wrap(err, "validating config")
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}
