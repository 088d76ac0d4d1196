// Package lsif is the reference implementation for the L-System Interchange Format
package lsif

import (
	"io"

	"github.com/aabizri/stochtree/interchange"
	"go.yaml.in/yaml/v3"
)

// Format is one grammar document
//
//	axiom: X
//	constants:
//	  branch: 0.7
//	identities: "L[]+-"
//	rules:
//	  - from: X
//	    to: "F[+X][-X]L"
//	    weight: branch
//	  - from: X
//	    to: FL
//	    weight: 1 - branch
type Format struct {
	Axiom      string             `yaml:"axiom"`
	Constants  map[string]float64 `yaml:"constants"`
	Identities string             `yaml:"identities"`
	Rules      []Rule             `yaml:"rules"`
}

// Rule rewrites From into To. Weight is an expression over the constants, 1 when empty.
type Rule struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Weight string `yaml:"weight"`
}

type Decoder struct {
	in          io.Reader
	yamlDecoder *yaml.Decoder
}

func NewDecoder(in io.Reader) *Decoder {
	return &Decoder{
		in:          in,
		yamlDecoder: yaml.NewDecoder(in),
	}
}

// Decode reads the next document of the stream, returning io.EOF at the end
func (dec *Decoder) Decode() (*Format, error) {
	format := &Format{}
	err := dec.yamlDecoder.Decode(format)
	return format, err
}

var ensureInterfaceCompliance interchange.Format = &Format{}
