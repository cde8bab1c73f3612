package flow

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Definition is a compiled flow: a name, the two contracts and the prompt.
// It is immutable once built and safe to share between goroutines.
type Definition struct {
	name   string
	input  Contract
	output Contract
	prompt string
	tmpl   *template.Template
}

type definitionFile struct {
	Name   string   `yaml:"name"`
	Input  Contract `yaml:"input"`
	Output Contract `yaml:"output"`
	Prompt string   `yaml:"prompt"`
}

// New compiles a definition from its parts.
func New(name string, input, output Contract, prompt string) (*Definition, error) {
	if name == "" {
		return nil, errors.New("flow: definition has no name")
	}
	if err := input.verify(""); err != nil {
		return nil, fmt.Errorf("flow %s: input contract: %w", name, err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("flow %s: output contract is empty", name)
	}
	if err := output.verify(""); err != nil {
		return nil, fmt.Errorf("flow %s: output contract: %w", name, err)
	}
	tmpl, err := parseTemplate(name, prompt)
	if err != nil {
		return nil, fmt.Errorf("flow %s: parse prompt: %w", name, err)
	}
	return &Definition{
		name:   name,
		input:  input.clone(),
		output: output.clone(),
		prompt: prompt,
		tmpl:   tmpl,
	}, nil
}

// Load compiles a definition from its YAML form.
func Load(data []byte) (*Definition, error) {
	var file definitionFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("flow: decode definition: %w", err)
	}
	return New(file.Name, file.Input, file.Output, file.Prompt)
}

// MustLoad is like Load but panics on error. It is meant for embedded definitions.
func MustLoad(data []byte) *Definition {
	def, err := Load(data)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Name() string { return d.name }

// Input returns a copy of the input contract.
func (d *Definition) Input() Contract { return d.input.clone() }

// Output returns a copy of the output contract.
func (d *Definition) Output() Contract { return d.output.clone() }

// Prompt returns the unrendered prompt template text.
func (d *Definition) Prompt() string { return d.prompt }
