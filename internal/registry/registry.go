// Package registry implements the Tool Registry: a process-scoped mapping
// from navigator tag to the ordered list of tools visible to that tag.
// Registration happens once at startup, before any command is dispatched;
// after that the registry is read-only and safe for concurrent reads.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"
)

// ToolResult is what a Tool handler returns to its calling Executor. IsError
// marks a recoverable failure the Executor should feed back to the Proposer
// as an observation rather than abort the inner dialogue.
type ToolResult struct {
	Content string
	IsError bool
}

// Tool is the capability every registered handler implements: a name and
// description advertised verbatim to the proposing LLM, a JSON Schema
// describing its parameters, and the handler itself.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// Descriptor is the read-only view of a registered tool advertised to an
// LLM-facing Proposer: {name, description, parameter_schema}.
type Descriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Tool        Tool
}

// DuplicateToolError is returned by Register when (tag, name) is already
// present.
type DuplicateToolError struct {
	Tag  string
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("registry: tool %q already registered for tag %q", e.Name, e.Tag)
}

// NotFoundError is returned by Resolve when no tool matches (tag, name).
type NotFoundError struct {
	Tag  string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry: tool %q not found for tag %q", e.Name, e.Tag)
}

// Registry is the process-scoped navigator_tag -> ordered tool list mapping.
// Mutation (Register) has no concurrency guarantees and must complete before
// command dispatch begins; Resolve/ListFor are safe for concurrent readers
// once registration is done.
type Registry struct {
	mu      sync.RWMutex
	byTag   map[string][]Descriptor
	index   map[string]map[string]int // tag -> name -> index into byTag[tag]
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		byTag: make(map[string][]Descriptor),
		index: make(map[string]map[string]int),
	}
}

// Register adds tool under tag, visible to the proposer for that navigator
// tag. visibilityTags lets one handler be registered under several tags at
// once (e.g. a tool usable by both "sql" and "api" navigators) without
// duplicating the handler.
func (r *Registry) Register(visibilityTags []string, tool Tool) error {
	if err := validateSchema(tool.Name(), tool.Schema()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tag := range visibilityTags {
		if r.index[tag] == nil {
			r.index[tag] = make(map[string]int)
		}
		if _, exists := r.index[tag][tool.Name()]; exists {
			return &DuplicateToolError{Tag: tag, Name: tool.Name()}
		}
	}

	desc := Descriptor{
		Name:        tool.Name(),
		Description: tool.Description(),
		Schema:      tool.Schema(),
		Tool:        tool,
	}
	for _, tag := range visibilityTags {
		r.index[tag][tool.Name()] = len(r.byTag[tag])
		r.byTag[tag] = append(r.byTag[tag], desc)
	}
	return nil
}

// ListFor returns the descriptors visible to tag, in registration order.
func (r *Registry) ListFor(tag string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Descriptor(nil), r.byTag[tag]...)
}

// Resolve looks up a single tool by (tag, name).
func (r *Registry) Resolve(tag, name string) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[tag]
	if !ok {
		return Descriptor{}, &NotFoundError{Tag: tag, Name: name}
	}
	i, ok := idx[name]
	if !ok {
		return Descriptor{}, &NotFoundError{Tag: tag, Name: name}
	}
	return r.byTag[tag][i], nil
}

// ToolSchema is the shape advertised to an LLM-facing proposer: enough to
// build a provider-specific tool-calling payload without leaking the
// handler itself.
type ToolSchema struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Describe returns the tool schemas visible to tag, in registration order,
// for a Proposer to hand to its llm.Provider.
func (r *Registry) Describe(tag string) []ToolSchema {
	descs := r.ListFor(tag)
	out := make([]ToolSchema, 0, len(descs))
	for _, d := range descs {
		out = append(out, ToolSchema{Name: d.Name, Description: d.Description, Schema: d.Schema})
	}
	return out
}

// validateSchema checks that schema is a well-formed JSON Schema document
// before the tool is allowed into the registry, so a malformed handler
// schema fails at startup rather than at the first model invocation.
func validateSchema(name string, schema json.RawMessage) error {
	if len(schema) == 0 {
		return fmt.Errorf("registry: tool %q declares an empty schema", name)
	}
	c := jsonschemav5.NewCompiler()
	url := "mem://tools/" + name + ".json"
	if err := c.AddResource(url, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("registry: tool %q: %w", name, err)
	}
	if _, err := c.Compile(url); err != nil {
		return fmt.Errorf("registry: tool %q declares an invalid schema: %w", name, err)
	}
	return nil
}

// GenerateSchema builds a JSON Schema document from a Go argument struct's
// fields and tags, for handlers that prefer a typed params struct over
// hand-writing the schema literal returned by Tool.Schema.
func GenerateSchema[T any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	var zero T
	schema := reflector.Reflect(zero)
	schema.Version = ""
	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("registry: failed to generate schema for %T: %v", zero, err))
	}
	return b
}
