// Package pipeline implements the executable processing graph every uploaded
// file runs through: a set of named nodes wired by directed edges, where an
// edge may reference a specific named output channel of its upstream node.
// The graph is assembled once per request and driven synchronously.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

const (
	// EntryPoint is the implicit source every graph starts from. The first
	// node declares it as input; it activates once per file.
	EntryPoint = "File"

	// DefaultOutput is the channel name nodes emit on unless they fan out
	// over multiple named channels.
	DefaultOutput = "output"
)

// Payload is the per-file state threaded through the graph. Nodes mutate it
// in place: converters populate Docs from FilePath, the preprocessor replaces
// Docs with passages, the embedder attaches vectors.
type Payload struct {
	FilePath string
	Meta     map[string]interface{}
	Docs     []*schema.Document
}

// Node is a single processing stage. Run returns the name of the output
// channel the node emitted on; an empty name means the node produced no
// output and every downstream stage is skipped for this file.
type Node interface {
	Run(ctx context.Context, p *Payload) (string, error)
}

type edge struct {
	node    string // upstream node name, or EntryPoint
	channel string // required output channel; empty matches any
}

type graphNode struct {
	name      string
	component Node
	inputs    []edge
}

// Pipeline is a directed acyclic graph of named nodes. Nodes must be added
// in topological order: every declared input has to resolve to the entry
// point or to a node that is already part of the graph, which rules out
// cycles by construction.
type Pipeline struct {
	nodes  []*graphNode
	byName map[string]*graphNode
	log    *logger.Logger
}

// New creates an empty pipeline.
func New(log *logger.Logger) *Pipeline {
	return &Pipeline{
		byName: make(map[string]*graphNode),
		log:    log,
	}
}

// AddNode registers a component under a unique name. Each input is either a
// plain node name, matching whatever channel the upstream emitted, or
// "NodeName.channel_name" to bind to one specific output channel.
func (p *Pipeline) AddNode(component Node, name string, inputs []string) error {
	if component == nil {
		return fmt.Errorf("node %q has no component", name)
	}
	if name == "" || name == EntryPoint {
		return fmt.Errorf("invalid node name %q", name)
	}
	if _, exists := p.byName[name]; exists {
		return fmt.Errorf("node %q is already part of the pipeline", name)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("node %q declares no inputs", name)
	}

	edges := make([]edge, 0, len(inputs))
	for _, input := range inputs {
		upstream, channel := input, ""
		if idx := strings.IndexByte(input, '.'); idx >= 0 {
			upstream, channel = input[:idx], input[idx+1:]
		}
		if upstream == EntryPoint {
			if channel != "" {
				return fmt.Errorf("node %q: entry point %q has no named channels", name, EntryPoint)
			}
		} else if _, ok := p.byName[upstream]; !ok {
			return fmt.Errorf("node %q: input %q does not resolve to the entry point or an existing node", name, input)
		}
		edges = append(edges, edge{node: upstream, channel: channel})
	}

	gn := &graphNode{name: name, component: component, inputs: edges}
	p.nodes = append(p.nodes, gn)
	p.byName[name] = gn
	return nil
}

// Validate checks that the assembled graph has exactly one terminal node,
// the store writer every surviving file ends up in.
func (p *Pipeline) Validate() error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("pipeline has no nodes")
	}

	referenced := make(map[string]bool)
	for _, gn := range p.nodes {
		for _, in := range gn.inputs {
			referenced[in.node] = true
		}
	}

	var terminals []string
	for _, gn := range p.nodes {
		if !referenced[gn.name] {
			terminals = append(terminals, gn.name)
		}
	}
	if len(terminals) != 1 {
		return fmt.Errorf("pipeline must have exactly one terminal node, found %d (%s)",
			len(terminals), strings.Join(terminals, ", "))
	}
	return nil
}

// Run drives every file through the graph sequentially, in list order. No
// per-file result is collected; the first node error aborts the batch and
// writes from earlier files are not rolled back.
func (p *Pipeline) Run(ctx context.Context, paths []string, metas []map[string]interface{}) error {
	if len(paths) != len(metas) {
		return fmt.Errorf("got %d file paths but %d metadata entries", len(paths), len(metas))
	}
	if err := p.Validate(); err != nil {
		return err
	}

	for i, path := range paths {
		if err := p.runFile(ctx, path, metas[i]); err != nil {
			return err
		}
	}
	return nil
}

// runFile walks the nodes in insertion order. A node runs when at least one
// of its inputs was activated on a matching channel; with multiple inputs the
// first activated upstream wins. A node that emits no channel leaves its
// downstream inactive, which silently drops the file.
func (p *Pipeline) runFile(ctx context.Context, path string, meta map[string]interface{}) error {
	payload := &Payload{FilePath: path, Meta: meta}

	activated := map[string]string{EntryPoint: DefaultOutput}
	for _, gn := range p.nodes {
		ready := false
		for _, in := range gn.inputs {
			channel, ok := activated[in.node]
			if ok && (in.channel == "" || in.channel == channel) {
				ready = true
				break
			}
		}
		if !ready {
			continue
		}

		out, err := gn.component.Run(ctx, payload)
		if err != nil {
			return fmt.Errorf("node %s failed for file %s: %w", gn.name, path, err)
		}
		if out == "" {
			p.log.Info(fmt.Sprintf("Node %s produced no output for %s, file will not be indexed", gn.name, path))
			continue
		}
		activated[gn.name] = out
	}
	return nil
}
