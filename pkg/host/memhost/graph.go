package memhost

import (
	"fmt"
	"slices"

	"mhurbridge/pkg/host"
)

type SocketType string

const (
	SocketFloat  SocketType = "float"
	SocketInt    SocketType = "int"
	SocketColor  SocketType = "color"
	SocketShader SocketType = "shader"
	SocketVector SocketType = "vector"
)

// SocketSpec declares one socket of a node or node group.
type SocketSpec struct {
	Name string     `toml:"name"`
	Type SocketType `toml:"type"`
}

type Socket struct {
	node     *Node
	name     string
	typ      SocketType
	isOutput bool

	Value any
}

func (s *Socket) Name() string     { return s.name }
func (s *Socket) Type() SocketType { return s.typ }
func (s *Socket) Node() *Node      { return s.node }

func (s *Socket) SetFloat(v float64) error {
	if s.typ != SocketFloat {
		return fmt.Errorf("%w: %s socket %q does not take a float", host.ErrSocketType, s.typ, s.name)
	}
	s.Value = v
	return nil
}

func (s *Socket) SetInt(v int) error {
	switch s.typ {
	case SocketInt:
		s.Value = v
	case SocketFloat:
		s.Value = float64(v)
	default:
		return fmt.Errorf("%w: %s socket %q does not take an int", host.ErrSocketType, s.typ, s.name)
	}
	return nil
}

func (s *Socket) SetColor(c [4]float64) error {
	if s.typ != SocketColor {
		return fmt.Errorf("%w: %s socket %q does not take a color", host.ErrSocketType, s.typ, s.name)
	}
	s.Value = c
	return nil
}

type Node struct {
	kind     host.NodeKind
	Location host.Location
	Hidden   bool
	Group    *NodeGroup
	Image    *Image

	inputs  []*Socket
	outputs []*Socket
}

var builtinSockets = map[host.NodeKind]struct{ inputs, outputs []SocketSpec }{
	host.NodeOutputMaterial: {
		inputs: []SocketSpec{{"Surface", SocketShader}, {"Volume", SocketShader}, {"Displacement", SocketVector}},
	},
	host.NodeEmission: {
		inputs:  []SocketSpec{{"Color", SocketColor}, {"Strength", SocketFloat}},
		outputs: []SocketSpec{{"Emission", SocketShader}},
	},
	host.NodeTexImage: {
		inputs:  []SocketSpec{{"Vector", SocketVector}},
		outputs: []SocketSpec{{"Color", SocketColor}, {"Alpha", SocketFloat}},
	},
}

func newNode(kind host.NodeKind) *Node {
	n := &Node{kind: kind}
	specs := builtinSockets[kind]
	n.inputs = n.sockets(specs.inputs, false)
	n.outputs = n.sockets(specs.outputs, true)
	return n
}

func (n *Node) sockets(specs []SocketSpec, output bool) []*Socket {
	sockets := make([]*Socket, 0, len(specs))
	for _, spec := range specs {
		sockets = append(sockets, &Socket{node: n, name: spec.Name, typ: spec.Type, isOutput: output})
	}
	return sockets
}

func (n *Node) Kind() host.NodeKind         { return n.kind }
func (n *Node) SetLocation(l host.Location) { n.Location = l }
func (n *Node) SetHidden(hidden bool)       { n.Hidden = hidden }

// SetGroup binds a node group and rebuilds the node's sockets from it.
func (n *Node) SetGroup(g host.NodeGroup) {
	group, ok := g.(*NodeGroup)
	if !ok || group == nil {
		n.Group = nil
		n.inputs, n.outputs = nil, nil
		return
	}
	n.Group = group
	n.inputs = n.sockets(group.Inputs, false)
	n.outputs = n.sockets(group.Outputs, true)
}

func (n *Node) SetImage(img host.Image) {
	if image, ok := img.(*Image); ok {
		n.Image = image
	}
}

func (n *Node) Input(index int) (host.Socket, error)  { return socketAt(n.inputs, index, n.kind) }
func (n *Node) Output(index int) (host.Socket, error) { return socketAt(n.outputs, index, n.kind) }

func (n *Node) InputNamed(name string) (host.Socket, error) {
	return socketNamed(n.inputs, name, n.kind)
}

func (n *Node) OutputNamed(name string) (host.Socket, error) {
	return socketNamed(n.outputs, name, n.kind)
}

// InputSocket returns the concrete socket for inspection.
func (n *Node) InputSocket(index int) *Socket {
	if index < 0 || index >= len(n.inputs) {
		return nil
	}
	return n.inputs[index]
}

func socketAt(sockets []*Socket, index int, kind host.NodeKind) (host.Socket, error) {
	if index < 0 || index >= len(sockets) {
		return nil, fmt.Errorf("%w: %s has no socket %d", host.ErrNoSocket, kind, index)
	}
	return sockets[index], nil
}

func socketNamed(sockets []*Socket, name string, kind host.NodeKind) (host.Socket, error) {
	for _, s := range sockets {
		if s.name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no socket %q", host.ErrNoSocket, kind, name)
}

type Link struct {
	From *Socket
	To   *Socket
}

type Graph struct {
	Nodes []*Node
	Links []Link
}

func (g *Graph) Clear() {
	g.Nodes = nil
	g.Links = nil
}

func (g *Graph) NewNode(kind host.NodeKind) host.Node {
	n := newNode(kind)
	g.Nodes = append(g.Nodes, n)
	return n
}

// Link connects an output socket to an input socket, replacing any existing
// link into that input.
func (g *Graph) Link(from, to host.Socket) error {
	src, ok := from.(*Socket)
	if !ok || !src.isOutput {
		return fmt.Errorf("link source %q is not an output socket", from.Name())
	}
	dst, ok := to.(*Socket)
	if !ok || dst.isOutput {
		return fmt.Errorf("link target %q is not an input socket", to.Name())
	}
	if !slices.Contains(g.Nodes, src.node) || !slices.Contains(g.Nodes, dst.node) {
		return fmt.Errorf("link %q -> %q crosses graphs", src.name, dst.name)
	}

	g.Links = slices.DeleteFunc(g.Links, func(l Link) bool { return l.To == dst })
	g.Links = append(g.Links, Link{From: src, To: dst})
	return nil
}

// NodesOfKind returns the nodes of one kind in creation order.
func (g *Graph) NodesOfKind(kind host.NodeKind) []*Node {
	var nodes []*Node
	for _, n := range g.Nodes {
		if n.kind == kind {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// LinkInto returns the link feeding the given input, if any.
func (g *Graph) LinkInto(to *Socket) (Link, bool) {
	for _, l := range g.Links {
		if l.To == to {
			return l, true
		}
	}
	return Link{}, false
}

func (g *Graph) clone() *Graph {
	c := &Graph{}
	mapping := make(map[*Socket]*Socket)
	for _, n := range g.Nodes {
		cn := &Node{kind: n.kind, Location: n.Location, Hidden: n.Hidden, Group: n.Group, Image: n.Image}
		cn.inputs = cloneSockets(n.inputs, cn, mapping)
		cn.outputs = cloneSockets(n.outputs, cn, mapping)
		c.Nodes = append(c.Nodes, cn)
	}
	for _, l := range g.Links {
		c.Links = append(c.Links, Link{From: mapping[l.From], To: mapping[l.To]})
	}
	return c
}

func cloneSockets(sockets []*Socket, owner *Node, mapping map[*Socket]*Socket) []*Socket {
	cloned := make([]*Socket, 0, len(sockets))
	for _, s := range sockets {
		cs := &Socket{node: owner, name: s.name, typ: s.typ, isOutput: s.isOutput, Value: s.Value}
		mapping[s] = cs
		cloned = append(cloned, cs)
	}
	return cloned
}
