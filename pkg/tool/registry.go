package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cexll/chatloop-go/pkg/mcp"
	"go.uber.org/zap"
)

// Source enumerates and invokes tools on connected remote servers. It is
// satisfied by *mcp.Manager.
type Source interface {
	Caller
	ListTools(ctx context.Context, server string) ([]mcp.RawTool, error)
}

// Set is the immutable registry snapshot a session runs against: the
// ordered descriptor list advertised to the model plus the name-keyed
// invocation table. It is built once at startup and never mutated.
type Set struct {
	descriptors []Descriptor
	invokers    map[string]Invoker
}

// Descriptors returns the advertised tool list in registration order:
// local tools first, then each server's tools in connection order.
func (s *Set) Descriptors() []Descriptor {
	if s == nil {
		return nil
	}
	return append([]Descriptor(nil), s.descriptors...)
}

// Lookup resolves the invoker registered under name.
func (s *Set) Lookup(name string) (Invoker, bool) {
	if s == nil {
		return nil, false
	}
	inv, ok := s.invokers[name]
	return inv, ok
}

// Len reports the number of distinct invocable names.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.invokers)
}

// Build merges local registrations with the tools discovered on each named
// server, in the given server order. On a name collision the later source
// overrides the earlier one; that is the resolution rule, and each override
// is logged with both origins. A server exposing an unnamed tool fails the
// whole build. Building with zero servers yields a local-only registry.
func Build(ctx context.Context, logger *zap.Logger, locals []Registration, src Source, servers []string) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := &Set{invokers: make(map[string]Invoker)}
	origins := make(map[string]string)

	for _, reg := range locals {
		name := strings.TrimSpace(reg.Descriptor.Name)
		if name == "" {
			return nil, errors.New("local tool registration has no name")
		}
		if reg.Invoker == nil {
			return nil, fmt.Errorf("local tool %s has no invoker", name)
		}
		set.add(logger, origins, "local", reg.Descriptor, reg.Invoker)
	}

	for _, server := range servers {
		if src == nil {
			return nil, fmt.Errorf("server %s named but no tool source supplied", server)
		}
		tools, err := src.ListTools(ctx, server)
		if err != nil {
			return nil, fmt.Errorf("register server %s: %w", server, err)
		}
		for _, raw := range tools {
			if strings.TrimSpace(raw.Name) == "" {
				return nil, fmt.Errorf("register server %s: tool descriptor has no name", server)
			}
			desc := Descriptor{
				Name:        raw.Name,
				Description: raw.Description,
				Parameters:  raw.Schema,
			}
			set.add(logger, origins, server, desc, RemoteInvoker{Server: server, Tool: raw.Name, Caller: src})
		}
	}

	return set, nil
}

func (s *Set) add(logger *zap.Logger, origins map[string]string, origin string, desc Descriptor, inv Invoker) {
	if prev, exists := origins[desc.Name]; exists {
		logger.Warn("tool name collision, later source wins",
			zap.String("tool", desc.Name),
			zap.String("kept", origin),
			zap.String("shadowed", prev),
		)
	}
	origins[desc.Name] = origin
	s.descriptors = append(s.descriptors, desc)
	s.invokers[desc.Name] = inv
}
