package orkestrel

import (
	"fmt"
	"sync/atomic"
)

var tokenCounter atomic.Uint64

// AnyToken is the type-erased view of a Token[T], used wherever tokens
// of heterogeneous component types need to share a collection: the
// dependency graph, injection lists, and orchestrator entries.
type AnyToken interface {
	id() uint64
	// Description returns the token's human-readable label. Two tokens
	// created with the same description are still distinct identities.
	Description() string
}

// Token is an opaque, typed identity for a component slot. It also acts
// as a type witness: Resolve uses its type parameter to hand back a
// correctly-typed value without a runtime assertion at the call site.
type Token[T any] struct {
	num  uint64
	desc string
}

// NewToken creates a fresh token identity. Distinct calls always produce
// distinct tokens, even for identical descriptions.
func NewToken[T any](description string) Token[T] {
	return Token[T]{num: tokenCounter.Add(1), desc: description}
}

func (t Token[T]) id() uint64          { return t.num }
func (t Token[T]) Description() string { return t.desc }
func (t Token[T]) String() string      { return fmt.Sprintf("%s#%d", t.desc, t.num) }

// NewTokenGroup produces a homogeneous group of tokens of type T, one
// per key, each described as "namespace:key". This is a deliberate
// simplification of a heterogeneous record shape: callers that need
// different component types per key create individual tokens instead.
func NewTokenGroup[T any](namespace string, keys ...string) map[string]Token[T] {
	group := make(map[string]Token[T], len(keys))
	for _, k := range keys {
		group[k] = NewToken[T](namespace + ":" + k)
	}
	return group
}
