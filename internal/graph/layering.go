// Package graph computes deterministic topological layers over a
// dependency graph (Kahn's algorithm) and groups a subset of nodes by
// layer in reverse order for teardown traversal.
//
// The package is deliberately generic over a comparable key type so
// that the orchestrator can hand it tokens without creating an import
// cycle, and so that nothing here needs reflection to reason about the
// graph — the dependencies are exactly what the caller declares.
package graph

import "fmt"

// Node is one entry in a dependency graph: a key and the keys it
// depends on. Self-dependencies must already be removed by the caller;
// duplicate dependency entries are tolerated and deduplicated here.
type Node[K comparable] struct {
	Key          K
	Dependencies []K
}

// UnknownDependencyError is returned when a node declares a dependency
// that is not itself a node in the set (spec code ORK1008).
type UnknownDependencyError[K comparable] struct {
	Node       K
	Dependency K
}

func (e *UnknownDependencyError[K]) Error() string {
	return fmt.Sprintf("node %v depends on unknown node %v", e.Node, e.Dependency)
}

// CycleError is returned when the node set contains a dependency cycle
// and therefore cannot be fully layered (spec code ORK1009).
type CycleError[K comparable] struct {
	Remaining []K
}

func (e *CycleError[K]) Error() string {
	return fmt.Sprintf("cycle detected among %d node(s): %v", len(e.Remaining), e.Remaining)
}

// Layers partitions nodes into an ordered list of ordered layers using
// Kahn's algorithm. Layer i may depend only on layers 0..i-1. Within a
// layer, keys appear in the order their node was given in nodes (for
// the first layer) or in the order their in-degree reached zero (for
// subsequent layers), which is itself driven by the declaring node's
// position — so the whole computation is deterministic for a fixed
// input slice.
func Layers[K comparable](nodes []Node[K]) ([][]K, error) {
	index := make(map[K]int, len(nodes))
	for i, n := range nodes {
		index[n.Key] = i
	}

	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	seenDep := make([]map[K]struct{}, len(nodes))

	for i, n := range nodes {
		seenDep[i] = make(map[K]struct{}, len(n.Dependencies))
		for _, dep := range n.Dependencies {
			if _, dup := seenDep[i][dep]; dup {
				continue
			}
			seenDep[i][dep] = struct{}{}

			di, ok := index[dep]
			if !ok {
				return nil, &UnknownDependencyError[K]{Node: n.Key, Dependency: dep}
			}

			indegree[i]++
			dependents[di] = append(dependents[di], i)
		}
	}

	var frontier []int
	for i := range nodes {
		if indegree[i] == 0 {
			frontier = append(frontier, i)
		}
	}

	var layers [][]K
	visited := 0

	for len(frontier) > 0 {
		layer := make([]K, len(frontier))
		for j, idx := range frontier {
			layer[j] = nodes[idx].Key
		}
		layers = append(layers, layer)
		visited += len(frontier)

		var next []int
		for _, idx := range frontier {
			for _, depIdx := range dependents[idx] {
				indegree[depIdx]--
				if indegree[depIdx] == 0 {
					next = append(next, depIdx)
				}
			}
		}
		frontier = next
	}

	if visited != len(nodes) {
		remaining := make([]K, 0, len(nodes)-visited)
		for i, n := range nodes {
			if indegree[i] > 0 {
				remaining = append(remaining, n.Key)
			}
		}
		return nil, &CycleError[K]{Remaining: remaining}
	}

	return layers, nil
}

// Group buckets the given subset of keys by their layer index (as
// computed by Layers) and emits the non-empty buckets from the
// highest layer index down to the lowest, preserving the relative
// order of keys within keys for each bucket. This is the teardown
// order: components started last are stopped or destroyed first.
//
// Keys that don't appear in layers are silently ignored; callers that
// care (e.g. the orchestrator only ever passes keys it registered)
// won't hit this in practice.
func Group[K comparable](layers [][]K, keys []K) [][]K {
	layerOf := make(map[K]int, len(keys))
	for i, layer := range layers {
		for _, k := range layer {
			layerOf[k] = i
		}
	}

	buckets := make(map[int][]K)
	maxIdx := -1
	for _, k := range keys {
		idx, ok := layerOf[k]
		if !ok {
			continue
		}
		buckets[idx] = append(buckets[idx], k)
		if idx > maxIdx {
			maxIdx = idx
		}
	}

	result := make([][]K, 0, len(buckets))
	for i := maxIdx; i >= 0; i-- {
		if b, ok := buckets[i]; ok {
			result = append(result, b)
		}
	}
	return result
}
