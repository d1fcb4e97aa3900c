// Package orkestrel is a component lifecycle orchestrator with
// dependency injection: given a set of named components and a declared
// dependency graph, it brings the system up in topological order,
// tears it down in reverse, and reports failures as a structured
// aggregate.
//
// Components are singletons; their runtime work happens inside
// lifecycle hooks (OnCreate, OnStart, OnStop, OnDestroy); provider
// construction is strictly synchronous.
//
// The package ties together four subsystems: the lifecycle kernel
// (Kernel), the dependency injection container (Container), the
// orchestrator (Orchestrator), and a diagnostic substrate (Diagnostic)
// of canonical ORK10xx error codes and structured aggregation.
package orkestrel
