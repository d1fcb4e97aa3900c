package orkestrel

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"orkestrel/internal/graph"
	"orkestrel/internal/queue"
)

// PhaseTrace is the telemetry emitted once per phase/layer pair.
type PhaseTrace struct {
	Phase    Phase
	Layer    int
	Outcomes []ComponentEvent
}

// ComponentEvent is telemetry for one component's completed hook.
type ComponentEvent struct {
	Token      string
	Phase      Phase
	OK         bool
	TimedOut   bool
	DurationMs int64
}

// ComponentErrorEvent is telemetry for one component's failing hook,
// carrying the full detail record.
type ComponentErrorEvent struct {
	Detail Detail
}

// orchestratorEvents groups the orchestrator's telemetry emitters.
type orchestratorEvents struct {
	Phase            *Emitter[PhaseTrace]
	ComponentStart   *Emitter[ComponentEvent]
	ComponentStop    *Emitter[ComponentEvent]
	ComponentDestroy *Emitter[ComponentEvent]
	ComponentError   *Emitter[ComponentErrorEvent]
}

func newOrchestratorEvents() orchestratorEvents {
	return orchestratorEvents{
		Phase:            NewEmitter[PhaseTrace](),
		ComponentStart:   NewEmitter[ComponentEvent](),
		ComponentStop:    NewEmitter[ComponentEvent](),
		ComponentDestroy: NewEmitter[ComponentEvent](),
		ComponentError:   NewEmitter[ComponentErrorEvent](),
	}
}

// Orchestrator is the public entry point tying graph declaration,
// layering, the bounded queue, the container, and the lifecycle kernel
// into the three user-visible operations Start, Stop, Destroy.
type Orchestrator struct {
	RunID string
	Events orchestratorEvents

	diag      *Diagnostic
	container *Container

	mu          sync.Mutex
	order       []uint64
	entries     map[uint64]Entry
	deps        map[uint64][]uint64
	kernels     map[uint64]kernelHandle
	layersCache [][]uint64

	concurrency int
	defaults    PhaseTimeouts
}

// NewOrchestrator constructs an Orchestrator over a fresh root
// Container, configured by opts.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		RunID:   uuid.NewString(),
		order:   nil,
		entries: make(map[uint64]Entry),
		deps:    make(map[uint64][]uint64),
		kernels: make(map[uint64]kernelHandle),
	}
	o.Events = newOrchestratorEvents()

	cfg := &orchestratorOptions{}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	logger := defaultLogger()
	if cfg.logger != nil {
		logger = *cfg.logger
	}
	o.diag = NewDiagnostic(logger)
	o.container = NewContainer(o.diag)
	o.concurrency = cfg.concurrency
	o.defaults = cfg.defaults
	return o
}

// Container exposes the orchestrator's backing container, e.g. for
// resolving values directly outside the kernel-driven lifecycle.
func (o *Orchestrator) Container() *Container { return o.container }

// StateOf returns the current lifecycle state of token's component. It
// reports ok=false when the component has never been constructed —
// the orchestrator only constructs a component in the layer where it
// first starts, so a token whose layer hasn't run yet has no state.
func (o *Orchestrator) StateOf(token AnyToken) (state State, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	kh, exists := o.kernels[token.id()]
	if !exists {
		return "", false
	}
	return kh.State(), true
}

// Register adds entry to the graph. Duplicate tokens fail ORK1007.
// Dependencies are deduplicated and self-references dropped before the
// entry is stored; the provider is registered into the backing
// container immediately, and any memoized layering is invalidated.
func (o *Orchestrator) Register(entry Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := entry.anyToken().id()
	if _, exists := o.entries[id]; exists {
		return o.diag.FailWithCause(CodeInvalidRegistration, map[string]any{"token": entry.anyToken().Description(), "reason": "duplicate entry"}, ErrDuplicateEntry)
	}

	seen := make(map[uint64]bool)
	var deps []uint64
	for _, d := range entry.dependencies() {
		if d.id() == id || seen[d.id()] {
			continue
		}
		seen[d.id()] = true
		deps = append(deps, d.id())
	}

	if err := entry.registerProvider(o.container); err != nil {
		return err
	}

	o.entries[id] = entry
	o.deps[id] = deps
	o.order = append(o.order, id)
	o.layersCache = nil
	return nil
}

func (o *Orchestrator) desc(id uint64) string {
	if e, ok := o.entries[id]; ok {
		return e.anyToken().Description()
	}
	return "<unknown>"
}

// layers computes (and memoizes) the forward topological layering over
// the registered graph, translating the layering package's generic
// errors into the substrate's ORK1008/ORK1009 vocabulary.
func (o *Orchestrator) layers() ([][]uint64, error) {
	o.mu.Lock()
	if o.layersCache != nil {
		cached := o.layersCache
		o.mu.Unlock()
		return cached, nil
	}
	nodes := make([]graph.Node[uint64], 0, len(o.order))
	for _, id := range o.order {
		nodes = append(nodes, graph.Node[uint64]{Key: id, Dependencies: o.deps[id]})
	}
	o.mu.Unlock()

	computed, err := graph.Layers(nodes)
	if err != nil {
		var ud *graph.UnknownDependencyError[uint64]
		var ce *graph.CycleError[uint64]
		switch {
		case errors.As(err, &ud):
			cause := &UnknownDependencyError{Node: o.desc(ud.Node), Dependency: o.desc(ud.Dependency)}
			return nil, &Error{Code: CodeUnknownDependency, Message: messages[CodeUnknownDependency].message,
				Context: map[string]any{"token": cause.Node, "dependency": cause.Dependency}, Cause: cause}
		case errors.As(err, &ce):
			tokens := make([]string, len(ce.Remaining))
			for i, id := range ce.Remaining {
				tokens[i] = o.desc(id)
			}
			cause := &CycleError{Tokens: tokens}
			return nil, &Error{Code: CodeCycleDetected, Message: messages[CodeCycleDetected].message,
				Context: map[string]any{"tokens": tokens}, Cause: cause}
		default:
			return nil, err
		}
	}

	o.mu.Lock()
	o.layersCache = computed
	o.mu.Unlock()
	return computed, nil
}

func (o *Orchestrator) kernelFor(id uint64) (kernelHandle, error) {
	o.mu.Lock()
	if kh, ok := o.kernels[id]; ok {
		o.mu.Unlock()
		return kh, nil
	}
	entry := o.entries[id]
	o.mu.Unlock()

	kh, err := entry.buildKernel(o.container)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.kernels[id] = kh
	o.mu.Unlock()
	return kh, nil
}

func (o *Orchestrator) resolveTimeout(id uint64, phase Phase) time.Duration {
	o.mu.Lock()
	nt := o.entries[id].nodeTimeouts()
	o.mu.Unlock()

	switch phase {
	case PhaseStart:
		if nt.Start != nil {
			return *nt.Start
		}
		return o.defaults.Start
	case PhaseStop:
		if nt.Stop != nil {
			return *nt.Stop
		}
		return o.defaults.Stop
	default:
		if nt.Destroy != nil {
			return *nt.Destroy
		}
		return o.defaults.Destroy
	}
}

func (o *Orchestrator) detailFor(id uint64, phase Phase, hookCtx HookContext, res PhaseResult) Detail {
	return Detail{Token: o.desc(id), Phase: phase, Context: hookCtx, TimedOut: res.TimedOut, DurationMs: res.DurationMs, Error: res.Err}
}

func (o *Orchestrator) emitComponent(phase Phase, id uint64, res PhaseResult) {
	ev := ComponentEvent{Token: o.desc(id), Phase: phase, OK: res.OK, TimedOut: res.TimedOut, DurationMs: res.DurationMs}
	switch phase {
	case PhaseStart:
		o.Events.ComponentStart.Emit(ev)
	case PhaseStop:
		o.Events.ComponentStop.Emit(ev)
	case PhaseDestroy:
		o.Events.ComponentDestroy.Emit(ev)
	}
}

// startJobResult is the per-component outcome of one queued start job.
type startJobResult struct {
	id  uint64
	res PhaseResult
}

// Start advances every registered component from created to started,
// one topological layer at a time. On the first layer with any
// failure, Start rolls back every currently-started component (across
// this call and any prior one) in reverse layer order and raises
// ORK1013 without advancing further.
func (o *Orchestrator) Start(ctx context.Context) error {
	layers, err := o.layers()
	if err != nil {
		return err
	}

	for layerIdx, layer := range layers {
		var toStart []uint64
		for _, id := range layer {
			kh, err := o.kernelFor(id)
			if err != nil {
				toStart = append(toStart, id) // surfaces as a build/resolve failure below
				continue
			}
			if kh.State() != StateStarted {
				toStart = append(toStart, id)
			}
		}

		jobs := make([]queue.Job[startJobResult], len(toStart))
		for i, id := range toStart {
			id := id
			jobs[i] = queue.Job[startJobResult]{Fn: func(ctx context.Context) (startJobResult, error) {
				kh, err := o.kernelFor(id)
				if err != nil {
					return startJobResult{id: id, res: PhaseResult{Err: err}}, nil
				}
				timeout := o.resolveTimeout(id, PhaseStart)
				return startJobResult{id: id, res: kh.Start(ctx, timeout)}, nil
			}}
		}
		outcomes := queue.Run(ctx, jobs, o.concurrency)

		var layerFailures []Detail
		var trace PhaseTrace
		trace.Phase = PhaseStart
		trace.Layer = layerIdx

		for _, out := range outcomes {
			trace.Outcomes = append(trace.Outcomes, ComponentEvent{Token: o.desc(out.id), Phase: PhaseStart, OK: out.res.OK, TimedOut: out.res.TimedOut, DurationMs: out.res.DurationMs})
			if out.res.Err != nil {
				d := o.detailFor(out.id, PhaseStart, ContextNormal, out.res)
				layerFailures = append(layerFailures, d)
				o.Events.ComponentError.Emit(ComponentErrorEvent{Detail: d})
				continue
			}
			o.emitComponent(PhaseStart, out.id, out.res)
		}
		o.Events.Phase.Emit(trace)

		if len(layerFailures) == 0 {
			continue
		}

		rollbackDetails := o.rollback(ctx, layers)
		allDetails := append(layerFailures, rollbackDetails...)
		return o.diag.Aggregate(CodeAggregateStart, toAnySlice(allDetails), nil)
	}

	return nil
}

// rollback stops every currently-started component in reverse layer
// order (tagged context=rollback) and returns one detail per rolled
// back component, whether or not its stop succeeded — the rollback
// sweep itself is the noteworthy event the aggregate records.
func (o *Orchestrator) rollback(ctx context.Context, layers [][]uint64) []Detail {
	o.mu.Lock()
	var startedIDs []uint64
	for _, id := range o.order {
		if kh, ok := o.kernels[id]; ok && kh.State() == StateStarted {
			startedIDs = append(startedIDs, id)
		}
	}
	o.mu.Unlock()

	buckets := graph.Group(layers, startedIDs)

	var details []Detail
	for _, bucket := range buckets {
		jobs := make([]queue.Job[startJobResult], len(bucket))
		for i, id := range bucket {
			id := id
			jobs[i] = queue.Job[startJobResult]{Fn: func(ctx context.Context) (startJobResult, error) {
				kh, _ := o.kernelFor(id)
				timeout := o.resolveTimeout(id, PhaseStop)
				return startJobResult{id: id, res: kh.Stop(ctx, timeout)}, nil
			}}
		}
		outcomes := queue.Run(ctx, jobs, o.concurrency)
		for _, out := range outcomes {
			d := o.detailFor(out.id, PhaseStop, ContextRollback, out.res)
			details = append(details, d)
			if out.res.Err != nil {
				o.Events.ComponentError.Emit(ComponentErrorEvent{Detail: d})
				continue
			}
			o.emitComponent(PhaseStop, out.id, out.res)
		}
	}
	return details
}

// Stop transitions every currently-started component to stopped, one
// reverse-order layer at a time, attempting every component regardless
// of earlier failures and aggregating them all into a single ORK1014.
func (o *Orchestrator) Stop(ctx context.Context) error {
	layers, err := o.layers()
	if err != nil {
		return err
	}

	var details []Detail
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		var toStop []uint64
		for _, id := range layer {
			o.mu.Lock()
			kh, ok := o.kernels[id]
			o.mu.Unlock()
			if ok && kh.State() == StateStarted {
				toStop = append(toStop, id)
			}
		}

		jobs := make([]queue.Job[startJobResult], len(toStop))
		for j, id := range toStop {
			id := id
			jobs[j] = queue.Job[startJobResult]{Fn: func(ctx context.Context) (startJobResult, error) {
				kh, _ := o.kernelFor(id)
				timeout := o.resolveTimeout(id, PhaseStop)
				return startJobResult{id: id, res: kh.Stop(ctx, timeout)}, nil
			}}
		}
		outcomes := queue.Run(ctx, jobs, o.concurrency)

		var trace PhaseTrace
		trace.Phase = PhaseStop
		trace.Layer = i
		for _, out := range outcomes {
			trace.Outcomes = append(trace.Outcomes, ComponentEvent{Token: o.desc(out.id), Phase: PhaseStop, OK: out.res.OK, TimedOut: out.res.TimedOut, DurationMs: out.res.DurationMs})
			if out.res.Err != nil {
				d := o.detailFor(out.id, PhaseStop, ContextNormal, out.res)
				details = append(details, d)
				o.Events.ComponentError.Emit(ComponentErrorEvent{Detail: d})
				continue
			}
			o.emitComponent(PhaseStop, out.id, out.res)
		}
		o.Events.Phase.Emit(trace)
	}

	if len(details) == 0 {
		return nil
	}
	return o.diag.Aggregate(CodeAggregateStop, toAnySlice(details), nil)
}

// Destroy visits every non-destroyed component in reverse layer order,
// stopping it first if still started, then destroying it, attempting
// every component regardless of earlier failures. It finally destroys
// the backing container and folds its failures in, raising a single
// ORK1017 if anything failed anywhere in the traversal.
func (o *Orchestrator) Destroy(ctx context.Context) error {
	layers, err := o.layers()
	if err != nil {
		return err
	}

	var details []Detail
	for i := len(layers) - 1; i >= 0; i-- {
		layer := layers[i]
		var toDestroy []uint64
		for _, id := range layer {
			kh, err := o.kernelFor(id)
			if err != nil {
				d := Detail{Token: o.desc(id), Phase: PhaseDestroy, Context: ContextNormal, Error: err}
				details = append(details, d)
				o.Events.ComponentError.Emit(ComponentErrorEvent{Detail: d})
				continue
			}
			if kh.State() != StateDestroyed {
				toDestroy = append(toDestroy, id)
			}
		}

		jobs := make([]queue.Job[[]Detail], len(toDestroy))
		for j, id := range toDestroy {
			id := id
			jobs[j] = queue.Job[[]Detail]{Fn: func(ctx context.Context) ([]Detail, error) {
				var ds []Detail
				kh, err := o.kernelFor(id)
				if err != nil {
					ds = append(ds, Detail{Token: o.desc(id), Phase: PhaseDestroy, Context: ContextNormal, Error: err})
					return ds, nil
				}
				if kh.State() == StateStarted {
					stopTimeout := o.resolveTimeout(id, PhaseStop)
					if res := kh.Stop(ctx, stopTimeout); res.Err != nil {
						ds = append(ds, o.detailFor(id, PhaseStop, ContextNormal, res))
					}
				}
				destroyTimeout := o.resolveTimeout(id, PhaseDestroy)
				res := kh.Destroy(ctx, destroyTimeout)
				if res.Err != nil {
					ds = append(ds, o.detailFor(id, PhaseDestroy, ContextNormal, res))
				} else {
					o.emitComponent(PhaseDestroy, id, res)
				}
				return ds, nil
			}}
		}
		outcomes := queue.Run(ctx, jobs, o.concurrency)
		for _, out := range outcomes {
			for _, d := range out.Value {
				details = append(details, d)
				o.Events.ComponentError.Emit(ComponentErrorEvent{Detail: d})
			}
		}
	}

	if err := o.container.Destroy(ctx); err != nil {
		var agg *AggregateError
		if errors.As(err, &agg) {
			details = append(details, agg.Details...)
		} else {
			details = append(details, Detail{Token: "container", Phase: PhaseDestroy, Context: ContextContainer, Error: err})
		}
	}

	if len(details) == 0 {
		return nil
	}
	return o.diag.Aggregate(CodeAggregateDestroy, toAnySlice(details), nil)
}

func toAnySlice(details []Detail) []any {
	out := make([]any, len(details))
	for i, d := range details {
		out[i] = d
	}
	return out
}
