package orkestrel

import (
	"os"

	"github.com/rs/zerolog"
)

// defaultLogger returns a console-writer zerolog.Logger, used wherever
// a caller constructs a Diagnostic/Container/Orchestrator without
// supplying one of their own.
func defaultLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// messageEntry is one row of the read-only code -> {level, template} map.
type messageEntry struct {
	level   zerolog.Level
	message string
}

// messages is the canonical ORK10xx vocabulary. Diagnostic.resolve falls
// back to the code string itself when a key isn't present here, so a
// caller can pass an ad hoc code without the substrate panicking.
var messages = map[Code]messageEntry{
	CodeContainerDestroyed:  {zerolog.ErrorLevel, "container already destroyed"},
	CodeProviderNotFound:    {zerolog.ErrorLevel, "no provider registered for token"},
	CodeInvalidRegistration: {zerolog.ErrorLevel, "duplicate registration or invalid provider"},
	CodeUnknownDependency:   {zerolog.ErrorLevel, "dependency references an unknown token"},
	CodeCycleDetected:       {zerolog.ErrorLevel, "cycle detected in dependency graph"},
	CodeAsyncValue:          {zerolog.ErrorLevel, "value provider is asynchronous"},
	CodeAsyncFactory:        {zerolog.ErrorLevel, "factory provider is asynchronous"},
	CodeAsyncClass:          {zerolog.ErrorLevel, "class provider is asynchronous"},
	CodeAggregateStart:      {zerolog.ErrorLevel, "one or more components failed to start"},
	CodeAggregateStop:       {zerolog.ErrorLevel, "one or more components failed to stop"},
	CodeAggregateDestroy:    {zerolog.ErrorLevel, "one or more components failed to destroy"},
	CodeInvalidTransition:   {zerolog.ErrorLevel, "invalid lifecycle transition"},
	CodeHookTimeout:         {zerolog.WarnLevel, "hook timed out"},
	CodeHookFailed:          {zerolog.ErrorLevel, "hook failed"},
	CodeCircularResolution:  {zerolog.ErrorLevel, "circular dependency during resolution"},
	CodeInternalInvariant:   {zerolog.ErrorLevel, "internal invariant violation"},
}

// Diagnostic is the single vocabulary for logging and failure reporting
// that every other subsystem routes through. It never re-throws: a
// panicking log sink is recovered and silently dropped, matching the
// "listeners must never propagate back through the substrate" contract.
type Diagnostic struct {
	logger zerolog.Logger
}

// NewDiagnostic wraps logger as the substrate's sink.
func NewDiagnostic(logger zerolog.Logger) *Diagnostic {
	return &Diagnostic{logger: logger}
}

func (d *Diagnostic) resolve(code Code) messageEntry {
	if e, ok := messages[code]; ok {
		return e
	}
	return messageEntry{level: zerolog.InfoLevel, message: string(code)}
}

// Log resolves code through the message map (falling back to the code
// string as a literal message) and emits it with the given fields.
func (d *Diagnostic) Log(code Code, fields map[string]any) {
	defer func() { _ = recover() }()

	entry := d.resolve(code)
	ev := d.logger.WithLevel(entry.level)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Str("code", string(code)).Msg(entry.message)
}

// LogError logs an already-failing error without raising it further.
func (d *Diagnostic) LogError(err error, context map[string]any) {
	defer func() { _ = recover() }()

	ev := d.logger.Error().Err(err)
	for k, v := range context {
		ev = ev.Interface(k, v)
	}
	ev.Msg("error")
}

// Help builds a typed *Error for code without raising it.
func (d *Diagnostic) Help(code Code, ctx map[string]any) *Error {
	entry := d.resolve(code)
	return &Error{Code: code, Message: entry.message, Context: ctx}
}

// Fail builds a typed error for code and returns it for the caller to
// return; named Fail rather than a panic to keep Go's explicit-error
// idiom instead of the source's throw-based one.
func (d *Diagnostic) Fail(code Code, ctx map[string]any) error {
	err := d.Help(code, ctx)
	d.LogError(err, ctx)
	return err
}

// FailWithCause is Fail, but wraps a sentinel so callers on the other
// side of the package boundary can match with errors.Is instead of
// comparing Code directly.
func (d *Diagnostic) FailWithCause(code Code, ctx map[string]any, cause error) error {
	err := d.Help(code, ctx)
	err.Cause = cause
	d.LogError(err, ctx)
	return err
}

// Aggregate normalizes a mixed list of Details and bare errors into
// Details (bare errors default to phase=start, context=normal,
// timedOut=false, durationMs=0), then returns a single *AggregateError.
func (d *Diagnostic) Aggregate(code Code, items []any, ctx map[string]any) error {
	details := make([]Detail, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case Detail:
			details = append(details, v)
		case error:
			details = append(details, Detail{Phase: PhaseStart, Context: ContextNormal, Error: v})
		}
	}
	entry := d.resolve(code)
	agg := newAggregate(code, entry.message, details)
	d.LogError(agg, ctx)
	return agg
}
