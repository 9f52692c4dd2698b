package engine

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/neobank/internal/audit"
	"github.com/roach88/neobank/internal/metrics"
	"github.com/roach88/neobank/internal/model"
	"github.com/roach88/neobank/internal/risk"
	"github.com/roach88/neobank/internal/store"
	"github.com/roach88/neobank/internal/telemetry"
	"github.com/roach88/neobank/internal/vault"
)

// Env carries the collaborators every engine operation needs. Build it
// with NewEnv and share one Env between the engines of a process.
type Env struct {
	Store     *store.Store
	Clock     Clock
	OpIDs     OpIDGenerator
	Transfers *vault.Transfers
	Screener  risk.Screener
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

// Option configures an Env.
type Option func(*Env)

// WithClock sets the host clock. Default: monotonic wall clock.
func WithClock(c Clock) Option {
	return func(e *Env) { e.Clock = c }
}

// WithOpIDs sets the operation id generator. Default: UUIDv7.
func WithOpIDs(g OpIDGenerator) Option {
	return func(e *Env) { e.OpIDs = g }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) { e.Logger = l }
}

// WithMetrics sets the metrics sink. Default: nil (no metrics).
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Env) { e.Metrics = m }
}

// WithTracer sets the tracer. Default: the global NeoBank tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Env) { e.Tracer = t }
}

// WithScreener replaces the destination risk screener.
func WithScreener(s risk.Screener) Option {
	return func(e *Env) { e.Screener = s }
}

// NewEnv creates an Env over s.
func NewEnv(s *store.Store, opts ...Option) *Env {
	e := &Env{
		Store:    s,
		Clock:    NewMonotonicClock(SystemClock{}),
		OpIDs:    UUIDv7Generator{},
		Screener: risk.Default,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Transfers = vault.New(e.Logger)
	return e
}

// Op is one engine operation in flight.
type Op struct {
	// Tx is the operation's transaction.
	Tx *store.Tx
	// ID is the operation id stamped on every emitted event.
	ID string
	// Now is the host clock reading taken when the operation started.
	Now int64
	// Name is the operation name used for spans, metrics and logs.
	Name string

	env          *Env
	commitOnFail bool
	events       []audit.Event
}

// Emit appends an audit event inside the operation's transaction.
func (o *Op) Emit(kind audit.Kind, subject string, payload audit.Fields) error {
	ev, err := audit.New(o.ID, kind, subject, o.Now, payload)
	if err != nil {
		return err
	}
	ev, err = o.Tx.AppendEvent(ev)
	if err != nil {
		return err
	}
	o.events = append(o.events, ev)
	return nil
}

// Move transfers funds through the vault transfer service.
func (o *Op) Move(from, to model.Identity, amount uint64) error {
	return o.env.Transfers.Move(o.Tx, from, to, amount)
}

// Mint credits newly created funds to an account.
func (o *Op) Mint(to model.Identity, amount uint64) error {
	return o.env.Transfers.Mint(o.Tx, to, amount)
}

// Logger returns a logger annotated with the operation.
func (o *Op) Logger() *slog.Logger {
	return o.env.Logger.With("op", o.Name, "op_id", o.ID)
}

// CommitAndFail marks every write made so far as durable and returns err.
// The operation still fails with err.
func (o *Op) CommitAndFail(err error) error {
	o.commitOnFail = true
	return err
}

// Result describes a finished operation.
type Result struct {
	OpID   string
	At     int64
	Events []audit.Event
}

// Update runs fn as a state-mutating operation. See the package
// documentation for the commit rules.
func (e *Env) Update(ctx context.Context, name string, fn func(op *Op) error) (Result, error) {
	return e.run(ctx, name, true, fn)
}

// View runs fn as a read-only operation. Nothing it writes is kept.
func (e *Env) View(ctx context.Context, name string, fn func(op *Op) error) (Result, error) {
	return e.run(ctx, name, false, fn)
}

func (e *Env) run(ctx context.Context, name string, write bool, fn func(op *Op) error) (Result, error) {
	ctx, span := e.Tracer.Start(ctx, "neobank."+name)
	defer span.End()

	op := &Op{
		ID:   e.OpIDs.Generate(),
		Now:  e.Clock.Now(),
		Name: name,
		env:  e,
	}
	span.SetAttributes(
		attribute.String("neobank.op_id", op.ID),
		attribute.Int64("neobank.now", op.Now),
	)

	var opErr error
	body := func(tx *store.Tx) error {
		op.Tx = tx
		if err := fn(op); err != nil {
			if op.commitOnFail {
				opErr = err
				return nil
			}
			return err
		}
		return nil
	}

	var err error
	if write {
		err = e.Store.Update(ctx, body)
	} else {
		err = e.Store.View(ctx, body)
	}
	if err == nil {
		err = opErr
	}

	res := Result{OpID: op.ID, At: op.Now}
	if err == nil || opErr != nil {
		res.Events = op.events
	}

	code := model.CodeOf(err)
	e.Metrics.Operation(name, string(code))
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case code != "":
		span.SetAttributes(attribute.String("neobank.error_code", string(code)))
		span.SetStatus(codes.Error, string(code))
		e.Logger.Info("operation rejected", "op", name, "op_id", op.ID, "code", string(code))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.Logger.Error("operation failed", "op", name, "op_id", op.ID, "error", err)
	}
	return res, err
}
