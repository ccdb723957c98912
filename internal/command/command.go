// Package command implements the adapter between string command arguments
// and interval-set store operations: argument parsing and validation, key
// resolution, type checking, and typed replies. Validation is all-or-nothing
// per command; no mutation is applied before every argument has parsed.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/isetdb/internal/observability"
	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

// Sentinel errors forming the adapter's error taxonomy.
var (
	// ErrUnknownCommand is returned for an unrecognized command name.
	ErrUnknownCommand = errors.New("command: unknown command")

	// ErrSyntax is returned when the argument count does not match the
	// command's arity.
	ErrSyntax = errors.New("command: wrong number of arguments")

	// ErrNotANumber is returned when a score argument does not parse as a
	// well-formed real.
	ErrNotANumber = errors.New("command: score is not a valid number")

	// ErrInvertedInterval is returned when a left score exceeds its right
	// score.
	ErrInvertedInterval = errors.New("command: left score is greater than right score")
)

// scoresPerInterval is the argument arity of one interval triple.
const scoresPerInterval = 3

// Command names.
const (
	CmdIAdd      = "IADD"
	CmdIUpsert   = "IUPSERT"
	CmdIRem      = "IREM"
	CmdIExists   = "IEXISTS"
	CmdIOverlap  = "IOVERLAP"
	CmdICard     = "ICARD"
	CmdDel       = "DEL"
	CmdKeys      = "KEYS"
	CmdHibernate = "HIBERNATE"
)

// handler executes one parsed command against the store.
type handler func(ctx context.Context, args []string) (Reply, error)

// Dispatcher routes command argument vectors to store operations. Commands
// execute serially with respect to one Dispatcher; the store relies on that
// to keep each interval set single-writer.
type Dispatcher struct {
	db       *store.DB
	logger   *slog.Logger
	metrics  *observability.CommandMetrics
	tracer   trace.Tracer
	handlers map[string]handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics enables per-command RED metrics.
func WithMetrics(metrics *observability.CommandMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// WithTracer enables a span per command.
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tracer
	}
}

// NewDispatcher creates a dispatcher over the given key table.
func NewDispatcher(db *store.DB, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		db:     db,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.handlers = map[string]handler{
		CmdIAdd:      func(ctx context.Context, args []string) (Reply, error) { return d.addGeneric(ctx, args, false) },
		CmdIUpsert:   func(ctx context.Context, args []string) (Reply, error) { return d.addGeneric(ctx, args, true) },
		CmdIRem:      d.rem,
		CmdIExists:   d.exists,
		CmdIOverlap:  d.overlap,
		CmdICard:     d.card,
		CmdDel:       d.del,
		CmdKeys:      d.keys,
		CmdHibernate: d.hibernate,
	}

	return d
}

// Execute parses and runs one command. argv[0] is the case-insensitive
// command name; the rest are its arguments.
func (d *Dispatcher) Execute(ctx context.Context, argv []string) (Reply, error) {
	if len(argv) == 0 {
		return nil, ErrSyntax
	}

	name := strings.ToUpper(argv[0])

	run, known := d.handlers[name]
	if !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, argv[0])
	}

	if d.tracer != nil {
		var span trace.Span

		ctx, span = d.tracer.Start(ctx, "command."+name,
			trace.WithAttributes(attribute.String("command", name)),
		)
		defer span.End()
	}

	start := time.Now()

	if d.metrics != nil {
		done := d.metrics.TrackInflight(ctx, name)
		defer done()
	}

	reply, err := run(ctx, argv[1:])

	if d.metrics != nil {
		status := observability.StatusOK
		if err != nil {
			status = observability.StatusError
		}

		d.metrics.RecordCommand(ctx, name, status, time.Since(start))
	}

	if err != nil {
		d.logger.DebugContext(ctx, "command failed", "command", name, "error", err)

		return nil, err
	}

	return reply, nil
}

// interval is one parsed (low, high, member) triple.
type interval struct {
	low    float64
	high   float64
	member string
}

// parseScore parses a score argument, rejecting NaN which has no place in a
// total order.
func parseScore(arg string) (float64, error) {
	score, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(score) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, arg)
	}

	return score, nil
}

// parseTriples validates and parses the repeated (low, high, member) tail of
// an add command. Parsing happens before any mutation so a malformed triple
// aborts the whole command.
func parseTriples(args []string) ([]interval, error) {
	if len(args) == 0 || len(args)%scoresPerInterval != 0 {
		return nil, ErrSyntax
	}

	intervals := make([]interval, 0, len(args)/scoresPerInterval)

	for at := 0; at < len(args); at += scoresPerInterval {
		low, err := parseScore(args[at])
		if err != nil {
			return nil, err
		}

		high, err := parseScore(args[at+1])
		if err != nil {
			return nil, err
		}

		if low > high {
			return nil, fmt.Errorf("%w: [%s, %s]", ErrInvertedInterval, args[at], args[at+1])
		}

		intervals = append(intervals, interval{low: low, high: high, member: args[at+2]})
	}

	return intervals, nil
}

// addGeneric implements IADD and IUPSERT: key followed by interval triples.
// The key is resolved only after every triple has validated.
func (d *Dispatcher) addGeneric(ctx context.Context, args []string, upsert bool) (Reply, error) {
	if len(args) < 1+scoresPerInterval {
		return nil, ErrSyntax
	}

	key := args[0]

	intervals, err := parseTriples(args[1:])
	if err != nil {
		return nil, err
	}

	set, err := d.db.EnsureIntervalSet(key)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", key, err)
	}

	added := 0

	for _, iv := range intervals {
		var ok bool

		if upsert {
			ok, err = set.Upsert(iv.low, iv.high, iv.member)
		} else {
			ok, err = set.Add(iv.low, iv.high, iv.member)
		}

		// Inverted intervals were rejected during parsing.
		doAssertNoErr(err)

		if ok {
			added++
		}
	}

	d.logger.DebugContext(ctx, "intervals added", "key", key, "added", added, "upsert", upsert)

	return IntReply(added), nil
}

// rem implements IREM key member.
func (d *Dispatcher) rem(ctx context.Context, args []string) (Reply, error) {
	if len(args) != 2 {
		return nil, ErrSyntax
	}

	key, member := args[0], args[1]

	set, err := d.db.IntervalSet(key)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", key, err)
	}

	if set == nil {
		return BoolReply(false), nil
	}

	removed := set.Remove(member)
	if removed && set.Len() == 0 {
		d.db.DropIfEmpty(key)
		d.logger.DebugContext(ctx, "key destroyed after last removal", "key", key)
	}

	return BoolReply(removed), nil
}

// exists implements IEXISTS key member.
func (d *Dispatcher) exists(_ context.Context, args []string) (Reply, error) {
	if len(args) != 2 {
		return nil, ErrSyntax
	}

	set, err := d.db.IntervalSet(args[0])
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", args[0], err)
	}

	if set == nil {
		return BoolReply(false), nil
	}

	return BoolReply(set.Contains(args[1])), nil
}

// overlap implements IOVERLAP key left right.
func (d *Dispatcher) overlap(_ context.Context, args []string) (Reply, error) {
	if len(args) != 3 {
		return nil, ErrSyntax
	}

	low, err := parseScore(args[1])
	if err != nil {
		return nil, err
	}

	high, err := parseScore(args[2])
	if err != nil {
		return nil, err
	}

	if low > high {
		return nil, fmt.Errorf("%w: [%s, %s]", ErrInvertedInterval, args[1], args[2])
	}

	set, err := d.db.IntervalSet(args[0])
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", args[0], err)
	}

	rows := RowsReply{}

	if set != nil {
		for entry := range set.Overlap(low, high) {
			rows = append(rows, entry)
		}
	}

	return rows, nil
}

// card implements ICARD key.
func (d *Dispatcher) card(_ context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return nil, ErrSyntax
	}

	set, err := d.db.IntervalSet(args[0])
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", args[0], err)
	}

	if set == nil {
		return IntReply(0), nil
	}

	return IntReply(set.Len()), nil
}

// del implements DEL key.
func (d *Dispatcher) del(_ context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return nil, ErrSyntax
	}

	return BoolReply(d.db.Delete(args[0])), nil
}

// keys implements KEYS.
func (d *Dispatcher) keys(_ context.Context, args []string) (Reply, error) {
	if len(args) != 0 {
		return nil, ErrSyntax
	}

	return KeysReply(d.db.Keys()), nil
}

// hibernate implements HIBERNATE key.
func (d *Dispatcher) hibernate(_ context.Context, args []string) (Reply, error) {
	if len(args) != 1 {
		return nil, ErrSyntax
	}

	err := d.db.Hibernate(args[0])
	if err != nil {
		return nil, fmt.Errorf("hibernate %q: %w", args[0], err)
	}

	return OKReply{}, nil
}

// doAssertNoErr guards paths where an error is structurally impossible.
func doAssertNoErr(err error) {
	if err != nil {
		panic("command internal assertion failed: " + err.Error())
	}
}
