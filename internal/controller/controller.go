package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mesh-intelligence/agencydesk/internal/store"
	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// Recorder receives one measurement per finished mutation.
type Recorder interface {
	ObserveMutation(collection, kind, result string, elapsed time.Duration)
}

// Results reported to a Recorder.
const (
	ResultSuccess   = "success"
	ResultInvalid   = "invalid"
	ResultFailure   = "failure"
	ResultStale     = "stale"
	ResultAbandoned = "abandoned"
	ResultRejected  = "rejected"
)

// Options configures a Controller. The zero value is usable: single in-flight
// policy, no logging, no metrics, no observers.
type Options struct {
	// Concurrency is types.ConcurrencySingle (default) or
	// types.ConcurrencyPerAction.
	Concurrency string
	Logger      *zap.SugaredLogger
	Recorder    Recorder
	Observer    Observer
	// Notify receives the feedback of every action that reaches validation.
	Notify func(Notice)
}

// Outcome describes how a mutation ended. Phase is PhaseSucceeded or
// PhaseFailed once the gateway was called, and PhaseIdle when the mutation
// was turned away before any gateway call.
type Outcome struct {
	Kind   Kind
	ID     string
	Phase  Phase
	Record types.Record
	Notice Notice
	// Refresh is set when the gateway reported the record gone and the
	// store should be reloaded.
	Refresh bool
}

// Succeeded reports whether the mutation was confirmed and applied.
func (o Outcome) Succeeded() bool {
	return o.Phase == PhaseSucceeded
}

type flightKey struct {
	kind Kind
	id   string
}

type mutation struct {
	key     flightKey
	lc      *lifecycle
	started time.Time
}

// Controller runs the mutations of one collection against a gateway and keeps
// the collection's store in step with confirmed results.
type Controller struct {
	spec  types.CollectionSpec
	gw    types.Gateway
	store *store.Store
	opts  Options
	log   *zap.SugaredLogger

	life   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[flightKey]struct{}
	closed   bool
}

// New creates a Controller for spec backed by gw, with an empty store.
func New(spec types.CollectionSpec, gw types.Gateway, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Concurrency == "" {
		opts.Concurrency = types.ConcurrencySingle
	}
	life, cancel := context.WithCancel(context.Background())
	return &Controller{
		spec:     spec,
		gw:       gw,
		store:    store.New(),
		opts:     opts,
		log:      log.With("collection", spec.Name),
		life:     life,
		cancel:   cancel,
		inflight: map[flightKey]struct{}{},
	}
}

// Store returns the record store the controller owns. Callers must treat it
// as read-only.
func (c *Controller) Store() *store.Store {
	return c.store
}

// Spec returns the collection schema.
func (c *Controller) Spec() types.CollectionSpec {
	return c.spec
}

// Busy reports whether any mutation is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight) > 0
}

// Load replaces the store with the gateway's full record list.
func (c *Controller) Load(ctx context.Context) error {
	if c.isClosed() {
		return types.ErrControllerClosed
	}
	seq := c.store.Issue()
	callCtx, done := c.callContext(ctx)
	records, err := c.gw.List(callCtx)
	done()
	if c.life.Err() != nil {
		c.log.Infow("abandoned list result", "records", len(records))
		return types.ErrAbandoned
	}
	if err != nil {
		err = classify("list", err)
		c.log.Warnw("list failed", "error", err)
		c.notify(noticeFor(err))
		return err
	}
	if err := c.store.Replace(seq, records); err != nil {
		if !errors.Is(err, types.ErrStaleResponse) {
			err = &types.GatewayError{Op: "list", Err: err}
		}
		c.log.Warnw("list result rejected", "error", err)
		return err
	}
	c.log.Debugw("loaded", "records", len(records))
	return nil
}

// Refresh reloads the store. It is Load under the name used after a
// NotFoundError.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

// Create validates fields, asks the gateway to create the record, and appends
// the confirmed record to the store.
func (c *Controller) Create(ctx context.Context, fields types.Fields) (Outcome, error) {
	var payload types.Fields
	return c.run(ctx, KindCreate, "",
		func() error {
			if err := Validate(c.spec, fields, true); err != nil {
				return err
			}
			payload = c.outbound(fields)
			return nil
		},
		func(ctx context.Context) (types.Record, error) {
			return c.gw.Create(ctx, payload)
		},
		func(seq uint64, rec types.Record) error {
			if !rec.Saved() {
				return &types.GatewayError{Op: "create", Message: "create: response carried no record identifier"}
			}
			c.keepToggles(rec.Fields, fields)
			return c.store.Append(seq, rec)
		},
	)
}

// Update validates the record's full field set with fields applied over it,
// sends it to the gateway, and replaces the record in place on success.
func (c *Controller) Update(ctx context.Context, id string, fields types.Fields) (Outcome, error) {
	var payload types.Fields
	return c.run(ctx, KindUpdate, id,
		func() error {
			current, err := c.target(id)
			if err != nil {
				return err
			}
			full := current.Fields.Clone()
			if full == nil {
				full = types.Fields{}
			}
			for k, v := range fields {
				full[k] = v
			}
			if err := Validate(c.spec, full, false); err != nil {
				return err
			}
			payload = c.outbound(full)
			return nil
		},
		func(ctx context.Context) (types.Record, error) {
			return c.gw.Update(ctx, id, payload)
		},
		func(seq uint64, rec types.Record) error {
			rec.ID = id
			// A message-only acknowledgement keeps the fields that were sent.
			if rec.Fields == nil {
				rec.Fields = payload.Clone()
			}
			if current, ok := c.store.Get(id); ok {
				c.keepToggles(rec.Fields, current.Fields)
			}
			return c.store.Apply(seq, rec)
		},
	)
}

// Delete asks the gateway to remove record id and drops it from the store on
// success. Records whose protected flag is set are refused locally.
func (c *Controller) Delete(ctx context.Context, id string) (Outcome, error) {
	return c.run(ctx, KindDelete, id,
		func() error {
			current, err := c.target(id)
			if err != nil {
				return err
			}
			if flag := c.spec.ProtectedFlag; flag != "" {
				if protected, _ := current.Fields[flag].(bool); protected {
					ve := &types.ValidationError{Fields: map[string]string{
						flag: fmt.Sprintf("System %s cannot be deleted", c.spec.Name),
					}}
					return fmt.Errorf("%w: %w", types.ErrProtectedRecord, ve)
				}
			}
			return nil
		},
		func(ctx context.Context) (types.Record, error) {
			return types.Record{ID: id}, c.gw.Remove(ctx, id)
		},
		func(seq uint64, _ types.Record) error {
			return c.store.Remove(seq, id)
		},
	)
}

// ToggleLocal flips a boolean field declared as a local toggle and returns the
// new value. The change is made in the store only; no gateway call is made and
// the value is lost on the next Load.
func (c *Controller) ToggleLocal(id, field string) (bool, error) {
	if c.isClosed() {
		return false, types.ErrControllerClosed
	}
	if !c.spec.IsToggle(field) {
		return false, fmt.Errorf("%w: %s", types.ErrNotToggleable, field)
	}
	current, ok := c.store.Get(id)
	if !ok {
		return false, fmt.Errorf("%w: %s", types.ErrUnknownRecord, id)
	}
	on, _ := current.Fields[field].(bool)
	if err := c.store.SetField(id, field, !on); err != nil {
		return false, err
	}
	c.log.Debugw("local toggle", "id", id, "field", field, "value", !on)
	return !on, nil
}

// Close abandons every pending mutation. Results that arrive afterwards are
// dropped and their calls return types.ErrAbandoned. Close is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.cancel()
	if n := len(c.inflight); n > 0 {
		c.log.Infow("closing with pending mutations", "pending", n)
	}
	return nil
}

// run drives one mutation through its lifecycle. validate runs before any
// gateway call, call is the single gateway round trip, and apply writes the
// confirmed result to the store.
func (c *Controller) run(
	ctx context.Context,
	kind Kind,
	id string,
	validate func() error,
	call func(context.Context) (types.Record, error),
	apply func(seq uint64, rec types.Record) error,
) (Outcome, error) {
	out := Outcome{Kind: kind, ID: id, Phase: PhaseIdle}
	m, err := c.begin(ctx, kind, id)
	if err != nil {
		c.log.Debugw("mutation refused", "kind", kind, "id", id, "error", err)
		c.observe(kind, ResultRejected, time.Now())
		out.Notice = noticeFor(err)
		return out, err
	}
	defer c.release(m)

	if err := validate(); err != nil {
		c.fire(ctx, m, EventReject)
		c.observe(kind, ResultInvalid, m.started)
		out.Notice = noticeFor(err)
		c.notify(out.Notice)
		return out, err
	}

	seq := c.store.Issue()
	c.fire(ctx, m, EventSubmit)
	callCtx, done := c.callContext(ctx)
	rec, err := call(callCtx)
	done()

	if c.life.Err() != nil {
		c.fire(ctx, m, EventFail)
		c.fire(ctx, m, EventSettle)
		c.log.Infow("abandoned mutation result", "kind", kind, "id", id)
		c.observe(kind, ResultAbandoned, m.started)
		out.Phase = PhaseFailed
		return out, types.ErrAbandoned
	}
	if err != nil {
		err = classify(string(kind), err)
		return c.fail(ctx, m, out, err, ResultFailure)
	}
	if err := apply(seq, rec); err != nil {
		result := ResultFailure
		if errors.Is(err, types.ErrStaleResponse) {
			result = ResultStale
		}
		return c.fail(ctx, m, out, err, result)
	}

	c.fire(ctx, m, EventSucceed)
	out.Phase = m.lc.current()
	if kind == KindCreate {
		out.ID = rec.ID
	}
	if got, ok := c.store.Get(out.ID); ok {
		out.Record = got
	} else {
		out.Record = rec
	}
	out.Notice = Notice{Level: LevelSuccess, Message: c.successMessage(kind)}
	c.notify(out.Notice)
	c.fire(ctx, m, EventSettle)
	c.observe(kind, ResultSuccess, m.started)
	c.log.Debugw("mutation applied", "kind", kind, "id", out.ID, "seq", seq)
	return out, nil
}

func (c *Controller) fail(ctx context.Context, m *mutation, out Outcome, err error, result string) (Outcome, error) {
	c.fire(ctx, m, EventFail)
	out.Phase = m.lc.current()
	out.Notice = noticeFor(err)
	out.Refresh = types.NeedsRefresh(err)
	c.notify(out.Notice)
	c.fire(ctx, m, EventSettle)
	c.observe(m.key.kind, result, m.started)
	c.log.Warnw("mutation failed", "kind", m.key.kind, "id", m.key.id, "error", err)
	return out, err
}

// begin registers a mutation with the in-flight tracker and moves it to
// validating.
func (c *Controller) begin(ctx context.Context, kind Kind, id string) (*mutation, error) {
	key := flightKey{kind: kind, id: id}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, types.ErrControllerClosed
	}
	busy := len(c.inflight) > 0
	if c.opts.Concurrency == types.ConcurrencyPerAction {
		_, busy = c.inflight[key]
	}
	if busy {
		c.mu.Unlock()
		return nil, types.ErrMutationInFlight
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	m := &mutation{key: key, started: time.Now()}
	m.lc = newLifecycle(func(from, to Phase) {
		c.log.Debugw("mutation transition", "kind", kind, "id", id, "from", from, "to", to)
		if c.opts.Observer != nil {
			c.opts.Observer(Transition{Collection: c.spec.Name, Kind: kind, ID: id, From: from, To: to})
		}
	})
	c.fire(ctx, m, EventValidate)
	return m, nil
}

func (c *Controller) release(m *mutation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, m.key)
}

func (c *Controller) fire(ctx context.Context, m *mutation, event string) {
	if err := m.lc.fire(ctx, event); err != nil {
		c.log.Errorw("lifecycle event refused", "event", event, "phase", m.lc.current(), "error", err)
	}
}

// callContext derives the context of one gateway call. It is cancelled when
// the caller's context ends or the controller is closed.
func (c *Controller) callContext(ctx context.Context) (context.Context, func()) {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

// target returns the stored record a mutation of id applies to.
func (c *Controller) target(id string) (types.Record, error) {
	if id == "" {
		return types.Record{}, types.ErrUnsavedRecord
	}
	current, ok := c.store.Get(id)
	if !ok {
		return types.Record{}, fmt.Errorf("%w: %s", types.ErrUnknownRecord, id)
	}
	return current, nil
}

// outbound strips fields that must never reach the gateway: transient form
// fields and local toggles.
func (c *Controller) outbound(fields types.Fields) types.Fields {
	drop := make([]string, 0, len(c.spec.Transient)+len(c.spec.LocalToggles))
	drop = append(drop, c.spec.Transient...)
	drop = append(drop, c.spec.LocalToggles...)
	return fields.Without(drop...)
}

// keepToggles copies local toggle values from src into dst.
func (c *Controller) keepToggles(dst, src types.Fields) {
	if dst == nil {
		return
	}
	for _, f := range c.spec.LocalToggles {
		if v, ok := src[f]; ok {
			dst[f] = v
		}
	}
}

func (c *Controller) successMessage(kind Kind) string {
	noun := c.spec.Singular
	if noun == "" {
		noun = "record"
	}
	verb := map[Kind]string{KindCreate: "added", KindUpdate: "updated", KindDelete: "deleted"}[kind]
	return fmt.Sprintf("%s %s successfully", cases.Title(language.English, cases.NoLower).String(noun), verb)
}

func (c *Controller) notify(n Notice) {
	if c.opts.Notify != nil {
		c.opts.Notify(n)
	}
}

func (c *Controller) observe(kind Kind, result string, started time.Time) {
	if c.opts.Recorder != nil {
		c.opts.Recorder.ObserveMutation(c.spec.Name, string(kind), result, time.Since(started))
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// classify maps a gateway failure onto the error taxonomy. Errors already in
// the taxonomy pass through; anything else, timeouts included, becomes a
// GatewayError.
func classify(op string, err error) error {
	var (
		ve *types.ValidationError
		ae *types.AuthError
		ge *types.GatewayError
		nf *types.NotFoundError
	)
	if errors.As(err, &ve) || errors.As(err, &ae) || errors.As(err, &ge) || errors.As(err, &nf) {
		return err
	}
	return &types.GatewayError{Op: op, Err: err}
}
