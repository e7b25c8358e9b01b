package controller

import (
	"context"

	"github.com/looplab/fsm"
)

// Phase is a state of the mutation lifecycle.
type Phase string

// Lifecycle phases.
const (
	PhaseIdle       Phase = "idle"
	PhaseValidating Phase = "validating"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// Lifecycle events.
const (
	EventValidate = "validate"
	EventReject   = "reject"
	EventSubmit   = "submit"
	EventSucceed  = "succeed"
	EventFail     = "fail"
	EventSettle   = "settle"
)

// Kind identifies a mutation.
type Kind string

// Mutation kinds.
const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Transition is reported to an Observer each time a mutation changes phase.
type Transition struct {
	Collection string
	Kind       Kind
	ID         string
	From       Phase
	To         Phase
}

// Observer receives lifecycle transitions. It is called synchronously and
// must not block.
type Observer func(Transition)

// lifecycle is the state machine of a single mutation.
type lifecycle struct {
	fsm *fsm.FSM
}

func newLifecycle(onEnter func(from, to Phase)) *lifecycle {
	events := []fsm.EventDesc{
		{Name: EventValidate, Src: []string{string(PhaseIdle)}, Dst: string(PhaseValidating)},
		{Name: EventReject, Src: []string{string(PhaseValidating)}, Dst: string(PhaseIdle)},
		{Name: EventSubmit, Src: []string{string(PhaseValidating)}, Dst: string(PhaseSubmitting)},
		{Name: EventSucceed, Src: []string{string(PhaseSubmitting)}, Dst: string(PhaseSucceeded)},
		{Name: EventFail, Src: []string{string(PhaseSubmitting)}, Dst: string(PhaseFailed)},
		{Name: EventSettle, Src: []string{string(PhaseSucceeded), string(PhaseFailed)}, Dst: string(PhaseIdle)},
	}
	return &lifecycle{
		fsm: fsm.NewFSM(
			string(PhaseIdle),
			fsm.Events(events),
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					onEnter(Phase(e.Src), Phase(e.Dst))
				},
			},
		),
	}
}

// fire sends event to the state machine. Transitions run on a context that
// is never cancelled so a caller's deadline cannot leave the machine stuck
// mid-transition.
func (l *lifecycle) fire(ctx context.Context, event string) error {
	return l.fsm.Event(context.WithoutCancel(ctx), event)
}

// current returns the phase the mutation is in.
func (l *lifecycle) current() Phase {
	return Phase(l.fsm.Current())
}
