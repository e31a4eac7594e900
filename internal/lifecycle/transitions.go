package lifecycle

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when no action sequence is registered
// between the observed state and the requested target. Callers match it
// with errors.Is.
var ErrIllegalTransition = errors.New("illegal lifecycle transition")

// transitionKey identifies one (current, target) pair in the table.
type transitionKey struct {
	current State
	target  Target
}

// transitions is the full set of legal lifecycle convergences. An entry with
// an empty action list means the VM already satisfies the target. A missing
// entry means the convergence is not possible without recreating the VM
// (e.g. anything out of done) or is rejected by the API (e.g. suspend of a
// VM that is not active).
//
// Keeping this a literal table rather than branching keeps the legal set
// auditable and lets tests walk it exhaustively.
var transitions = map[transitionKey][]Action{
	// present: create on hold when absent, otherwise any live state will do.
	{StateAbsent, TargetPresent}:         {ActionCreate},
	{StateInit, TargetPresent}:           {},
	{StatePending, TargetPresent}:        {},
	{StateHold, TargetPresent}:           {},
	{StateActive, TargetPresent}:         {},
	{StateStopped, TargetPresent}:        {},
	{StateSuspended, TargetPresent}:      {},
	{StatePoweroff, TargetPresent}:       {},
	{StateUndeployed, TargetPresent}:     {},
	{StateCloning, TargetPresent}:        {},
	{StateCloningFailure, TargetPresent}: {},

	// started: get the VM scheduled and running. A held VM is released;
	// everything parked is resumed; init/pending are already on their way.
	{StateAbsent, TargetStarted}:     {ActionCreate, ActionRelease},
	{StateInit, TargetStarted}:       {},
	{StatePending, TargetStarted}:    {},
	{StateHold, TargetStarted}:       {ActionRelease},
	{StateActive, TargetStarted}:     {},
	{StateStopped, TargetStarted}:    {ActionResume},
	{StateSuspended, TargetStarted}:  {ActionResume},
	{StatePoweroff, TargetStarted}:   {ActionResume},
	{StateUndeployed, TargetStarted}: {ActionResume},

	// stopped: only an active VM can be powered off. Held and already
	// powered-down VMs count as satisfied.
	{StateActive, TargetStopped}:   {ActionPoweroff},
	{StateHold, TargetStopped}:     {},
	{StateStopped, TargetStopped}:  {},
	{StatePoweroff, TargetStopped}: {},

	// suspended: only an active VM can be suspended.
	{StateActive, TargetSuspended}:    {ActionSuspend},
	{StateSuspended, TargetSuspended}: {},

	// resumed: only a suspended VM can be resumed; an active VM already is.
	{StateSuspended, TargetResumed}: {ActionResume},
	{StateActive, TargetResumed}:    {},

	// undeployed: reachable from a deployed VM, running or powered off.
	{StateActive, TargetUndeployed}:     {ActionUndeploy},
	{StatePoweroff, TargetUndeployed}:   {ActionUndeploy},
	{StateUndeployed, TargetUndeployed}: {},

	// absent: terminate whatever exists. The API refuses to terminate a
	// suspended VM, so it is resumed first. Done already counts as gone.
	{StateAbsent, TargetAbsent}:         {},
	{StateDone, TargetAbsent}:           {},
	{StateInit, TargetAbsent}:           {ActionTerminate},
	{StatePending, TargetAbsent}:        {ActionTerminate},
	{StateHold, TargetAbsent}:           {ActionTerminate},
	{StateActive, TargetAbsent}:         {ActionTerminate},
	{StateStopped, TargetAbsent}:        {ActionTerminate},
	{StatePoweroff, TargetAbsent}:       {ActionTerminate},
	{StateUndeployed, TargetAbsent}:     {ActionTerminate},
	{StateCloning, TargetAbsent}:        {ActionTerminate},
	{StateCloningFailure, TargetAbsent}: {ActionTerminate},
	{StateSuspended, TargetAbsent}:      {ActionResume, ActionTerminate},
}

// Path returns the minimal ordered action sequence converging a VM from
// current to target. The returned slice must not be mutated by the caller.
//
// Returns ErrIllegalTransition (wrapped with the pair for context) when no
// sequence is registered.
func Path(current State, target Target) ([]Action, error) {
	seq, ok := transitions[transitionKey{current, target}]
	if !ok {
		return nil, fmt.Errorf("%w: no path from %s to %s", ErrIllegalTransition, current, target)
	}
	return seq, nil
}

// CanReach reports whether a transition path from current to target exists.
func CanReach(current State, target Target) bool {
	_, ok := transitions[transitionKey{current, target}]
	return ok
}

// PostState predicts the state a VM settles in after an action sequence
// starting from current completes. Used to report the expected state when
// the caller skips re-reading the record.
func PostState(current State, seq []Action) State {
	s := current
	for _, a := range seq {
		switch a {
		case ActionCreate:
			s = StateHold
		case ActionRelease:
			s = StatePending
		case ActionResume:
			s = StateActive
		case ActionPoweroff:
			s = StatePoweroff
		case ActionSuspend:
			s = StateSuspended
		case ActionUndeploy:
			s = StateUndeployed
		case ActionTerminate:
			s = StateDone
		case ActionAttachDisk:
			// disk attachment does not change the lifecycle state
		}
	}
	return s
}
