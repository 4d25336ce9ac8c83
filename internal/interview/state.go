package interview

import (
	"github.com/looplab/fsm"
)

// State is the session lifecycle phase. A session is in exactly one state
// at any instant.
type State string

const (
	StateIdle       State = "idle"       // waiting for the candidate to start speaking
	StateListening  State = "listening"  // recording candidate speech
	StateProcessing State = "processing" // inference job in flight
	StateResponding State = "responding" // interviewer reply being delivered
	StateWaiting    State = "waiting"    // turn complete, ready for next input
	StateError      State = "error"      // unrecoverable failure, reset or speak to recover
)

// Transition names. Legality is enforced by callers (the gateway and the
// result drain) against this table; the registry itself stays a dumb store.
const (
	TransitionStartSpeaking = "start_speaking"
	TransitionStopSpeaking  = "stop_speaking"
	TransitionResponseReady = "response_ready"
	TransitionDelivered     = "delivered"
	TransitionRecover       = "recover"
	TransitionFail          = "fail"
	TransitionReset         = "reset"
)

var allStates = []string{
	string(StateIdle), string(StateListening), string(StateProcessing),
	string(StateResponding), string(StateWaiting), string(StateError),
}

// start_speaking from error doubles as client-side auto-recovery.
func newMachine(current State) *fsm.FSM {
	return fsm.NewFSM(
		string(current),
		fsm.Events{
			{Name: TransitionStartSpeaking, Src: []string{string(StateIdle), string(StateWaiting), string(StateError)}, Dst: string(StateListening)},
			{Name: TransitionStopSpeaking, Src: []string{string(StateListening)}, Dst: string(StateProcessing)},
			{Name: TransitionResponseReady, Src: []string{string(StateProcessing)}, Dst: string(StateResponding)},
			{Name: TransitionDelivered, Src: []string{string(StateResponding)}, Dst: string(StateWaiting)},
			{Name: TransitionRecover, Src: []string{string(StateProcessing), string(StateResponding), string(StateError)}, Dst: string(StateWaiting)},
			{Name: TransitionFail, Src: allStates, Dst: string(StateError)},
			{Name: TransitionReset, Src: allStates, Dst: string(StateIdle)},
		},
		fsm.Callbacks{},
	)
}

// Can reports whether the named transition is legal from the given state.
func Can(from State, transition string) bool {
	return newMachine(from).Can(transition)
}

// Dst returns the state the named transition lands in.
func Dst(transition string) State {
	switch transition {
	case TransitionStartSpeaking:
		return StateListening
	case TransitionStopSpeaking:
		return StateProcessing
	case TransitionResponseReady:
		return StateResponding
	case TransitionDelivered, TransitionRecover:
		return StateWaiting
	case TransitionFail:
		return StateError
	default:
		return StateIdle
	}
}
