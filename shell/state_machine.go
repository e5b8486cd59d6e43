package shell

import "github.com/pkg/errors"

// lifecycleState represents a state in the shell's per-block state
// machine.
type lifecycleState uint8

const (
	// stateIdle: no block open. BeginBlock is the only valid
	// block-scoped message. GetInfo, InitChain and MempoolValidate
	// are valid in every state.
	stateIdle lifecycleState = iota
	// stateOpen: a block is open. ApplyTx, EndBlock and CommitBlock
	// are valid; a second BeginBlock is not.
	stateOpen
)

func (s lifecycleState) String() string {
	switch s {
	case stateIdle:
		return "Idle"
	case stateOpen:
		return "BlockOpen"
	default:
		return "unknown"
	}
}

// lifecycleGuard enforces message ordering within a block. The shell
// is single-threaded, so no synchronization is needed; out-of-order
// messages are answered with an error rather than processed.
type lifecycleGuard struct {
	state lifecycleState
}

// beginBlock transitions Idle → BlockOpen.
func (g *lifecycleGuard) beginBlock() error {
	if g.state != stateIdle {
		return errors.Errorf("BeginBlock received in state %s (expected Idle)", g.state)
	}
	g.state = stateOpen
	return nil
}

// failBegin rolls the state back to Idle when opening the block
// failed downstream.
func (g *lifecycleGuard) failBegin() {
	g.state = stateIdle
}

// requireOpen verifies a block is open for msg.
func (g *lifecycleGuard) requireOpen(msg string) error {
	if g.state != stateOpen {
		return errors.Errorf("%s received in state %s (expected BlockOpen)", msg, g.state)
	}
	return nil
}

// commitBlock transitions BlockOpen → Idle.
func (g *lifecycleGuard) commitBlock() error {
	if err := g.requireOpen("CommitBlock"); err != nil {
		return err
	}
	g.state = stateIdle
	return nil
}
