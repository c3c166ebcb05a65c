package ws

import (
	"testing"

	"github.com/bishaldk/samvad/internal/bus"
)

func TestMachineFullLifecycle(t *testing.T) {
	m := NewMachine("conv-1", nil)
	if m.Current() != Closed {
		t.Fatalf("initial state = %s, want %s", m.Current(), Closed)
	}
	for _, to := range []State{Connecting, Open, Closed} {
		if err := m.Transition(to); err != nil {
			t.Fatalf("Transition(%s): %v", to, err)
		}
	}
	if m.Current() != Closed {
		t.Fatalf("final state = %s, want %s", m.Current(), Closed)
	}
}

func TestMachineRejectsInvalidTransitions(t *testing.T) {
	m := NewMachine("conv-1", nil)
	if err := m.Transition(Open); err == nil {
		t.Fatal("expected error transitioning Closed -> Open")
	}
	if err := m.Transition(Closed); err == nil {
		t.Fatal("expected error transitioning Closed -> Closed")
	}
}

func TestMachineTerminalAfterOpenClose(t *testing.T) {
	m := NewMachine("conv-1", nil)
	mustTransition(t, m, Connecting, Open, Closed)
	if err := m.Transition(Connecting); err == nil {
		t.Fatal("expected terminal instance to reject reconnection")
	}
}

func TestMachineDialFailureAllowsRetryInstance(t *testing.T) {
	// A dial failure walks Connecting -> Closed without ever opening. The
	// instance is still discarded by callers, but the machine itself permits
	// another attempt.
	m := NewMachine("conv-1", nil)
	mustTransition(t, m, Connecting, Closed)
	if err := m.Transition(Connecting); err != nil {
		t.Fatalf("unopened machine should allow redial: %v", err)
	}
}

func TestMachinePublishesStateChanges(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe(bus.KindConnState, 8)
	defer unsub()

	m := NewMachine("conv-1", b)
	mustTransition(t, m, Connecting, Open)

	got := make([]StateChange, 0, 2)
	for len(got) < 2 {
		evt := <-ch
		sc, ok := evt.Payload.(StateChange)
		if !ok {
			t.Fatalf("payload type %T, want StateChange", evt.Payload)
		}
		got = append(got, sc)
	}
	if got[0].To != Connecting || got[1].To != Open {
		t.Fatalf("state changes = %+v", got)
	}
	if got[0].Conversation != "conv-1" {
		t.Fatalf("conversation = %q, want conv-1", got[0].Conversation)
	}
}

func mustTransition(t *testing.T, m *Machine, states ...State) {
	t.Helper()
	for _, s := range states {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s): %v", s, err)
		}
	}
}
