package transport

import (
	"testing"
	"time"
)

func TestTCPSendDelivers(t *testing.T) {
	a, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP a: %v", err)
	}
	defer a.Close()
	b, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP b: %v", err)
	}
	defer b.Close()

	env := testEnvelope("hello")
	if err := a.Send(b.Self(), env); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case got := <-b.Inbox():
		if got.Mark != env.Mark {
			t.Fatalf("expected mark %q, got %q", env.Mark, got.Mark)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestTCPScheduleSelf(t *testing.T) {
	a, err := NewTCP("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer a.Close()
	a.ScheduleSelf(10*time.Millisecond, testEnvelope("timer"))
	select {
	case got := <-a.Inbox():
		if got.Mark != "timer" {
			t.Fatalf("expected timer mark, got %q", got.Mark)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for self-scheduled delivery")
	}
}
