package cancel

import (
	"errors"
	"testing"
	"time"
)

func TestToken_OneShotAndClone(t *testing.T) {
	tok := NewToken()
	if tok.IsCancelled() {
		t.Fatal("fresh token must not be cancelled")
	}
	clone := tok.Clone()
	tok.Cancel()
	tok.Cancel() // idempotent
	if !tok.IsCancelled() || !clone.IsCancelled() {
		t.Fatal("clone must share the underlying flag")
	}
}

func TestToken_ZeroValueIsInert(t *testing.T) {
	var tok Token
	tok.Cancel()
	if tok.IsCancelled() {
		t.Fatal("zero token can never fire")
	}
	if tok.Cancellable() {
		t.Fatal("zero token must not report cancellable")
	}
}

func TestWithTimeout_DeadlineWins(t *testing.T) {
	start := time.Now()
	err := WithTimeout(50*time.Millisecond, func(tok Token) error {
		for !tok.IsCancelled() {
			time.Sleep(5 * time.Millisecond)
		}
		return ErrCancelled
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("deadline not enforced promptly: %v", elapsed)
	}
}

func TestWithTimeout_OpCompletes(t *testing.T) {
	err := WithTimeout(time.Second, func(Token) error { return nil })
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestWithTimeoutAndCancel_TokenWins(t *testing.T) {
	tok := NewToken()
	go func() {
		time.Sleep(30 * time.Millisecond)
		tok.Cancel()
	}()
	err := WithTimeoutAndCancel(10*time.Second, tok, func(inner Token) error {
		for !inner.IsCancelled() {
			time.Sleep(5 * time.Millisecond)
		}
		return ErrCancelled
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestWaitForCondition(t *testing.T) {
	n := 0
	err := WaitForCondition(time.Second, time.Millisecond, func() bool {
		n++
		return n >= 3
	})
	if err != nil {
		t.Fatalf("condition should have been met: %v", err)
	}

	err = WaitForCondition(50*time.Millisecond, 10*time.Millisecond, func() bool { return false })
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestTimeoutGuard(t *testing.T) {
	g := NewTimeoutGuard(30 * time.Millisecond)
	if g.IsExpired() {
		t.Fatal("guard expired immediately")
	}
	if g.Remaining() <= 0 {
		t.Fatal("remaining should be positive")
	}
	time.Sleep(40 * time.Millisecond)
	if !g.IsExpired() {
		t.Fatal("guard should have expired")
	}

	unbounded := NewTimeoutGuard(0)
	time.Sleep(time.Millisecond)
	if unbounded.IsExpired() {
		t.Fatal("non-positive duration means no deadline")
	}
}
