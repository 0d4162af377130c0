package usecase

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/vocalia/internal/domain/match"
	"github.com/riskibarqy/vocalia/internal/platform/logging"
)

// recordingNotifier stores signals in arrival order. Finalize sends sleep for
// finalizeDelay to let a later revert overtake them on a free worker.
type recordingNotifier struct {
	finalizeDelay time.Duration

	mu       sync.Mutex
	received []string
	versions []int64
}

func (n *recordingNotifier) MatchFinalized(_ context.Context, result MatchResult) error {
	time.Sleep(n.finalizeDelay)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, "finalized:"+result.MatchID)
	n.versions = append(n.versions, result.Version)
	return nil
}

func (n *recordingNotifier) MatchReverted(_ context.Context, matchID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, "reverted:"+matchID)
	return nil
}

func (n *recordingNotifier) snapshot() ([]string, []int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.received), slices.Clone(n.versions)
}

func TestStandingsDispatcher_KeepsPerMatchOrderWithSlowFinalize(t *testing.T) {
	t.Parallel()

	notifier := &recordingNotifier{finalizeDelay: 50 * time.Millisecond}
	dispatcher, err := NewStandingsDispatcher(notifier, 4, logging.NewNop())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	f := newVocaliaFixture(t, dispatcher)
	f.startWithLineups(t)

	finalized, err := f.sessions.Finalize(t.Context(), validFinalizeInput())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	reopened, err := f.sessions.Revert(t.Context(), RevertInput{MatchID: testMatchID})
	if err != nil {
		t.Fatalf("revert: %v", err)
	}
	if reopened.Status != match.StatusInProgress {
		t.Fatalf("unexpected status after revert: %s", reopened.Status)
	}

	if err := dispatcher.Close(2 * time.Second); err != nil {
		t.Fatalf("close dispatcher: %v", err)
	}

	got, versions := notifier.snapshot()
	want := []string{"finalized:" + testMatchID, "reverted:" + testMatchID}
	if !slices.Equal(got, want) {
		t.Fatalf("standings received %v, want %v", got, want)
	}
	if len(versions) != 1 || versions[0] != finalized.Match.Version {
		t.Fatalf("expected finalize signal to carry version %d, got %v", finalized.Match.Version, versions)
	}
}

func TestStandingsDispatcher_OtherMatchesDoNotWaitBehindSlowSend(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	delivered := make(chan string, 4)
	notifier := &blockingNotifier{release: release, delivered: delivered}
	dispatcher, err := NewStandingsDispatcher(notifier, 2, logging.NewNop())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	ctx := t.Context()
	if err := dispatcher.MatchFinalized(ctx, MatchResult{MatchID: "slow"}); err != nil {
		t.Fatalf("submit slow: %v", err)
	}
	if err := dispatcher.MatchReverted(ctx, "slow"); err != nil {
		t.Fatalf("queue behind slow: %v", err)
	}
	if err := dispatcher.MatchReverted(ctx, "fast"); err != nil {
		t.Fatalf("submit fast: %v", err)
	}

	select {
	case got := <-delivered:
		if got != "reverted:fast" {
			t.Fatalf("expected the other match first, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("other match was blocked behind the slow send")
	}

	close(release)
	for _, want := range []string{"finalized:slow", "reverted:slow"} {
		select {
		case got := <-delivered:
			if got != want {
				t.Fatalf("expected %s, got %s", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	if err := dispatcher.Close(time.Second); err != nil {
		t.Fatalf("close dispatcher: %v", err)
	}
}

// blockingNotifier holds finalize sends until release is closed.
type blockingNotifier struct {
	release   chan struct{}
	delivered chan string
}

func (n *blockingNotifier) MatchFinalized(_ context.Context, result MatchResult) error {
	<-n.release
	n.delivered <- "finalized:" + result.MatchID
	return nil
}

func (n *blockingNotifier) MatchReverted(_ context.Context, matchID string) error {
	n.delivered <- "reverted:" + matchID
	return nil
}
