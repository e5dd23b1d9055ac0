package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"spectrangle/internal/game"
	"spectrangle/internal/leaderboard"
	"spectrangle/internal/lobby"
	"spectrangle/internal/protocol"
)

type testClient struct {
	name    string
	events  chan game.Event
	notices chan Notice
}

func newHub(t *testing.T, store leaderboard.Store, cfg Config) *Hub {
	t.Helper()
	if store == nil {
		store = leaderboard.NewMemory()
	}
	if cfg.TurnTimeout == 0 {
		cfg.TurnTimeout = time.Minute
	}
	if cfg.ChallengeTimeout == 0 {
		cfg.ChallengeTimeout = time.Minute
	}
	h := New(context.Background(), store, cfg, zap.NewNop())
	t.Cleanup(func() { h.Inbox() <- Shutdown{} })
	return h
}

func register(t *testing.T, h *Hub, name string, exts ...string) *testClient {
	t.Helper()
	c := &testClient{
		name:    name,
		events:  make(chan game.Event, 32),
		notices: make(chan Notice, 16),
	}
	reply := make(chan error, 1)
	h.Inbox() <- Register{Name: name, Extensions: exts, Events: c.events, Notices: c.notices, Reply: reply}
	require.NoError(t, <-reply)
	return c
}

func join(t *testing.T, h *Hub, name string, pref int) error {
	t.Helper()
	reply := make(chan error, 1)
	h.Inbox() <- JoinQueue{Name: name, Pref: pref, Reply: reply}
	select {
	case err := <-reply:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("no JoinQueue reply")
		return nil
	}
}

func stats(t *testing.T, h *Hub) Stats {
	t.Helper()
	reply := make(chan Stats, 1)
	h.Inbox() <- GetStats{Reply: reply}
	select {
	case s := <-reply:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no GetStats reply")
		return Stats{}
	}
}

func (c *testClient) expectEvent(t *testing.T, et game.EventType) game.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.events:
			if ev.Type == et {
				return ev
			}
		case <-deadline:
			t.Fatalf("%s never received %s", c.name, et)
		}
	}
}

func (c *testClient) expectNotice(t *testing.T, nt NoticeType) Notice {
	t.Helper()
	select {
	case n := <-c.notices:
		require.Equal(t, nt, n.Type)
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never received %s notice", c.name, nt)
		return Notice{}
	}
}

func (c *testClient) expectNoNotice(t *testing.T) {
	t.Helper()
	select {
	case n := <-c.notices:
		t.Fatalf("%s got unexpected notice %+v", c.name, n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry")

	reply := make(chan error, 1)
	h.Inbox() <- Register{
		Name:   "Barry",
		Events: make(chan game.Event, 1), Notices: make(chan Notice, 1),
		Reply: reply,
	}
	require.ErrorIs(t, <-reply, ErrNameTaken)
	require.Equal(t, 1, stats(t, h).Clients)
}

func TestJoinQueueValidation(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry")

	require.ErrorIs(t, join(t, h, "ghost", 2), ErrUnknownClient)
	require.ErrorIs(t, join(t, h, "Barry", 1), ErrBadPreference)
	require.ErrorIs(t, join(t, h, "Barry", 5), ErrBadPreference)
	require.NoError(t, join(t, h, "Barry", 3))
	require.ErrorIs(t, join(t, h, "Barry", 2), ErrBusy)
}

func TestQueuesArePerPreference(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry")
	register(t, h, "Jack")

	require.NoError(t, join(t, h, "Barry", 2))
	require.NoError(t, join(t, h, "Jack", 3))

	s := stats(t, h)
	require.Equal(t, 0, s.Games)
	require.Equal(t, 1, s.Queued[2])
	require.Equal(t, 1, s.Queued[3])
}

func TestQueueFillStartsGame(t *testing.T) {
	h := newHub(t, nil, Config{})
	barry := register(t, h, "Barry")
	jack := register(t, h, "Jack")

	require.NoError(t, join(t, h, "Barry", 2))
	require.NoError(t, join(t, h, "Jack", 2))

	for _, c := range []*testClient{barry, jack} {
		started := c.expectEvent(t, game.EvtGameStarted)
		require.Len(t, started.Order, 2)
	}
	s := stats(t, h)
	require.Equal(t, 1, s.Games)
	require.Equal(t, 0, s.Queued[2])

	lbReply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Name: "Barry", Reply: lbReply}
	require.NotNil(t, <-lbReply)
}

func TestSeatedPlayerCannotRequeue(t *testing.T) {
	h := newHub(t, nil, Config{})
	barry := register(t, h, "Barry")
	jack := register(t, h, "Jack")

	require.NoError(t, join(t, h, "Barry", 2))
	require.NoError(t, join(t, h, "Jack", 2))
	barry.expectEvent(t, game.EvtGameStarted)
	jack.expectEvent(t, game.EvtGameStarted)

	require.ErrorIs(t, join(t, h, "Barry", 2), ErrBusy)
}

func TestUnregisterLeavesQueue(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry")
	register(t, h, "Jack")
	register(t, h, "Mary")

	require.NoError(t, join(t, h, "Barry", 2))
	h.Inbox() <- Unregister{Name: "Barry"}

	// Barry left the queue, so Jack and Mary fill it alone.
	require.NoError(t, join(t, h, "Jack", 2))
	require.NoError(t, join(t, h, "Mary", 2))
	require.Eventually(t, func() bool { return stats(t, h).Games == 1 },
		2*time.Second, 10*time.Millisecond)
	require.Equal(t, 2, stats(t, h).Clients)
}

func TestChatReachesOnlyChatCapableClients(t *testing.T) {
	h := newHub(t, nil, Config{})
	barry := register(t, h, "Barry", protocol.ExtChat)
	jack := register(t, h, "Jack", protocol.ExtChat)
	mary := register(t, h, "Mary")

	h.Inbox() <- Chat{From: "Barry", Text: "hello, all"}

	for _, c := range []*testClient{barry, jack} {
		n := c.expectNotice(t, NoticeChat)
		require.Equal(t, "Barry", n.From)
		require.Equal(t, "hello, all", n.Text)
	}
	mary.expectNoNotice(t)
}

func TestChatFromNonCapableSenderIsDropped(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry")
	jack := register(t, h, "Jack", protocol.ExtChat)

	h.Inbox() <- Chat{From: "Barry", Text: "hi"}
	jack.expectNoNotice(t)
}

func TestRequestNamesFiltersByExtension(t *testing.T) {
	h := newHub(t, nil, Config{})
	barry := register(t, h, "Barry", protocol.ExtChat)
	register(t, h, "Jack", protocol.ExtChat)
	register(t, h, "Mary", protocol.ExtChallenge)

	h.Inbox() <- RequestNames{Name: "Barry"}
	n := barry.expectNotice(t, NoticeNames)
	require.ElementsMatch(t, []string{"Barry", "Jack"}, n.Names)
}

func TestChallengeAcceptStartsGame(t *testing.T) {
	h := newHub(t, nil, Config{})
	barry := register(t, h, "Barry", protocol.ExtChallenge)
	jack := register(t, h, "Jack", protocol.ExtChallenge)

	reply := make(chan error, 1)
	h.Inbox() <- Challenge{From: "Barry", Targets: []string{"Jack"}, Reply: reply}
	require.NoError(t, <-reply)

	n := jack.expectNotice(t, NoticeChallenge)
	require.Equal(t, "Barry", n.From)

	h.Inbox() <- AcceptChallenge{Name: "Jack"}
	barry.expectEvent(t, game.EvtGameStarted)
	jack.expectEvent(t, game.EvtGameStarted)
	require.Equal(t, 1, stats(t, h).Games)
}

func TestChallengeValidation(t *testing.T) {
	h := newHub(t, nil, Config{})
	register(t, h, "Barry", protocol.ExtChallenge)
	register(t, h, "Jack")

	send := func(from string, targets ...string) error {
		reply := make(chan error, 1)
		h.Inbox() <- Challenge{From: from, Targets: targets, Reply: reply}
		return <-reply
	}
	require.ErrorIs(t, send("Jack", "Barry"), ErrUnavailable)         // sender lacks the extension
	require.ErrorIs(t, send("Barry", "Jack"), ErrUnavailable)         // target lacks it
	require.ErrorIs(t, send("Barry", "ghost"), ErrUnavailable)        // unknown target
	require.ErrorIs(t, send("Barry"), ErrBadPreference)               // no targets
	require.ErrorIs(t, send("Barry", "a", "b", "c", "d"), ErrBadPreference)
}

func TestChallengeExpiresAsImplicitDecline(t *testing.T) {
	h := newHub(t, nil, Config{ChallengeTimeout: 20 * time.Millisecond})
	barry := register(t, h, "Barry", protocol.ExtChallenge)
	jack := register(t, h, "Jack", protocol.ExtChallenge)

	reply := make(chan error, 1)
	h.Inbox() <- Challenge{From: "Barry", Targets: []string{"Jack"}, Reply: reply}
	require.NoError(t, <-reply)
	jack.expectNotice(t, NoticeChallenge)

	barry.expectNotice(t, NoticeChallengeExpired)
	require.Equal(t, 0, stats(t, h).Games)

	// A late accept is a no-op.
	h.Inbox() <- AcceptChallenge{Name: "Jack"}
	require.Equal(t, 0, stats(t, h).Games)
}

// TestFinishedGameRecordsScoresAndFreesSeats runs a real two-player
// game to its end via turn timeouts and checks the hub's bookkeeping.
func TestFinishedGameRecordsScoresAndFreesSeats(t *testing.T) {
	store := leaderboard.NewMemory()
	h := newHub(t, store, Config{TurnTimeout: 20 * time.Millisecond})
	barry := register(t, h, "Barry")
	jack := register(t, h, "Jack")

	require.NoError(t, join(t, h, "Barry", 2))
	require.NoError(t, join(t, h, "Jack", 2))
	barry.expectEvent(t, game.EvtGameStarted)
	jack.expectEvent(t, game.EvtGameStarted)

	// The first seat times out, leaving a sole winner.
	sawOver := false
	deadline := time.After(2 * time.Second)
	for !sawOver {
		select {
		case ev := <-barry.events:
			sawOver = ev.Type == game.EvtGameOver
		case ev := <-jack.events:
			sawOver = ev.Type == game.EvtGameOver
		case <-deadline:
			t.Fatal("game never finished")
		}
	}

	require.Eventually(t, func() bool { return stats(t, h).Games == 0 },
		2*time.Second, 10*time.Millisecond)
	records, err := store.Top(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Seats are free again once the game is recorded.
	require.NoError(t, join(t, h, "Barry", 2))
}
