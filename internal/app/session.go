package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"iqplay/internal/domain"
)

// State is a step of the two-player round.
type State string

const (
	StateAwaitingPlayerReady State = "AwaitingPlayerReady"
	StateQuestionActive      State = "QuestionActive"
	StateCompleting          State = "Completing"
	StateCompleted           State = "Completed"
	StateAbandoned           State = "Abandoned"
)

// Finished reports whether the round can no longer change.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateAbandoned
}

// Event types pushed to subscribers.
const (
	EventState     = "state"
	EventTick      = "tick"
	EventExpired   = "expired"
	EventCompleted = "completed"
	EventAbandoned = "abandoned"
)

// Event is a session notification for subscribers.
type Event struct {
	Type     string      `json:"type"`
	GameID   string      `json:"gameId"`
	Seat     domain.Seat `json:"seat,omitempty"`
	Index    int         `json:"index"`
	Timer    *TimerEvent `json:"timer,omitempty"`
	Snapshot *Snapshot   `json:"snapshot,omitempty"`
}

// QuestionView is the active question without its answer.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	GameID    string                 `json:"gameId"`
	GameName  string                 `json:"gameName"`
	Tier      domain.Tier            `json:"tier"`
	State     State                  `json:"state"`
	Seat      domain.Seat            `json:"seat"`
	Player    string                 `json:"player"`
	Index     int                    `json:"index"`
	BlockSize int                    `json:"blockSize"`
	Question  *QuestionView          `json:"question,omitempty"`
	Selected  *string                `json:"selected"`
	Remaining int                    `json:"remaining"`
	TimeUp    bool                   `json:"timeUp"`
	Ticking   bool                   `json:"ticking"`
	Scores    Scoreboard             `json:"scores"`
	Answered  int                    `json:"answered"`
	Outcome   *domain.SessionOutcome `json:"outcome,omitempty"`
	Award     *domain.Award          `json:"award,omitempty"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// SessionConfig tunes a session. Zero values fall back to the defaults.
type SessionConfig struct {
	BlockSize   int
	TurnSeconds int
	// ReadyDelay is the fixed dwell on the "player ready" screen. Zero or
	// negative activates the first question immediately.
	ReadyDelay time.Duration
	NewTicker  TickerFunc
	Rand       *rand.Rand
	Now        func() time.Time
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.BlockSize <= 0 {
		c.BlockSize = DefaultBlockSize
	}
	if c.TurnSeconds <= 0 {
		c.TurnSeconds = DefaultTurnSeconds
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Session drives one two-player round: a block of questions per player, a
// turn timer per question, then settlement and persistence.
type Session struct {
	game     domain.Game
	gameName string
	tier     domain.Tier
	pool     []domain.Question
	cfg      SessionConfig

	mu         sync.Mutex
	state      State
	seat       domain.Seat
	index      int
	block      []domain.Question
	used       UsedSet
	selected   *string
	timer      *TurnTimer
	recorder   *AnswerRecorder
	readyTimer *time.Timer
	readyGen   int
	updatedAt  time.Time

	outcome       *domain.SessionOutcome
	award         domain.Award
	finalizing    bool
	outcomeSaved  bool
	ledgerSettled bool

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

// NewSession prepares a round and draws player one's block. It fails with an
// *domain.InsufficientQuestionsError when the pool cannot fill the block.
// The round does not start until Begin is called.
func NewSession(game domain.Game, category string, tier domain.Tier, pool []domain.Question, cfg SessionConfig) (*Session, error) {
	cfg = cfg.withDefaults()
	used := make(UsedSet)
	block, err := SelectBlock(pool, used, cfg.BlockSize, cfg.Rand)
	if err != nil {
		return nil, err
	}
	return &Session{
		game:        game,
		gameName:    category,
		tier:        tier,
		pool:        pool,
		cfg:         cfg,
		state:       StateAwaitingPlayerReady,
		seat:        domain.PlayerOne,
		block:       block,
		used:        used,
		timer:       NewTurnTimer(cfg.TurnSeconds, cfg.NewTicker),
		recorder:    NewAnswerRecorder(),
		updatedAt:   cfg.Now(),
		subscribers: make(map[chan Event]struct{}),
	}, nil
}

// ID returns the game id the session is keyed by.
func (s *Session) ID() string {
	return s.game.ID
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin shows player one's ready screen and schedules the first question.
func (s *Session) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingPlayerReady || s.recorder.Count() > 0 {
		return
	}
	s.awaitReadyLocked()
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Responses returns the answers recorded so far in presentation order.
func (s *Session) Responses() []domain.AnswerResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Responses()
}

// Select marks option as the current player's choice. The choice can be
// changed until the player advances or the timer expires.
func (s *Session) Select(option string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveLocked(); err != nil {
		return Snapshot{}, err
	}
	if s.timer.Expired() {
		return Snapshot{}, &domain.ValidationError{Err: domain.ErrTimeUp}
	}
	if !s.block[s.index].HasOption(option) {
		return Snapshot{}, &domain.ValidationError{Err: domain.ErrOptionNotFound}
	}
	choice := option
	s.selected = &choice
	s.touchLocked()
	return s.broadcastLocked(EventState), nil
}

// Advance finalizes the current turn: it records the answer (nil if the time
// ran out) and moves to the next question, the next player, or Completing.
// Without a selection and with time remaining it fails with a
// *domain.ValidationError and leaves the session untouched.
func (s *Session) Advance() (domain.AnswerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireActiveLocked(); err != nil {
		return domain.AnswerResponse{}, err
	}
	if s.selected == nil && !s.timer.Expired() {
		return domain.AnswerResponse{}, &domain.ValidationError{Err: domain.ErrSelectionRequired}
	}

	last := s.index == len(s.block)-1
	var nextBlock []domain.Question
	if last && s.seat == domain.PlayerOne {
		used := make(UsedSet, len(s.used)+len(s.block))
		for text := range s.used {
			used[text] = struct{}{}
		}
		used.Add(s.block)
		block, err := SelectBlock(s.pool, used, s.cfg.BlockSize, s.cfg.Rand)
		if err != nil {
			return domain.AnswerResponse{}, err
		}
		nextBlock = block
	}

	resp, err := s.recorder.Record(s.seat, s.playerLocked(s.seat), s.block[s.index], s.selected)
	if err != nil {
		return domain.AnswerResponse{}, err
	}
	s.timer.Cancel()
	s.selected = nil
	s.touchLocked()

	switch {
	case !last:
		s.index++
		s.activateLocked()
	case s.seat == domain.PlayerOne:
		s.used.Add(s.block)
		s.block = nextBlock
		s.seat = domain.PlayerTwo
		s.index = 0
		s.awaitReadyLocked()
	default:
		s.used.Add(s.block)
		s.completeLocked()
	}
	return resp, nil
}

// Finalize persists the outcome and merges the award into the ledger, then
// moves the session to Completed. Steps that already succeeded are skipped,
// so a failed attempt can be retried without double counting. On failure the
// session stays in Completing and the error is a *domain.PersistenceError.
func (s *Session) Finalize(ctx context.Context, store DocumentStore) error {
	s.mu.Lock()
	switch {
	case s.state == StateCompleted:
		s.mu.Unlock()
		return nil
	case s.state != StateCompleting:
		state := s.state
		s.mu.Unlock()
		return &domain.InvalidStateError{State: string(state), Err: domain.ErrRoundInProgress}
	case s.finalizing:
		s.mu.Unlock()
		return &domain.InvalidStateError{State: string(StateCompleting), Err: domain.ErrFinalizing}
	}
	s.finalizing = true
	outcome := *s.outcome
	award := s.award
	saved, settled := s.outcomeSaved, s.ledgerSettled
	s.mu.Unlock()

	err := s.persist(ctx, store, outcome, award, saved, settled)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizing = false
	if err != nil {
		return err
	}
	s.state = StateCompleted
	s.touchLocked()
	s.broadcastLocked(EventCompleted)
	return nil
}

func (s *Session) persist(ctx context.Context, store DocumentStore, outcome domain.SessionOutcome, award domain.Award, saved, settled bool) error {
	if !saved {
		doc, err := domain.EncodeDocument(outcome)
		if err != nil {
			return &domain.PersistenceError{Op: "save outcome", Err: err}
		}
		if err := store.Set(ctx, domain.CollectionGames, s.game.ID, doc); err != nil {
			return &domain.PersistenceError{Op: "save outcome", Err: err}
		}
		s.mu.Lock()
		s.outcomeSaved = true
		s.mu.Unlock()
	}
	if !settled {
		if err := MergeAward(ctx, store, s.game, award); err != nil {
			return &domain.PersistenceError{Op: "settle points", Err: err}
		}
		s.mu.Lock()
		s.ledgerSettled = true
		s.mu.Unlock()
	}
	return nil
}

// Abandon drops the round without writing anything. Finished rounds are
// left as they are. A round in Completing still owes its outcome or ledger
// write, so it is kept for Retry and an *domain.InvalidStateError wrapping
// domain.ErrSettlementPending is returned.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Finished() {
		return nil
	}
	if s.state == StateCompleting {
		return &domain.InvalidStateError{State: string(s.state), Err: domain.ErrSettlementPending}
	}
	s.timer.Cancel()
	s.stopReadyLocked()
	s.state = StateAbandoned
	s.touchLocked()
	s.broadcastLocked(EventAbandoned)
	s.closeSubscribers()
	return nil
}

// Subscribe returns a channel receiving session events, starting with the
// current snapshot. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.subMu.Lock()
	ch <- Event{Type: EventState, GameID: s.game.ID, Seat: snap.Seat, Index: snap.Index, Snapshot: &snap}
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) requireActiveLocked() error {
	switch s.state {
	case StateQuestionActive:
		return nil
	case StateCompleted:
		return domain.ErrSessionCompleted
	default:
		return &domain.InvalidStateError{State: string(s.state), Err: domain.ErrNoActiveQuestion}
	}
}

func (s *Session) awaitReadyLocked() {
	s.state = StateAwaitingPlayerReady
	s.broadcastLocked(EventState)

	if s.cfg.ReadyDelay <= 0 {
		s.activateLocked()
		return
	}
	s.readyGen++
	gen := s.readyGen
	s.readyTimer = time.AfterFunc(s.cfg.ReadyDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state == StateAwaitingPlayerReady && s.readyGen == gen {
			s.activateLocked()
		}
	})
}

func (s *Session) stopReadyLocked() {
	if s.readyTimer != nil {
		s.readyTimer.Stop()
		s.readyTimer = nil
	}
	s.readyGen++
}

func (s *Session) activateLocked() {
	s.readyTimer = nil
	s.state = StateQuestionActive
	s.selected = nil
	s.touchLocked()

	seat, index := s.seat, s.index
	s.timer.Start(func(ev TimerEvent) {
		typ := EventTick
		if ev.Expired {
			typ = EventExpired
		}
		s.publish(Event{Type: typ, GameID: s.game.ID, Seat: seat, Index: index, Timer: &ev})
	})
	s.broadcastLocked(EventState)
}

func (s *Session) completeLocked() {
	scores := s.recorder.Scores()
	outcome := domain.SessionOutcome{
		GameName:       s.gameName,
		Player1:        s.game.PlayerOne,
		Player2:        s.game.PlayerTwo,
		PlayerOneScore: scores.PlayerOne,
		PlayerTwoScore: scores.PlayerTwo,
		Responses:      s.recorder.Responses(),
	}
	s.outcome = &outcome
	s.award = Settle(scores.PlayerOne, scores.PlayerTwo, s.tier)
	s.state = StateCompleting
	s.broadcastLocked(EventState)
}

func (s *Session) playerLocked(seat domain.Seat) string {
	if seat == domain.PlayerTwo {
		return s.game.PlayerTwo
	}
	return s.game.PlayerOne
}

func (s *Session) touchLocked() {
	s.updatedAt = s.cfg.Now()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		GameID:    s.game.ID,
		GameName:  s.gameName,
		Tier:      s.tier,
		State:     s.state,
		Seat:      s.seat,
		Player:    s.playerLocked(s.seat),
		Index:     s.index,
		BlockSize: s.cfg.BlockSize,
		Remaining: s.timer.Duration(),
		Scores:    s.recorder.Scores(),
		Answered:  s.recorder.Count(),
		UpdatedAt: s.updatedAt,
	}
	if s.state == StateQuestionActive {
		q := s.block[s.index]
		snap.Question = &QuestionView{Text: q.Text, Options: append([]string(nil), q.Options...)}
		snap.Remaining = s.timer.Remaining()
		snap.TimeUp = s.timer.Expired()
		snap.Ticking = s.timer.Running()
		if s.selected != nil {
			v := *s.selected
			snap.Selected = &v
		}
	}
	if s.outcome != nil {
		outcome := *s.outcome
		award := s.award
		snap.Outcome = &outcome
		snap.Award = &award
	}
	return snap
}

func (s *Session) broadcastLocked(typ string) Snapshot {
	snap := s.snapshotLocked()
	s.publish(Event{Type: typ, GameID: s.game.ID, Seat: snap.Seat, Index: snap.Index, Snapshot: &snap})
	return snap
}

func (s *Session) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest update so a slow reader never blocks the round
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
