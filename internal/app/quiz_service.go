package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"iqplay/internal/domain"
)

// Options tunes the service. Zero values use the defaults.
type Options struct {
	BlockSize   int
	TurnSeconds int
	ReadyDelay  time.Duration
	NewTicker   TickerFunc
	// NewRand seeds the shuffle of each new session.
	NewRand func() *rand.Rand
	Now     func() time.Time
	Logger  zerolog.Logger
	Metrics Metrics
}

// StartRequest names the round to play inside an existing game lobby.
type StartRequest struct {
	GameID   string
	Category string
	Tier     string
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	catalogue CatalogueRepository
	store     DocumentStore
	identity  Identity
	opts      Options
	logger    zerolog.Logger
	metrics   Metrics
}

func NewQuizService(sessions SessionRepository, catalogue CatalogueRepository, store DocumentStore, identity Identity, opts Options) *QuizService {
	if opts.NewRand == nil {
		opts.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &QuizService{
		sessions:  sessions,
		catalogue: catalogue,
		store:     store,
		identity:  identity,
		opts:      opts,
		logger:    opts.Logger,
		metrics:   metrics,
	}
}

// CreateGame validates draft and stores a new lobby in the signed-in user's
// partition. Game names are unique per user, ignoring case.
func (s *QuizService) CreateGame(ctx context.Context, draft domain.GameDraft) (domain.Game, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return domain.Game{}, err
	}
	draft, err = draft.Normalize()
	if err != nil {
		return domain.Game{}, err
	}

	games, err := s.userGames(ctx, user)
	if err != nil {
		return domain.Game{}, err
	}
	for _, g := range games {
		if domain.SameName(g.GameName, draft.GameName) {
			return domain.Game{}, fmt.Errorf("%w: %s", domain.ErrGameNameTaken, draft.GameName)
		}
	}

	game := domain.Game{
		ID:         uuid.NewString(),
		GameName:   draft.GameName,
		PlayerOne:  draft.PlayerOne,
		PlayerTwo:  draft.PlayerTwo,
		Categories: draft.Categories,
		CreatedAt:  s.opts.Now().UTC(),
	}
	doc, err := domain.EncodeDocument(game)
	if err != nil {
		return domain.Game{}, err
	}
	if err := s.store.Set(ctx, user.Partition(), game.ID, doc); err != nil {
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}
	s.logger.Info().Str("game_id", game.ID).Str("game_name", game.GameName).Str("owner", user.ID).Msg("game created")
	return game, nil
}

// ListGames returns the signed-in user's lobbies, newest first. A non-empty
// query keeps the games whose name contains it, ignoring case.
func (s *QuizService) ListGames(ctx context.Context, query string) ([]domain.Game, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	games, err := s.userGames(ctx, user)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	out := games[:0]
	for _, g := range games {
		if query == "" || strings.Contains(strings.ToLower(g.GameName), query) {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Start opens a new round for the game. The signed-in user is checked once
// here; nothing later in the round depends on the identity provider.
func (s *QuizService) Start(ctx context.Context, req StartRequest) (Snapshot, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	game, err := s.loadGame(ctx, user, req.GameID)
	if err != nil {
		return Snapshot{}, err
	}

	category := strings.TrimSpace(req.Category)
	if !game.HasCategory(category) {
		return Snapshot{}, &domain.ValidationError{Err: fmt.Errorf("%w: %q", domain.ErrCategoryNotInGame, category)}
	}
	if existing, ok := s.sessions.Get(game.ID); ok && !existing.State().Finished() {
		return Snapshot{}, domain.ErrSessionActive
	}

	tier := domain.ParseTier(req.Tier)
	pool, err := s.catalogue.Pool(ctx, category, tier)
	if err != nil {
		return Snapshot{}, err
	}

	session, err := NewSession(game, category, tier, pool, SessionConfig{
		BlockSize:   s.opts.BlockSize,
		TurnSeconds: s.opts.TurnSeconds,
		ReadyDelay:  s.opts.ReadyDelay,
		NewTicker:   s.opts.NewTicker,
		Rand:        s.opts.NewRand(),
		Now:         s.opts.Now,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("game_id", game.ID).Str("category", category).Msg("cannot start round")
		return Snapshot{}, err
	}
	if err := s.sessions.Put(session); err != nil {
		if errors.Is(err, domain.ErrSessionActive) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("register session: %w", err)
	}
	session.Begin()

	s.metrics.SessionStarted()
	s.logger.Info().
		Str("game_id", game.ID).
		Str("category", category).
		Str("tier", string(tier)).
		Msg("round started")
	return session.Snapshot(), nil
}

// Select marks the current player's choice for the active question.
func (s *QuizService) Select(_ context.Context, gameID, option string) (Snapshot, error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Select(option)
}

// Next records the current answer and advances the round. After the last
// answer of player two the outcome is persisted before returning; if that
// fails the error is a *domain.PersistenceError and Retry may be called.
func (s *QuizService) Next(ctx context.Context, gameID string) (Snapshot, error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	resp, err := session.Advance()
	if err != nil {
		return Snapshot{}, err
	}
	s.metrics.AnswerRecorded(answerOutcome(resp))

	if session.State() == StateCompleting {
		if err := s.finalize(ctx, session); err != nil {
			return session.Snapshot(), err
		}
	}
	return session.Snapshot(), nil
}

// Retry re-attempts persistence of a round stuck in Completing.
func (s *QuizService) Retry(ctx context.Context, gameID string) (Snapshot, error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if err := s.finalize(ctx, session); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Exit abandons the round. Nothing about a half-finished round is written.
// A round whose outcome is not stored yet cannot be left; it stays in
// Completing until Retry succeeds.
func (s *QuizService) Exit(_ context.Context, gameID string) error {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.State() != StateCompleted {
		if err := session.Abandon(); err != nil {
			s.logger.Warn().Err(err).Str("game_id", gameID).Msg("exit refused")
			return err
		}
		s.metrics.SessionAbandoned()
		s.logger.Info().Str("game_id", gameID).Msg("round abandoned")
	}
	s.sessions.Delete(gameID)
	return nil
}

// Snapshot returns the live view of a round.
func (s *QuizService) Snapshot(_ context.Context, gameID string) (Snapshot, error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives session events for a game.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, gameID string) (<-chan Event, func(), error) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Result summarizes the last persisted round of one of the user's games.
func (s *QuizService) Result(ctx context.Context, gameID string) (domain.Result, error) {
	outcome, err := s.ownedOutcome(ctx, gameID)
	if err != nil {
		return domain.Result{}, err
	}

	res := domain.Result{
		GameName:       outcome.GameName,
		Player1:        outcome.Player1,
		Player2:        outcome.Player2,
		PlayerOneScore: outcome.PlayerOneScore,
		PlayerTwoScore: outcome.PlayerTwoScore,
	}
	for _, r := range outcome.Responses {
		if !r.IsCorrect() {
			continue
		}
		switch responseSeat(r, outcome) {
		case domain.PlayerOne:
			res.PlayerOneCorrect++
		case domain.PlayerTwo:
			res.PlayerTwoCorrect++
		}
	}
	switch outcome.Winner() {
	case domain.PlayerOne:
		res.Winner = outcome.Player1
	case domain.PlayerTwo:
		res.Winner = outcome.Player2
	default:
		res.Draw = true
	}
	return res, nil
}

// Review returns the persisted responses in presentation order.
func (s *QuizService) Review(ctx context.Context, gameID string) ([]domain.AnswerResponse, error) {
	outcome, err := s.ownedOutcome(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return outcome.Responses, nil
}

// Standings returns the bonus points accumulated by both players of a game.
func (s *QuizService) Standings(ctx context.Context, gameID string) (domain.Standings, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return domain.Standings{}, err
	}
	game, err := s.loadGame(ctx, user, gameID)
	if err != nil {
		return domain.Standings{}, err
	}

	entry := domain.LedgerEntry{GameID: game.ID, PlayerOne: game.PlayerOne, PlayerTwo: game.PlayerTwo}
	doc, err := s.store.Get(ctx, domain.CollectionPoints, game.ID)
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
	case err != nil:
		return domain.Standings{}, fmt.Errorf("load points: %w", err)
	default:
		if err := doc.Decode(&entry); err != nil {
			return domain.Standings{}, err
		}
	}

	st := domain.Standings{
		GameID: game.ID,
		Entries: []domain.StandingsEntry{
			{Player: game.PlayerOne, Points: entry.PlayerOnePoints},
			{Player: game.PlayerTwo, Points: entry.PlayerTwoPoints},
		},
	}
	sort.SliceStable(st.Entries, func(i, j int) bool {
		return st.Entries[i].Points.GreaterThan(st.Entries[j].Points)
	})
	if st.Entries[0].Points.Equal(st.Entries[1].Points) {
		st.Leader = "Both Players"
	} else {
		st.Leader = st.Entries[0].Player
	}
	return st, nil
}

// EndGame removes the lobby, the last outcome and the points ledger of a game.
func (s *QuizService) EndGame(ctx context.Context, gameID string) error {
	user, err := s.currentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.loadGame(ctx, user, gameID); err != nil {
		return err
	}
	if session, ok := s.sessions.Get(gameID); ok {
		if err := session.Abandon(); err != nil {
			return err
		}
		s.sessions.Delete(gameID)
	}

	for _, key := range [][2]string{
		{user.Partition(), gameID},
		{domain.CollectionGames, gameID},
		{domain.CollectionPoints, gameID},
	} {
		if err := s.store.Delete(ctx, key[0], key[1]); err != nil && !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("end game %s/%s: %w", key[0], key[1], err)
		}
	}
	s.logger.Info().Str("game_id", gameID).Msg("game ended")
	return nil
}

func (s *QuizService) finalize(ctx context.Context, session *Session) error {
	if session.State() == StateCompleted {
		return nil
	}
	err := session.Finalize(ctx, s.store)
	if err != nil {
		var pErr *domain.PersistenceError
		if errors.As(err, &pErr) {
			s.metrics.PersistenceFailed(pErr.Op)
		}
		s.logger.Error().Err(err).Str("game_id", session.ID()).Msg("finalize round")
		return err
	}
	snap := session.Snapshot()
	if snap.State == StateCompleted {
		s.sessions.Release(session.ID())
		s.metrics.SessionCompleted()
		ev := s.logger.Info().
			Str("game_id", session.ID()).
			Int("player_one_score", snap.Scores.PlayerOne).
			Int("player_two_score", snap.Scores.PlayerTwo)
		if snap.Award != nil {
			ev = ev.Str("player_one_award", snap.Award.PlayerOne.String()).
				Str("player_two_award", snap.Award.PlayerTwo.String())
		}
		ev.Msg("round completed")
	}
	return nil
}

func (s *QuizService) currentUser(ctx context.Context) (*domain.User, error) {
	if s.identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if user == nil || user.Email == "" {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

func (s *QuizService) loadGame(ctx context.Context, user *domain.User, gameID string) (domain.Game, error) {
	if gameID == "" {
		return domain.Game{}, domain.ErrGameNotFound
	}
	doc, err := s.store.Get(ctx, user.Partition(), gameID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("load game: %w", err)
	}
	var game domain.Game
	if err := doc.Decode(&game); err != nil {
		return domain.Game{}, err
	}
	game.ID = gameID
	return game, nil
}

func (s *QuizService) userGames(ctx context.Context, user *domain.User) ([]domain.Game, error) {
	docs, err := s.store.List(ctx, user.Partition())
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := make([]domain.Game, 0, len(docs))
	for id, doc := range docs {
		var g domain.Game
		if err := doc.Decode(&g); err != nil {
			return nil, err
		}
		g.ID = id
		games = append(games, g)
	}
	return games, nil
}

// ownedOutcome loads the outcome of a game that belongs to the signed-in user.
func (s *QuizService) ownedOutcome(ctx context.Context, gameID string) (domain.SessionOutcome, error) {
	user, err := s.currentUser(ctx)
	if err != nil {
		return domain.SessionOutcome{}, err
	}
	if _, err := s.loadGame(ctx, user, gameID); err != nil {
		return domain.SessionOutcome{}, err
	}
	return s.loadOutcome(ctx, gameID)
}

func (s *QuizService) loadOutcome(ctx context.Context, gameID string) (domain.SessionOutcome, error) {
	doc, err := s.store.Get(ctx, domain.CollectionGames, gameID)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return domain.SessionOutcome{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.SessionOutcome{}, fmt.Errorf("load outcome: %w", err)
	}
	var outcome domain.SessionOutcome
	if err := doc.Decode(&outcome); err != nil {
		return domain.SessionOutcome{}, err
	}
	return outcome, nil
}

// responseSeat attributes a response to a seat. Older outcomes carry only
// the player name.
func responseSeat(r domain.AnswerResponse, outcome domain.SessionOutcome) domain.Seat {
	if r.Seat != 0 {
		return r.Seat
	}
	switch r.Player {
	case outcome.Player1:
		return domain.PlayerOne
	case outcome.Player2:
		return domain.PlayerTwo
	}
	return 0
}

func answerOutcome(r domain.AnswerResponse) string {
	switch {
	case r.SelectedOption == nil:
		return "timeout"
	case r.IsCorrect():
		return "correct"
	default:
		return "wrong"
	}
}
