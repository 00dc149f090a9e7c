package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bikeToWorkAPI/internal/challenge"
	"bikeToWorkAPI/internal/metrics"
	"bikeToWorkAPI/internal/notification"
	"bikeToWorkAPI/internal/stats"
	"bikeToWorkAPI/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

type challengeStore interface {
	Insert(ctx context.Context, c *challenge.Challenge) (uuid.UUID, error)
	Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*challenge.Challenge, error)
	ListEnded(ctx context.Context, today time.Time) ([]*challenge.Challenge, error)
	// Transition moves a challenge out of from. It reports false when the
	// challenge was no longer in that status.
	Transition(ctx context.Context, id uuid.UUID, from, to challenge.Status, winnerID *uuid.UUID) (bool, error)
}

type ChallengeService struct {
	store    challengeStore
	users    UserResolver
	rides    RideLister
	notifier utils.NotificationCreator
	opts     stats.Options
	now      func() time.Time
}

func NewChallengeService(db *pgxpool.Pool, users UserResolver, rides RideLister, notifier utils.NotificationCreator, opts stats.Options) *ChallengeService {
	return newChallengeService(&pgChallengeStore{db: db, cal: opts.Calendar}, users, rides, notifier, opts)
}

func newChallengeService(store challengeStore, users UserResolver, rides RideLister, notifier utils.NotificationCreator, opts stats.Options) *ChallengeService {
	return &ChallengeService{
		store:    store,
		users:    users,
		rides:    rides,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *ChallengeService) today() time.Time {
	return s.opts.Calendar.Day(s.now())
}

// CreateChallenge starts a pending challenge from today until endDate
// (YYYY-MM-DD, inclusive) and notifies the opponent.
func (s *ChallengeService) CreateChallenge(ctx context.Context, clerkID string, req challenge.CreateChallengeRequest) (*challenge.Challenge, error) {
	creatorID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	parsed, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date %q: %w", req.EndDate, ErrInvalidInput)
	}
	endDate := s.opts.Calendar.Date(parsed.Year(), parsed.Month(), parsed.Day())
	today := s.today()
	if err := challenge.ValidateNew(creatorID, req.OpponentID, endDate, today); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	id, err := s.store.Insert(ctx, &challenge.Challenge{
		CreatorID:  creatorID,
		OpponentID: req.OpponentID,
		StartDate:  today,
		EndDate:    endDate,
		Status:     challenge.StatusPending,
	})
	if err != nil {
		return nil, err
	}
	created, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge %s created by %s against %s", created.ID, created.CreatorID, created.OpponentID)
	utils.Notify(s.notifier, notification.ChallengeReceived(created.OpponentID, created.ID, created.CreatorUsername))
	return created, nil
}

// RespondToChallenge accepts or declines a pending challenge on behalf of its opponent.
func (s *ChallengeService) RespondToChallenge(ctx context.Context, clerkID string, challengeID uuid.UUID, accept bool) (*challenge.Challenge, error) {
	responderID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !c.Participant(responderID) {
		return nil, ErrNotFound
	}

	next, err := c.Respond(responderID, accept)
	if err != nil {
		if errors.Is(err, challenge.ErrNotOpponent) {
			return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	ok, err := s.store.Transition(ctx, c.ID, challenge.StatusPending, next, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("challenge %s is no longer pending: %w", c.ID, ErrInvalidState)
	}
	c.Status = next

	utils.Notify(s.notifier, notification.ChallengeAnswered(c.CreatorID, c.ID, c.OpponentUsername, accept))
	return c, nil
}

func (s *ChallengeService) GetUserChallenges(ctx context.Context, clerkID string) ([]*challenge.Challenge, error) {
	userID, err := s.users.ResolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}
	return s.store.ListForUser(ctx, userID)
}

// ResolveEnded completes every active challenge whose last day is before
// today and returns how many it completed.
func (s *ChallengeService) ResolveEnded(ctx context.Context) (int, error) {
	today := s.today()
	ended, err := s.store.ListEnded(ctx, today)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, c := range ended {
		if !c.HasEnded(today) {
			continue
		}
		if err := s.resolve(ctx, c); err != nil {
			log.Printf("Failed to resolve challenge %s: %v", c.ID, err)
			continue
		}
		resolved++
	}
	return resolved, nil
}

func (s *ChallengeService) resolve(ctx context.Context, c *challenge.Challenge) error {
	var creatorRides, opponentRides int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.countRides(gctx, c.CreatorID, c)
		creatorRides = n
		return err
	})
	g.Go(func() error {
		n, err := s.countRides(gctx, c.OpponentID, c)
		opponentRides = n
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	winnerID := c.DecideWinner(creatorRides, opponentRides)
	ok, err := s.store.Transition(ctx, c.ID, challenge.StatusActive, challenge.StatusCompleted, winnerID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	result := "winner"
	if winnerID == nil {
		result = "tie"
	}
	metrics.ChallengesResolved.WithLabelValues(result).Inc()
	log.Printf("Challenge %s completed: %d vs %d", c.ID, creatorRides, opponentRides)

	utils.Notify(s.notifier,
		notification.ChallengeFinished(c.CreatorID, c.ID, winnerID, creatorRides, opponentRides),
		notification.ChallengeFinished(c.OpponentID, c.ID, winnerID, opponentRides, creatorRides),
	)
	return nil
}

func (s *ChallengeService) countRides(ctx context.Context, userID uuid.UUID, c *challenge.Challenge) (int, error) {
	records, err := s.rides.ListRecords(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load rides for user %s: %w", userID, err)
	}
	return challenge.CountInWindow(s.opts.Policy.Filter(records), c.StartDate, c.EndDate, s.opts.Calendar), nil
}

type pgChallengeStore struct {
	db  *pgxpool.Pool
	cal stats.Calendar
}

const challengeColumns = `
	c.id, c.creator_id, c.opponent_id, c.start_date, c.end_date, c.status, c.winner_id, c.created_at,
	COALESCE(cp.username, ''), COALESCE(op.username, ''), wp.username
`

const challengeJoins = `
	FROM challenges c
	LEFT JOIN profiles cp ON cp.id = c.creator_id
	LEFT JOIN profiles op ON op.id = c.opponent_id
	LEFT JOIN profiles wp ON wp.id = c.winner_id
`

func (p *pgChallengeStore) scan(row rowScanner) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	var status string
	err := row.Scan(
		&c.ID, &c.CreatorID, &c.OpponentID, &c.StartDate, &c.EndDate, &status, &c.WinnerID, &c.CreatedAt,
		&c.CreatorUsername, &c.OpponentUsername, &c.WinnerUsername,
	)
	if err != nil {
		return nil, err
	}
	c.Status = challenge.Status(status)
	c.StartDate = p.cal.Date(c.StartDate.Year(), c.StartDate.Month(), c.StartDate.Day())
	c.EndDate = p.cal.Date(c.EndDate.Year(), c.EndDate.Month(), c.EndDate.Day())
	return c, nil
}

func (p *pgChallengeStore) list(ctx context.Context, query string, args ...any) ([]*challenge.Challenge, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*challenge.Challenge{}
	for rows.Next() {
		c, err := p.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (p *pgChallengeStore) Insert(ctx context.Context, c *challenge.Challenge) (uuid.UUID, error) {
	var id uuid.UUID
	err := p.db.QueryRow(ctx, `
		INSERT INTO challenges (creator_id, opponent_id, start_date, end_date, status)
		VALUES ($1, $2, $3::date, $4::date, $5)
		RETURNING id
	`, c.CreatorID, c.OpponentID, c.StartDate.Format(dateLayout), c.EndDate.Format(dateLayout), c.Status).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return uuid.Nil, fmt.Errorf("opponent %s: %w", c.OpponentID, ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return id, nil
}

func (p *pgChallengeStore) Get(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	c, err := p.scan(p.db.QueryRow(ctx, `SELECT `+challengeColumns+challengeJoins+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("challenge %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (p *pgChallengeStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*challenge.Challenge, error) {
	return p.list(ctx, `SELECT `+challengeColumns+challengeJoins+`
		WHERE c.creator_id = $1 OR c.opponent_id = $1
		ORDER BY c.created_at DESC
	`, userID)
}

func (p *pgChallengeStore) ListEnded(ctx context.Context, today time.Time) ([]*challenge.Challenge, error) {
	return p.list(ctx, `SELECT `+challengeColumns+challengeJoins+`
		WHERE c.status = 'active' AND c.end_date < $1::date
	`, today.Format(dateLayout))
}

func (p *pgChallengeStore) Transition(ctx context.Context, id uuid.UUID, from, to challenge.Status, winnerID *uuid.UUID) (bool, error) {
	result, err := p.db.Exec(ctx, `
		UPDATE challenges SET status = $3, winner_id = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, winnerID)
	if err != nil {
		return false, fmt.Errorf("failed to update challenge %s: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
