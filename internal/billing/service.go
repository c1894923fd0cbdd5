// Package billing implements the game session lifecycle: claiming a table,
// stopping the game and pricing it, recording payment and summarising the
// history. Start and stop each run in a single transaction so the table's
// occupancy and the session row never disagree.
package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/poolhall-manager/internal/metrics"
	"github.com/iliyamo/poolhall-manager/internal/model"
	"github.com/iliyamo/poolhall-manager/internal/pricing"
	"github.com/iliyamo/poolhall-manager/internal/queue"
	"github.com/iliyamo/poolhall-manager/internal/repository"
)

// EventPublisher receives a notification after a stop has been committed.
type EventPublisher interface {
	PublishSessionStopped(ctx context.Context, ev queue.SessionStoppedEvent) error
}

// Service coordinates tables, clients and sessions. Its fields are set at
// construction and never change, so one Service is shared by all requests.
type Service struct {
	db       *sql.DB
	tables   *repository.TableRepo
	clients  *repository.ClientRepo
	sessions *repository.SessionRepo
	tariff   pricing.Tariff

	now    func() time.Time
	loc    *time.Location
	events EventPublisher
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLocation sets the zone used for "today" and the peak hour.
func WithLocation(loc *time.Location) Option { return func(s *Service) { s.loc = loc } }

// WithPublisher sets the sink for session.stopped events.
func WithPublisher(p EventPublisher) Option { return func(s *Service) { s.events = p } }

func NewService(db *sql.DB, tables *repository.TableRepo, clients *repository.ClientRepo,
	sessions *repository.SessionRepo, tariff pricing.Tariff, opts ...Option) *Service {
	s := &Service{
		db:       db,
		tables:   tables,
		clients:  clients,
		sessions: sessions,
		tariff:   tariff,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tariff returns the pricing configuration the service was built with.
func (s *Service) Tariff() pricing.Tariff { return s.tariff }

// Now is the service clock, used to measure running sessions.
func (s *Service) Now() time.Time { return s.now() }

// Location is the zone used for calendar days.
func (s *Service) Location() *time.Location { return s.loc }

// clock returns the current instant in the form stored in the database.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// StartSession claims the table and opens a session on it. A table that is
// missing, occupied or out of service yields a conflict and nothing is
// written. clientID is optional but must reference an existing client.
func (s *Service) StartSession(ctx context.Context, tableID uint64, clientID *uint64) (*model.Session, error) {
	if tableID == 0 {
		return nil, fmt.Errorf("%w: table_id is required", repository.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if clientID != nil {
		if _, err := s.clients.GetByIDTx(ctx, tx, *clientID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: client %d does not exist", repository.ErrValidation, *clientID)
			}
			return nil, fmt.Errorf("load client: %w", err)
		}
	}

	now := s.clock()
	if err := s.tables.OccupyTx(ctx, tx, tableID, now); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordConflict("start")
			return nil, err
		}
		return nil, fmt.Errorf("occupy table: %w", err)
	}

	sess := &model.Session{TableID: tableID, ClientID: clientID, StartTime: now}
	if err := s.sessions.CreateTx(ctx, tx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	created, err := s.sessions.GetByIDTx(ctx, tx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	metrics.RecordSessionStarted()
	log.Printf("billing: session %d started on table %d", created.ID, tableID)
	return created, nil
}

// StopSession ends a running session: the price is computed from the
// fractional minutes played, the table is freed and, when payerName is not
// blank, the payer is found or created by exact name and attached. Stopping
// a session that is already stopped is a conflict and leaves its price
// untouched.
func (s *Service) StopSession(ctx context.Context, sessionID uint64, payerName string) (*model.Session, error) {
	payerName = strings.TrimSpace(payerName)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := s.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.InProgress {
		metrics.RecordConflict("stop")
		return nil, repository.ErrSessionStopped
	}
	table, err := s.tables.GetByIDTx(ctx, tx, sess.TableID)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}

	end := s.clock()
	if end.Before(sess.StartTime) {
		end = sess.StartTime
	}
	minutes := end.Sub(sess.StartTime).Minutes()
	price := pricing.Calculate(s.tariff, minutes, table.HourlyRate)

	var clientID *uint64
	if payerName != "" {
		c, err := s.clients.FindOrCreateByNameTx(ctx, tx, payerName, end)
		if err != nil {
			return nil, fmt.Errorf("resolve payer: %w", err)
		}
		clientID = &c.ID
	}

	if err := s.sessions.StopTx(ctx, tx, sessionID, end, price, clientID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordConflict("stop")
			return nil, err
		}
		return nil, fmt.Errorf("stop session: %w", err)
	}
	if err := s.tables.ReleaseTx(ctx, tx, sess.TableID, end); err != nil {
		return nil, fmt.Errorf("release table: %w", err)
	}
	stopped, err := s.sessions.GetByIDTx(ctx, tx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true

	metrics.RecordSessionStopped(string(s.tariff.Policy), minutes, price)
	log.Printf("billing: session %d stopped after %.2f min, price %s", sessionID, minutes, price.StringFixed(2))
	s.publishStopped(ctx, stopped, minutes)
	return stopped, nil
}

func (s *Service) publishStopped(ctx context.Context, sess *model.Session, minutes float64) {
	if s.events == nil || sess.EndTime == nil {
		return
	}
	ev := queue.SessionStoppedEvent{
		SessionID:   sess.ID,
		TableID:     sess.TableID,
		TableNumber: sess.TableNumber,
		TableName:   sess.TableName,
		ClientID:    sess.ClientID,
		StartTime:   sess.StartTime,
		EndTime:     *sess.EndTime,
		Minutes:     minutes,
		Price:       sess.Price,
		Policy:      string(s.tariff.Policy),
		StoppedAt:   *sess.EndTime,
	}
	if sess.ClientName != nil {
		ev.ClientName = *sess.ClientName
	}
	if err := s.events.PublishSessionStopped(ctx, ev); err != nil {
		log.Printf("billing: publish session.stopped for %d failed: %v", sess.ID, err)
	}
}

// MarkPaid flags the session as paid. Repeating the call is harmless.
func (s *Service) MarkPaid(ctx context.Context, sessionID uint64) (*model.Session, error) {
	return s.sessions.MarkPaid(ctx, sessionID, s.clock())
}

// SetNextPlayer stores who plays next on the session's table. A blank name
// clears the hint.
func (s *Service) SetNextPlayer(ctx context.Context, sessionID uint64, name string) (*model.Session, error) {
	var next *string
	if name = strings.TrimSpace(name); name != "" {
		next = &name
	}
	return s.sessions.SetNextPlayer(ctx, sessionID, next, s.clock())
}

// ToggleTableAvailability takes a table out of service or puts it back.
// A running game is not affected.
func (s *Service) ToggleTableAvailability(ctx context.Context, tableID uint64) (*model.Table, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t, err := s.tables.ToggleInServiceTx(ctx, tx, tableID, s.clock())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return t, nil
}
