// Package services contains the business logic of the TIL publication
// pipeline: the seed quota ledger, the candidate generation orchestrator,
// and the publish engine.
package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/tilgarden/tilgarden/internal/dbx"
	"github.com/tilgarden/tilgarden/internal/logging"
	sc "github.com/tilgarden/tilgarden/internal/server/config"
	"github.com/tilgarden/tilgarden/internal/server/repositories/repomanager"
)

// QuotaLedger tracks the per-user seed balance. Seeds gate AI generation;
// each of the two replenish sources credits at most one seed per calendar
// day in the account's time zone, independently of the other.
//
// Every mutation is a guarded single-statement update in the users
// repository, so concurrent calls for the same user cannot double-credit
// or double-debit.
type QuotaLedger struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	config *sc.Config
	log    logging.Logger
	now    func() time.Time
}

func NewQuotaLedger(db *sql.DB, rm repomanager.RepositoryManager, config *sc.Config, log logging.Logger) *QuotaLedger {
	return &QuotaLedger{db: db, rm: rm, config: config, log: log, now: time.Now}
}

// QuotaStatus is the read-side view the rest of the app renders.
type QuotaStatus struct {
	Count             int
	Max               int
	WateringAvailable bool
	SharingAvailable  bool
}

// HasQuota reports whether the user can start a generation.
func (l *QuotaLedger) HasQuota(ctx context.Context, userID string) (bool, error) {
	user, err := l.rm.Users(l.db).GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.QuotaCount > 0, nil
}

// Consume debits one seed. False means the balance was already zero.
func (l *QuotaLedger) Consume(ctx context.Context, userID string) (bool, error) {
	return l.consume(ctx, l.db, userID)
}

// consume is the DBTX-aware debit used both directly and inside the
// generation transaction.
func (l *QuotaLedger) consume(ctx context.Context, db dbx.DBTX, userID string) (bool, error) {
	return l.rm.Users(db).ConsumeQuota(ctx, userID)
}

// ReplenishWatering credits one seed for today's watering, if not yet done
// today and the balance is below the cap.
func (l *QuotaLedger) ReplenishWatering(ctx context.Context, userID string) (bool, error) {
	return l.replenish(ctx, userID, sourceWatering)
}

// ReplenishShare credits one seed for today's share, independent of
// watering.
func (l *QuotaLedger) ReplenishShare(ctx context.Context, userID string) (bool, error) {
	return l.replenish(ctx, userID, sourceShare)
}

type replenishSource int

const (
	sourceWatering replenishSource = iota
	sourceShare
)

func (l *QuotaLedger) replenish(ctx context.Context, userID string, source replenishSource) (bool, error) {
	repo := l.rm.Users(l.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	now := l.now()
	if user.QuotaCount >= l.config.QuotaMax {
		return false, nil
	}

	var prevAt sql.NullTime
	switch source {
	case sourceWatering:
		prevAt = user.LastWateringAt
	case sourceShare:
		prevAt = user.LastShareAt
	}
	if prevAt.Valid && !beforeCalendarDay(prevAt.Time, now, user.Location()) {
		return false, nil
	}

	// CAS against the values just read; a lost race simply reports no
	// credit rather than retrying.
	var ok bool
	switch source {
	case sourceWatering:
		ok, err = repo.ReplenishWatering(ctx, userID, user.QuotaCount, prevAt, now, l.config.QuotaMax)
	case sourceShare:
		ok, err = repo.ReplenishShare(ctx, userID, user.QuotaCount, prevAt, now, l.config.QuotaMax)
	}
	if err != nil {
		return false, err
	}
	if ok {
		l.log.Info(ctx, "seed replenished", "user_id", userID, "source", source)
	}
	return ok, nil
}

// Status reports the balance and which daily sources remain available.
func (l *QuotaLedger) Status(ctx context.Context, userID string) (*QuotaStatus, error) {
	user, err := l.rm.Users(l.db).GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	loc := user.Location()

	return &QuotaStatus{
		Count:             user.QuotaCount,
		Max:               l.config.QuotaMax,
		WateringAvailable: !user.LastWateringAt.Valid || beforeCalendarDay(user.LastWateringAt.Time, now, loc),
		SharingAvailable:  !user.LastShareAt.Valid || beforeCalendarDay(user.LastShareAt.Time, now, loc),
	}, nil
}

// beforeCalendarDay reports whether a falls on a date strictly before b's
// date in loc. Same-day and future-day timestamps both report false, so a
// skewed clock or a zone change can never unlock an extra credit.
func beforeCalendarDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	aDay := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDay := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return aDay.Before(bDay)
}
