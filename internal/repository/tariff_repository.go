package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/poolhall-manager/internal/pricing"
)

// TariffRepo stores pricing configurations. Exactly one row is active.
type TariffRepo struct {
	db *sql.DB
}

func NewTariffRepo(db *sql.DB) *TariffRepo { return &TariffRepo{db: db} }

// Active returns the active tariff or ErrTariffNotFound on a fresh database.
func (r *TariffRepo) Active(ctx context.Context) (pricing.Tariff, error) {
	var (
		t      pricing.Tariff
		policy string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT policy, base_rate, reduced_rate, threshold_price, offset_minutes, cutoff_minutes,
		        floor_price, plateau_price, plateau_upper_bound, minimum_minutes
		   FROM tariffs WHERE active = TRUE ORDER BY id DESC LIMIT 1`).
		Scan(&policy, &t.BaseRate, &t.ReducedRate, &t.ThresholdPrice, &t.OffsetMinutes, &t.CutoffMinutes,
			&t.FloorPrice, &t.PlateauPrice, &t.PlateauUpperBound, &t.MinimumMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Tariff{}, ErrTariffNotFound
	}
	if err != nil {
		return pricing.Tariff{}, err
	}
	t.Policy = pricing.Policy(policy)
	if err := t.Validate(); err != nil {
		return pricing.Tariff{}, err
	}
	return t, nil
}

// Save makes t the active tariff. Earlier rows are kept for reference.
func (r *TariffRepo) Save(ctx context.Context, t pricing.Tariff) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `UPDATE tariffs SET active = FALSE WHERE active = TRUE`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tariffs (policy, base_rate, reduced_rate, threshold_price, offset_minutes, cutoff_minutes,
		                      floor_price, plateau_price, plateau_upper_bound, minimum_minutes, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?)`,
		string(t.Policy), t.BaseRate, t.ReducedRate, t.ThresholdPrice, t.OffsetMinutes, t.CutoffMinutes,
		t.FloorPrice, t.PlateauPrice, t.PlateauUpperBound, t.MinimumMinutes, utcNow()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Sync makes configured the active tariff unless the active row already
// matches it. previous is the zero Tariff on a fresh database.
func (r *TariffRepo) Sync(ctx context.Context, configured pricing.Tariff) (previous pricing.Tariff, changed bool, err error) {
	previous, err = r.Active(ctx)
	if err != nil && !errors.Is(err, ErrTariffNotFound) {
		return pricing.Tariff{}, false, err
	}
	if err == nil && previous.Equal(configured) {
		return previous, false, nil
	}
	if err := r.Save(ctx, configured); err != nil {
		return previous, false, err
	}
	return previous, true, nil
}
