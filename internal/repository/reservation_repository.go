package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/travel-booking/internal/model"
)

const reservationCols = `id, user_id, package_id, num_travelers, total_price_cents, status,
	payment_status, booking_date, created_at, updated_at`

// ReservationRepo provides the reservation lifecycle operations.  Every
// write that changes the number of travelers held by a reservation adjusts
// packages.available_slots in the same transaction, so the slot count and
// the set of active reservations cannot drift apart.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationEdit carries the user-editable fields of a reservation.  A nil
// BookingDate keeps the stored value.
type ReservationEdit struct {
	NumTravelers int
	BookingDate  *time.Time
}

// Create books travelers on a package for userID.  The slot check and
// the decrement are one conditional UPDATE; the reservation row is inserted
// only when that UPDATE matched, so concurrent bookings can never take more
// slots than the package has.
func (r *ReservationRepo) Create(ctx context.Context, userID, packageID string, travelers int) (*model.Reservation, error) {
	if err := model.ValidateTravelers(travelers); err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.Create: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := takeSlots(ctx, tx, packageID, travelers); err != nil {
		return nil, err
	}
	pkg, err := getPackage(ctx, tx, packageID)
	if err != nil {
		return nil, err
	}

	ts := now()
	res := model.Reservation{
		ID:              uuid.NewString(),
		UserID:          userID,
		PackageID:       packageID,
		NumTravelers:    travelers,
		TotalPriceCents: model.TotalPrice(pkg.PriceCents, travelers),
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentUnpaid,
		BookingDate:     ts,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	const q = `INSERT INTO reservations (` + reservationCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), res.ID, res.UserID, res.PackageID, res.NumTravelers,
		res.TotalPriceCents, res.Status, res.PaymentStatus, res.BookingDate, res.CreatedAt, res.UpdatedAt); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Create: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Create: %w", err)
	}
	committed = true

	pkgs := []model.Package{*pkg}
	if err := embedPackageRefs(ctx, r.db, pkgs); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Create: %w", err)
	}
	res.Package = &pkgs[0]
	return &res, nil
}

// Update changes the traveler count (and optionally the booking date) of a
// reservation owned by userID.  The difference in travelers is taken from
// or returned to the package atomically and the total price is recomputed
// from the current package price.
func (r *ReservationRepo) Update(ctx context.Context, id, userID string, edit ReservationEdit) (*model.Reservation, error) {
	if err := model.ValidateTravelers(edit.NumTravelers); err != nil {
		return nil, err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.Update: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := getReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if cur.UserID != userID {
		return nil, ErrForbidden
	}
	if !model.CanEditTravelers(cur.Status) {
		return nil, model.ErrNotEditable
	}

	switch delta := edit.NumTravelers - cur.NumTravelers; {
	case delta > 0:
		if err := takeSlots(ctx, tx, cur.PackageID, delta); err != nil {
			return nil, err
		}
	case delta < 0:
		if err := releaseSlots(ctx, tx, cur.PackageID, -delta); err != nil {
			return nil, err
		}
	}
	pkg, err := getPackage(ctx, tx, cur.PackageID)
	if err != nil {
		return nil, err
	}

	next := *cur
	next.NumTravelers = edit.NumTravelers
	next.TotalPriceCents = model.TotalPrice(pkg.PriceCents, edit.NumTravelers)
	if edit.BookingDate != nil {
		next.BookingDate = edit.BookingDate.UTC()
	}
	next.UpdatedAt = now()
	const q = `UPDATE reservations SET num_travelers = ?, total_price_cents = ?, booking_date = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ? AND num_travelers = ?`
	res, err := tx.ExecContext(ctx, tx.Rebind(q), next.NumTravelers, next.TotalPriceCents, next.BookingDate,
		next.UpdatedAt, id, userID, cur.Status, cur.NumTravelers)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.Update: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, conflictOr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Update: %w", err)
	}
	committed = true
	next.Package = pkg
	return &next, nil
}

// Cancel moves a pending or confirmed reservation to cancelled and returns
// its travelers to the package.  When asAdmin is false only the owner may
// cancel.
func (r *ReservationRepo) Cancel(ctx context.Context, id, actorID string, asAdmin bool) (*model.Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.Cancel: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := getReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !asAdmin && cur.UserID != actorID {
		return nil, ErrForbidden
	}
	if !model.CanCancel(cur.Status) {
		return nil, model.ErrNotCancellable
	}
	next, err := moveStatus(ctx, tx, cur, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Cancel: %w", err)
	}
	committed = true
	return next, nil
}

// SetStatus applies an administrative status transition.  Transitions not
// allowed by the lifecycle return model.ErrInvalidTransition; re-applying
// the current status is a no-op.
func (r *ReservationRepo) SetStatus(ctx context.Context, id string, to model.Status) (*model.Reservation, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidTransition, to)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.SetStatus: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := getReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := model.CheckTransition(cur.Status, to); err != nil {
		return nil, err
	}
	if cur.Status == to {
		return cur, nil
	}
	next, err := moveStatus(ctx, tx, cur, to)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ReservationRepo.SetStatus: %w", err)
	}
	committed = true
	return next, nil
}

// SetPaymentStatus records an administrative payment update.  Payment
// status moves independently of the fulfilment status.
func (r *ReservationRepo) SetPaymentStatus(ctx context.Context, id string, p model.PaymentStatus) (*model.Reservation, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown payment status %q", p)
	}
	const q = `UPDATE reservations SET payment_status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), p, now(), id)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.SetPaymentStatus: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, err
	}
	return getReservation(ctx, r.db, id)
}

// Delete permanently removes a reservation owned by userID.  The deletion
// rule is part of the DELETE itself so that no row changes unless it holds
// at the instant of the write.  When nothing was deleted the row is re-read
// to report why: ErrNotFound, ErrForbidden or model.ErrNotDeletable.
func (r *ReservationRepo) Delete(ctx context.Context, id, userID string) error {
	const q = `DELETE FROM reservations
		WHERE id = ? AND user_id = ? AND status = ? AND payment_status = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), id, userID, model.StatusCancelled, model.PaymentUnpaid)
	if err != nil {
		return fmt.Errorf("ReservationRepo.Delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReservationRepo.Delete: %w", err)
	}
	if n == 1 {
		return nil
	}
	cur, err := getReservation(ctx, r.db, id)
	if err != nil {
		return err
	}
	if cur.UserID != userID {
		return ErrForbidden
	}
	return model.CheckDelete(*cur)
}

// Get returns a reservation with its package and owner profile embedded.
func (r *ReservationRepo) Get(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := getReservation(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	list := []model.Reservation{*res}
	if err := embedReservationRefs(ctx, r.db, list, true); err != nil {
		return nil, fmt.Errorf("ReservationRepo.Get: %w", err)
	}
	return &list[0], nil
}

// GetForUser returns a reservation only when userID owns it.  Rows owned
// by someone else are reported as ErrNotFound.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID string) (*model.Reservation, error) {
	var res model.Reservation
	q := r.db.Rebind("SELECT " + reservationCols + " FROM reservations WHERE id = ? AND user_id = ?")
	err := sqlx.GetContext(ctx, r.db, &res, q, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ReservationRepo.GetForUser: %w", err)
	}
	list := []model.Reservation{res}
	if err := embedReservationRefs(ctx, r.db, list, false); err != nil {
		return nil, fmt.Errorf("ReservationRepo.GetForUser: %w", err)
	}
	return &list[0], nil
}

// ListByUser returns the user's reservations, newest first, each with its
// package embedded.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID string) ([]model.Reservation, error) {
	out := []model.Reservation{}
	q := r.db.Rebind("SELECT " + reservationCols + " FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id")
	if err := sqlx.SelectContext(ctx, r.db, &out, q, userID); err != nil {
		return nil, fmt.Errorf("ReservationRepo.ListByUser: %w", err)
	}
	if err := embedReservationRefs(ctx, r.db, out, false); err != nil {
		return nil, fmt.Errorf("ReservationRepo.ListByUser: %w", err)
	}
	return out, nil
}

// ListAll returns every reservation for the back office, optionally
// restricted to one status, with package and owner profile embedded.
func (r *ReservationRepo) ListAll(ctx context.Context, status model.Status) ([]model.Reservation, error) {
	out := []model.Reservation{}
	q := "SELECT " + reservationCols + " FROM reservations"
	var args []any
	if status != "" {
		q += " WHERE status = ?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id"
	if err := sqlx.SelectContext(ctx, r.db, &out, r.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("ReservationRepo.ListAll: %w", err)
	}
	if err := embedReservationRefs(ctx, r.db, out, true); err != nil {
		return nil, fmt.Errorf("ReservationRepo.ListAll: %w", err)
	}
	return out, nil
}

func getReservation(ctx context.Context, q sqlx.ExtContext, id string) (*model.Reservation, error) {
	var res model.Reservation
	err := sqlx.GetContext(ctx, q, &res, q.Rebind("SELECT "+reservationCols+" FROM reservations WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getReservation: %w", err)
	}
	return &res, nil
}

// moveStatus writes cur -> to guarded on the status that was read, and
// returns the travelers to the package on cancellation.  Completed trips
// keep their slots.
func moveStatus(ctx context.Context, tx *sqlx.Tx, cur *model.Reservation, to model.Status) (*model.Reservation, error) {
	next := *cur
	next.Status = to
	next.UpdatedAt = now()
	const q = `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ? AND num_travelers = ?`
	res, err := tx.ExecContext(ctx, tx.Rebind(q), to, next.UpdatedAt, cur.ID, cur.Status, cur.NumTravelers)
	if err != nil {
		return nil, fmt.Errorf("moveStatus: %w", err)
	}
	if err := expectOne(res); err != nil {
		return nil, conflictOr(err)
	}
	if cur.Status.Active() && to == model.StatusCancelled {
		if err := releaseSlots(ctx, tx, cur.PackageID, cur.NumTravelers); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

// takeSlots decrements available_slots by n only if at least n remain.
func takeSlots(ctx context.Context, tx *sqlx.Tx, packageID string, n int) error {
	const q = `UPDATE packages SET available_slots = available_slots - ?, updated_at = ?
		WHERE id = ? AND available_slots >= ?`
	res, err := tx.ExecContext(ctx, tx.Rebind(q), n, now(), packageID, n)
	if err != nil {
		return fmt.Errorf("takeSlots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("takeSlots: %w", err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := getPackage(ctx, tx, packageID); err != nil {
		return err
	}
	return ErrInsufficientSlots
}

func releaseSlots(ctx context.Context, tx *sqlx.Tx, packageID string, n int) error {
	const q = `UPDATE packages SET available_slots = available_slots + ?, updated_at = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, tx.Rebind(q), n, now(), packageID); err != nil {
		return fmt.Errorf("releaseSlots: %w", err)
	}
	return nil
}

// conflictOr maps "no row matched the guard" to ErrConflict.
func conflictOr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrConflict
	}
	return err
}

// embedReservationRefs attaches packages (with their own references) and,
// when withUser is set, owner profiles.
func embedReservationRefs(ctx context.Context, q sqlx.ExtContext, rs []model.Reservation, withUser bool) error {
	if len(rs) == 0 {
		return nil
	}
	pkgIDs := make([]string, 0, len(rs))
	userIDs := make([]string, 0, len(rs))
	for _, res := range rs {
		pkgIDs = append(pkgIDs, res.PackageID)
		userIDs = append(userIDs, res.UserID)
	}
	var pkgs []model.Package
	if err := selectIn(ctx, q, &pkgs, "SELECT "+packageCols+" FROM packages WHERE id IN (?)", pkgIDs); err != nil {
		return err
	}
	if err := embedPackageRefs(ctx, q, pkgs); err != nil {
		return err
	}
	pkgByID := make(map[string]*model.Package, len(pkgs))
	for i := range pkgs {
		pkgByID[pkgs[i].ID] = &pkgs[i]
	}
	for i := range rs {
		rs[i].Package = pkgByID[rs[i].PackageID]
	}
	if !withUser {
		return nil
	}
	var profiles []model.Profile
	if err := selectIn(ctx, q, &profiles, "SELECT "+profileCols+" FROM profiles WHERE id IN (?)", userIDs); err != nil {
		return err
	}
	byID := make(map[string]*model.Profile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}
	for i := range rs {
		rs[i].User = byID[rs[i].UserID]
	}
	return nil
}
