package repos

import "github.com/jmoiron/sqlx"

// NotificationRepo remembers which alerts a user has dismissed.
type NotificationRepo struct{ db *sqlx.DB }

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Dismiss(kind, ref string) error {
	_, err := exec(r.db, `
		INSERT INTO dismissed_notifications(kind, ref, dismissed_at) VALUES(?,?,?)
		ON CONFLICT(kind, ref) DO UPDATE SET dismissed_at = excluded.dismissed_at
	`, kind, ref, now())
	return err
}

func (r *NotificationRepo) Undismiss(kind, ref string) error {
	_, err := exec(r.db, `DELETE FROM dismissed_notifications WHERE kind = ? AND ref = ?`, kind, ref)
	return err
}

// Dismissed returns the dismissed refs of a kind as a set.
func (r *NotificationRepo) Dismissed(kind string) (map[string]bool, error) {
	var refs []string
	if err := sel(r.db, &refs, `SELECT ref FROM dismissed_notifications WHERE kind = ?`, kind); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(refs))
	for _, ref := range refs {
		out[ref] = true
	}
	return out, nil
}

// Prune forgets dismissals whose alert is no longer active, so the alert
// shows again if the condition comes back.
func (r *NotificationRepo) Prune(kind string, active []string) error {
	if len(active) == 0 {
		_, err := exec(r.db, `DELETE FROM dismissed_notifications WHERE kind = ?`, kind)
		return err
	}
	q, args, err := sqlx.In(`DELETE FROM dismissed_notifications WHERE kind = ? AND ref NOT IN (?)`, kind, active)
	if err != nil {
		return err
	}
	_, err = exec(r.db, q, args...)
	return err
}
