package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dylantarre/trend-spotter/internal/trends"
)

const signupNamespace = "-nws"

// AddNewsletterSignup records an email address. Emails compare case-insensitively.
//
// Returns [trends.ErrAlreadySubscribed] if the address is already on the list.
func (r Repo) AddNewsletterSignup(ctx context.Context, s trends.NewsletterSignup) (string, error) {
	const q = `INSERT INTO newsletter_signups (id, email, name, source, trend_category)
	VALUES (:id, :email, :name, :source, :trend_category);`

	s.ID = uuid.NewString() + signupNamespace
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))

	_, err := r.db.NamedExecContext(ctx, q, s)
	if sqliteErr := (&sqlite.Error{}); errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return "", fmt.Errorf("signup for %q: %w", s.Email, trends.ErrAlreadySubscribed)
	}
	if err != nil {
		return "", fmt.Errorf("error inserting newsletter signup: %w", err)
	}

	return s.ID, nil
}

// NewsletterSignups lists every signup, newest first.
func (r Repo) NewsletterSignups(ctx context.Context) ([]trends.NewsletterSignup, error) {
	const q = `SELECT id, email, name, source, trend_category, created_at
	FROM newsletter_signups ORDER BY created_at DESC, rowid DESC;`

	signups := []trends.NewsletterSignup{}
	if err := r.db.SelectContext(ctx, &signups, q); err != nil {
		return nil, fmt.Errorf("error selecting newsletter signups: %s", err)
	}

	return signups, nil
}
