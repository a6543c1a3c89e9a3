package shared

import (
	"context"
	"errors"
	"fmt"

	"github.com/tablewise/tablewise/internal/console"
)

// Credentials reads the bearer token and role of one stored session every
// time a privileged fetch runs, so a sign-out takes effect on the next poll.
func (sm *SessionManager) Credentials(sessionID string) console.Credentials {
	return console.CredentialsFunc(func(ctx context.Context) (string, console.Role, error) {
		sess, err := sm.LoadByID(ctx, sessionID)
		if errors.Is(err, ErrSessionNotFound) {
			return "", "", nil
		}
		if err != nil {
			return "", "", fmt.Errorf("load session: %w", err)
		}
		return sess.Token(), console.Role(sess.Role()), nil
	})
}
