package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session holds the read-only client context the feed endpoints need. It is
// filled by whatever performs the login and is never modified by the feeds.
type Session struct {
	UUID                string
	CSRFToken           string
	PhoneID             string
	TimezoneOffset      int
	AuthenticatedUserID string

	// AutoPatch enables the compatibility patch of media objects in
	// responses.
	AutoPatch bool
	// DropIncompatKeys is forwarded to the patcher.
	DropIncompatKeys bool
}

// NewSession returns a session for the given user with freshly generated
// device identifiers and the local timezone offset.
func NewSession(userID, csrfToken string) Session {
	_, offset := time.Now().Zone()

	return Session{
		UUID:                uuid.NewString(),
		CSRFToken:           csrfToken,
		PhoneID:             uuid.NewString(),
		TimezoneOffset:      offset,
		AuthenticatedUserID: userID,
		AutoPatch:           true,
	}
}

// RankToken returns the token used to rank feed results, "<user id>_<uuid>".
func (s Session) RankToken() string {
	return fmt.Sprintf("%s_%s", s.AuthenticatedUserID, s.UUID)
}
