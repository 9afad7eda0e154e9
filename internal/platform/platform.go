// Package platform declares the narrow capabilities the chat platform
// collaborator must provide. The core never renders UI and never speaks the
// platform's wire protocol; it only asks for an isolated space and posts
// notifications into it.
package platform

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// Platform is implemented by the bot gateway adapter.
type Platform interface {
	// CreateIsolatedSpace creates a private communication space visible only
	// to the given members and returns an opaque reference to it.
	CreateIsolatedSpace(ctx context.Context, matchID uuid.UUID, memberIDs []string) (string, error)

	// NotifySpace posts a message into a previously created space.
	NotifySpace(ctx context.Context, spaceRef, message string) error
}
