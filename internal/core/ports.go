package core

import (
	"context"
	"time"
)

// Scope is anything elements can be queried from: a page or an element
type Scope interface {
	// Elements returns every match of a CSS selector in document order.
	// It does not wait for elements to appear.
	Elements(ctx context.Context, selector string) ([]Element, error)
}

// Element is a handle to one on-page element
type Element interface {
	Scope

	// Text returns the element's rendered text content
	Text(ctx context.Context) (string, error)

	// Attribute returns an attribute value and whether it is present
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Visible reports whether the element is rendered and not hidden
	Visible(ctx context.Context) (bool, error)

	// Checked reports the checked property of checkbox-like inputs
	Checked(ctx context.Context) (bool, error)

	// Click clicks the element
	Click(ctx context.Context) error

	// Fill replaces the element's value with text
	Fill(ctx context.Context, text string) error
}

// Page is a single navigable tab owned by one operation
type Page interface {
	Scope

	// Navigate loads url and waits for the load event
	Navigate(ctx context.Context, url string) error

	// URL returns the current location
	URL(ctx context.Context) (string, error)

	// WaitIdle waits until the page is idle or the timeout elapses
	WaitIdle(ctx context.Context, timeout time.Duration) error

	// Scroll scrolls the viewport by distance pixels (negative scrolls up)
	Scroll(ctx context.Context, distance int) error

	// Close releases the page. Further use fails with ErrPageClosed.
	Close() error
}

// Session is the single live browser context
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
	Closed() bool
}

// SessionManager owns the session singleton
type SessionManager interface {
	Acquire(ctx context.Context, cookieStorePath string) (Session, error)

	// Forget closes the live session, if any, and deletes the cookie store
	Forget(ctx context.Context, cookieStorePath string) error
}

// CredentialSource supplies login credentials
type CredentialSource interface {
	// GetCredentials returns the active credential or an error wrapping ErrAuthenticationFailure
	GetCredentials(ctx context.Context) (Credential, error)
}

// CredentialStore is the persistent credential collaborator
type CredentialStore interface {
	CredentialSource
	SetCredentials(ctx context.Context, cred Credential) error
	ClearCredentials(ctx context.Context) error
}

// RepositoryPort defines the interface for data persistence
type RepositoryPort interface {
	CredentialStore

	// Profile name scraped from the site for the active account
	SetProfileName(ctx context.Context, name string) error
	GetProfileName(ctx context.Context) (string, error)

	// History operations
	CreateHistory(ctx context.Context, history *History) error
	GetTodayActionCount(ctx context.Context) (int64, error)
	GetRecentHistory(ctx context.Context, limit int) ([]*History, error)

	// Rate limiting
	CanPerformAction(ctx context.Context, dailyLimit int) (bool, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
