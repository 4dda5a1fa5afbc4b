package proxmox

import (
	"context"
	"errors"
	"net/url"
)

// Session is the credential pair returned by a successful login.
type Session struct {
	Ticket    string
	CSRFToken string
}

// Login authenticates against /access/ticket and stores the resulting
// session on the client. Subsequent requests carry it until the next Login.
//
// The ticket endpoint answers bad credentials with a server error, so a
// server error here is reported as invalid credentials. Every other failure
// is reported as a connection error carrying the underlying message.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	// The ticket request is always anonymous, even when re-logging in.
	doc, err := c.anonymous().Post(ctx, "/access/ticket", form)
	if err != nil {
		if errors.Is(err, ErrServer) {
			return nil, &Error{Kind: KindInvalidCredentials, Message: "authentication failed for " + username}
		}
		return nil, &Error{Kind: KindConnection, Message: err.Error(), Err: transportCause(err)}
	}

	var ticket Ticket
	if err := doc.Decode(&ticket); err != nil {
		return nil, &Error{Kind: KindConnection, Message: err.Error()}
	}

	s := &Session{
		Ticket:    ticket.Ticket,
		CSRFToken: ticket.CSRFPreventionToken,
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	c.logger.Info().Str("user", username).Msg("Logged in")

	copied := *s
	return &copied, nil
}

// Session returns a copy of the current session, or nil before Login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// transportCause returns the raw transport error behind a gateway error, so
// a re-classified error does not also match its original kind.
func transportCause(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// anonymous returns a client sharing the transport but carrying no session.
func (c *Client) anonymous() *Client {
	return &Client{
		endpoint:   c.endpoint,
		httpClient: c.httpClient,
		logger:     c.logger,
	}
}
