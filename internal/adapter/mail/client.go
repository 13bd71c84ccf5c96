// Package mail retrieves raw messages from an IMAP account. It is the
// pipeline's external input collaborator: it delivers RawMessage records and
// tracks nothing itself.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"golang.org/x/oauth2"

	"github.com/sthar2820/Job-Application-Tracker/internal/config"
	"github.com/sthar2820/Job-Application-Tracker/internal/domain"
)

// Client fetches messages over IMAP. Each FetchSince dials a fresh
// connection: polls are minutes apart and servers drop idle sessions anyway.
type Client struct {
	cfg    config.MailConfig
	log    *slog.Logger
	tokens oauth2.TokenSource
}

// New creates a mail client from configuration. With a client id configured,
// XOAUTH2 access tokens are minted from the refresh token and cached across
// polls until they expire.
func New(cfg config.MailConfig, log *slog.Logger) *Client {
	c := &Client{cfg: cfg, log: log}
	if cfg.AuthMode == "xoauth2" && cfg.ClientID != "" {
		oc := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
		}
		c.tokens = oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})
	}
	return c
}

// FetchSince returns messages received on or after since, oldest first,
// capped at the configured batch size. Authentication failures wrap
// domain.ErrAuth so the caller aborts instead of retrying a dead credential.
func (c *Client) FetchSince(ctx context.Context, since time.Time) ([]domain.RawMessage, error) {
	cl, err := client.DialTLS(c.cfg.Host, &tls.Config{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.cfg.Host, err)
	}
	defer cl.Logout() //nolint:errcheck

	if err := c.login(cl); err != nil {
		return nil, fmt.Errorf("login %s: %w: %v", c.cfg.Username, domain.ErrAuth, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mbox, err := cl.Select(c.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", c.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	seqs, err := cl.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("search since %s: %w", since.Format(time.RFC3339), err)
	}
	if len(seqs) == 0 {
		return nil, nil
	}
	// Cap to the newest MaxBatch; older mail is picked up by later polls
	// only if it reappears, which it does not, so prefer dropping the tail
	// of a huge first sync over stalling the poll loop.
	if max := c.cfg.MaxBatch; max > 0 && len(seqs) > max {
		seqs = seqs[len(seqs)-max:]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msgs, err := c.fetch(cl, seqs)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt) })
	c.log.Debug("fetched mail batch", "since", since, "count", len(msgs))
	return msgs, nil
}

func (c *Client) login(cl *client.Client) error {
	if c.cfg.AuthMode == "xoauth2" {
		token, err := c.accessToken()
		if err != nil {
			return fmt.Errorf("obtain access token: %w", err)
		}
		return cl.Authenticate(newXoauth2Client(c.cfg.Username, token))
	}
	return cl.Login(c.cfg.Username, c.cfg.Password)
}

func (c *Client) accessToken() (string, error) {
	if c.tokens == nil {
		return c.cfg.AccessToken, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) fetch(cl *client.Client, seqs []uint32) ([]domain.RawMessage, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(seqs...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(seqs))
	done := make(chan error, 1)
	go func() {
		done <- cl.Fetch(seqset, items, ch)
	}()

	var msgs []domain.RawMessage
	for msg := range ch {
		raw, ok := c.convert(msg, section)
		if !ok {
			continue
		}
		msgs = append(msgs, raw)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch %d messages: %w", len(seqs), err)
	}
	return msgs, nil
}

func (c *Client) convert(msg *imap.Message, section *imap.BodySectionName) (domain.RawMessage, bool) {
	env := msg.Envelope
	if env == nil {
		c.log.Warn("message without envelope skipped", "uid", msg.Uid)
		return domain.RawMessage{}, false
	}

	raw := domain.RawMessage{
		MessageID:  env.MessageId,
		Subject:    env.Subject,
		ReceivedAt: env.Date.UTC(),
	}
	if raw.MessageID == "" {
		raw.MessageID = fmt.Sprintf("uid-%d@%s", msg.Uid, c.cfg.Host)
	}
	// Replies share the original's id as thread key; a fresh message roots
	// its own thread.
	raw.ThreadID = env.InReplyTo
	if raw.ThreadID == "" {
		raw.ThreadID = raw.MessageID
	}
	if len(env.From) > 0 {
		from := env.From[0]
		if from.PersonalName != "" {
			raw.Sender = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
		} else {
			raw.Sender = from.Address()
		}
	}

	if body := msg.GetBody(section); body != nil {
		raw.BodyText, raw.Snippet = parseBody(body)
	}

	return raw, true
}
