package mail

import "github.com/emersion/go-sasl"

// xoauth2Client implements the XOAUTH2 mechanism used by Gmail and Outlook
// IMAP endpoints. go-sasl ships OAUTHBEARER but not XOAUTH2, so the initial
// response is assembled here.
type xoauth2Client struct {
	username string
	token    string
}

var _ sasl.Client = (*xoauth2Client)(nil)

func newXoauth2Client(username, token string) sasl.Client {
	return &xoauth2Client{username: username, token: token}
}

func (c *xoauth2Client) Start() (mech string, ir []byte, err error) {
	ir = []byte("user=" + c.username + "\x01auth=Bearer " + c.token + "\x01\x01")
	return "XOAUTH2", ir, nil
}

// Next is only called on error: the server sends a base64 JSON status and
// expects an empty response before failing the authentication.
func (c *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	return []byte{}, nil
}
