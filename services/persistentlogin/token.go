package persistentlogin

import (
	"strings"
	"time"
)

type Status int

const (
	StatusInvalid      Status = -1
	StatusNotValidated Status = 0
	StatusValid        Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "not_validated"
	}
}

// invalidUserID marks a token as known invalid.
const invalidUserID int64 = -1

// MaxExpiry stands in for "never expires" so expiry comparisons need no
// special case. It is the largest timestamp a signed 32-bit epoch column holds.
var MaxExpiry = time.Unix(2147483647, 0).UTC()

// Token is one persistent login credential. The series identifies the
// lineage and never changes; the instance is replaced on every rotation.
// Token is a value: every With* method returns a modified copy.
type Token struct {
	series    string
	instance  string
	userID    int64
	created   time.Time
	refreshed time.Time
	expires   time.Time
}

func NewToken(series, instance string) Token {
	return Token{series: series, instance: instance}
}

// ParseCookieValue builds a not-yet-validated token from "series:instance".
func ParseCookieValue(value string) (Token, error) {
	series, instance, ok := strings.Cut(value, ":")
	if !ok || series == "" || instance == "" {
		return Token{}, ErrMalformedToken
	}
	return NewToken(series, instance), nil
}

func (t Token) CookieValue() string {
	return t.series + ":" + t.instance
}

func (t Token) String() string {
	return t.CookieValue()
}

func (t Token) Series() string       { return t.series }
func (t Token) Instance() string     { return t.instance }
func (t Token) UserID() int64        { return t.userID }
func (t Token) Created() time.Time   { return t.created }
func (t Token) Refreshed() time.Time { return t.refreshed }
func (t Token) Expires() time.Time   { return t.expires }

func (t Token) Status() Status {
	switch {
	case t.userID == 0:
		return StatusNotValidated
	case t.userID > 0:
		return StatusValid
	default:
		return StatusInvalid
	}
}

func (t Token) WithUserID(userID int64) Token {
	t.userID = userID
	return t
}

func (t Token) Invalidated() Token {
	t.userID = invalidUserID
	return t
}

func (t Token) WithExpiry(expires time.Time) Token {
	t.expires = expires
	return t
}

func (t Token) WithCreated(created time.Time) Token {
	t.created = created
	return t
}

func (t Token) WithRefreshed(refreshed time.Time) Token {
	t.refreshed = refreshed
	return t
}

// WithRotatedInstance replaces the single-use part and stamps the refresh time.
func (t Token) WithRotatedInstance(instance string, now time.Time) Token {
	t.instance = instance
	t.refreshed = now
	return t
}

func tokenFromRecord(r *Record) Token {
	return Token{
		series:    r.Series,
		instance:  r.Instance,
		userID:    r.UserID,
		created:   time.Unix(r.Created, 0).UTC(),
		refreshed: time.Unix(r.Refreshed, 0).UTC(),
		expires:   time.Unix(r.Expires, 0).UTC(),
	}
}
