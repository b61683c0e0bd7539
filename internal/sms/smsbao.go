// Package sms implements a client for the SmsBao text-message gateway.
//
// The gateway is driven by a single plaintext GET:
//
//	GET http://api.smsbao.com/sms?u=<account>&p=<md5(password)>&m=<phone>&c=<content>
//
// and answers with a numeric status code in the body. Send never returns an
// error: transport failures are folded into StatusTransportError ("-1") so
// callers branch on one closed set of values.
package sms

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production SmsBao endpoint (plain HTTP by provider design).
const DefaultBaseURL = "http://api.smsbao.com"

// Status is a SmsBao result code.
type Status string

const (
	StatusOK               Status = "0"
	StatusBadPassword      Status = "30"
	StatusNoAccount        Status = "40"
	StatusNoBalance        Status = "41"
	StatusAccountExpired   Status = "42"
	StatusIPRestricted     Status = "43"
	StatusSensitiveContent Status = "50"
	StatusBadPhone         Status = "51"
	StatusTransportError   Status = "-1"
)

const unknownMessage = "未知错误"

var messages = map[Status]string{
	StatusOK:               "发送成功",
	StatusBadPassword:      "密码错误",
	StatusNoAccount:        "账号不存在",
	StatusNoBalance:        "余额不足",
	StatusAccountExpired:   "账号过期",
	StatusIPRestricted:     "IP地址限制",
	StatusSensitiveContent: "内容含有敏感词",
	StatusBadPhone:         "手机号码不正确",
}

// OK reports whether the gateway accepted the message.
func (s Status) OK() bool { return s == StatusOK }

// Known reports whether s is one of the documented gateway codes.
func (s Status) Known() bool {
	_, ok := messages[s]
	return ok
}

// Message returns the human-readable description of s.
func (s Status) Message() string {
	if m, ok := messages[s]; ok {
		return m
	}
	return unknownMessage
}

// ErrorMessage maps a raw status string to its description. Unknown codes
// (including "-1") yield the generic fallback.
func ErrorMessage(code string) string {
	return Status(strings.TrimSpace(code)).Message()
}

// Client sends messages through one SmsBao account. It is safe for
// concurrent use.
type Client struct {
	user    string
	pass    string
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at another host (tests use httptest).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// NewClient returns a Client for the given account credentials.
func NewClient(user, pass string, opts ...Option) *Client {
	c := &Client{
		user:    user,
		pass:    pass,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Send delivers content to phone and returns the gateway status. The provider
// appends its own signature to content.
func (c *Client) Send(ctx context.Context, phone, content string) Status {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sendURL(phone, content), nil)
	if err != nil {
		return StatusTransportError
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return StatusTransportError
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	if err != nil {
		return StatusTransportError
	}
	return Status(strings.TrimSpace(string(body)))
}

func (c *Client) sendURL(phone, content string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString("/sms?u=")
	b.WriteString(url.QueryEscape(c.user))
	b.WriteString("&p=")
	b.WriteString(md5Hex(c.pass))
	b.WriteString("&m=")
	b.WriteString(url.QueryEscape(phone))
	b.WriteString("&c=")
	b.WriteString(EncodeURIComponent(content))
	return b.String()
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// componentUnescaped are the bytes encodeURIComponent leaves alone besides
// ASCII letters and digits.
const componentUnescaped = "-_.!~*'()"

// EncodeURIComponent percent-encodes s byte-wise as UTF-8, leaving only
// letters, digits and -_.!~*'() untouched. Spaces become %20.
func EncodeURIComponent(s string) string {
	const hexdigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
			b.WriteByte(ch)
		case strings.IndexByte(componentUnescaped, ch) >= 0:
			b.WriteByte(ch)
		default:
			b.WriteByte('%')
			b.WriteByte(hexdigits[ch>>4])
			b.WriteByte(hexdigits[ch&0x0F])
		}
	}
	return b.String()
}
