package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// DefaultAPIURL is the Xunhu order-creation endpoint.
const DefaultAPIURL = "https://api.xunhupay.com/payment/do.html"

// StatusPaid is the notify status for a completed order ("Order Done").
const StatusPaid = "OD"

// Config carries the merchant credentials and callback URLs.
type Config struct {
	AppID     string
	AppSecret string
	APIURL    string
	NotifyURL string
	ReturnURL string
}

// CreateParams describes one order to open on the gateway.
type CreateParams struct {
	TradeOrderID string  // our id, at most 32 chars
	Amount       float64 // yuan
	Title        string
}

// CreateResult is the gateway's answer to a successful order creation.
type CreateResult struct {
	URL       string
	QRCodeURL string
	OpenID    string
}

// GatewayError is a non-success answer from the gateway.
type GatewayError struct {
	Code    int64
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("xunhu: errcode %d: %s", e.Code, e.Message)
}

// Gateway talks to the Xunhu API. It is safe for concurrent use.
type Gateway struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

// NewGateway returns a Gateway. A nil hc gets a client with a 15s timeout.
func NewGateway(cfg Config, hc *http.Client) *Gateway {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &Gateway{cfg: cfg, http: hc, now: time.Now}
}

// Configured reports whether merchant credentials are present.
func (g *Gateway) Configured() bool {
	return g != nil && g.cfg.AppID != "" && g.cfg.AppSecret != ""
}

// Verify checks the signature of a notify payload.
func (g *Gateway) Verify(fields map[string]any) bool {
	return Verify(fields, g.cfg.AppSecret)
}

// Params builds the signed parameter set for p.
func (g *Gateway) Params(p CreateParams) map[string]any {
	params := map[string]any{
		"version":        "1.1",
		"appid":          g.cfg.AppID,
		"trade_order_id": p.TradeOrderID,
		"total_fee":      strconv.FormatFloat(p.Amount, 'f', 2, 64),
		"title":          p.Title,
		"time":           g.now().Unix(),
		"notify_url":     g.cfg.NotifyURL,
		"return_url":     g.cfg.ReturnURL,
		"callback_url":   g.cfg.ReturnURL,
		"nonce_str":      strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
	}
	params[HashField] = GenerateHash(params, g.cfg.AppSecret)
	return params
}

// CreatePayment opens an order on the gateway and returns its pay URL.
func (g *Gateway) CreatePayment(ctx context.Context, p CreateParams) (*CreateResult, error) {
	form := url.Values{}
	for k, v := range g.Params(p) {
		form.Set(k, FormatValue(v))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xunhu request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read xunhu response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, &GatewayError{Code: -1, Message: fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode)}
	}

	res := gjson.ParseBytes(body)
	code := res.Get("errcode")
	if !code.Exists() || code.Int() != 0 {
		msg := res.Get("errmsg").String()
		if msg == "" {
			msg = "支付初始化失败"
		}
		return nil, &GatewayError{Code: code.Int(), Message: msg}
	}
	payURL := res.Get("url").String()
	if payURL == "" {
		return nil, &GatewayError{Code: 0, Message: "missing pay url"}
	}
	return &CreateResult{
		URL:       payURL,
		QRCodeURL: res.Get("url_qrcode").String(),
		OpenID:    res.Get("openid").String(),
	}, nil
}
