package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/kcchat/server/internal/apierr"
	"codeberg.org/kcchat/server/internal/logger"
	"codeberg.org/kcchat/server/internal/model"
)

const (
	payPalSandboxBase = "https://api-m.sandbox.paypal.com"
	payPalLiveBase    = "https://api-m.paypal.com"
)

var payPalHTTPClient = &http.Client{Timeout: 15 * time.Second}

func (s *Server) payPalBase() string {
	if s.cfg.PayPalLive {
		return payPalLiveBase
	}
	return payPalSandboxBase
}

// payPalOrder is the subset of PayPal's orders-API response shape this
// system validates (spec.md §4.6 step 4).
type payPalOrder struct {
	CreateTime    string `json:"create_time"`
	Intent        string `json:"intent"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Amount struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
}

type payPalOAuthResponse struct {
	AccessToken string `json:"access_token"`
}

// handleDonation implements spec.md §4.6. The order-verification HTTP
// round trip runs off the loop; the result re-enters via
// httpCompletionEvent so transaction recording, the overlay alert, and
// the optional publish all happen from the single owning goroutine.
func (s *Server) handleDonation(ctx context.Context, c *Conn, user model.User, in InboundFrame) {
	now := s.now()
	if user.Banned(now) || user.DisplayName == "" {
		c.Send(encodeFrame(FrameStatus, StatusPayload{Status: StatusBanned}))
		return
	}

	var payload PayPalPayload
	if err := unmarshalData(in.Data, &payload); err != nil {
		return
	}
	if payload.OrderID == "" {
		return
	}

	bearer := s.payPalBearerToken
	go func() {
		order, newBearer, err := fetchPayPalOrder(ctx, s.payPalBase(), s.cfg.PayPalClientID, s.cfg.PayPalClientSecret, bearer, payload.OrderID)
		s.events <- httpCompletionEvent{run: func() {
			if newBearer != "" {
				// applied here, on the loop, even on a failed fetch: a
				// refreshed bearer is still good for the next attempt.
				s.payPalBearerToken = newBearer
			}
			s.completeDonation(ctx, c, user, payload, order, err)
		}}
	}()
}

func (s *Server) completeDonation(ctx context.Context, c *Conn, user model.User, payload PayPalPayload, order *payPalOrder, fetchErr error) {
	if fetchErr != nil {
		logger.ErrorErr(fetchErr, "paypal order fetch failed", "order_id", payload.OrderID, "user_id", user.ID)
		c.Send(encodeFrame(FrameServerMsg, ServerMsgPayload{Message: "Failed to verify donation"}))
		return
	}

	tx := model.Transaction{
		OrderID:      payload.OrderID,
		UserID:       user.ID,
		TimeReceived: s.now(),
		Message:      payload.Message,
		Succeeded:    false,
	}
	if err := s.transactions.Insert(ctx, tx); err != nil {
		if apierr.IsDuplicateKey(err) {
			logger.Warn("duplicate paypal transaction rejected", "order_id", payload.OrderID, "user_id", user.ID)
			c.Send(encodeFrame(FrameServerMsg, ServerMsgPayload{Message: "transaction already exists in database"}))
			return
		}
		logger.ErrorErr(err, "insert transaction failed", "order_id", payload.OrderID)
		return
	}

	amount, reason := s.validatePayPalOrder(order, payload.Message)
	if reason != "" {
		logger.Warn("paypal order rejected", "order_id", payload.OrderID, "user_id", user.ID, "reason", reason)
		return
	}

	s.overlay.Alert(fmt.Sprintf("%s donated $%s", user.DisplayName, amount), payload.Message)

	if payload.Message != "" {
		s.broadcastChat(ctx, user, payload.Message, amount)
	}
}

// validatePayPalOrder implements spec.md §4.6 step 4's rule set. An
// empty reason means the order is valid.
func (s *Server) validatePayPalOrder(order *payPalOrder, message string) (amount string, reason string) {
	created, err := time.Parse(time.RFC3339, order.CreateTime)
	if err != nil || time.Since(created) > 5*time.Minute {
		return "", "create_time outside 5 minute window"
	}
	if order.Intent != "CAPTURE" {
		return "", "intent is not CAPTURE"
	}
	if order.Status != "COMPLETED" {
		return "", "status is not COMPLETED"
	}
	if len(order.PurchaseUnits) == 0 {
		return "", "purchase_units is empty"
	}
	unit := order.PurchaseUnits[0].Amount
	if unit.CurrencyCode != "USD" {
		return "", "currency is not USD"
	}
	value, err := strconv.ParseFloat(unit.Value, 64)
	if err != nil || value < 1.00 {
		return "", "amount below minimum"
	}
	if len(message) > s.cfg.MaxChatLength {
		return "", "message exceeds max_chat_length"
	}
	if s.containsBannedWord(message) {
		return "", "message failed banned-word filter"
	}
	return unit.Value, ""
}

// fetchPayPalOrder implements spec.md §4.6 step 2: GET with the cached
// bearer, refreshing once via client-credentials OAuth on a 401. It is
// a free function, not a *Server method, so it touches no loop-owned
// state directly — it runs on a background goroutine (spec.md §5) and
// returns any refreshed bearer for the loop to apply itself.
func fetchPayPalOrder(ctx context.Context, base, clientID, clientSecret, bearer, orderID string) (order *payPalOrder, newBearer string, err error) {
	order, status, err := getPayPalOrder(ctx, base, bearer, orderID)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusUnauthorized {
		bearer, err = refreshPayPalBearer(ctx, base, clientID, clientSecret)
		if err != nil {
			return nil, "", fmt.Errorf("refresh paypal bearer: %w", err)
		}
		newBearer = bearer
		order, status, err = getPayPalOrder(ctx, base, bearer, orderID)
		if err != nil {
			return nil, newBearer, err
		}
	}
	if status != http.StatusOK {
		return nil, newBearer, fmt.Errorf("paypal orders API: status %d", status)
	}
	return order, newBearer, nil
}

func getPayPalOrder(ctx context.Context, base, bearer, orderID string) (*payPalOrder, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/v2/checkout/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := payPalHTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var order payPalOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, resp.StatusCode, err
	}
	return &order, resp.StatusCode, nil
}

// refreshPayPalBearer implements the Basic-auth client-credentials
// exchange. The caller (the loop, via httpCompletionEvent) is
// responsible for caching the result as process-global state (spec.md
// §5's "OAuth bearer token... shared only within the chat loop").
func refreshPayPalBearer(ctx context.Context, base, clientID, clientSecret string) (string, error) {
	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/oauth2/token", form)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(clientID, clientSecret)

	resp, err := payPalHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal oauth: status %d", resp.StatusCode)
	}

	var tok payPalOAuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}
