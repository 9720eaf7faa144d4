// Package telegram polls a bot for messages and turns product identifiers
// found in them into sourced deals. Sellers forward supplier offers to the
// bot from their phone; the monitor does the data entry.
package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/ls5986/habexa2.0-sub002/internal/domain"
	"github.com/ls5986/habexa2.0-sub002/internal/logger"
)

// ProductCreator persists captured deals.
type ProductCreator interface {
	Upsert(ctx context.Context, product *domain.Product) error
}

// IdentityResolver maps a barcode to an ASIN. Captured deals are always
// keyed by ASIN so repeated forwards of the same offer fold into one row.
type IdentityResolver interface {
	ResolveUPC(ctx context.Context, upc string) (asin string, found bool, err error)
}

// UserResolver maps a Telegram chat to an application user. Unknown chats
// are ignored.
type UserResolver interface {
	Resolve(chatID int64) (userID string, ok bool)
}

// StaticResolver resolves chats from a fixed map, suitable for single-team
// deployments configured at startup.
type StaticResolver map[int64]string

func (r StaticResolver) Resolve(chatID int64) (string, bool) {
	userID, ok := r[chatID]
	return userID, ok
}

var (
	asinPattern = regexp.MustCompile(`\bB0[0-9A-Z]{8}\b`)
	upcPattern  = regexp.MustCompile(`\b[0-9]{11,14}\b`)
)

// ExtractIdentifiers pulls ASINs and UPC/EAN barcodes out of free-form
// message text.
func ExtractIdentifiers(text string) (asins, upcs []string) {
	seen := make(map[string]bool)
	for _, m := range asinPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			asins = append(asins, m)
		}
	}
	for _, m := range upcPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			upcs = append(upcs, m)
		}
	}
	return asins, upcs
}

type update struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []update `json:"result"`
}

// Monitor drains bot updates and records sourced deals. One Monitor owns the
// update offset; run a single instance.
type Monitor struct {
	client   *resty.Client
	products ProductCreator
	identity IdentityResolver
	users    UserResolver
	log      *logger.Logger
	offset   int64
}

// NewMonitor builds a monitor for the given bot token.
func NewMonitor(botToken string, products ProductCreator, identity IdentityResolver, users UserResolver, log *logger.Logger) *Monitor {
	client := resty.New().
		SetBaseURL("https://api.telegram.org/bot" + botToken).
		SetTimeout(30 * time.Second)
	return &Monitor{client: client, products: products, identity: identity, users: users, log: log}
}

// PollOnce fetches pending updates and processes each message. Safe to call
// from a periodic task; the offset advances past every fetched update even
// when individual messages fail to process.
func (m *Monitor) PollOnce(ctx context.Context) error {
	var body updatesResponse
	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParam("offset", strconv.FormatInt(m.offset, 10)).
		SetResult(&body).
		Get("/getUpdates")
	if err != nil {
		return fmt.Errorf("telegram getUpdates: %w", err)
	}
	if resp.IsError() || !body.OK {
		return fmt.Errorf("telegram getUpdates: status %d", resp.StatusCode())
	}

	for _, u := range body.Result {
		if u.UpdateID >= m.offset {
			m.offset = u.UpdateID + 1
		}
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		userID, ok := m.users.Resolve(u.Message.Chat.ID)
		if !ok {
			continue
		}
		if err := m.captureDeals(ctx, userID, u.Message.Text); err != nil {
			m.log.WithField(logger.FieldUserID, userID).WithError(err).Warn("deal capture failed")
		}
	}
	return nil
}

// captureDeals upserts one sourced product per resolved identifier in the
// message. Barcodes resolve to ASINs first so every captured row carries the
// upsert key; unresolvable barcodes are dropped rather than accumulating
// keyless duplicates across polls.
func (m *Monitor) captureDeals(ctx context.Context, userID, text string) error {
	asins, upcs := ExtractIdentifiers(text)

	type deal struct {
		asin string
		upc  string
	}
	seen := make(map[string]bool)
	var deals []deal
	for _, asin := range asins {
		if !seen[asin] {
			seen[asin] = true
			deals = append(deals, deal{asin: asin})
		}
	}
	for _, upc := range upcs {
		asin, found, err := m.identity.ResolveUPC(ctx, upc)
		if err != nil {
			return err
		}
		if !found {
			m.log.WithField("upc", upc).Info("no ASIN for captured barcode, skipping")
			continue
		}
		if !seen[asin] {
			seen[asin] = true
			deals = append(deals, deal{asin: asin, upc: upc})
		}
	}

	for _, d := range deals {
		a := d.asin
		product := &domain.Product{
			ID:         uuid.NewString(),
			UserID:     userID,
			ASIN:       &a,
			UPC:        d.upc,
			Notes:      "captured from telegram",
			MOQ:        1,
			DealStatus: domain.DealStatusSourced,
		}
		if err := m.products.Upsert(ctx, product); err != nil {
			return err
		}
	}
	return nil
}
