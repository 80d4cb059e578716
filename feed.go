package settle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/settle/afip"
	"github.com/etnz/settle/date"
	"github.com/shopspring/decimal"
)

// FeedItem is a liquidated coupon read from a card processor report.
type FeedItem struct {
	Batch  string
	Coupon string
	Amount decimal.Decimal
	Date   date.Date
}

// FeedMatch is a feed item with the accreditations it was matched to.
type FeedMatch struct {
	Item           FeedItem
	Accreditations []*Accreditation
}

// ReadFeed decodes a JSON settlement report.
func ReadFeed(r io.Reader, cfg FeedConfig) ([]FeedItem, error) {
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("error decoding settlement report: %w", err)
	}
	return parseFeed(jobj, cfg)
}

// FetchFeed downloads the settlement report of the feed URL.
func FetchFeed(ctx context.Context, client *http.Client, cfg FeedConfig) ([]FeedItem, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed has no url: %w", ErrInvalid)
	}
	var jobj any
	if err := jwget(ctx, client, cfg.URL, &jobj); err != nil {
		return nil, fmt.Errorf("error retrieving settlement report: %w", err)
	}
	return parseFeed(jobj, cfg)
}

// jwget performs an HTTP GET request and unmarshals the JSON response into the provided data structure.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v/%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

func parseFeed(jobj any, cfg FeedConfig) ([]FeedItem, error) {
	jitems, err := jsonpath.Get(cfg.Items, jobj)
	if err != nil {
		return nil, fmt.Errorf("error reading items %q: %w", cfg.Items, err)
	}
	list, ok := jitems.([]any)
	if !ok {
		return nil, fmt.Errorf("items %q is not a list: %v", cfg.Items, jitems)
	}
	layout := cfg.DateLayout
	if layout == "" {
		layout = date.DateFormat
	}
	items := make([]FeedItem, 0, len(list))
	for i, jitem := range list {
		var it FeedItem
		if it.Batch, err = feedString(cfg.Batch, jitem); err != nil {
			return nil, fmt.Errorf("item #%d: %w", i, err)
		}
		if it.Coupon, err = feedString(cfg.Coupon, jitem); err != nil {
			return nil, fmt.Errorf("item #%d: %w", i, err)
		}
		amount, err := feedString(cfg.Amount, jitem)
		if err != nil {
			return nil, fmt.Errorf("item #%d: %w", i, err)
		}
		if it.Amount, err = afip.ParseAmount(amount); err != nil {
			return nil, fmt.Errorf("item #%d: %w", i, err)
		}
		if cfg.Date != "" {
			s, err := feedString(cfg.Date, jitem)
			if err != nil {
				return nil, fmt.Errorf("item #%d: %w", i, err)
			}
			if it.Date, err = date.ParseLayout(layout, s); err != nil {
				return nil, fmt.Errorf("item #%d: %w", i, err)
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// feedString reads a scalar with a JSONPath expression. Numbers are
// formatted without exponent.
func feedString(path string, jobj any) (string, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return "", fmt.Errorf("error reading %q: %w", path, err)
	}
	// jsonpath either returns a list of one answer, or a single answer:
	// keep the first one if any.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("%q is not a string or a number: %v", path, jval)
}

// MatchFeed finds the accreditations of each feed item by card batch and
// coupon number.
func (b *Book) MatchFeed(items []FeedItem) (matched []FeedMatch, missed []FeedItem) {
	for _, it := range items {
		accs := b.SearchByBatchCoupon(it.Batch, it.Coupon)
		if len(accs) == 0 {
			missed = append(missed, it)
			continue
		}
		matched = append(matched, FeedMatch{Item: it, Accreditations: accs})
	}
	return matched, missed
}

// PayFeed returns the Pay command for the pending accreditations of the
// matches, or false when there is none.
func PayFeed(on date.Date, matches []FeedMatch) (Pay, bool) {
	var ids []string
	for _, m := range matches {
		for _, a := range m.Accreditations {
			if a.State() == AccreditationPending {
				ids = append(ids, a.ID)
			}
		}
	}
	if len(ids) == 0 {
		return Pay{}, false
	}
	return NewPay(on, ids...), true
}
