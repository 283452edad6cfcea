package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"restaurant-order/models"
)

// Menu is an immutable snapshot of the items on offer, in source order.
type Menu struct {
	items  []models.MenuItem
	byName map[string]int
}

func NewMenu(items []models.MenuItem) *Menu {
	m := &Menu{byName: make(map[string]int, len(items))}
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		if _, dup := m.byName[it.Name]; dup {
			continue
		}
		m.byName[it.Name] = len(m.items)
		m.items = append(m.items, it)
	}
	return m
}

// Items returns a copy of the snapshot's items.
func (m *Menu) Items() []models.MenuItem {
	if m == nil {
		return nil
	}
	out := make([]models.MenuItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Menu) Lookup(name string) (models.MenuItem, bool) {
	if m == nil {
		return models.MenuItem{}, false
	}
	i, ok := m.byName[name]
	if !ok {
		return models.MenuItem{}, false
	}
	return m.items[i], true
}

// At returns the item at position i, used by fronts that reference items by index.
func (m *Menu) At(i int) (models.MenuItem, bool) {
	if m == nil || i < 0 || i >= len(m.items) {
		return models.MenuItem{}, false
	}
	return m.items[i], true
}

func (m *Menu) Len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

// AllSoldOut is true for a non-empty menu where nothing can be ordered.
func (m *Menu) AllSoldOut() bool {
	if m.Len() == 0 {
		return false
	}
	for _, it := range m.items {
		if it.Available() {
			return false
		}
	}
	return true
}

// ParseMenuCSV converts a spreadsheet CSV export into menu items. It never
// fails: rows without an item name are dropped, unparsable numbers become 0.
func ParseMenuCSV(text string) []models.MenuItem {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return []models.MenuItem{}
	}

	headers := splitCSVLine(lines[0])

	items := make([]models.MenuItem, 0, len(lines)-1)
	for _, line := range lines[1:] {
		fields := splitCSVLine(line)
		item := models.MenuItem{}
		for i, h := range headers {
			v := ""
			if i < len(fields) {
				v = fields[i]
			}
			switch h {
			case models.ColumnItemName:
				item.Name = v
			case models.ColumnPrice:
				item.Price = parsePrice(v)
			case models.ColumnQuantity:
				item.QuantityAvailable = parseQuantity(v)
			case "":
			default:
				if item.Extra == nil {
					item.Extra = make(map[string]string)
				}
				item.Extra[h] = v
			}
		}
		if item.Name == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// splitCSVLine splits on commas outside double quotes. Quote characters
// toggle the quoted state and are not kept. Fields are trimmed.
func splitCSVLine(line string) []string {
	var (
		fields   []string
		cur      strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(cur.String()))
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parsePrice(s string) float64 {
	f, ok := parseNumber(s)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func parseQuantity(s string) int {
	f, ok := parseNumber(s)
	if !ok {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// maxMenuBytes caps the CSV body read from the menu source.
const maxMenuBytes = 1 << 20

var ErrMenuTooLarge = errors.New("menu exceeds size limit")

// MenuSource produces a fresh menu snapshot.
type MenuSource interface {
	LoadMenu(ctx context.Context) (*Menu, error)
}

// staticStock marks built-in items as always orderable.
const staticStock = math.MaxInt32

// StaticMenuSource serves the built-in menu used when no spreadsheet is configured.
type StaticMenuSource struct {
	Items []models.MenuItem
}

func DefaultStaticMenu() *StaticMenuSource {
	return &StaticMenuSource{Items: []models.MenuItem{
		{Name: "Margherita Pizza", Price: 12, QuantityAvailable: staticStock},
		{Name: "Chicken Burger", Price: 10, QuantityAvailable: staticStock},
		{Name: "Caesar Salad", Price: 8, QuantityAvailable: staticStock},
		{Name: "Garlic Bread", Price: 5, QuantityAvailable: staticStock},
	}}
}

func (s *StaticMenuSource) LoadMenu(ctx context.Context) (*Menu, error) {
	return NewMenu(s.Items), nil
}

// CSVMenuSource fetches the menu from a published spreadsheet CSV URL.
type CSVMenuSource struct {
	url        string
	httpClient *http.Client
}

func NewCSVMenuSource(url string, timeout time.Duration) *CSVMenuSource {
	return &CSVMenuSource{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *CSVMenuSource) LoadMenu(ctx context.Context) (*Menu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &MenuLoadError{URL: s.url, Err: fmt.Errorf("build request: %w", err)}
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &MenuLoadError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &MenuLoadError{URL: s.url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMenuBytes+1))
	if err != nil {
		return nil, &MenuLoadError{URL: s.url, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxMenuBytes {
		return nil, &MenuLoadError{URL: s.url, Err: ErrMenuTooLarge}
	}
	return NewMenu(ParseMenuCSV(string(body))), nil
}
