package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"arepazo-bot/db"
	"arepazo-bot/models"
)

// Catalog serves the menu from postgres with an in-memory TTL cache. On a
// fetch failure the last-known-good snapshot is served when present.
type Catalog struct {
	mu        sync.Mutex
	cached    *models.Menu
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewCatalog(ttl time.Duration) *Catalog {
	return &Catalog{ttl: ttl, now: time.Now}
}

func (c *Catalog) GetMenu(ctx context.Context) (*models.Menu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.cached, nil
	}

	menu, err := fetchMenu(ctx)
	if err != nil {
		if c.cached != nil {
			log.Printf("catalog fetch failed, serving stale cache: %v", err)
			return c.cached, nil
		}
		return nil, fmt.Errorf("fetch menu: %w", err)
	}
	c.cached = menu
	c.fetchedAt = c.now()
	return menu, nil
}

func fetchMenu(ctx context.Context) (*models.Menu, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT category, tag, name, price FROM menu_items
		ORDER BY category, position, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	menu := &models.Menu{}
	for rows.Next() {
		var category, tag, name string
		var price int64
		if err := rows.Scan(&category, &tag, &name, &price); err != nil {
			return nil, err
		}
		item := models.MenuItem{Name: name, Price: price, Tag: tag}
		switch category {
		case models.CategoryMain:
			menu.Mains = append(menu.Mains, item)
		case models.CategorySnack:
			item.Tag = ""
			menu.Snacks = append(menu.Snacks, item)
		case models.CategoryDrink:
			item.Tag = ""
			menu.Drinks = append(menu.Drinks, item)
		}
	}
	return menu, rows.Err()
}

// ActiveMains orders main dishes for display (grilled, smoked, Sunday
// specials, plain) and drops the Sunday subset entirely outside Sunday so
// those items never occupy an index.
func ActiveMains(mains []models.MenuItem, sunday bool) []models.MenuItem {
	var plancha, ahumados, domingo, normales []models.MenuItem
	for _, it := range mains {
		switch it.Tag {
		case models.TagGrilled:
			plancha = append(plancha, it)
		case models.TagSmoked:
			ahumados = append(ahumados, it)
		case models.TagSunday:
			domingo = append(domingo, it)
		default:
			normales = append(normales, it)
		}
	}
	out := make([]models.MenuItem, 0, len(mains))
	out = append(out, plancha...)
	out = append(out, ahumados...)
	if sunday {
		out = append(out, domingo...)
	}
	out = append(out, normales...)
	return out
}
