package listings

import (
	"strings"

	"github.com/soledrop/soledrop-backend/pkg/db"
)

// Predicate is a parameterised SQL boolean expression. The zero value matches
// everything and is dropped by And/Or.
type Predicate struct {
	SQL  string
	Args []any
}

// Expr builds a leaf predicate.
func Expr(sql string, args ...any) Predicate {
	return Predicate{SQL: sql, Args: args}
}

func (p Predicate) Empty() bool { return strings.TrimSpace(p.SQL) == "" }

// And requires every non-empty part.
func And(parts ...Predicate) Predicate { return join(" AND ", parts) }

// Or requires at least one non-empty part.
func Or(parts ...Predicate) Predicate { return join(" OR ", parts) }

// Exists holds when some row of from satisfies where. from carries the table
// and alias, where carries the correlation to the outer row.
func Exists(from string, where Predicate) Predicate {
	if where.Empty() {
		return Predicate{SQL: "EXISTS (SELECT 1 FROM " + from + ")"}
	}
	return Predicate{
		SQL:  "EXISTS (SELECT 1 FROM " + from + " WHERE " + where.SQL + ")",
		Args: where.Args,
	}
}

func join(op string, parts []Predicate) Predicate {
	kept := make([]Predicate, 0, len(parts))
	for _, p := range parts {
		if !p.Empty() {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return Predicate{}
	case 1:
		return kept[0]
	}
	sqls := make([]string, len(kept))
	var args []any
	for i, p := range kept {
		sqls[i] = "(" + p.SQL + ")"
		args = append(args, p.Args...)
	}
	return Predicate{SQL: strings.Join(sqls, op), Args: args}
}

// Compile turns the facets into one predicate over
// listings JOIN items i JOIN product_models m JOIN brands b.
// Facets are ANDed. Search is ORed across item name, SKU, model name and brand
// name. Condition, price range and sizing set must all hold for the same
// variant.
func Compile(f Filters) Predicate {
	var facets []Predicate
	if f.ActiveOnly {
		facets = append(facets, Expr("listings.is_active = ?", true))
	}
	if f.FeaturedOnly {
		facets = append(facets, Expr("listings.is_featured = ?", true))
	}
	if f.ItemID != nil {
		facets = append(facets, Expr("listings.item_id = ?", *f.ItemID))
	}
	if f.ModelID != nil {
		facets = append(facets, Expr("i.model_id = ?", *f.ModelID))
	}
	if f.BrandID != nil {
		facets = append(facets, Expr("m.brand_id = ?", *f.BrandID))
	}
	if pattern := db.LikePattern(f.Search); pattern != "" {
		facets = append(facets, Or(
			Expr(`LOWER(i.name) LIKE ? ESCAPE '\'`, pattern),
			Expr(`LOWER(i.sku) LIKE ? ESCAPE '\'`, pattern),
			Expr(`LOWER(m.name) LIKE ? ESCAPE '\'`, pattern),
			Expr(`LOWER(b.name) LIKE ? ESCAPE '\'`, pattern),
		))
	}
	if variant := compileVariant(f); !variant.Empty() {
		facets = append(facets, Exists("listing_variants v", And(
			Expr("v.listing_id = listings.id"),
			variant,
		)))
	}
	return And(facets...)
}

func compileVariant(f Filters) Predicate {
	var parts []Predicate
	if f.Condition != nil {
		parts = append(parts, Expr("v.condition = ?", *f.Condition))
	}
	if f.MinPriceCents != nil {
		parts = append(parts, Expr("v.price_cents >= ?", *f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		parts = append(parts, Expr("v.price_cents <= ?", *f.MaxPriceCents))
	}
	if len(f.SizingIDs) > 0 {
		parts = append(parts, Expr("v.sizing_id IN ?", f.SizingIDs))
	}
	return And(parts...)
}
