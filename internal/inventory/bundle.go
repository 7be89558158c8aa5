package inventory

import (
	"context"
	"fmt"

	"order-engine/internal/models"
	"order-engine/internal/util"

	"go.uber.org/zap"
)

// Requirement is a product and the quantity a line needs of it
type Requirement struct {
	Product  *models.Product
	Quantity int
}

// ResolvedLine is an order line expanded into product requirements.
// Offer is set for bundle lines whose offer still exists.
type ResolvedLine struct {
	Line         models.Line
	Offer        *models.BundleOffer
	Requirements []Requirement
}

// Expander resolves order lines against the catalog
type Expander struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewExpander creates a new bundle expander
func NewExpander(catalog Catalog) *Expander {
	return &Expander{
		catalog: catalog,
		logger:  util.GetLogger(),
	}
}

// Expand resolves a bundle offer purchased lineQty times into its constituent
// products. A missing offer yields no requirements; missing constituents are skipped.
func (e *Expander) Expand(ctx context.Context, offerID int64, lineQty int) (*models.BundleOffer, []Requirement, error) {
	offer, err := findBundleOffer(ctx, e.catalog, offerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load bundle offer %d: %w", offerID, err)
	}
	if offer == nil {
		e.logger.Debug("Bundle offer not found, skipping", zap.Int64("offer_id", offerID))
		return nil, nil, nil
	}

	reqs := make([]Requirement, 0, len(offer.BundleItems))
	for _, bi := range offer.BundleItems {
		product, err := findProduct(ctx, e.catalog, bi.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load product %d: %w", bi.ProductID, err)
		}
		if product == nil {
			e.logger.Debug("Bundle constituent not found, skipping",
				zap.Int64("offer_id", offerID),
				zap.Int64("product_id", bi.ProductID))
			continue
		}
		reqs = append(reqs, Requirement{
			Product:  product,
			Quantity: bi.Quantity * lineQty,
		})
	}

	return offer, reqs, nil
}

// Resolve expands any order line. Direct lines yield at most one requirement.
// ok is false when the item references nothing resolvable.
func (e *Expander) Resolve(ctx context.Context, item *models.OrderItem) (ResolvedLine, bool, error) {
	line, ok := item.Line()
	if !ok {
		e.logger.Debug("Order item has no product or bundle reference, skipping",
			zap.Int64("order_item_id", item.ID))
		return ResolvedLine{}, false, nil
	}

	resolved := ResolvedLine{Line: line}

	if line.IsBundle() {
		offer, reqs, err := e.Expand(ctx, line.RefID, line.Quantity)
		if err != nil {
			return ResolvedLine{}, false, err
		}
		resolved.Offer = offer
		resolved.Requirements = reqs
		return resolved, true, nil
	}

	product, err := findProduct(ctx, e.catalog, line.RefID)
	if err != nil {
		return ResolvedLine{}, false, fmt.Errorf("failed to load product %d: %w", line.RefID, err)
	}
	if product == nil {
		e.logger.Debug("Product not found, skipping", zap.Int64("product_id", line.RefID))
		return resolved, true, nil
	}
	resolved.Requirements = []Requirement{{Product: product, Quantity: line.Quantity}}
	return resolved, true, nil
}

// ProductIDs returns every product id referenced by the items, bundle
// constituents included, without loading the products themselves.
func (e *Expander) ProductIDs(ctx context.Context, items []models.OrderItem) ([]int64, error) {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0, len(items))
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for i := range items {
		line, ok := items[i].Line()
		if !ok {
			continue
		}
		if !line.IsBundle() {
			add(line.RefID)
			continue
		}
		offer, err := findBundleOffer(ctx, e.catalog, line.RefID)
		if err != nil {
			return nil, fmt.Errorf("failed to load bundle offer %d: %w", line.RefID, err)
		}
		if offer == nil {
			continue
		}
		for _, bi := range offer.BundleItems {
			add(bi.ProductID)
		}
	}

	return ids, nil
}
