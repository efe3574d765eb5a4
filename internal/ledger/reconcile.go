// Package ledger keeps inventory stock consistent with sale history.
//
// Reconcile is pure: callers read the snapshots, hand them in together with
// the lines a sale had before and after the change, and write back whatever
// comes out. Nothing here talks to storage.
package ledger

import (
	"sales-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// Line is the part of a sale item that moves stock
type Line struct {
	ProductID string
	Quantity  decimal.Decimal
	Pieces    int
}

// LinesFromItems extracts the stock-moving part of sale items
func LinesFromItems(items []models.SaleItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Pieces:    item.PiecesSold,
		})
	}
	return lines
}

// ProductIDs returns the distinct product ids across all line sets, in first-seen order
func ProductIDs(sets ...[]Line) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, lines := range sets {
		for _, line := range lines {
			if _, ok := seen[line.ProductID]; ok {
				continue
			}
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

// Reconcile returns the new stock of every product touched by before or after.
//
// Every before line is added back first, then every after line is taken out in
// order against the same running value, so one product ends up with a single
// net delta. An after line that asks for more than is available fails the whole
// call and nothing is returned. Results are floored at zero; restoring has no
// upper bound.
//
// Before lines whose product is missing from snapshots are skipped: there is
// nothing to restore into. After lines whose product is missing fail with
// ErrProductNotFound.
func Reconcile(snapshots map[string]models.StockSnapshot, before, after []Line) (map[string]models.StockSnapshot, error) {
	running := make(map[string]models.StockSnapshot, len(snapshots))

	for _, line := range before {
		snap, ok := current(running, snapshots, line.ProductID)
		if !ok {
			continue
		}
		snap.StockQuantityKg = snap.StockQuantityKg.Add(line.Quantity)
		snap.TotalPieces += line.Pieces
		running[line.ProductID] = snap
	}

	for _, line := range after {
		snap, ok := current(running, snapshots, line.ProductID)
		if !ok {
			return nil, &NotFoundError{ProductID: line.ProductID}
		}
		if line.Quantity.GreaterThan(snap.StockQuantityKg) {
			return nil, &StockError{
				Kind:      ErrInsufficientStock,
				ProductID: line.ProductID,
				Name:      snap.Name,
				Available: snap.StockQuantityKg,
				Requested: line.Quantity,
			}
		}
		if line.Pieces > snap.TotalPieces {
			return nil, &StockError{
				Kind:      ErrInsufficientPieces,
				ProductID: line.ProductID,
				Name:      snap.Name,
				Available: decimal.NewFromInt(int64(snap.TotalPieces)),
				Requested: decimal.NewFromInt(int64(line.Pieces)),
			}
		}
		snap.StockQuantityKg = snap.StockQuantityKg.Sub(line.Quantity)
		snap.TotalPieces -= line.Pieces
		running[line.ProductID] = snap
	}

	for id, snap := range running {
		running[id] = floor(snap)
	}
	return running, nil
}

// Apply is Reconcile for a brand-new sale
func Apply(snapshots map[string]models.StockSnapshot, lines []Line) (map[string]models.StockSnapshot, error) {
	return Reconcile(snapshots, nil, lines)
}

// Restore is Reconcile for a deleted sale
func Restore(snapshots map[string]models.StockSnapshot, lines []Line) map[string]models.StockSnapshot {
	// cannot fail: there are no after lines to validate
	out, _ := Reconcile(snapshots, lines, nil)
	return out
}

// Index keys snapshots by product id
func Index(snapshots []models.StockSnapshot) map[string]models.StockSnapshot {
	idx := make(map[string]models.StockSnapshot, len(snapshots))
	for _, snap := range snapshots {
		idx[snap.ProductID] = snap
	}
	return idx
}

// Values flattens a reconciled set into a slice, ordered like ids
func Values(reconciled map[string]models.StockSnapshot, ids []string) []models.StockSnapshot {
	out := make([]models.StockSnapshot, 0, len(reconciled))
	for _, id := range ids {
		if snap, ok := reconciled[id]; ok {
			out = append(out, snap)
		}
	}
	return out
}

func current(running, snapshots map[string]models.StockSnapshot, productID string) (models.StockSnapshot, bool) {
	if snap, ok := running[productID]; ok {
		return snap, true
	}
	snap, ok := snapshots[productID]
	return snap, ok
}

func floor(snap models.StockSnapshot) models.StockSnapshot {
	if snap.StockQuantityKg.IsNegative() {
		snap.StockQuantityKg = decimal.Zero
	}
	if snap.TotalPieces < 0 {
		snap.TotalPieces = 0
	}
	return snap
}
