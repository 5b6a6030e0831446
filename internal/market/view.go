package market

import "github.com/shopspring/decimal"

// ViewLevel is a price level annotated with its relative size on its
// own side, for depth visualization.
type ViewLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Scale decimal.Decimal `json:"scale"`
}

// View is the presentation state derived from one snapshot.
type View struct {
	BestBid *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk *decimal.Decimal `json:"best_ask,omitempty"`
	Spread  *decimal.Decimal `json:"spread,omitempty"`

	// Asks are ordered nearest-to-best last so the tightest ask sits
	// adjacent to the spread row; bids nearest-to-best first.
	Asks []ViewLevel `json:"asks"`
	Bids []ViewLevel `json:"bids"`
}

// ComputeView derives best bid/ask, spread and relative depth from
// the latest snapshot. Spread is left nil when either side is empty.
func ComputeView(snap Snapshot) View {
	view := View{
		Asks: scaleLevels(snap.Asks, true),
		Bids: scaleLevels(snap.Bids, false),
	}

	if len(snap.Bids) > 0 {
		best := snap.Bids[0].Price
		view.BestBid = &best
	}
	if len(snap.Asks) > 0 {
		best := snap.Asks[0].Price
		view.BestAsk = &best
	}
	if view.BestBid != nil && view.BestAsk != nil {
		spread := view.BestAsk.Sub(*view.BestBid)
		view.Spread = &spread
	}
	return view
}

func scaleLevels(levels []Level, reverse bool) []ViewLevel {
	out := make([]ViewLevel, 0, len(levels))

	// Minimum denominator of 1 avoids division by zero on empty or
	// dust-only sides.
	max := decimal.NewFromInt(1)
	for _, l := range levels {
		if l.Size.GreaterThan(max) {
			max = l.Size
		}
	}

	for _, l := range levels {
		out = append(out, ViewLevel{
			Price: l.Price,
			Size:  l.Size,
			Scale: l.Size.Div(max),
		})
	}

	if reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
