package models

// StockEffect is the stock side effect of an order status transition
type StockEffect int

const (
	EffectNone StockEffect = iota
	EffectRestore
	EffectDeduct
)

func (e StockEffect) String() string {
	switch e {
	case EffectRestore:
		return "restore"
	case EffectDeduct:
		return "deduct"
	default:
		return "none"
	}
}

type region int

const (
	regionActive region = iota
	regionCancelled
)

func regionOf(status string) region {
	if IsCancelledStatus(status) {
		return regionCancelled
	}
	return regionActive
}

// transitions lists every region edge. No edge is forbidden: delivered and
// cancelled orders may still move to any status.
var transitions = map[region]map[region]StockEffect{
	regionActive: {
		regionActive:    EffectNone,
		regionCancelled: EffectRestore,
	},
	regionCancelled: {
		regionActive:    EffectDeduct,
		regionCancelled: EffectNone,
	},
}

// StockEffectFor returns the stock effect of moving an order from one status to another
func StockEffectFor(from, to string) StockEffect {
	return transitions[regionOf(from)][regionOf(to)]
}
