package core

// PendingOrderType is the trigger topology of a pending order.
type PendingOrderType int

const (
	BuyStop PendingOrderType = iota
	BuyLimit
	SellStop
	SellLimit
)

func (t PendingOrderType) String() string {
	switch t {
	case BuyStop:
		return "BUY_STOP"
	case BuyLimit:
		return "BUY_LIMIT"
	case SellStop:
		return "SELL_STOP"
	case SellLimit:
		return "SELL_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// ClosureReason explains why an active position was removed from the cache.
type ClosureReason int

const (
	ClosureSL ClosureReason = iota
	ClosureTP
	ClosureClientCommand
	ClosureStopOut
	ClosureAdminClose
)

func (r ClosureReason) String() string {
	switch r {
	case ClosureSL:
		return "SL"
	case ClosureTP:
		return "TP"
	case ClosureClientCommand:
		return "CLIENT_COMMAND"
	case ClosureStopOut:
		return "STOP_OUT"
	case ClosureAdminClose:
		return "ADMIN_CLOSE"
	default:
		return "UNKNOWN"
	}
}

// PendingOutcome is the disposition of a pending order evaluated on a tick.
type PendingOutcome int

const (
	Cancelled PendingOutcome = iota
	Rejected
	Executed
)

func (o PendingOutcome) String() string {
	switch o {
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	case Executed:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

// PositionCommon is the set of fields shared by every position, active or
// pending.
type PositionCommon struct {
	ID           string
	TraderID     string
	AccountID    string
	InstrumentID string
	Base         string
	Quote        string
	Collateral   string
	Side         Side
	LotsSize     float64
	LotsAmount   float64
	SLPrice      *float64
	SLProfit     *float64
	TPPrice      *float64
	TPProfit     *float64
}

// Indexable is the set of attribute accessors the positions cache's
// secondary indexes key on. Every position, active or pending, implements
// it via its embedded PositionCommon.
type Indexable interface {
	GetID() string
	IndexBase() string
	IndexQuote() string
	IndexCollateral() string
	IndexTrader() string
	IndexAccount() string
}

func (p *PositionCommon) GetID() string          { return p.ID }
func (p *PositionCommon) IndexBase() string       { return p.Base }
func (p *PositionCommon) IndexQuote() string      { return p.Quote }
func (p *PositionCommon) IndexCollateral() string { return p.Collateral }
func (p *PositionCommon) IndexTrader() string     { return p.TraderID }
func (p *PositionCommon) IndexAccount() string    { return p.AccountID }

// ActivePosition is a live position with an open price and a running
// valuation.
type ActivePosition struct {
	PositionCommon
	OpenPrice   float64
	ActivePrice float64
	ProfitPrice float64
	MarginPrice float64
	PL          float64
}

// PendingPosition is a stop/limit order awaiting trigger.
type PendingPosition struct {
	PositionCommon
	OrderType    PendingOrderType
	DesiredPrice float64
}

// IsSLTriggered reports whether the stop-loss condition fires for the
// position's current pl/active_price.
func (p *ActivePosition) IsSLTriggered() bool {
	if p.SLProfit != nil {
		return p.PL <= *p.SLProfit
	}
	if p.SLPrice != nil {
		if p.Side == Buy {
			return *p.SLPrice >= p.ActivePrice
		}
		return *p.SLPrice <= p.ActivePrice
	}
	return false
}

// IsTPTriggered reports whether the take-profit condition fires for the
// position's current pl/active_price.
func (p *ActivePosition) IsTPTriggered() bool {
	if p.TPProfit != nil {
		return p.PL >= *p.TPProfit
	}
	if p.TPPrice != nil {
		if p.Side == Buy {
			return *p.TPPrice <= p.ActivePrice
		}
		return *p.TPPrice >= p.ActivePrice
	}
	return false
}

// GetCloseReason evaluates SL first, then TP; SL has priority when both fire.
func (p *ActivePosition) GetCloseReason() (ClosureReason, bool) {
	if p.IsSLTriggered() {
		return ClosureSL, true
	}
	if p.IsTPTriggered() {
		return ClosureTP, true
	}
	return 0, false
}

// IsReadyToExecute reports whether the incoming open price for this
// pending order's side crosses its desired trigger price.
func (p *PendingPosition) IsReadyToExecute(openPriceForSide float64) bool {
	switch p.OrderType {
	case BuyStop:
		return openPriceForSide >= p.DesiredPrice
	case BuyLimit:
		return openPriceForSide <= p.DesiredPrice
	case SellStop:
		// Apparent inversion versus typical broker semantics (sell stop
		// usually fires on a falling bid); preserved as specified.
		return openPriceForSide >= p.DesiredPrice
	case SellLimit:
		return openPriceForSide <= p.DesiredPrice
	default:
		return false
	}
}

// OrderSide returns the side used to resolve the open price relevant to
// this pending order's trigger check (Buy* orders check the Buy open price,
// i.e. ask; Sell* orders check the Sell open price, i.e. bid).
func (p *PendingPosition) OrderSide() Side {
	switch p.OrderType {
	case BuyStop, BuyLimit:
		return Buy
	default:
		return Sell
	}
}
