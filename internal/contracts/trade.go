package contracts

import "time"

// PositionSide is the direction of a trade
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// TradeRecord is one closed trade from the trading log
// ⭐ SSOT: Loader → Normalizer → Builder trade contract
type TradeRecord struct {
	Row        int          `json:"-"` // source row (1-based, header = 1)
	Ticker     string       `json:"ticker"`
	Position   PositionSide `json:"position"`
	EntryDate  time.Time    `json:"entry_date"`
	ExitDate   time.Time    `json:"exit_date"`
	EntryPrice float64      `json:"entry_price,omitempty"`
	ExitPrice  float64      `json:"exit_price,omitempty"`

	PnLPercent float64 `json:"pnl_percent"` // 12.5 = +12.5%
	Exposure   float64 `json:"exposure"`    // fraction of capital, 0.0 ~ 1.0

	// Worst intratrade decline of the position itself, percent (e.g. 8.2)
	MaxDrawdown float64 `json:"max_drawdown,omitempty"`
	HasDrawdown bool    `json:"-"`

	// Derived
	HoldingDays     int     `json:"holding_days"`
	PortfolioImpact float64 `json:"portfolio_impact"` // fraction: PnLPercent/100 × Exposure
}

// IsWin reports a strictly positive return
func (t *TradeRecord) IsWin() bool {
	return t.PnLPercent > 0
}

// IsLoss reports a strictly negative return
func (t *TradeRecord) IsLoss() bool {
	return t.PnLPercent < 0
}

// ImpactPercent is the portfolio impact in percent units
func (t *TradeRecord) ImpactPercent() float64 {
	return t.PortfolioImpact * 100
}

// Derive fills HoldingDays and PortfolioImpact from the raw fields
func (t *TradeRecord) Derive() {
	t.HoldingDays = WholeDaysBetween(t.EntryDate, t.ExitDate)
	t.PortfolioImpact = t.PnLPercent / 100 * t.Exposure
}

// WholeDaysBetween counts calendar days between two dates, ignoring time of day
func WholeDaysBetween(from, to time.Time) int {
	f := DateOnly(from)
	t := DateOnly(to)
	return int(t.Sub(f).Hours() / 24)
}

// DateOnly truncates to midnight UTC of the same calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
