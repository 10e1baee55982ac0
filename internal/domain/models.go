package domain

import "time"

// Monetary values are int64 amounts in the smallest currency unit.
// Sale and Expense timestamps are epoch milliseconds, matching the
// persisted column format.

type ChannelStatus string

const (
	ChannelActive  ChannelStatus = "active"
	ChannelDeleted ChannelStatus = "deleted"
)

type SaleStatus string

const (
	SaleRecorded  SaleStatus = "recorded"
	SaleCancelled SaleStatus = "cancelled"
)

type Item struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	RawPrice  int64  `json:"raw_price"`
	SalePrice int64  `json:"sale_price"`
	PhotoRef  string `json:"photo_ref,omitempty"`
}

// SalesChannel rows are never physically deleted; Status flips to
// ChannelDeleted so historic sales keep resolving the channel by name.
type SalesChannel struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Discount int           `json:"discount"`
	Status   ChannelStatus `json:"status"`
}

func (c SalesChannel) Active() bool {
	return c.Status != ChannelDeleted
}

// Sale is one line of an order. Item name, channel name and both prices
// are captured at checkout time; later edits to the item or channel must
// not change what this row reports.
type Sale struct {
	ID          int64      `json:"id"`
	OrderID     int64      `json:"order_id"`
	ItemID      int64      `json:"item_id"`
	ItemName    string     `json:"item_name"`
	Quantity    int        `json:"quantity"`
	SalePrice   int64      `json:"sale_price"`
	RawPrice    int64      `json:"raw_price"`
	Profit      int64      `json:"profit"`
	Channel     string     `json:"channel"`
	TimestampMS int64      `json:"timestamp_ms"`
	Status      SaleStatus `json:"status"`
}

func (s Sale) Cancelled() bool {
	return s.Status == SaleCancelled
}

func (s Sale) Time() time.Time {
	return time.UnixMilli(s.TimestampMS)
}

type Expense struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	TimestampMS int64   `json:"timestamp_ms"`
}

type ItemCreateRequest struct {
	Name      string `json:"name"`
	RawPrice  int64  `json:"raw_price"`
	SalePrice int64  `json:"sale_price"`
	PhotoRef  string `json:"photo_ref,omitempty"`
}

type ChannelCreateRequest struct {
	Name     string `json:"name"`
	Discount int    `json:"discount"`
}

type ChannelUpdateRequest struct {
	Name     string `json:"name"`
	Discount int    `json:"discount"`
}

type CartLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type CheckoutRequest struct {
	ChannelID int64      `json:"channel_id"`
	Lines     []CartLine `json:"lines"`
}

type CheckoutResponse struct {
	OrderID   int64  `json:"order_id"`
	LineCount int    `json:"line_count"`
	Channel   string `json:"channel"`
	Total     int64  `json:"total"`
}

type ExpenseCreateRequest struct {
	Amount float64 `json:"amount"`
	// TimestampMS backdates the expense; zero means now.
	TimestampMS int64 `json:"timestamp_ms,omitempty"`
}

// Order is a read-model grouping of the Sale lines created by one
// checkout, annotated with the discount currently resolved for its
// channel name.
type Order struct {
	OrderID  int64  `json:"order_id"`
	Channel  string `json:"channel"`
	Discount int    `json:"discount"`
	Total    int64  `json:"total"`
	Lines    []Sale `json:"lines"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
}

// ReportLine is one non-cancelled sale line as it appears in the export,
// total already discount-adjusted and rounded half-to-even.
type ReportLine struct {
	ItemName  string `json:"item_name"`
	Quantity  int    `json:"quantity"`
	SalePrice int64  `json:"sale_price"`
	Channel   string `json:"channel"`
	Discount  int    `json:"discount"`
	Total     int64  `json:"total"`
	Timestamp string `json:"timestamp"`
}

type ReportSummary struct {
	TotalSales    int64 `json:"total_sales"`
	TotalExpenses int64 `json:"total_expenses"`
	Profit        int64 `json:"profit"`
}

type Report struct {
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Lines    []ReportLine  `json:"lines"`
	Expenses []Expense     `json:"expenses"`
	Summary  ReportSummary `json:"summary"`
}

// ExportResult records which sink actually received the report.
type ExportResult struct {
	FileName string `json:"file_name"`
	Sink     string `json:"sink"`
	Location string `json:"location"`
	FellBack bool   `json:"fell_back"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}
