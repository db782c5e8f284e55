package entity

// Document type constants
const (
	DocTypeInvoice       = "invoice"
	DocTypePurchaseOrder = "purchase_order"
	DocTypeContract      = "contract"
	DocTypeCreditNote    = "credit_note"
	DocTypeDebitNote     = "debit_note"
	DocTypeGoodsReceipt  = "goods_receipt"
)

// Invoice status constants
const (
	InvoiceStatusUnpaid      = "unpaid"
	InvoiceStatusUnderReview = "under_review"
	InvoiceStatusApproved    = "approved"
	InvoiceStatusDisputed    = "disputed"
	InvoiceStatusScheduled   = "scheduled"
	InvoiceStatusPaid        = "paid"
	InvoiceStatusOnHold      = "on_hold"
	InvoiceStatusPending     = "pending"
)

// Non-invoice document statuses
const (
	POStatusOpen          = "open"
	ContractStatusActive  = "active"
	ContractStatusPending = "pending"
	ContractStatusExpired = "expired"
	GRNStatusReceived     = "received"
	NoteStatusPending     = "pending"
)

// Match status constants
const (
	MatchStatusAuto   = "auto_matched"
	MatchStatusReview = "review_needed"
)

// Match type constants
const (
	MatchTypeTwoWay   = "two_way"
	MatchTypeThreeWay = "three_way"
)

// GRN link status on a match record
const (
	GRNLinkNone     = "no_grn"
	GRNLinkReceived = "received"
)

// Anomaly type constants
const (
	AnomalyLineItemTotalMismatch = "LINE_ITEM_TOTAL_MISMATCH"
	AnomalyMissingPO             = "MISSING_PO"
	AnomalyQuantityMismatch      = "QUANTITY_MISMATCH"
	AnomalyPriceOvercharge       = "PRICE_OVERCHARGE"
	AnomalyUnauthorizedItem      = "UNAUTHORIZED_ITEM"
	AnomalyAmountDiscrepancy     = "AMOUNT_DISCREPANCY"
	AnomalyTermsViolation        = "TERMS_VIOLATION"
	AnomalyDuplicateInvoice      = "DUPLICATE_INVOICE"
	AnomalyEarlyPaymentDiscount  = "EARLY_PAYMENT_DISCOUNT"
	AnomalyTaxRate               = "TAX_RATE_ANOMALY"
	AnomalyCurrencyMismatch      = "CURRENCY_MISMATCH"
	AnomalyRoundNumber           = "ROUND_NUMBER_INVOICE"
	AnomalyWeekendInvoice        = "WEEKEND_INVOICE"
	AnomalyStaleInvoice          = "STALE_INVOICE"
	AnomalyUnreceiptedInvoice    = "UNRECEIPTED_INVOICE"
	AnomalyOverbilledVsReceived  = "OVERBILLED_VS_RECEIVED"
	AnomalyQtyReceivedMismatch   = "QUANTITY_RECEIVED_MISMATCH"
	AnomalyShortShipment         = "SHORT_SHIPMENT"
)

// Anomaly severity constants
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Anomaly status constants
const (
	AnomalyStatusOpen      = "open"
	AnomalyStatusResolved  = "resolved"
	AnomalyStatusDismissed = "dismissed"
)

// Triage lane constants
const (
	LaneAutoApprove = "AUTO_APPROVE"
	LaneReview      = "REVIEW"
	LaneBlock       = "BLOCK"
)

// Vendor risk level constants
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// Vendor risk trend constants
const (
	RiskTrendNew       = "new"
	RiskTrendStable    = "stable"
	RiskTrendWorsening = "worsening"
	RiskTrendImproving = "improving"
)

// Matching mode constants
const (
	ModeTwoWay   = "two_way"
	ModeThreeWay = "three_way"
	ModeFlexible = "flexible"
)
