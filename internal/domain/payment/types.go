package payment

// PaymentType is the direction of a payment
type PaymentType string

const (
	PaymentTypeInbound  PaymentType = "inbound"  // money received from a customer
	PaymentTypeOutbound PaymentType = "outbound" // money paid to a vendor
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeInbound || t == PaymentTypeOutbound
}

func (t PaymentType) String() string {
	return string(t)
}

// InvoiceKind returns the kind of invoice a payment of this type settles
func (t PaymentType) InvoiceKind() InvoiceKind {
	if t == PaymentTypeOutbound {
		return InvoiceKindVendorBill
	}
	return InvoiceKindCustomerInvoice
}

// sign is the multiplier applied to reconciliation amounts
func (t PaymentType) sign() int64 {
	if t == PaymentTypeOutbound {
		return -1
	}
	return 1
}

// InvoiceKind distinguishes customer invoices from vendor bills
type InvoiceKind string

const (
	InvoiceKindCustomerInvoice InvoiceKind = "out_invoice"
	InvoiceKindVendorBill      InvoiceKind = "in_invoice"
)

func (k InvoiceKind) IsValid() bool {
	return k == InvoiceKindCustomerInvoice || k == InvoiceKindVendorBill
}

// PaymentState is the lifecycle state of a payment
type PaymentState string

const (
	PaymentStateDraft      PaymentState = "draft"
	PaymentStatePosted     PaymentState = "posted"
	PaymentStateReconciled PaymentState = "reconciled"
	PaymentStateCancelled  PaymentState = "cancelled"
)

// IsValid checks if the state is a valid PaymentState
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateDraft, PaymentStatePosted, PaymentStateReconciled, PaymentStateCancelled:
		return true
	}
	return false
}

func (s PaymentState) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are possible
func (s PaymentState) IsTerminal() bool {
	return s == PaymentStateReconciled || s == PaymentStateCancelled
}

// CanEdit returns true if amount, date, currency and lines may change
func (s PaymentState) CanEdit() bool {
	return s == PaymentStateDraft
}

// CanPost returns true if the payment can be posted in this state
func (s PaymentState) CanPost() bool {
	return s == PaymentStateDraft
}

// CanReconcile returns true if reconciliation records may be generated
func (s PaymentState) CanReconcile() bool {
	return s == PaymentStatePosted
}

// CanCancel returns true if the payment can be cancelled in this state
func (s PaymentState) CanCancel() bool {
	return s == PaymentStateDraft || s == PaymentStatePosted
}
