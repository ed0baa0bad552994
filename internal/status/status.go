package status

// Internal is the operational order state used for workflow routing.
type Internal string

const (
	CreatedPending          Internal = "created_pending"
	NeedsManualVerification Internal = "needs_manual_verification"
	PaymentPending          Internal = "payment_pending"
	Approved                Internal = "approved"
	ReadyForShipping        Internal = "ready_for_shipping"
	Shipped                 Internal = "shipped"
	InTransit               Internal = "in_transit"
	Delivered               Internal = "delivered"
	ReturnInitiated         Internal = "return_initiated"
	Returned                Internal = "returned"
	Cancelled               Internal = "cancelled"

	// Pending is only ever produced by the courier vocabulary: the courier
	// holds the parcel but has not moved it yet.
	Pending Internal = "pending"
)

// All lists every internal status in workflow order.
var All = []Internal{
	CreatedPending,
	NeedsManualVerification,
	PaymentPending,
	Approved,
	ReadyForShipping,
	Shipped,
	Pending,
	InTransit,
	Delivered,
	ReturnInitiated,
	Returned,
	Cancelled,
}

// Valid reports whether s is one of the known internal statuses.
func (s Internal) Valid() bool {
	for _, v := range All {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition or tracking is expected.
func (s Internal) IsTerminal() bool {
	switch s {
	case Delivered, Returned, Cancelled:
		return true
	}
	return false
}

// InCourierPhase reports whether the parcel is with the courier on its way
// to the customer.
func (s Internal) InCourierPhase() bool {
	switch s {
	case Shipped, InTransit, Pending:
		return true
	}
	return false
}

// CustomerFacing is the coarse status shown to customers.
type CustomerFacing string

const (
	FacingConfirmed  CustomerFacing = "confirmed"
	FacingProcessing CustomerFacing = "processing"
	FacingShipped    CustomerFacing = "shipped"
	FacingDelivered  CustomerFacing = "delivered"
	FacingCancelled  CustomerFacing = "cancelled"
	FacingReturned   CustomerFacing = "returned"
)

var customerFacing = map[Internal]CustomerFacing{
	CreatedPending:          FacingConfirmed,
	NeedsManualVerification: FacingConfirmed,
	PaymentPending:          FacingProcessing,
	Approved:                FacingConfirmed,
	ReadyForShipping:        FacingProcessing,
	Shipped:                 FacingShipped,
	Pending:                 FacingShipped,
	InTransit:               FacingShipped,
	Delivered:               FacingDelivered,
	// customers are not told about a return until it completes
	ReturnInitiated: FacingProcessing,
	Returned:        FacingReturned,
	Cancelled:       FacingCancelled,
}

// ToCustomerFacing projects an internal status onto the customer vocabulary.
// Unknown values land in processing.
func ToCustomerFacing(s Internal) CustomerFacing {
	if f, ok := customerFacing[s]; ok {
		return f
	}
	return FacingProcessing
}
