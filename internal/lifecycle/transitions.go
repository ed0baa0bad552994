package lifecycle

import "github.com/unifly3582/orderflow/internal/status"

// transitions lists, per state, every state it may move to. Terminal
// states have no entry.
var transitions = map[status.Internal][]status.Internal{
	status.CreatedPending:          {status.NeedsManualVerification, status.Approved, status.ReadyForShipping, status.Shipped, status.Cancelled},
	status.NeedsManualVerification: {status.CreatedPending, status.Approved, status.ReadyForShipping, status.Cancelled},
	status.PaymentPending:          {status.CreatedPending, status.NeedsManualVerification, status.Cancelled},
	status.Approved:                {status.ReadyForShipping, status.Shipped, status.Cancelled},
	status.ReadyForShipping:        {status.Shipped, status.Pending, status.InTransit, status.Cancelled},
	status.Shipped:                 {status.Pending, status.InTransit, status.Delivered, status.ReturnInitiated, status.Returned, status.Cancelled},
	status.Pending:                 {status.Shipped, status.InTransit, status.Delivered, status.ReturnInitiated, status.Returned, status.Cancelled},
	status.InTransit:               {status.Shipped, status.Pending, status.Delivered, status.ReturnInitiated, status.Returned, status.Cancelled},
	status.ReturnInitiated:         {status.Returned, status.Delivered},
}

// CanTransition reports whether from may move to a different state to.
// A self-transition is not a transition; callers treat it as a no-op.
func CanTransition(from, to status.Internal) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
