package status

import "strings"

// courierStatuses is the exact-match table for courier status strings.
var courierStatuses = map[string]Internal{
	"Manifested":       Shipped,
	"Not Picked":       Shipped,
	"In Transit":       InTransit,
	"Pending":          Pending,
	"Dispatched":       InTransit,
	"Out for Delivery": InTransit,
	"Out-for-Delivery": InTransit,
	"Delivered":        Delivered,
	"RTO Initiated":    ReturnInitiated,
	"RTO Delivered":    Returned,
}

// MapCourierStatus maps a courier status string onto an internal status.
// Unknown strings fall back to InTransit with known=false so callers can
// surface the gap.
func MapCourierStatus(raw string) (s Internal, known bool) {
	if s, ok := courierStatuses[strings.TrimSpace(raw)]; ok {
		return s, true
	}
	return InTransit, false
}

// IsOutForDelivery reports whether the courier says the parcel is on the
// last mile. It is looser than the status table on purpose: couriers spell
// this state several ways.
func IsOutForDelivery(raw string) bool {
	n := strings.ToLower(raw)
	n = strings.NewReplacer("_", "", "-", "", " ", "").Replace(n)
	return strings.Contains(n, "outfordelivery") || strings.Contains(n, "dispatched")
}
