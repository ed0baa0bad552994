package validation

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// the claimed grand total must match items + shipping - discount
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

// createOrderStructValidation compares totals in paise so float noise in
// the request does not matter.
func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	sum := decimal.Zero
	for _, it := range req.Items {
		sum = sum.Add(decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	want := sum.Add(decimal.NewFromFloat(req.Shipping)).Sub(decimal.NewFromFloat(req.Discount)).Round(2)
	got := decimal.NewFromFloat(req.GrandTotal).Round(2)
	if !want.Equal(got) {
		sl.ReportError(req.GrandTotal, "grandTotal", "GrandTotal", "grand_total_match_items",
			fmt.Sprintf("items %s + shipping - discount = %s != grand total %s", sum.StringFixed(2), want.StringFixed(2), got.StringFixed(2)))
	}
	if req.Discount > 0 && decimal.NewFromFloat(req.Discount).GreaterThan(sum.Add(decimal.NewFromFloat(req.Shipping))) {
		sl.ReportError(req.Discount, "discount", "Discount", "discount_exceeds_total", "")
	}
}
