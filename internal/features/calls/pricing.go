package calls

import (
	"fmt"

	apperrors "github.com/xyz-asif/callboard/pkg/errors"
)

var ErrSamePrice = apperrors.BadRequest("SAME_PRICE", "Can't set the same price")

// CheckCategoryPrice rejects a nonzero price for a priceless category
func CheckCategoryPrice(category Category, price float64) error {
	if category.Priceless() && price != 0 {
		return apperrors.BadRequest("PRICE_NOT_ALLOWED", fmt.Sprintf("Can't set price for %s category. Must be 0", category))
	}
	return nil
}

// Reprice moves a call to newPrice. The previous price always becomes
// oldPrice. A markdown puts the call on sale with
// discount = 100 - newPrice*100/oldPrice; a markup clears the sale and
// zeroes the discount. The discount is not rounded.
func Reprice(current SaleState, newPrice float64) (SaleState, error) {
	if newPrice == current.Price {
		return current, ErrSamePrice
	}

	oldPrice := current.Price
	next := SaleState{Price: newPrice, OldPrice: &oldPrice}

	if newPrice < oldPrice {
		discount := 100 - newPrice*100/oldPrice
		next.IsOnSale = true
		next.DiscountPercents = &discount
	} else {
		zero := 0.0
		next.DiscountPercents = &zero
	}

	return next, nil
}
