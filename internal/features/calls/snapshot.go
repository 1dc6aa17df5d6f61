package calls

import (
	"go.mongodb.org/mongo-driver/bson"
)

// SnapshotUpdate is the $set applied to the owner's matching calls element
// (filter on "calls._id"). The price history fields are only written once
// the call has an oldPrice; before that they are left out, not nulled.
func SnapshotUpdate(call Call) bson.M {
	set := bson.M{
		"calls.$.title":       call.Title,
		"calls.$.description": call.Description,
		"calls.$.category":    call.Category,
		"calls.$.price":       call.Price,
		"calls.$.imageUrls":   call.ImageURLs,
		"calls.$.phone":       call.Phone,
		"calls.$.isOnSale":    call.IsOnSale,
		"calls.$.userId":      call.UserID,
	}
	if call.OldPrice != nil {
		set["calls.$.oldPrice"] = *call.OldPrice
		discount := 0.0
		if call.DiscountPercents != nil {
			discount = *call.DiscountPercents
		}
		set["calls.$.discountPercents"] = discount
	}
	return bson.M{"$set": set}
}
