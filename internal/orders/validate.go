package orders

import (
	"github.com/ariefcatur/go-storefront/internal/validation"
)

// orderInput is the validated shape of a create request. Field paths in
// validation errors follow its JSON names, e.g. "items[0].quantity".
type orderInput struct {
	CustomerInfo CustomerInfo  `json:"customerInfo"`
	Items        []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

func validateOrder(c CustomerInfo, items []ItemRequest) error {
	return validation.Struct(orderInput{CustomerInfo: c, Items: items})
}
