// pkg/model/entity.go
package model

// EntityType identifies which fixed record shape a row belongs to.
type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityOrder    EntityType = "order"
)

// Customer field names, matching the target table columns.
const (
	FieldCustomerID       = "customer_id"
	FieldName             = "name"
	FieldEmail            = "email"
	FieldPhone            = "phone"
	FieldCity             = "city"
	FieldState            = "state"
	FieldRegistrationDate = "registration_date"
	FieldCustomerStatus   = "status"
)

// Order field names.
const (
	FieldOrderID       = "order_id"
	FieldOrderCustomer = "customer_id"
	FieldProductName   = "product_name"
	FieldQuantity      = "quantity"
	FieldUnitPrice     = "unit_price"
	FieldOrderDate     = "order_date"
	FieldOrderStatus   = "status"
)

// CustomerHeaders is the expected spreadsheet header row for customers,
// in column order.
var CustomerHeaders = []string{
	"Customer ID", "Name", "Email", "Phone", "City", "State",
	"Registration Date", "Status",
}

// OrderHeaders is the expected spreadsheet header row for orders.
var OrderHeaders = []string{
	"Order ID", "Customer ID", "Product", "Quantity", "Unit Price",
	"Order Date", "Status",
}

// ExpectedHeaders returns the fixed header layout for an entity type.
func ExpectedHeaders(entity EntityType) []string {
	switch entity {
	case EntityCustomer:
		return CustomerHeaders
	case EntityOrder:
		return OrderHeaders
	default:
		return nil
	}
}
