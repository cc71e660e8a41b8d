// pkg/normalize/rules.go
package normalize

import "github.com/sheetops/sheet-ingress/pkg/model"

// Rule binds one target field to its normalizer. Rules are ordered: the
// position of a rule in a rule set matches the column position of its cell
// in the source sheet.
type Rule struct {
	Field     string
	Normalize Normalizer
}

// Apply runs the rule against a raw cell value.
func (r Rule) Apply(raw string, rowIndex int) model.FieldOutcome {
	return r.Normalize(raw, rowIndex)
}

// Customer status vocabulary.
var CustomerStatuses = []string{"Active", "Inactive", "Pending"}

// Order status vocabulary.
var OrderStatuses = []string{"Pending", "Processing", "Shipped", "Delivered", "Cancelled"}

// CustomerRules returns the canonical rule set for customer rows, one rule
// per sheet column in order. This is the single source of truth consumed by
// both the batch pipeline and the single-record entry point.
func CustomerRules() []Rule {
	return []Rule{
		{Field: model.FieldCustomerID, Normalize: Identifier(model.FieldCustomerID, "C")},
		{Field: model.FieldName, Normalize: RequiredText(model.FieldName)},
		{Field: model.FieldEmail, Normalize: Email(model.FieldEmail)},
		{Field: model.FieldPhone, Normalize: Phone(model.FieldPhone)},
		{Field: model.FieldCity, Normalize: OptionalText(model.FieldCity)},
		{Field: model.FieldState, Normalize: State(model.FieldState)},
		{Field: model.FieldRegistrationDate, Normalize: Date(model.FieldRegistrationDate)},
		{Field: model.FieldCustomerStatus, Normalize: Status(model.FieldCustomerStatus, "Active", CustomerStatuses)},
	}
}

// OrderRules returns the canonical rule set for order rows. knownCustomer
// supplies the already-deduplicated customer identifier set used for the
// foreign-key check; a nil func skips the membership check.
func OrderRules(knownCustomer func(string) bool) []Rule {
	return []Rule{
		{Field: model.FieldOrderID, Normalize: Identifier(model.FieldOrderID, "ORD")},
		{Field: model.FieldOrderCustomer, Normalize: Reference(model.FieldOrderCustomer, "C", knownCustomer)},
		{Field: model.FieldProductName, Normalize: RequiredText(model.FieldProductName)},
		{Field: model.FieldQuantity, Normalize: Quantity(model.FieldQuantity)},
		{Field: model.FieldUnitPrice, Normalize: UnitPrice(model.FieldUnitPrice)},
		{Field: model.FieldOrderDate, Normalize: Date(model.FieldOrderDate)},
		{Field: model.FieldOrderStatus, Normalize: Status(model.FieldOrderStatus, "Pending", OrderStatuses)},
	}
}

// RulesFor returns the rule set for an entity type.
func RulesFor(entity model.EntityType, knownCustomer func(string) bool) []Rule {
	switch entity {
	case model.EntityCustomer:
		return CustomerRules()
	case model.EntityOrder:
		return OrderRules(knownCustomer)
	default:
		return nil
	}
}
