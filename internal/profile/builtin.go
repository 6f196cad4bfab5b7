package profile

import "github.com/guilamu/gravity-extract/internal/domain"

// masterCatalog is the universe of canonical extraction keys and their
// default labels. Profile field lists are drawn from it; AI-assisted
// detection may add free-form keys outside it.
var masterCatalog = domain.NewFieldList(
	"full_extraction", "★ Full Extraction (all text)",
	"supplier_name", "Supplier Name",
	"supplier_vat_number", "Supplier VAT Number",
	"supplier_address_line1", "Supplier Address",
	"supplier_address_line2", "Supplier Address Line 2",
	"supplier_postcode", "Supplier Postcode",
	"supplier_city", "Supplier City",
	"supplier_country", "Supplier Country",
	"customer_name", "Customer Name",
	"customer_vat_number", "Customer VAT Number",
	"customer_email", "Customer Email",
	"customer_address", "Customer Address",
	"invoice_number", "Invoice Number",
	"invoice_date", "Invoice Date",
	"invoice_due_date", "Due Date",
	"purchase_order_number", "PO Number",
	"order_reference", "Order Reference",
	"currency", "Currency",
	"amount_subtotal_excl_tax", "Subtotal (excl. tax)",
	"amount_total_excl_tax", "Total (excl. tax)",
	"amount_total_tax", "Total Tax",
	"amount_total_incl_tax", "Total (incl. tax)",
	"amount_discount", "Discount",
	"amount_paid", "Amount Paid",
	"amount_balance_due", "Balance Due",
	"seller_name", "Seller Name",
	"seller_vat_number", "Seller VAT Number",
	"buyer_name", "Buyer Name",
	"buyer_address", "Buyer Address",
	"credit_note_number", "Credit Note Number",
	"credit_note_date", "Credit Note Date",
	"original_invoice_number", "Original Invoice Number",
	"original_invoice_date", "Original Invoice Date",
	"credit_reason", "Credit Reason",
	"credit_subtotal_excl_tax", "Credit Subtotal (excl. tax)",
	"credit_total_tax", "Credit Total Tax",
	"credit_total_incl_tax", "Credit Total (incl. tax)",
	"merchant_name", "Merchant Name",
	"merchant_vat_number", "Merchant VAT Number",
	"merchant_address_line1", "Merchant Address Line 1",
	"merchant_address_line2", "Merchant Address Line 2",
	"merchant_postcode", "Merchant Postcode",
	"merchant_city", "Merchant City",
	"merchant_country", "Merchant Country",
	"receipt_number", "Receipt Number",
	"receipt_date", "Receipt Date",
	"receipt_time", "Receipt Time",
	"payment_method", "Payment Method",
	"expense_type", "Expense Type",
	"number_of_covers", "Number of Covers",
	"number_of_nights", "Number of Nights",
	"tax_rate_1", "Tax Rate 1",
	"tax_amount_1", "Tax Amount 1",
	"tax_rate_2", "Tax Rate 2",
	"tax_amount_2", "Tax Amount 2",
	"tip_amount", "Tip Amount",
	"document_type", "Document Type",
	"document_number", "Document Number",
	"document_date", "Document Date",
	"starting_point", "Starting Point",
	"point_of_arrival", "Point of Arrival",
	"trip_length", "Trip Length (km/miles)",
	"toll_amount", "Toll Amount",
	"gas_amount", "Gas Amount",
	"total_amount", "Total Amount",
	"tax_amount", "Tax Amount",
	"bank_user_id_first_name", "Account Holder First Name",
	"bank_user_id_last_name", "Account Holder Last Name",
	"bank_BIC", "BIC/SWIFT Code",
	"bank_IBAN", "IBAN",
	"bank_name", "Bank Name",
	"bank_address", "Bank Address",
	"bank_city", "Bank City",
	"bank_postal_code", "Bank Postal Code",
	"bank_country", "Bank Country",
)

// builtinKeySets defines the ordered extraction keys of each built-in
// profile. Labels come from the master catalog.
var builtinKeySets = []struct {
	slug string
	name string
	keys []string
}{
	{
		slug: "supplier_invoice",
		name: "Supplier invoice (B2B)",
		keys: []string{
			"full_extraction",
			"supplier_name", "supplier_vat_number",
			"supplier_address_line1", "supplier_address_line2",
			"supplier_postcode", "supplier_city", "supplier_country",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"customer_name", "customer_vat_number",
			"invoice_number", "invoice_date", "invoice_due_date",
			"purchase_order_number", "currency",
			"amount_subtotal_excl_tax", "amount_total_excl_tax",
			"amount_total_tax", "amount_total_incl_tax",
		},
	},
	{
		slug: "sales_invoice",
		name: "Sales invoice",
		keys: []string{
			"full_extraction",
			"seller_name", "seller_vat_number",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"customer_name", "customer_email",
			"invoice_number", "invoice_date", "invoice_due_date",
			"order_reference", "currency",
			"amount_subtotal_excl_tax", "amount_total_excl_tax",
			"amount_discount", "amount_total_tax", "amount_total_incl_tax",
			"amount_paid", "amount_balance_due",
		},
	},
	{
		slug: "credit_note",
		name: "Credit note",
		keys: []string{
			"full_extraction",
			"credit_note_number", "credit_note_date",
			"original_invoice_number", "original_invoice_date",
			"credit_reason",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"currency",
			"credit_subtotal_excl_tax", "amount_total_excl_tax",
			"credit_total_tax", "credit_total_incl_tax",
		},
	},
	{
		slug: "generic_receipt",
		name: "Generic receipt",
		keys: []string{
			"full_extraction",
			"merchant_name", "merchant_vat_number",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"receipt_number", "receipt_date", "receipt_time",
			"payment_method",
			"amount_total_excl_tax", "amount_total_tax", "amount_total_incl_tax",
		},
	},
	{
		slug: "restaurant_hotel",
		name: "Restaurant / Hotel",
		keys: []string{
			"full_extraction",
			"merchant_name",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"receipt_date", "receipt_time",
			"expense_type", "number_of_covers", "number_of_nights",
			"tax_rate_1", "tax_amount_1", "tax_rate_2", "tax_amount_2",
			"tip_amount",
			"amount_total_excl_tax", "amount_total_incl_tax",
		},
	},
	{
		slug: "mileage_expenses",
		name: "Mileage expenses",
		keys: []string{
			"full_extraction",
			"starting_point", "point_of_arrival", "trip_length",
			"toll_amount", "gas_amount",
		},
	},
	{
		slug: "minimal_light",
		name: "Minimal (light)",
		keys: []string{
			"full_extraction",
			"document_type", "document_number", "document_date",
			"supplier_name", "supplier_vat_number",
			"merchant_address_line1", "merchant_address_line2",
			"merchant_postcode", "merchant_city", "merchant_country",
			"amount_total_excl_tax", "amount_total_tax", "amount_total_incl_tax",
			"currency",
		},
	},
}

// documentDescriptions feed the extraction prompt's "you are analyzing a
// <type>" line for built-in profiles.
var documentDescriptions = map[string]string{
	"supplier_invoice": "a supplier invoice (B2B)",
	"sales_invoice":    "a sales invoice",
	"credit_note":      "a credit note",
	"generic_receipt":  "a receipt",
	"restaurant_hotel": "a restaurant or hotel receipt",
	"mileage_expenses": "a mileage or travel expense record",
	"minimal_light":    "a document (invoice, receipt, or similar)",
}

var builtins = buildBuiltins()

func buildBuiltins() map[string]domain.MappingProfile {
	out := make(map[string]domain.MappingProfile, len(builtinKeySets))
	for _, set := range builtinKeySets {
		var fields domain.FieldList
		for _, key := range set.keys {
			def, ok := masterCatalog.Get(key)
			if !ok {
				def = domain.FieldDef{Label: key}
			}
			fields.Set(key, def)
		}
		out[set.slug] = domain.MappingProfile{
			Slug:    set.slug,
			Name:    set.name,
			Fields:  fields,
			Builtin: true,
		}
	}
	return out
}

// MasterFields returns the master field catalog (a copy, in catalog order).
func MasterFields() domain.FieldList {
	return masterCatalog.Clone()
}

// Builtins returns all built-in profiles in their fixed order.
func Builtins() []domain.MappingProfile {
	out := make([]domain.MappingProfile, 0, len(builtinKeySets))
	for _, set := range builtinKeySets {
		p := builtins[set.slug]
		p.Fields = p.Fields.Clone()
		out = append(out, p)
	}
	return out
}

// Builtin returns the built-in profile for slug, if one exists.
func Builtin(slug string) (domain.MappingProfile, bool) {
	p, ok := builtins[slug]
	if !ok {
		return domain.MappingProfile{}, false
	}
	p.Fields = p.Fields.Clone()
	return p, true
}

// DocumentDescription returns the prompt-facing document type description
// for a profile slug. Custom profiles fall back to a generic description.
func DocumentDescription(slug string) string {
	if d, ok := documentDescriptions[slug]; ok {
		return d
	}
	return "a document"
}
