// =============================================================================
// NF-e to DANFE Converter - Invoice Record
// =============================================================================
//
// Invoice is the flat, display oriented view of one NF-e. It is built once by
// Extract and never modified afterwards.
//
// ZERO VALUES:
//   Every field has a usable zero value. An absent recipient is an empty
//   Party, an absent transport block is an empty Transport, and so on. Code
//   reading an Invoice never has to check for nil.
//
// =============================================================================

package danfe

import (
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/format"
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT
// =============================================================================

// Amount keeps the XML text of a monetary or numeric field next to its
// parsed value. Raw is "" when the field was absent.
type Amount struct {
	Raw   string
	Value decimal.Decimal
	Valid bool
}

// ParseAmount parses a dot-decimal XML value. Unparsable text is kept in Raw
// with Valid set to false.
func ParseAmount(raw string) Amount {
	raw = strings.TrimSpace(raw)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{Raw: raw}
	}
	return Amount{Raw: raw, Value: d, Valid: true}
}

// Currency renders the amount as "R$ 0,00", or the raw text when it is not a
// number.
func (a Amount) Currency() string {
	return format.Currency(a.Raw)
}

// =============================================================================
// INVOICE
// =============================================================================

// Invoice is the extracted record of one NF-e.
type Invoice struct {
	// AccessKey is the 44 digit key. It is "" when neither the protocol nor
	// the infNFe Id attribute carries it.
	AccessKey string

	Number          string
	Series          string
	OperationType   string // tpNF: 0 = entrada, 1 = saída
	OperationNature string
	IssuedAt        string // dhEmi (or dEmi on older layouts), raw ISO text
	ExitAt          string // dhSaiEnt, falling back to IssuedAt

	Issuer    Party
	Recipient Party

	Items        []LineItem
	Totals       Totals
	Transport    Transport
	Installments []Installment

	// AdditionalInfo joins the fiscal note and the complementary note.
	AdditionalInfo string

	Protocol Protocol
}

// Party is an issuer, recipient or carrier.
type Party struct {
	Name                  string
	Document              string // CNPJ or CPF digits as found in the XML
	StateRegistration     string
	StateRegistrationST   string
	MunicipalRegistration string
	Address               Address
}

// Address is a postal address as carried by enderEmit / enderDest.
type Address struct {
	Street     string
	Number     string
	Complement string
	District   string
	City       string
	State      string
	PostalCode string
	Phone      string
}

// Line joins street, number and complement the way the DANFE prints them.
func (a Address) Line() string {
	var parts []string
	for _, p := range []string{a.Street, a.Number, a.Complement} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// LineItem is one <det> entry.
type LineItem struct {
	Code        string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    Amount
	UnitPrice   Amount
	Total       Amount
	ICMS        ICMS
	IPI         IPI
}

// ICMS holds the fields of whichever ICMS group the item used.
type ICMS struct {
	Group     string // e.g. "ICMS00", "ICMSSN101", "" when none matched
	Situation string // CST or CSOSN
	Base      Amount
	Rate      Amount
	Amount    Amount
}

// IPI holds the taxed IPI fields of an item.
type IPI struct {
	Amount Amount
	Rate   Amount
}

// Totals mirrors ICMSTot and ISSQNtot.
type Totals struct {
	ICMSBase       Amount
	ICMS           Amount
	ICMSSTBase     Amount
	ICMSST         Amount
	FCP            Amount
	Products       Amount
	Freight        Amount
	Insurance      Amount
	Discount       Amount
	Other          Amount
	IPI            Amount
	Invoice        Amount
	ApproximateTax Amount

	Services  Amount
	ISSQNBase Amount
	ISSQN     Amount
}

// Transport is the optional <transp> block.
type Transport struct {
	FreightMode string
	Carrier     Party
	Vehicle     Vehicle
	Volume      Volume
}

// Vehicle is <veicTransp>.
type Vehicle struct {
	Plate string
	State string
	RNTC  string
}

// WeightUnit is appended to the volume weights.
const WeightUnit = "kg"

// Volume is the first <vol> entry. Weights are display text carrying
// WeightUnit, or "" when absent.
type Volume struct {
	Quantity    string
	Kind        string
	Brand       string
	Numbering   string
	GrossWeight string
	NetWeight   string
}

// Installment is one payment term. DueDate is "" for a term synthesized from
// <fat>, which the DANFE prints as "-".
type Installment struct {
	Number  string
	DueDate string
	Amount  Amount
}

// Protocol is the authorization receipt.
type Protocol struct {
	Number     string
	ReceivedAt string
}

// Display renders "nProt - dd/mm/yyyy HH:MM:SS", or whichever half exists.
func (p Protocol) Display() string {
	received := format.DateTime(p.ReceivedAt, format.DateTimeLayout)
	switch {
	case p.Number != "" && received != "":
		return p.Number + " - " + received
	case p.Number != "":
		return p.Number
	default:
		return received
	}
}
