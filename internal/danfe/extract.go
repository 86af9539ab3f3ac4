// =============================================================================
// NF-e to DANFE Converter - Invoice Data Extractor
// =============================================================================
//
// Extract turns a parsed NF-e into an Invoice record.
//
// FAILURE POLICY:
//   The only fatal condition is a missing <infNFe>: without it the file cannot
//   be identified as an invoice and ErrMalformedInvoice is returned. Every
//   other block (emit, dest, total, transp, cobr, infAdic, protNFe) is
//   resolved independently; a missing block only blanks its own fields.
//
// =============================================================================

package danfe

import (
	"errors"
	"strings"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/nfe"
)

// ErrMalformedInvoice reports a document without an <infNFe> element.
var ErrMalformedInvoice = errors.New("malformed invoice: infNFe element not found")

// DefaultInfoSeparator joins infAdFisco and infCpl.
const DefaultInfoSeparator = " | "

// Options tunes extraction.
type Options struct {
	// InfoSeparator joins the fiscal and complementary notes.
	// Default: " | "
	InfoSeparator string
}

// Extract builds an Invoice with default options.
func Extract(doc *nfe.Document) (*Invoice, error) {
	return ExtractWith(doc, Options{})
}

// ExtractWith builds an Invoice from doc.
//
// RETURNS:
//   - The invoice record.
//   - ErrMalformedInvoice when the document has no infNFe element.
func ExtractWith(doc *nfe.Document, opts Options) (*Invoice, error) {
	if opts.InfoSeparator == "" {
		opts.InfoSeparator = DefaultInfoSeparator
	}

	inf := doc.InvoiceInfo()
	if inf == nil {
		return nil, ErrMalformedInvoice
	}

	ide := inf.Find("ide")
	prot := doc.Protocol()

	inv := &Invoice{
		AccessKey:       accessKey(inf, prot),
		Number:          ide.Value("nNF"),
		Series:          ide.Value("serie"),
		OperationType:   ide.Value("tpNF"),
		OperationNature: ide.Value("natOp"),
		IssuedAt:        ide.First([]string{"dhEmi", "dEmi"}),
		Issuer:          party(inf.Find("emit"), "enderEmit"),
		Recipient:       party(inf.Find("dest"), "enderDest"),
		Items:           items(inf),
		Totals:          totals(inf.Find("total")),
		Transport:       transport(inf.Find("transp")),
		Installments:    installments(inf.Find("cobr")),
		AdditionalInfo:  additionalInfo(inf.Find("infAdic"), opts.InfoSeparator),
		Protocol: Protocol{
			Number:     prot.Value("nProt"),
			ReceivedAt: prot.Value("dhRecbto"),
		},
	}

	inv.ExitAt = ide.First([]string{"dhSaiEnt", "dSaiEnt"})
	if inv.ExitAt == "" {
		inv.ExitAt = inv.IssuedAt
	}

	return inv, nil
}

// =============================================================================
// BLOCKS
// =============================================================================

// accessKey prefers the authorized key from the protocol and falls back to
// the infNFe Id attribute without its "NFe" prefix.
func accessKey(inf, prot *nfe.Element) string {
	if key := prot.Value("chNFe"); key != "" {
		return key
	}
	id := inf.Value("@Id")
	if len(id) <= 3 {
		return ""
	}
	return id[3:]
}

func party(el *nfe.Element, addressTag string) Party {
	addr := el.Find(addressTag)
	return Party{
		Name:                  el.Value("xNome"),
		Document:              el.First([]string{"CNPJ", "CPF", "idEstrangeiro"}),
		StateRegistration:     el.Value("IE"),
		StateRegistrationST:   el.Value("IEST"),
		MunicipalRegistration: el.Value("IM"),
		Address: Address{
			Street:     addr.Value("xLgr"),
			Number:     addr.Value("nro"),
			Complement: addr.Value("xCpl"),
			District:   addr.Value("xBairro"),
			City:       addr.Value("xMun"),
			State:      addr.Value("UF"),
			PostalCode: addr.Value("CEP"),
			Phone:      addr.Value("fone"),
		},
	}
}

// items keeps document order and skips entries missing prod or imposto.
func items(inf *nfe.Element) []LineItem {
	var out []LineItem
	for _, det := range inf.FindAll("det") {
		prod := det.Find("prod")
		tax := det.Find("imposto")
		if prod == nil || tax == nil {
			continue
		}

		ipi := tax.Find("IPI/IPITrib")
		ipiAmount := ipi.Value("vIPI")
		if ipiAmount == "" {
			ipiAmount = "0.00"
		}

		out = append(out, LineItem{
			Code:        prod.Value("cProd"),
			Description: prod.Value("xProd"),
			NCM:         prod.Value("NCM"),
			CFOP:        prod.Value("CFOP"),
			Unit:        prod.Value("uCom"),
			Quantity:    ParseAmount(prod.Value("qCom")),
			UnitPrice:   ParseAmount(prod.Value("vUnCom")),
			Total:       ParseAmount(prod.Value("vProd")),
			ICMS:        resolveICMS(tax),
			IPI: IPI{
				Amount: ParseAmount(ipiAmount),
				Rate:   ParseAmount(ipi.Value("pIPI")),
			},
		})
	}
	return out
}

func totals(total *nfe.Element) Totals {
	icms := total.Find("ICMSTot")
	iss := total.Find("ISSQNtot")
	amt := func(el *nfe.Element, tag string) Amount {
		return ParseAmount(el.Value(tag))
	}

	return Totals{
		ICMSBase:       amt(icms, "vBC"),
		ICMS:           amt(icms, "vICMS"),
		ICMSSTBase:     amt(icms, "vBCST"),
		ICMSST:         amt(icms, "vST"),
		FCP:            amt(icms, "vFCP"),
		Products:       amt(icms, "vProd"),
		Freight:        amt(icms, "vFrete"),
		Insurance:      amt(icms, "vSeg"),
		Discount:       amt(icms, "vDesc"),
		Other:          amt(icms, "vOutro"),
		IPI:            amt(icms, "vIPI"),
		Invoice:        amt(icms, "vNF"),
		ApproximateTax: amt(icms, "vTotTrib"),
		Services:       amt(iss, "vServ"),
		ISSQNBase:      amt(iss, "vBC"),
		ISSQN:          amt(iss, "vISS"),
	}
}

func transport(transp *nfe.Element) Transport {
	carrier := transp.Find("transporta")
	vehicle := transp.Find("veicTransp")
	vol := transp.Find("vol")

	return Transport{
		FreightMode: transp.Value("modFrete"),
		Carrier: Party{
			Name:              carrier.Value("xNome"),
			Document:          carrier.First([]string{"CNPJ", "CPF"}),
			StateRegistration: carrier.Value("IE"),
			Address: Address{
				Street: carrier.Value("xEnder"),
				City:   carrier.Value("xMun"),
				State:  carrier.Value("UF"),
			},
		},
		Vehicle: Vehicle{
			Plate: vehicle.Value("placa"),
			State: vehicle.Value("UF"),
			RNTC:  vehicle.Value("RNTC"),
		},
		Volume: Volume{
			Quantity:    vol.Value("qVol"),
			Kind:        vol.Value("esp"),
			Brand:       vol.Value("marca"),
			Numbering:   vol.Value("nVol"),
			GrossWeight: vol.Value("pesoB", nfe.WithUnit(WeightUnit)),
			NetWeight:   vol.Value("pesoL", nfe.WithUnit(WeightUnit)),
		},
	}
}

// installments lists <dup> entries, or synthesizes a single term from <fat>
// when the billing block has no duplicates.
func installments(cobr *nfe.Element) []Installment {
	if cobr == nil {
		return nil
	}

	fat := cobr.Find("fat")
	invoiceNumber := fat.Value("nFat")

	dups := cobr.FindAll("dup")
	if len(dups) == 0 {
		if fat == nil {
			return nil
		}
		return []Installment{{
			Number: invoiceNumber,
			Amount: ParseAmount(fat.Value("vLiq")),
		}}
	}

	out := make([]Installment, 0, len(dups))
	for _, dup := range dups {
		out = append(out, Installment{
			Number:  installmentNumber(invoiceNumber, dup.Value("nDup")),
			DueDate: dup.Value("dVenc"),
			Amount:  ParseAmount(dup.Value("vDup")),
		})
	}
	return out
}

// installmentNumber prints "nFat/nDup" unless nDup already carries the
// invoice number as a prefix.
func installmentNumber(invoiceNumber, dupNumber string) string {
	switch {
	case dupNumber == "":
		return invoiceNumber
	case invoiceNumber != "" && !strings.HasPrefix(dupNumber, invoiceNumber):
		return invoiceNumber + "/" + dupNumber
	default:
		return dupNumber
	}
}

func additionalInfo(infAdic *nfe.Element, sep string) string {
	var notes []string
	for _, tag := range []string{"infAdFisco", "infCpl"} {
		if v := infAdic.Value(tag); v != "" {
			notes = append(notes, v)
		}
	}
	return strings.Join(notes, sep)
}
