package compose

import (
	"encoding/base64"
	"strconv"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/danfe"
	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/format"
)

// Fixed texts printed on every DANFE.
const (
	ProtocolLabel = "PROTOCOLO DE AUTORIZAÇÃO DE USO"
	ConsultText   = "Consulta de autenticidade no portal nacional da NF-e www.nfe.fazenda.gov.br/portal ou no site da Sefaz Autorizada."
)

// Tokens replaced by rendered fragments rather than by field values.
const (
	ItemsToken        = "[items]"
	InstallmentsToken = "[duplicates]"
)

// freightModes labels the modFrete codes.
var freightModes = map[string]string{
	"0": "0 - Por conta do Remetente (CIF)",
	"1": "1 - Por conta do Destinatário (FOB)",
	"2": "2 - Por conta de Terceiros",
	"3": "3 - Próprio por conta do Remetente",
	"4": "4 - Próprio por conta do Destinatário",
	"9": "9 - Sem Ocorrência de Transporte",
}

// Extras are values that do not come from the XML.
type Extras struct {
	// TotalPages is the declared page count.
	TotalPages int

	// Barcode is the PNG image of the access key. Nil when encoding failed.
	Barcode []byte

	// LogoURL is printed at [url_logo].
	LogoURL string
}

// Placeholders builds the token -> value map for inv. Every token maps to a
// string, possibly empty.
func Placeholders(inv *danfe.Invoice, extra Extras) map[string]string {
	if extra.TotalPages < 1 {
		extra.TotalPages = 1
	}

	issuer := inv.Issuer
	recipient := inv.Recipient
	tot := inv.Totals
	tr := inv.Transport

	barcodeImage := ""
	if len(extra.Barcode) > 0 {
		uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(extra.Barcode)
		barcodeImage = `<img src="` + uri + `" alt="` + inv.AccessKey + `" style="width:100%; height:50px;"/>`
	}

	protocolLabel := ""
	if inv.AccessKey != "" {
		protocolLabel = ProtocolLabel
	}

	freightMode := tr.FreightMode
	if label, ok := freightModes[freightMode]; ok {
		freightMode = label
	}

	return map[string]string{
		// Issuer and identification.
		"[ds_company_issuer_name]":  issuer.Name,
		"[nl_invoice]":              inv.Number,
		"[ds_invoice_serie]":        inv.Series,
		"[url_logo]":                extra.LogoURL,
		"[ds_company_address]":      issuer.Address.Line(),
		"[ds_company_neighborhood]": issuer.Address.District,
		"[nu_company_cep]":          format.PostalCode(issuer.Address.PostalCode),
		"[ds_company_city_name]":    issuer.Address.City,
		"[ds_company_uf]":           issuer.Address.State,
		"[nl_company_phone_number]": issuer.Address.Phone,
		"[ds_code_operation_type]":  inv.OperationType,
		"[actual_page]":             "1",
		"[total_pages]":             strconv.Itoa(extra.TotalPages),
		"{BarCode}":                 inv.AccessKey,
		"[barcode_image]":           barcodeImage,
		"[ds_danfe]":                inv.AccessKey,
		"[_ds_transaction_nature]":  inv.OperationNature,
		"[protocol_label]":          protocolLabel,
		"[ds_protocol]":             inv.Protocol.Display(),
		"[nl_company_ie]":           issuer.StateRegistration,
		"[nl_company_ie_st]":        issuer.StateRegistrationST,
		"[nl_company_cnpj_cpf]":     format.Document(issuer.Document),
		"[ds_company_im]":           issuer.MunicipalRegistration,

		// Recipient.
		"[ds_client_receiver_name]": recipient.Name,
		"[nl_client_cnpj_cpf]":      format.Document(recipient.Document),
		"[dt_invoice_issue]":        format.Date(inv.IssuedAt),
		"[ds_client_address]":       recipient.Address.Line(),
		"[ds_client_neighborhood]":  recipient.Address.District,
		"[nu_client_cep]":           format.PostalCode(recipient.Address.PostalCode),
		"[dt_input_output]":         format.Date(inv.ExitAt),
		"[hr_input_output]":         format.Time(inv.ExitAt),
		"[ds_client_city_name]":     recipient.Address.City,
		"[nl_client_phone_number]":  recipient.Address.Phone,
		"[ds_client_uf]":            recipient.Address.State,
		"[ds_client_ie]":            recipient.StateRegistration,

		// Totals.
		"[tot_bc_icms]":       tot.ICMSBase.Currency(),
		"[tot_icms]":          tot.ICMS.Currency(),
		"[tot_bc_icms_st]":    tot.ICMSSTBase.Currency(),
		"[tot_icms_st]":       tot.ICMSST.Currency(),
		"[tot_icms_fcp]":      tot.FCP.Currency(),
		"[vl_total_prod]":     tot.Products.Currency(),
		"{ApproximateTax}":    tot.ApproximateTax.Currency(),
		"[vl_shipping]":       tot.Freight.Currency(),
		"[vl_insurance]":      tot.Insurance.Currency(),
		"[vl_discount]":       tot.Discount.Currency(),
		"[vl_other_expense]":  tot.Other.Currency(),
		"[tot_total_ipi_tax]": tot.IPI.Currency(),
		"[vl_total]":          tot.Invoice.Currency(),
		"[vl_total_serv]":     tot.Services.Currency(),
		"[tot_bc_issqn]":      tot.ISSQNBase.Currency(),
		"[tot_issqn]":         tot.ISSQN.Currency(),

		// Transport.
		"[ds_transport_carrier_name]":               tr.Carrier.Name,
		"[ds_transport_code_shipping_type]":         freightMode,
		"[ds_transport_rntc]":                       tr.Vehicle.RNTC,
		"[ds_transport_vehicle_plate]":              tr.Vehicle.Plate,
		"[ds_transport_vehicle_uf]":                 tr.Vehicle.State,
		"[nl_transport_cnpj_cpf]":                   format.Document(tr.Carrier.Document),
		"[ds_transport_address]":                    tr.Carrier.Address.Street,
		"[ds_transport_city]":                       tr.Carrier.Address.City,
		"[ds_transport_uf]":                         tr.Carrier.Address.State,
		"[ds_transport_ie]":                         tr.Carrier.StateRegistration,
		"[nu_transport_amount_transported_volumes]": tr.Volume.Quantity,
		"[ds_transport_type_volumes_transported]":   tr.Volume.Kind,
		"[ds_transport_mark_volumes_transported]":   tr.Volume.Brand,
		"[ds_transport_number_volumes_transported]": tr.Volume.Numbering,
		"[vl_transport_gross_weight]":               tr.Volume.GrossWeight,
		"[vl_transport_net_weight]":                 tr.Volume.NetWeight,

		// Notes and fixed text.
		"[ds_additional_information]": inv.AdditionalInfo,
		"[text_consult_nfe]":          ConsultText,
		"[page-break]":                "",
	}
}
