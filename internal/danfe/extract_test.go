package danfe

import (
	"strings"
	"testing"

	"github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/nfe"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullInvoice = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
 <NFe>
  <infNFe Id="NFe35250512345678000195550010000012341000012345" versao="4.00">
   <ide>
    <natOp>VENDA DE MERCADORIA</natOp><serie>1</serie><nNF>1234</nNF>
    <dhEmi>2025-05-10T14:30:00-03:00</dhEmi><tpNF>1</tpNF>
   </ide>
   <emit>
    <CNPJ>12345678000195</CNPJ><xNome>ACME COMERCIO LTDA</xNome>
    <enderEmit>
     <xLgr>RUA DAS FLORES</xLgr><nro>100</nro><xCpl>SALA 2</xCpl><xBairro>CENTRO</xBairro>
     <xMun>SAO PAULO</xMun><UF>SP</UF><CEP>01310100</CEP><fone>1133334444</fone>
    </enderEmit>
    <IE>111222333444</IE><IM>998877</IM>
   </emit>
   <dest>
    <CPF>12345678909</CPF><xNome>JOAO DA SILVA</xNome>
    <enderDest><xLgr>AV BRASIL</xLgr><nro>5</nro><xMun>CAMPINAS</xMun><UF>SP</UF><CEP>13010000</CEP></enderDest>
   </dest>
   <det nItem="1">
    <prod>
     <cProd>P001</cProd><xProd>PARAFUSO</xProd><NCM>73181500</NCM><CFOP>5102</CFOP>
     <uCom>UN</uCom><qCom>10.0000</qCom><vUnCom>5.00</vUnCom><vProd>50.00</vProd>
    </prod>
    <imposto>
     <ICMS><ICMS00><orig>0</orig><CST>00</CST><vBC>50.00</vBC><pICMS>18.00</pICMS><vICMS>9.00</vICMS></ICMS00></ICMS>
     <IPI><IPITrib><CST>50</CST><vBC>50.00</vBC><pIPI>5.00</pIPI><vIPI>2.50</vIPI></IPITrib></IPI>
    </imposto>
   </det>
   <det nItem="2">
    <prod><cProd>P002</cProd><xProd>SEM IMPOSTO</xProd></prod>
   </det>
   <det nItem="3">
    <prod><cProd>P003</cProd><xProd>ARRUELA</xProd><qCom>2</qCom><vUnCom>1.50</vUnCom><vProd>3.00</vProd></prod>
    <imposto><ICMS><ICMSSN102><orig>0</orig><CSOSN>102</CSOSN></ICMSSN102></ICMS></imposto>
   </det>
   <total>
    <ICMSTot>
     <vBC>50.00</vBC><vICMS>9.00</vICMS><vBCST>0.00</vBCST><vST>0.00</vST><vFCP>0.00</vFCP>
     <vProd>53.00</vProd><vFrete>10.00</vFrete><vSeg>0.00</vSeg><vDesc>1.00</vDesc>
     <vIPI>2.50</vIPI><vOutro>0.00</vOutro><vNF>64.50</vNF><vTotTrib>7.20</vTotTrib>
    </ICMSTot>
   </total>
   <transp>
    <modFrete>0</modFrete>
    <transporta><CNPJ>11222333000181</CNPJ><xNome>TRANSPORTES RAPIDOS</xNome><IE>123</IE><xEnder>ROD BR 116</xEnder><xMun>GUARULHOS</xMun><UF>SP</UF></transporta>
    <veicTransp><placa>ABC1D23</placa><UF>SP</UF><RNTC>000123</RNTC></veicTransp>
    <vol><qVol>2</qVol><esp>CAIXA</esp><marca>ACME</marca><nVol>1-2</nVol><pesoL>10.000</pesoL><pesoB>11.500</pesoB></vol>
   </transp>
   <cobr>
    <fat><nFat>1234</nFat><vOrig>64.50</vOrig><vLiq>64.50</vLiq></fat>
    <dup><nDup>001</nDup><dVenc>2025-06-10</dVenc><vDup>32.25</vDup></dup>
    <dup><nDup>1234-2</nDup><dVenc>2025-07-10</dVenc><vDup>32.25</vDup></dup>
   </cobr>
   <infAdic><infAdFisco>DOCUMENTO EMITIDO POR ME</infAdFisco><infCpl>PEDIDO 778</infCpl></infAdic>
  </infNFe>
 </NFe>
 <protNFe versao="4.00">
  <infProt><chNFe>35250512345678000195550010000012341000012399</chNFe><dhRecbto>2025-05-10T14:31:02-03:00</dhRecbto><nProt>135250000001234</nProt></infProt>
 </protNFe>
</nfeProc>`

func extract(t *testing.T, src string) *Invoice {
	t.Helper()
	doc, err := nfe.Parse(strings.NewReader(src))
	require.NoError(t, err)
	inv, err := Extract(doc)
	require.NoError(t, err)
	return inv
}

func TestExtractIdentity(t *testing.T) {
	inv := extract(t, fullInvoice)

	assert.Equal(t, "35250512345678000195550010000012341000012399", inv.AccessKey)
	assert.Equal(t, "1234", inv.Number)
	assert.Equal(t, "1", inv.Series)
	assert.Equal(t, "1", inv.OperationType)
	assert.Equal(t, "VENDA DE MERCADORIA", inv.OperationNature)
	assert.Equal(t, "2025-05-10T14:30:00-03:00", inv.IssuedAt)
	assert.Equal(t, inv.IssuedAt, inv.ExitAt)
	assert.Equal(t, "135250000001234 - 10/05/2025 14:31:02", inv.Protocol.Display())
}

func TestExtractParties(t *testing.T) {
	inv := extract(t, fullInvoice)

	assert.Equal(t, "ACME COMERCIO LTDA", inv.Issuer.Name)
	assert.Equal(t, "12345678000195", inv.Issuer.Document)
	assert.Equal(t, "998877", inv.Issuer.MunicipalRegistration)
	assert.Equal(t, "RUA DAS FLORES, 100, SALA 2", inv.Issuer.Address.Line())
	assert.Equal(t, "01310100", inv.Issuer.Address.PostalCode)

	assert.Equal(t, "JOAO DA SILVA", inv.Recipient.Name)
	assert.Equal(t, "12345678909", inv.Recipient.Document)
	assert.Equal(t, "CAMPINAS", inv.Recipient.Address.City)
}

func TestExtractItems(t *testing.T) {
	inv := extract(t, fullInvoice)

	require.Len(t, inv.Items, 2, "item without imposto is skipped")

	first := inv.Items[0]
	assert.Equal(t, "P001", first.Code)
	assert.True(t, first.Quantity.Value.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "ICMS00", first.ICMS.Group)
	assert.Equal(t, "00", first.ICMS.Situation)
	assert.Equal(t, "50.00", first.ICMS.Base.Raw)
	assert.Equal(t, "9.00", first.ICMS.Amount.Raw)
	assert.Equal(t, "18.00", first.ICMS.Rate.Raw)
	assert.Equal(t, "2.50", first.IPI.Amount.Raw)
	assert.Equal(t, "5.00", first.IPI.Rate.Raw)

	second := inv.Items[1]
	assert.Equal(t, "P003", second.Code)
	assert.Equal(t, "ICMSSN102", second.ICMS.Group)
	assert.Equal(t, "102", second.ICMS.Situation)
	assert.Equal(t, "", second.ICMS.Base.Raw)
	assert.Equal(t, "0.00", second.IPI.Amount.Raw)
}

func TestExtractTotalsTransportAndNotes(t *testing.T) {
	inv := extract(t, fullInvoice)

	assert.Equal(t, "R$ 64,50", inv.Totals.Invoice.Currency())
	assert.Equal(t, "R$ 7,20", inv.Totals.ApproximateTax.Currency())
	assert.Equal(t, "", inv.Totals.Services.Raw)

	assert.Equal(t, "0", inv.Transport.FreightMode)
	assert.Equal(t, "TRANSPORTES RAPIDOS", inv.Transport.Carrier.Name)
	assert.Equal(t, "ABC1D23", inv.Transport.Vehicle.Plate)
	assert.Equal(t, "11.500 kg", inv.Transport.Volume.GrossWeight)

	assert.Equal(t, "DOCUMENTO EMITIDO POR ME | PEDIDO 778", inv.AdditionalInfo)
}

func TestExtractInstallments(t *testing.T) {
	inv := extract(t, fullInvoice)

	require.Len(t, inv.Installments, 2)
	assert.Equal(t, "1234/001", inv.Installments[0].Number)
	assert.Equal(t, "2025-06-10", inv.Installments[0].DueDate)
	assert.Equal(t, "1234-2", inv.Installments[1].Number)
	assert.Equal(t, "32.25", inv.Installments[1].Amount.Raw)
}

const minimalNS = `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe Id="NFe%s">%s</infNFe></NFe>`

func wrap(id, body string) string {
	return strings.Replace(strings.Replace(minimalNS, "%s", id, 1), "%s", body, 1)
}

func TestICMSFallbackToSituation20(t *testing.T) {
	inv := extract(t, wrap("1", `<det nItem="1"><prod><cProd>X</cProd></prod><imposto><ICMS>
		<ICMS20><CST>20</CST><pRedBC>10.00</pRedBC><vBC>90.00</vBC><pICMS>12.00</pICMS><vICMS>10.80</vICMS></ICMS20>
	</ICMS></imposto></det>`))

	require.Len(t, inv.Items, 1)
	icms := inv.Items[0].ICMS
	assert.Equal(t, "ICMS20", icms.Group)
	assert.Equal(t, "90.00", icms.Base.Raw)
	assert.Equal(t, "12.00", icms.Rate.Raw)
	assert.Equal(t, "10.80", icms.Amount.Raw)
}

func TestICMSUnknownGroupResolvedBySituation(t *testing.T) {
	inv := extract(t, wrap("1", `<det nItem="1"><prod><cProd>X</cProd></prod><imposto><ICMS>
		<ICMS20R><orig>0</orig><CST>20</CST><vBC>80.00</vBC><pICMS>18.00</pICMS><vICMS>14.40</vICMS></ICMS20R>
	</ICMS></imposto></det>`))

	require.Len(t, inv.Items, 1)
	icms := inv.Items[0].ICMS
	assert.Equal(t, "ICMS20R", icms.Group)
	assert.Equal(t, "20", icms.Situation)
	assert.Equal(t, "80.00", icms.Base.Raw)
	assert.Equal(t, "14.40", icms.Amount.Raw)
}

func TestICMSUnknownSituationStaysEmpty(t *testing.T) {
	inv := extract(t, wrap("1", `<det nItem="1"><prod><cProd>X</cProd></prod><imposto><ICMS>
		<ICMSXX><CST>99</CST><vBC>1.00</vBC></ICMSXX>
	</ICMS></imposto></det>`))

	require.Len(t, inv.Items, 1)
	assert.Equal(t, ICMS{}, inv.Items[0].ICMS)
}

func TestInstallmentSynthesizedFromFat(t *testing.T) {
	inv := extract(t, wrap("1", `<cobr><fat><nFat>77</nFat><vOrig>100.00</vOrig><vLiq>95.00</vLiq></fat></cobr>`))

	require.Len(t, inv.Installments, 1)
	assert.Equal(t, "77", inv.Installments[0].Number)
	assert.Equal(t, "", inv.Installments[0].DueDate)
	assert.Equal(t, "95.00", inv.Installments[0].Amount.Raw)
}

func TestMissingRecipientDegrades(t *testing.T) {
	inv := extract(t, wrap("35250512345678000195550010000012341000012345", `<emit><xNome>ACME</xNome></emit>`))

	assert.Equal(t, Party{}, inv.Recipient)
	assert.Equal(t, "35250512345678000195550010000012341000012345", inv.AccessKey)
	assert.Empty(t, inv.Items)
	assert.Empty(t, inv.Installments)
	assert.Equal(t, "", inv.Protocol.Display())
	assert.Equal(t, "", inv.AdditionalInfo)
}

func TestMalformedInvoice(t *testing.T) {
	doc, err := nfe.Parse(strings.NewReader(`<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe/></nfeProc>`))
	require.NoError(t, err)

	_, err = Extract(doc)
	assert.ErrorIs(t, err, ErrMalformedInvoice)
}

func TestCustomInfoSeparator(t *testing.T) {
	doc, err := nfe.Parse(strings.NewReader(wrap("1", `<infAdic><infAdFisco>A</infAdFisco><infCpl>B</infCpl></infAdic>`)))
	require.NoError(t, err)

	inv, err := ExtractWith(doc, Options{InfoSeparator: "; "})
	require.NoError(t, err)
	assert.Equal(t, "A; B", inv.AdditionalInfo)
}

func TestGroupForSituation(t *testing.T) {
	g, ok := GroupForSituation("41")
	require.True(t, ok)
	assert.Equal(t, "ICMS40", g.Tag)

	_, ok = GroupForSituation("99")
	assert.False(t, ok)
}

func TestProtocolDisplay(t *testing.T) {
	assert.Equal(t, "123", Protocol{Number: "123"}.Display())
	assert.Equal(t, "01/02/2025 03:04:05", Protocol{ReceivedAt: "2025-02-01T03:04:05-03:00"}.Display())
}
