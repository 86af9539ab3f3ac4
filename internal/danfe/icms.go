package danfe

import "github.com/ginjaninja78/NFe-to-DANFE-conversion/internal/nfe"

// ICMSGroup describes one mutually exclusive ICMS sub-schema. The group tag
// is a child of imposto/ICMS; field names are relative to that child and are
// empty when the group does not carry the field.
type ICMSGroup struct {
	Tag        string
	Situations []string
	Base       string
	Rate       string
	Amount     string
	Simple     bool // Simples Nacional groups carry CSOSN instead of CST
}

// icmsGroups is the resolution order; the first group present on an item
// wins. Adding a situation code means adding an entry here.
var icmsGroups = []ICMSGroup{
	{Tag: "ICMS00", Situations: []string{"00"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS10", Situations: []string{"10"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS20", Situations: []string{"20"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS51", Situations: []string{"51"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS70", Situations: []string{"70"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS90", Situations: []string{"90"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMS30", Situations: []string{"30"}},
	{Tag: "ICMS40", Situations: []string{"40", "41", "50"}},
	{Tag: "ICMS60", Situations: []string{"60"}},
	{Tag: "ICMSPart", Situations: []string{"10", "90"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS"},
	{Tag: "ICMSST", Situations: []string{"41", "60"}},
	{Tag: "ICMSSN101", Situations: []string{"101"}, Simple: true},
	{Tag: "ICMSSN102", Situations: []string{"102", "103", "300", "400"}, Simple: true},
	{Tag: "ICMSSN201", Situations: []string{"201"}, Simple: true},
	{Tag: "ICMSSN202", Situations: []string{"202", "203"}, Simple: true},
	{Tag: "ICMSSN500", Situations: []string{"500"}, Simple: true},
	{Tag: "ICMSSN900", Situations: []string{"900"}, Base: "vBC", Rate: "pICMS", Amount: "vICMS", Simple: true},
}

// GroupForSituation returns the first group covering a CST or CSOSN code.
func GroupForSituation(code string) (ICMSGroup, bool) {
	for _, g := range icmsGroups {
		for _, s := range g.Situations {
			if s == code {
				return g, true
			}
		}
	}
	return ICMSGroup{}, false
}

// resolveICMS reads the ICMS fields from the first known group present under
// tax. A group tag missing from the table is resolved by its CST or CSOSN.
func resolveICMS(tax *nfe.Element) ICMS {
	icms := tax.Find("ICMS")
	for _, g := range icmsGroups {
		if el := icms.Find(g.Tag); el != nil {
			return readICMS(g, el)
		}
	}

	for _, el := range icms.Children() {
		code := el.First([]string{"CST", "CSOSN"})
		if g, ok := GroupForSituation(code); ok {
			out := readICMS(g, el)
			out.Group = el.Tag()
			return out
		}
	}
	return ICMS{}
}

func readICMS(g ICMSGroup, el *nfe.Element) ICMS {
	out := ICMS{Group: g.Tag}
	if g.Simple {
		out.Situation = el.Value("CSOSN")
	} else {
		out.Situation = el.Value("CST")
	}
	if g.Base != "" {
		out.Base = ParseAmount(el.Value(g.Base))
	}
	if g.Rate != "" {
		out.Rate = ParseAmount(el.Value(g.Rate))
	}
	if g.Amount != "" {
		out.Amount = ParseAmount(el.Value(g.Amount))
	}
	return out
}
