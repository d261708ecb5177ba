package form31

import (
	"fmt"

	"github.com/osbtools/form31-converter/internal/xmltree"
)

// ParseGenerated reads a generated Form-31 XML document back into a
// canonical document. It is the structural inverse of Generate and, like
// field extraction, best-effort: missing elements default.
func ParseGenerated(data []byte) (*Document, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("generated document is not parseable XML: %w", err)
	}

	form := root.Child("form")
	if form == nil {
		return nil, fmt.Errorf("generated document has no form element")
	}
	content := form.Child("content")
	if content == nil {
		return nil, fmt.Errorf("generated document has no content element")
	}

	fields := Fields{
		CaseInfo:             parseGeneratedCaseInfo(content),
		Debtor:               parseGeneratedDebtor(content),
		Creditors:            parseGeneratedCreditors(content),
		AssetsAndLiabilities: parseGeneratedAssets(content),
		Signatures:           parseGeneratedSignatures(content),
	}
	doc := NewDocument(fields)

	if meta := form.Child("metadata"); meta != nil {
		if ts := meta.ChildText("generated-timestamp"); ts != "" {
			doc.Metadata.GeneratedTimestamp = ts
		}
		if src := meta.ChildText("source-file"); src != "" {
			doc.Metadata.SourceFile = src
		}
		if sys := meta.ChildText("generation-system"); sys != "" {
			doc.Metadata.GeneratedBy = sys
		}
	}
	return doc, nil
}

func parseGeneratedCaseInfo(content *xmltree.Node) CaseInfo {
	return CaseInfo{
		CourtFileNumber: content.FindText("personalInformation", "caseInfo", "courtFileNumber"),
		DateOfFiling:    content.FindText("personalInformation", "caseInfo", "dateOfFiling"),
		District:        content.FindText("personalInformation", "caseInfo", "district"),
		Division:        content.FindText("personalInformation", "caseInfo", "division"),
	}
}

func parseGeneratedDebtor(content *xmltree.Node) Debtor {
	node := content.Find("personalInformation", "debtor")
	if node == nil {
		return Debtor{}
	}
	return Debtor{
		Type: node.Attr("type"),
		Name: PersonName{
			FirstName:  node.FindText("name", "firstName"),
			MiddleName: node.FindText("name", "middleName"),
			LastName:   node.FindText("name", "lastName"),
		},
		Address: Address{
			StreetNumber: node.FindText("address", "streetNumber"),
			StreetName:   node.FindText("address", "streetName"),
			City:         node.FindText("address", "city"),
			Province:     node.FindText("address", "province"),
			PostalCode:   node.FindText("address", "postalCode"),
			Country:      node.FindText("address", "country"),
		},
		ContactInfo: ContactInfo{
			Telephone: node.FindText("contact", "telephone"),
			Email:     node.FindText("contact", "email"),
		},
		Occupation:     node.ChildText("occupation"),
		Employer:       node.ChildText("employer"),
		DateOfBirth:    node.ChildText("dateOfBirth"),
		Identification: node.ChildText("identification"),
	}
}

func parseGeneratedCreditors(content *xmltree.Node) Creditors {
	creditors := Creditors{}
	financial := content.Child("financialInformation")
	if financial == nil {
		return creditors
	}

	for _, entry := range financial.FindAll("liabilities", "liability") {
		creditors.Entries = append(creditors.Entries, Creditor{
			Name:    entry.ChildText("name"),
			Address: entry.ChildText("address"),
			Amount:  entry.ChildText("amount"),
			Type:    entry.ChildText("type"),
		})
	}
	if totals := financial.Child("totals"); totals != nil {
		creditors.TotalUnsecured = totals.ChildText("totalUnsecured")
		creditors.TotalSecured = totals.ChildText("totalSecured")
		creditors.TotalPreferred = totals.ChildText("totalPreferred")
		creditors.GrandTotal = totals.ChildText("grandTotal")
	}
	return creditors
}

func parseGeneratedAssets(content *xmltree.Node) AssetsAndLiabilities {
	out := AssetsAndLiabilities{}
	financial := content.Child("financialInformation")
	if financial == nil {
		return out
	}

	for _, entry := range financial.FindAll("assets", "asset") {
		out.Assets = append(out.Assets, AssetEntry{
			Description: entry.ChildText("description"),
			Value:       entry.ChildText("value"),
		})
	}
	if totals := financial.Child("totals"); totals != nil {
		out.TotalAssets = totals.ChildText("totalAssets")
		out.TotalLiabilities = totals.ChildText("totalLiabilities")
		out.Deficiency = totals.ChildText("deficiency")
	}
	return out
}

func parseGeneratedSignatures(content *xmltree.Node) Signatures {
	signatures := Signatures{}
	cert := content.Child("certification")
	if cert == nil {
		return signatures
	}

	if debtor := cert.Child("debtorSignature"); debtor != nil {
		signatures.DebtorSignature = SignatureEntry{
			Name: debtor.ChildText("name"),
			Date: debtor.ChildText("date"),
		}
	}
	if witness := cert.Child("witnessSignature"); witness != nil {
		signatures.WitnessSignature = &SignatureEntry{
			Name: witness.ChildText("name"),
			Date: witness.ChildText("date"),
		}
	}
	return signatures
}
