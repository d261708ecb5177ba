package form31

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/osbtools/form31-converter/internal/xmltree"
)

const (
	// Namespace is the mandatory root namespace of generated documents.
	Namespace = "http://ised-isde.canada.ca/form31/schema/1.0"
	// SchemaLocation is the xsi:schemaLocation hint pointing at the XSD.
	SchemaLocation = Namespace + " form31.xsd"

	// Fixed form element attributes.
	FormType    = "bankruptcy"
	FormNumber  = "31"
	FormVersion = "1.0"
)

// GeneratedDocument is the result of XML generation.
type GeneratedDocument struct {
	XML        string
	DocumentID string
}

// Generate serializes a canonical document into namespaced, schema-tagged
// XML. It never fails: missing optional data is simply omitted, and monetary
// or array fields still at their defaults produce no placeholder nodes.
func Generate(doc *Document) GeneratedDocument {
	documentID := uuid.NewString()

	root := xmltree.NewElement("document", "")
	root.SetAttr(xml.Name{Local: "xmlns"}, Namespace)
	root.SetAttr(xml.Name{Space: "xmlns", Local: "xsi"}, xmltree.XSINamespace)
	root.SetAttr(xml.Name{Space: xmltree.XSINamespace, Local: "schemaLocation"}, SchemaLocation)

	form := root.AddChild(xmltree.NewElement("form", ""))
	form.SetAttr(xml.Name{Local: "type"}, FormType)
	form.SetAttr(xml.Name{Local: "form-number"}, FormNumber)
	form.SetAttr(xml.Name{Local: "version"}, FormVersion)

	meta := form.AddChild(xmltree.NewElement("metadata", ""))
	meta.AddText("generated-timestamp", isoTimestamp(doc.Metadata.GeneratedTimestamp))
	if doc.Metadata.SourceFile != "" {
		meta.AddText("source-file", doc.Metadata.SourceFile)
	}
	meta.AddText("generation-system", doc.Metadata.GeneratedBy)
	meta.AddText("document-id", documentID)

	content := form.AddChild(xmltree.NewElement("content", ""))
	writePersonalInformation(content, doc)
	writeFinancialInformation(content, doc)
	writeCertification(content, doc)

	return GeneratedDocument{XML: root.Serialize(), DocumentID: documentID}
}

// GenerateToFile generates the XML and writes it to outputPath, creating the
// directory when needed. The only failure mode is the file system.
func GenerateToFile(doc *Document, outputPath string) (GeneratedDocument, error) {
	generated := Generate(doc)

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return GeneratedDocument{}, fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}
	if err := os.WriteFile(outputPath, []byte(generated.XML), 0o640); err != nil {
		return GeneratedDocument{}, fmt.Errorf("cannot write XML file: %w", err)
	}
	return generated, nil
}

func writePersonalInformation(content *xmltree.Node, doc *Document) {
	personal := content.AddChild(xmltree.NewElement("personalInformation", ""))

	caseInfo := xmltree.NewElement("caseInfo", "")
	addNonEmpty(caseInfo, "courtFileNumber", doc.CaseInfo.CourtFileNumber)
	addNonEmpty(caseInfo, "dateOfFiling", NormalizeDate(doc.CaseInfo.DateOfFiling))
	addNonEmpty(caseInfo, "district", doc.CaseInfo.District)
	addNonEmpty(caseInfo, "division", doc.CaseInfo.Division)
	if len(caseInfo.Children) > 0 {
		personal.AddChild(caseInfo)
	}

	debtor := personal.AddChild(xmltree.NewElement("debtor", ""))
	debtor.SetAttr(xml.Name{Local: "type"}, doc.Debtor.Type)

	name := xmltree.NewElement("name", "")
	addNonEmpty(name, "firstName", doc.Debtor.Name.FirstName)
	addNonEmpty(name, "middleName", doc.Debtor.Name.MiddleName)
	addNonEmpty(name, "lastName", doc.Debtor.Name.LastName)
	if len(name.Children) > 0 {
		debtor.AddChild(name)
	}

	address := xmltree.NewElement("address", "")
	addNonEmpty(address, "streetNumber", doc.Debtor.Address.StreetNumber)
	addNonEmpty(address, "streetName", doc.Debtor.Address.StreetName)
	addNonEmpty(address, "city", doc.Debtor.Address.City)
	addNonEmpty(address, "province", doc.Debtor.Address.Province)
	addNonEmpty(address, "postalCode", doc.Debtor.Address.PostalCode)
	addNonEmpty(address, "country", doc.Debtor.Address.Country)
	if len(address.Children) > 0 {
		debtor.AddChild(address)
	}

	contact := xmltree.NewElement("contact", "")
	addNonEmpty(contact, "telephone", doc.Debtor.ContactInfo.Telephone)
	addNonEmpty(contact, "email", doc.Debtor.ContactInfo.Email)
	if len(contact.Children) > 0 {
		debtor.AddChild(contact)
	}

	addNonEmpty(debtor, "occupation", doc.Debtor.Occupation)
	addNonEmpty(debtor, "employer", doc.Debtor.Employer)
	addNonEmpty(debtor, "dateOfBirth", NormalizeDate(doc.Debtor.DateOfBirth))
	addNonEmpty(debtor, "identification", doc.Debtor.Identification)
}

func writeFinancialInformation(content *xmltree.Node, doc *Document) {
	financial := content.AddChild(xmltree.NewElement("financialInformation", ""))

	if len(doc.AssetsAndLiabilities.Assets) > 0 {
		assets := financial.AddChild(xmltree.NewElement("assets", ""))
		for _, entry := range doc.AssetsAndLiabilities.Assets {
			asset := assets.AddChild(xmltree.NewElement("asset", ""))
			addNonEmpty(asset, "description", entry.Description)
			addNonEmpty(asset, "value", entry.Value)
		}
	}

	if len(doc.Creditors.Entries) > 0 {
		liabilities := financial.AddChild(xmltree.NewElement("liabilities", ""))
		for _, entry := range doc.Creditors.Entries {
			liability := liabilities.AddChild(xmltree.NewElement("liability", ""))
			addNonEmpty(liability, "name", entry.Name)
			addNonEmpty(liability, "address", entry.Address)
			addNonEmpty(liability, "amount", entry.Amount)
			addNonEmpty(liability, "type", entry.Type)
		}
	}

	totals := xmltree.NewElement("totals", "")
	addAmount(totals, "totalUnsecured", doc.Creditors.TotalUnsecured)
	addAmount(totals, "totalSecured", doc.Creditors.TotalSecured)
	addAmount(totals, "totalPreferred", doc.Creditors.TotalPreferred)
	addAmount(totals, "grandTotal", doc.Creditors.GrandTotal)
	addAmount(totals, "totalAssets", doc.AssetsAndLiabilities.TotalAssets)
	addAmount(totals, "totalLiabilities", doc.AssetsAndLiabilities.TotalLiabilities)
	addAmount(totals, "deficiency", doc.AssetsAndLiabilities.Deficiency)
	if len(totals.Children) > 0 {
		financial.AddChild(totals)
	}
}

func writeCertification(content *xmltree.Node, doc *Document) {
	certification := content.AddChild(xmltree.NewElement("certification", ""))

	debtorSig := xmltree.NewElement("debtorSignature", "")
	addNonEmpty(debtorSig, "name", doc.Signatures.DebtorSignature.Name)
	addNonEmpty(debtorSig, "date", NormalizeDate(doc.Signatures.DebtorSignature.Date))
	if len(debtorSig.Children) > 0 {
		certification.AddChild(debtorSig)
	}

	if witness := doc.Signatures.WitnessSignature; witness != nil {
		witnessSig := certification.AddChild(xmltree.NewElement("witnessSignature", ""))
		addNonEmpty(witnessSig, "name", witness.Name)
		addNonEmpty(witnessSig, "date", NormalizeDate(witness.Date))
	}
}

func addNonEmpty(parent *xmltree.Node, local, text string) {
	if text != "" {
		parent.AddText(local, text)
	}
}

// addAmount omits monetary fields still at their default.
func addAmount(parent *xmltree.Node, local, amount string) {
	if amount != "" && amount != zeroAmount {
		parent.AddText(local, amount)
	}
}

// dateLayouts are the formats the converter has been observed to emit.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"2006/01/02",
}

// NormalizeDate renders a date as YYYY-MM-DD. Unparseable input degrades to
// an empty string rather than failing generation.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// isoTimestamp ensures the generation timestamp is ISO-8601; anything else
// is replaced by the current time.
func isoTimestamp(raw string) string {
	if _, err := time.Parse(time.RFC3339, raw); err == nil {
		return raw
	}
	return time.Now().UTC().Format(time.RFC3339)
}
