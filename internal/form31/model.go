// Package form31 owns the canonical Form-31 document model and the XML side
// of the conversion pipeline: extracting fields from the converter's output,
// generating namespace- and schema-compliant XML, validating it against the
// XSD contract and repairing non-compliant artifacts.
package form31

import "time"

// DefaultGeneratingSystem identifies this service in generated metadata when
// the configuration does not override it.
const DefaultGeneratingSystem = "form31-converter"

// DefaultCountry is applied to a debtor address with no country.
const DefaultCountry = "Canada"

// zeroAmount is the default for every monetary field.
const zeroAmount = "0.00"

// Metadata describes how and from what a document was generated.
type Metadata struct {
	GeneratedTimestamp string `json:"generatedTimestamp"`
	SourceFile         string `json:"sourceFile"`
	GeneratedBy        string `json:"generatedBy"`
}

// CaseInfo is the court identification block of the form.
type CaseInfo struct {
	CourtFileNumber string `json:"courtFileNumber"`
	DateOfFiling    string `json:"dateOfFiling"`
	District        string `json:"district"`
	Division        string `json:"division"`
}

// PersonName is a debtor name split into its parts.
type PersonName struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
}

// Address is a Canadian civic address.
type Address struct {
	StreetNumber string `json:"streetNumber"`
	StreetName   string `json:"streetName"`
	City         string `json:"city"`
	Province     string `json:"province"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`
}

// ContactInfo is the debtor's contact block.
type ContactInfo struct {
	Telephone string `json:"telephone"`
	Email     string `json:"email"`
}

// Debtor is the filer of the form. Type is "individual" or "joint".
type Debtor struct {
	Type           string      `json:"type"`
	Name           PersonName  `json:"name"`
	Address        Address     `json:"address"`
	ContactInfo    ContactInfo `json:"contactInfo"`
	Occupation     string      `json:"occupation"`
	Employer       string      `json:"employer"`
	DateOfBirth    string      `json:"dateOfBirth"`
	Identification string      `json:"identification"`
}

// Creditor is one creditor claim entry.
type Creditor struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Type    string `json:"type"` // unsecured, secured or preferred
}

// Creditors is the ordered creditor list with its monetary totals.
type Creditors struct {
	Entries        []Creditor `json:"creditor"`
	TotalUnsecured string     `json:"totalUnsecured"`
	TotalSecured   string     `json:"totalSecured"`
	TotalPreferred string     `json:"totalPreferred"`
	GrandTotal     string     `json:"grandTotal"`
}

// AssetEntry is one asset line item.
type AssetEntry struct {
	Description string `json:"description"`
	Value       string `json:"value"`
}

// AssetsAndLiabilities carries the summary totals and any itemized assets.
type AssetsAndLiabilities struct {
	Assets           []AssetEntry `json:"assets,omitempty"`
	TotalAssets      string       `json:"totalAssets"`
	TotalLiabilities string       `json:"totalLiabilities"`
	Deficiency       string       `json:"deficiency"`
}

// SignatureEntry is a signature with its date.
type SignatureEntry struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Signatures holds the debtor signature and an optional witness signature.
type Signatures struct {
	DebtorSignature  SignatureEntry  `json:"debtorSignature"`
	WitnessSignature *SignatureEntry `json:"witnessSignature,omitempty"`
}

// Fields is the intermediate field set produced by extraction. It has the
// same shape as Document but carries no defaults: an empty string means the
// converter output did not supply the field.
type Fields struct {
	CaseInfo             CaseInfo
	Debtor               Debtor
	Creditors            Creditors
	AssetsAndLiabilities AssetsAndLiabilities
	Signatures           Signatures
}

// Document is the canonical, fully-defaulted Form-31 record. Every leaf is
// always present; construction never fails, only Validate reports whether
// the required fields were populated.
type Document struct {
	Metadata             Metadata             `json:"metadata"`
	CaseInfo             CaseInfo             `json:"caseInfo"`
	Debtor               Debtor               `json:"debtor"`
	Creditors            Creditors            `json:"creditors"`
	AssetsAndLiabilities AssetsAndLiabilities `json:"assetsAndLiabilities"`
	Signatures           Signatures           `json:"signatures"`
}

// NewDocument builds a canonical document from possibly-partial extracted
// fields, applying every default.
func NewDocument(fields Fields) *Document {
	doc := &Document{
		Metadata: Metadata{
			GeneratedTimestamp: time.Now().UTC().Format(time.RFC3339),
			GeneratedBy:        DefaultGeneratingSystem,
		},
		CaseInfo:             fields.CaseInfo,
		Debtor:               fields.Debtor,
		Creditors:            fields.Creditors,
		AssetsAndLiabilities: fields.AssetsAndLiabilities,
		Signatures:           fields.Signatures,
	}

	if doc.Debtor.Type == "" {
		doc.Debtor.Type = "individual"
	}
	if doc.Debtor.Address.Country == "" {
		doc.Debtor.Address.Country = DefaultCountry
	}

	defaultAmount(&doc.Creditors.TotalUnsecured)
	defaultAmount(&doc.Creditors.TotalSecured)
	defaultAmount(&doc.Creditors.TotalPreferred)
	defaultAmount(&doc.Creditors.GrandTotal)
	defaultAmount(&doc.AssetsAndLiabilities.TotalAssets)
	defaultAmount(&doc.AssetsAndLiabilities.TotalLiabilities)
	defaultAmount(&doc.AssetsAndLiabilities.Deficiency)

	return doc
}

// Validate reports whether the required field groups are populated: court
// file number, debtor first and last name, and the street name, city and
// province of the debtor address.
func (d *Document) Validate() bool {
	if d.CaseInfo.CourtFileNumber == "" {
		return false
	}
	if d.Debtor.Name.FirstName == "" || d.Debtor.Name.LastName == "" {
		return false
	}
	if d.Debtor.Address.StreetName == "" || d.Debtor.Address.City == "" || d.Debtor.Address.Province == "" {
		return false
	}
	return true
}

func defaultAmount(s *string) {
	if *s == "" {
		*s = zeroAmount
	}
}
