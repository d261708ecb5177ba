package form31

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osbtools/form31-converter/internal/xmltree"
)

// ExtractFields parses the converter's raw XML output and lifts the known
// field paths into a Fields value. Extraction is best-effort: a missing path
// yields the zero value, never an error. Only XML that cannot be parsed at
// all is an error; a parseable document without the expected form wrapper is
// logged as a warning and yields an all-default field set.
func ExtractFields(data []byte, logger zerolog.Logger) (Fields, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return Fields{}, fmt.Errorf("converter output is not parseable XML: %w", err)
	}

	content := formContent(root)
	if content == nil {
		logger.Warn().
			Str("root", root.Name.Local).
			Msg("converter output does not contain the expected form structure")
		return Fields{}, nil
	}

	fields := Fields{
		CaseInfo: CaseInfo{
			CourtFileNumber: content.FindText("caseInfo", "courtFileNumber"),
			DateOfFiling:    content.FindText("caseInfo", "dateOfFiling"),
			District:        content.FindText("caseInfo", "district"),
			Division:        content.FindText("caseInfo", "division"),
		},
		Debtor:               extractDebtor(content),
		Creditors:            extractCreditors(content),
		AssetsAndLiabilities: extractAssetsAndLiabilities(content),
		Signatures:           extractSignatures(content),
	}
	return fields, nil
}

// formContent locates the form/content wrapper whether or not the converter
// wrapped the form element in a document element.
func formContent(root *xmltree.Node) *xmltree.Node {
	form := root
	if form.Name.Local != "form" {
		form = root.Child("form")
		if form == nil {
			return nil
		}
	}
	return form.Child("content")
}

func extractDebtor(content *xmltree.Node) Debtor {
	info := content.Child("personalInfo")
	if info == nil {
		return Debtor{}
	}

	debtor := Debtor{
		Type: info.ChildText("type"),
		Name: PersonName{
			FirstName:  info.ChildText("firstName"),
			MiddleName: info.ChildText("middleName"),
			LastName:   info.ChildText("lastName"),
		},
		Occupation:     info.ChildText("occupation"),
		Employer:       info.ChildText("employer"),
		DateOfBirth:    info.ChildText("dob"),
		Identification: info.ChildText("sin"),
		ContactInfo: ContactInfo{
			Telephone: info.ChildText("telephone"),
			Email:     info.ChildText("email"),
		},
	}

	// Some converter versions emit a single full name instead of parts.
	if debtor.Name.FirstName == "" && debtor.Name.LastName == "" {
		debtor.Name = splitFullName(info.ChildText("name"))
	}

	if addr := info.Child("address"); addr != nil {
		debtor.Address = Address{
			StreetNumber: addr.ChildText("streetNumber"),
			StreetName:   addr.ChildText("street"),
			City:         addr.ChildText("city"),
			Province:     addr.ChildText("province"),
			PostalCode:   addr.ChildText("postalCode"),
			Country:      addr.ChildText("country"),
		}
	}
	return debtor
}

func extractCreditors(content *xmltree.Node) Creditors {
	creditorsNode := content.Child("creditors")
	if creditorsNode == nil {
		return Creditors{}
	}

	creditors := Creditors{
		TotalUnsecured: normalizeAmount(creditorsNode.ChildText("totalUnsecured")),
		TotalSecured:   normalizeAmount(creditorsNode.ChildText("totalSecured")),
		TotalPreferred: normalizeAmount(creditorsNode.ChildText("totalPreferred")),
		GrandTotal:     normalizeAmount(creditorsNode.ChildText("grandTotal")),
	}
	for _, entry := range creditorsNode.FindAll("creditor") {
		creditors.Entries = append(creditors.Entries, Creditor{
			Name:    entry.ChildText("name"),
			Address: entry.ChildText("address"),
			Amount:  normalizeAmount(entry.ChildText("amount")),
			Type:    entry.ChildText("type"),
		})
	}
	return creditors
}

func extractAssetsAndLiabilities(content *xmltree.Node) AssetsAndLiabilities {
	out := AssetsAndLiabilities{}

	if summary := content.Child("financialSummary"); summary != nil {
		out.TotalAssets = normalizeAmount(summary.ChildText("totalAssets"))
		out.TotalLiabilities = normalizeAmount(summary.ChildText("totalLiabilities"))
		out.Deficiency = normalizeAmount(summary.ChildText("deficiency"))
	}
	for _, entry := range content.FindAll("assets", "asset") {
		out.Assets = append(out.Assets, AssetEntry{
			Description: entry.ChildText("description"),
			Value:       normalizeAmount(entry.ChildText("value")),
		})
	}
	return out
}

func extractSignatures(content *xmltree.Node) Signatures {
	signatures := Signatures{}
	node := content.Child("signatures")
	if node == nil {
		return signatures
	}

	if debtor := node.Child("debtor"); debtor != nil {
		signatures.DebtorSignature = SignatureEntry{
			Name: debtor.ChildText("name"),
			Date: debtor.ChildText("date"),
		}
	}
	if witness := node.Child("witness"); witness != nil {
		signatures.WitnessSignature = &SignatureEntry{
			Name: witness.ChildText("name"),
			Date: witness.ChildText("date"),
		}
	}
	return signatures
}

// splitFullName breaks a single full name into first/middle/last parts.
func splitFullName(full string) PersonName {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return PersonName{}
	case 1:
		return PersonName{FirstName: parts[0]}
	case 2:
		return PersonName{FirstName: parts[0], LastName: parts[1]}
	default:
		return PersonName{
			FirstName:  parts[0],
			MiddleName: strings.Join(parts[1:len(parts)-1], " "),
			LastName:   parts[len(parts)-1],
		}
	}
}

// normalizeAmount renders a monetary value as a fixed two-decimal string.
// Values that do not parse as numbers pass through trimmed; an empty input
// stays empty so the model can apply its default.
func normalizeAmount(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}
