// Package notify pushes accepted contact-form leads to external channels.
// Channels are best effort; the lead is already persisted when they run.
package notify

import (
	"fmt"
	"strings"

	"github.com/vistav/site-api/internal/models"
)

var serviceLabels = map[string]string{
	models.ServiceCommercial:  "Komerční výstavba",
	models.ServiceResidential: "Rodinné domy",
	models.ServiceRenovation:  "Rekonstrukce",
}

var clientTypeLabels = map[string]string{
	models.ClientTypeIndividual: "Soukromá osoba",
	models.ClientTypeCompany:    "Firma",
}

func label(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

// leadSummaryLines renders the lead as label/value pairs shared by all
// channels. Empty optional fields are skipped.
func leadSummaryLines(lead models.Lead) []string {
	lines := []string{
		fmt.Sprintf("Jméno: %s", lead.Name),
		fmt.Sprintf("Telefon: %s", lead.Phone),
		fmt.Sprintf("Email: %s", lead.Email),
		fmt.Sprintf("Typ klienta: %s", label(clientTypeLabels, lead.ClientType)),
	}
	if lead.Company != "" {
		lines = append(lines, fmt.Sprintf("Firma: %s", lead.Company))
	}
	lines = append(lines, fmt.Sprintf("Služba: %s", label(serviceLabels, lead.Service)))
	if lead.Message != "" {
		lines = append(lines, fmt.Sprintf("Zpráva: %s", lead.Message))
	}
	lines = append(lines,
		fmt.Sprintf("Jazyk: %s", lead.Language),
		fmt.Sprintf("Čas: %s", lead.CreatedAt.Format("2006-01-02 15:04:05")),
	)
	return lines
}

func leadSummaryText(lead models.Lead) string {
	return strings.Join(leadSummaryLines(lead), "\n")
}
