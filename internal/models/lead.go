package models

import "time"

// Client types accepted by the contact form
const (
	ClientTypeIndividual = "individual"
	ClientTypeCompany    = "company"
)

// Services offered on the contact form
const (
	ServiceCommercial  = "commercial"
	ServiceResidential = "residential"
	ServiceRenovation  = "renovation"
)

// Lead is one contact-form submission, appended to the leads CSV.
type Lead struct {
	ID         string
	CreatedAt  time.Time
	Name       string
	Phone      string
	Email      string
	ClientType string
	Company    string
	Service    string
	Message    string
	Language   string
	IPAddress  string
	UserAgent  string
}
