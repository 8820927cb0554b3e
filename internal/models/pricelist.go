package models

// PriceList is the typed schema for one language's price document.
// Keys are category slugs; the admin editor submits the whole document.
type PriceList map[string]PriceCategory

// PriceCategory groups services under one heading on the price page.
type PriceCategory struct {
	Title string      `json:"title"`
	Icon  string      `json:"icon"`
	Items []PriceItem `json:"items"`
}

// PriceItem is a single service row.
type PriceItem struct {
	Service string `json:"service"`
	Price   string `json:"price"`
}

// PriceListLanguages are the languages the site is published in.
// "cs" is the default and is mirrored to the main prices document on save.
var PriceListLanguages = []string{"cs", "uk", "en"}

// ValidPriceListLanguage reports whether lang is a published language.
func ValidPriceListLanguage(lang string) bool {
	for _, l := range PriceListLanguages {
		if l == lang {
			return true
		}
	}
	return false
}
