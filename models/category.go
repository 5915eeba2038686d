package models

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryHousing   Category = "Housing"
	CategoryGroceries Category = "Groceries"
	CategoryUtilities Category = "Utilities"
	CategoryInternet  Category = "Internet"
	CategoryOther     Category = "Other"
	// CategoryPayment marks a settlement transfer, not a real cost.
	CategoryPayment Category = "Payment"
)

// Categories lists the closed enumeration in display order.
var Categories = []Category{
	CategoryHousing,
	CategoryGroceries,
	CategoryUtilities,
	CategoryInternet,
	CategoryOther,
	CategoryPayment,
}

// Labels used by the web client.
var categoryAliases = map[string]Category{
	"casa":      CategoryHousing,
	"aluguel":   CategoryHousing,
	"mercado":   CategoryGroceries,
	"luz/água":  CategoryUtilities,
	"luz/agua":  CategoryUtilities,
	"internet":  CategoryInternet,
	"outros":    CategoryOther,
	"pagamento": CategoryPayment,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) IsPayment() bool {
	return c == CategoryPayment
}

// ParseCategory accepts canonical names (any case) and the client's Portuguese labels.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryOther, nil
	}
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	if c, ok := categoryAliases[strings.ToLower(s)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}
