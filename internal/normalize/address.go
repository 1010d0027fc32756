package normalize

import (
	"strings"

	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

func addressFromGraph(a *shopify.MailingAddress) *types.Address {
	if a == nil {
		return nil
	}
	return compactAddress(types.Address{
		Name:         a.Name,
		Company:      a.Company,
		Address1:     a.Address1,
		Address2:     a.Address2,
		City:         a.City,
		Province:     a.Province,
		ProvinceCode: a.ProvinceCode,
		Country:      a.Country,
		CountryCode:  a.CountryCodeV2,
		Zip:          a.Zip,
		Phone:        a.Phone,
	})
}

func addressFromWebhook(a *shopify.AddressPayload) *types.Address {
	if a == nil {
		return nil
	}
	return compactAddress(types.Address{
		Name:         a.Name,
		Company:      a.Company,
		Address1:     a.Address1,
		Address2:     a.Address2,
		City:         a.City,
		Province:     a.Province,
		ProvinceCode: a.ProvinceCode,
		Country:      a.Country,
		CountryCode:  a.CountryCode,
		Zip:          a.Zip,
		Phone:        a.Phone,
	})
}

// ShopAddress converts a shop billing address for use as a shipment origin.
func ShopAddress(a *shopify.MailingAddress) *types.Address {
	return addressFromGraph(a)
}

func compactAddress(a types.Address) *types.Address {
	if a.IsZero() && strings.TrimSpace(a.Name) == "" && strings.TrimSpace(a.Zip) == "" {
		return nil
	}
	return &a
}
