package models

import "time"

// Shop is the identity row for a seller store on the marketplace.
// (MarketplaceShopID, PartnerID) uniquely identifies a shop; exactly one
// non-deleted row exists per identity.
type Shop struct {
	Key                    string // internal shop key, opaque
	MarketplaceShopID      int64
	PartnerID              int64
	PartnerKey             string // secret, never logged
	AccessToken            string
	RefreshToken           string
	ExpireAt               time.Time
	Active                 bool
	Deleted                bool
	OrderPollWindowMinutes int
	Sandbox                bool
	CompanyID              string
}

// TokenExpiringSoon reports whether the access token is missing or within
// refreshWindow of expiring.
func (s Shop) TokenExpiringSoon(now time.Time, refreshWindow time.Duration) bool {
	if s.AccessToken == "" {
		return true
	}
	return !s.ExpireAt.After(now.Add(refreshWindow))
}

// Company carries the per-company sandbox override. When it disagrees with
// the process-level SHOPEE_IS_SANDBOX flag, the company column wins — see
// DESIGN.md "sandbox precedence".
type Company struct {
	ID        string
	IsSandbox bool
}

// EffectiveSandbox resolves the sandbox precedence rule: the company row
// always wins over the process flag when both are known.
func EffectiveSandbox(company Company, processSandbox bool, companyKnown bool) bool {
	if companyKnown {
		return company.IsSandbox
	}
	return processSandbox
}
