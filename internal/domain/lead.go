package domain

import "time"

// CapabilityLeads gates the lead endpoints for platform users.
const CapabilityLeads = "leads"

// LeadType says how the lead was sourced.
type LeadType string

const (
	LeadTypeSelf     LeadType = "self"
	LeadTypePartner  LeadType = "partner"
	LeadTypeReferral LeadType = "referral"
	LeadTypeCold     LeadType = "cold"
)

// LeadStatusNew is the status of every freshly submitted lead.
const LeadStatusNew = "new"

// IncentivePending marks an incentive that has not been settled.
const IncentivePending = "pending"

var leadIncentives = map[LeadType]string{
	LeadTypeSelf:     "Free add-ons, priority RM, faster callback",
	LeadTypePartner:  "Cash payout + contests",
	LeadTypeReferral: "Gifts / vouchers",
	LeadTypeCold:     "Up to 25% payout on conversion",
}

var leadPayouts = map[LeadType]string{
	LeadTypePartner:  "Payout on successful conversion",
	LeadTypeReferral: "Gift / voucher on conversion",
	LeadTypeCold:     "Up to 25% payout",
}

// Valid reports whether t is a known lead type.
func (t LeadType) Valid() bool {
	_, ok := leadIncentives[t]
	return ok
}

// Incentive describes the reward offered for this kind of lead.
func (t LeadType) Incentive() string {
	return leadIncentives[t]
}

// ExpectedPayout is nil for self-sourced leads.
func (t LeadType) ExpectedPayout() *string {
	payout, ok := leadPayouts[t]
	if !ok {
		return nil
	}
	return &payout
}

// Lead is a prospective customer submitted by a partner.
type Lead struct {
	ID                string
	UserID            string
	FranchiseID       *string
	ProductType       string
	LeadType          LeadType
	Status            string
	IncentiveType     string
	IncentiveStatus   string
	ExpectedPayout    *string
	Name              string
	Email             *string
	Phone             *string
	City              *string
	Requirement       *string
	ProductDetails    map[string]any
	ConsentConfirmed  bool
	ConvertToReferral bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
