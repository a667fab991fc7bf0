package models

import (
	"fmt"
	"strings"
)

type RiskCategory string

const (
	CategoryBigTechThreat         RiskCategory = "BigTechThreat"
	CategoryRegulatoryChange      RiskCategory = "RegulatoryChange"
	CategoryCompetitiveThreat     RiskCategory = "CompetitiveThreat"
	CategoryEconomicDownturn      RiskCategory = "EconomicDownturn"
	CategoryTechnologyDisruption  RiskCategory = "TechnologyDisruption"
	CategoryCustomerConcentration RiskCategory = "CustomerConcentration"
	CategorySecurityBreach        RiskCategory = "SecurityBreach"
	CategoryOperationalRisk       RiskCategory = "OperationalRisk"
)

// Categories lists every risk category in display order.
var Categories = []RiskCategory{
	CategoryBigTechThreat,
	CategoryRegulatoryChange,
	CategoryCompetitiveThreat,
	CategoryEconomicDownturn,
	CategoryTechnologyDisruption,
	CategoryCustomerConcentration,
	CategorySecurityBreach,
	CategoryOperationalRisk,
}

func (c RiskCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCategory(v string) (RiskCategory, error) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(v)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown risk category: %q", v)
}

type Role string

const (
	RoleCEO        Role = "CEO"
	RoleCTO        Role = "CTO"
	RoleCFO        Role = "CFO"
	RoleLegal      Role = "LEGAL"
	RoleSales      Role = "SALES"
	RoleMarketing  Role = "MARKETING"
	RoleOperations Role = "OPERATIONS"
	RoleBoard      Role = "BOARD"
)

// roleRank orders stakeholders in routing results.
var roleRank = map[Role]int{
	RoleCEO:        0,
	RoleCTO:        1,
	RoleCFO:        2,
	RoleLegal:      3,
	RoleSales:      4,
	RoleMarketing:  5,
	RoleOperations: 6,
	RoleBoard:      7,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

func (r Role) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return len(roleRank)
}
