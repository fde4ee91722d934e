package service

import (
	"github.com/svmurthy/accident-dispatch/internal/models"
)

// ResolveEligible partitions the organization catalog into the disjoint
// sets that should be alerted about an incident: an organization is
// eligible iff the incident severity is in its alert filter (empty set
// means all severities) and its filter region is the wildcard or matches
// the incident region. An empty set for a type is valid; that track then
// stays pending through normal means.
func ResolveEligible(orgs []*models.Organization, severity models.Severity, region string) map[models.OrgType][]*models.Organization {
	eligible := map[models.OrgType][]*models.Organization{
		models.OrgHospital: {},
		models.OrgPolice:   {},
	}
	for _, org := range orgs {
		if !models.ValidOrgType(org.Type) {
			continue
		}
		if org.AlertFilter.Matches(severity, region) {
			eligible[org.Type] = append(eligible[org.Type], org)
		}
	}
	return eligible
}
