package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/svmurthy/accident-dispatch/internal/models"
	"github.com/svmurthy/accident-dispatch/internal/service"
)

func org(orgType models.OrgType, filterRegion string, severities ...models.Severity) *models.Organization {
	return &models.Organization{
		ID:   uuid.New(),
		Type: orgType,
		AlertFilter: models.AlertFilter{
			Severities: severities,
			Region:     filterRegion,
		},
	}
}

func TestResolveEligible_EmptySeverityFilterMatchesAll(t *testing.T) {
	hospital := org(models.OrgHospital, models.RegionAll)

	for _, severity := range []models.Severity{
		models.SeverityCritical, models.SeverityMajor, models.SeverityModerate, models.SeverityMinor,
	} {
		eligible := service.ResolveEligible([]*models.Organization{hospital}, severity, "North")
		assert.Len(t, eligible[models.OrgHospital], 1, "severity %s", severity)
	}
}

func TestResolveEligible_SeverityFilterIsExact(t *testing.T) {
	hospital := org(models.OrgHospital, models.RegionAll, models.SeverityCritical, models.SeverityMajor)

	eligible := service.ResolveEligible([]*models.Organization{hospital}, models.SeverityCritical, "North")
	assert.Len(t, eligible[models.OrgHospital], 1)

	eligible = service.ResolveEligible([]*models.Organization{hospital}, models.SeverityMinor, "North")
	assert.Empty(t, eligible[models.OrgHospital])
}

func TestResolveEligible_RegionFilter(t *testing.T) {
	north := org(models.OrgPolice, "North")
	south := org(models.OrgPolice, "South")
	everywhere := org(models.OrgPolice, models.RegionAll)

	eligible := service.ResolveEligible([]*models.Organization{north, south, everywhere}, models.SeverityMajor, "North")

	ids := make([]uuid.UUID, 0, 2)
	for _, o := range eligible[models.OrgPolice] {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{north.ID, everywhere.ID}, ids)
}

func TestResolveEligible_UnknownRegionOnlyMatchesWildcard(t *testing.T) {
	north := org(models.OrgHospital, "North")
	everywhere := org(models.OrgHospital, models.RegionAll)

	eligible := service.ResolveEligible([]*models.Organization{north, everywhere}, models.SeverityCritical, models.RegionUnknown)

	assert.Len(t, eligible[models.OrgHospital], 1)
	assert.Equal(t, everywhere.ID, eligible[models.OrgHospital][0].ID)
}

func TestResolveEligible_PartitionsByType(t *testing.T) {
	hospital := org(models.OrgHospital, models.RegionAll)
	police := org(models.OrgPolice, models.RegionAll)

	eligible := service.ResolveEligible([]*models.Organization{hospital, police}, models.SeverityModerate, "East")

	assert.Len(t, eligible[models.OrgHospital], 1)
	assert.Len(t, eligible[models.OrgPolice], 1)
	assert.Equal(t, hospital.ID, eligible[models.OrgHospital][0].ID)
	assert.Equal(t, police.ID, eligible[models.OrgPolice][0].ID)
}

func TestResolveEligible_EmptyCatalog(t *testing.T) {
	eligible := service.ResolveEligible(nil, models.SeverityCritical, "North")

	assert.NotNil(t, eligible[models.OrgHospital])
	assert.Empty(t, eligible[models.OrgHospital])
	assert.Empty(t, eligible[models.OrgPolice])
}

func TestAlertFilter_Matches(t *testing.T) {
	filter := models.AlertFilter{
		Severities: []models.Severity{models.SeverityCritical},
		Region:     "North",
	}

	assert.True(t, filter.Matches(models.SeverityCritical, "North"))
	assert.False(t, filter.Matches(models.SeverityMinor, "North"))
	assert.False(t, filter.Matches(models.SeverityCritical, "South"))
}
