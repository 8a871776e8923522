package scoring

import (
	"github.com/shieldops/rollcall/internal/store"
)

// contextBuilders maps each factor category to the function that builds its
// evaluation context from a lead's raw attributes. Every builder starts from
// the base attributes; category-specific fields are added on top.
var contextBuilders = map[store.FactorCategory]func(*store.Lead) Context{
	store.CategoryExperience:         experienceContext,
	store.CategoryLocation:           locationContext,
	store.CategoryAvailability:       availabilityContext,
	store.CategoryCertifications:     certificationsContext,
	store.CategorySalaryExpectations: salaryContext,
	store.CategorySourceQuality:      sourceContext,
}

// BuildContext returns the evaluation context for a lead and category.
// Unknown categories get the base context only.
func BuildContext(lead *store.Lead, category store.FactorCategory) Context {
	if build, ok := contextBuilders[category]; ok {
		return build(lead)
	}
	return baseContext(lead)
}

func baseContext(lead *store.Lead) Context {
	return Context{
		"yearsExperience":       lead.YearsExperience,
		"hasSecurityExperience": lead.HasSecurityExperience,
		"hasLicense":            lead.HasLicense,
		"hasTransportation":     lead.HasTransportation,
		"willingToRelocate":     lead.WillingToRelocate,
		"salaryExpectation":     lead.SalaryExpectation,
		"certificationCount":    float64(lead.CertificationCount),
		"source":                lead.Source,
		"referred":              lead.Referred,
		"status":                string(lead.Status),
	}
}

func experienceContext(lead *store.Lead) Context {
	ctx := baseContext(lead)
	ctx["hasExperience"] = lead.YearsExperience > 0
	return ctx
}

func locationContext(lead *store.Lead) Context {
	ctx := baseContext(lead)
	ctx["distanceMiles"] = lead.DistanceMiles
	ctx["localCandidate"] = lead.DistanceMiles <= 25
	return ctx
}

func availabilityContext(lead *store.Lead) Context {
	ctx := baseContext(lead)
	ctx["fullTime"] = lead.FullTime
	ctx["partTime"] = lead.PartTime
	ctx["weekends"] = lead.Weekends
	ctx["nights"] = lead.Nights
	return ctx
}

func certificationsContext(lead *store.Lead) Context {
	ctx := baseContext(lead)
	ctx["hasCertifications"] = lead.CertificationCount > 0
	return ctx
}

func salaryContext(lead *store.Lead) Context {
	return baseContext(lead)
}

func sourceContext(lead *store.Lead) Context {
	ctx := baseContext(lead)
	ctx["isReferral"] = lead.Referred || lead.Source == "referral"
	return ctx
}
