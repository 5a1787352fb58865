package models

// Category identifies the logbook section an entry belongs to. It is
// orthogonal to the workflow: every category shares one lifecycle.
type Category string

const (
	CategoryProcedures         Category = "procedures"
	CategoryCasePresentations  Category = "case_presentations"
	CategorySeminars           Category = "seminars"
	CategoryJournalClubs       Category = "journal_clubs"
	CategoryConferences        Category = "conferences"
	CategoryResearch           Category = "research"
	CategoryPublications       Category = "publications"
	CategoryThesis             Category = "thesis"
	CategoryEvaluations        Category = "evaluations"
	CategoryClinicalRotations  Category = "clinical_rotations"
	CategoryEmergencyDuties    Category = "emergency_duties"
	CategoryWardRounds         Category = "ward_rounds"
	CategoryOutpatientClinics  Category = "outpatient_clinics"
	CategorySurgeriesAssisted  Category = "surgeries_assisted"
	CategoryTeachingActivities Category = "teaching_activities"
	CategoryWorkshops          Category = "workshops"
	CategoryCMECredits         Category = "cme_credits"
	CategoryClinicalAudits     Category = "clinical_audits"
	CategoryRuralPostings      Category = "rural_postings"
	CategorySkillsLab          Category = "skills_lab"
)

// Categories is the catalog of known logbook sections, in display order.
var Categories = []Category{
	CategoryProcedures,
	CategoryCasePresentations,
	CategorySeminars,
	CategoryJournalClubs,
	CategoryConferences,
	CategoryResearch,
	CategoryPublications,
	CategoryThesis,
	CategoryEvaluations,
	CategoryClinicalRotations,
	CategoryEmergencyDuties,
	CategoryWardRounds,
	CategoryOutpatientClinics,
	CategorySurgeriesAssisted,
	CategoryTeachingActivities,
	CategoryWorkshops,
	CategoryCMECredits,
	CategoryClinicalAudits,
	CategoryRuralPostings,
	CategorySkillsLab,
}

var knownCategories = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// Known reports whether c is in the catalog.
func (c Category) Known() bool {
	_, ok := knownCategories[c]
	return ok
}
