package email

const (
	subjectLeadAssignedFmt     = "New lead assigned: %s"
	subjectOpportunityAlertFmt = "[%s] Opportunity identified: %s"
)
