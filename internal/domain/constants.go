package domain

// Dashboard roles. The backend reports roles as boolean flags; see RoleFromFlags.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleTeamLeader = "team_leader"
	RoleStaff      = "staff"
	RoleITStaff    = "it_staff"
	RoleFreelancer = "freelancer"
)

// Lead statuses as the backend stores them. "Intrested" is the backend's spelling
// and must be sent verbatim.
const (
	StatusNew           = "New"
	StatusContacted     = "Contacted"
	StatusInterested    = "Intrested"
	StatusNotInterested = "Not Interested"
	StatusLost          = "Lost"
	StatusVisit         = "Visit"
)

// Filter-only statuses used by some report pages. They are never update targets.
const (
	StatusOtherLocation = "other location"
	StatusNotPicked     = "not picked"
)

// Report tags understood by the backend leads endpoint.
const (
	TagTotalLeads     = "total_leads"
	TagNew            = "new"
	TagContacted      = "contacted"
	TagInterested     = "interested"
	TagNotInterested  = "not_interested"
	TagLost           = "lost"
	TagVisit          = "visit"
	TagOtherLocation  = "other_location"
	TagNotPicked      = "not_picked"
	TagPendingFollow  = "pending_follow"
	TagTodayFollow    = "today_follow"
	TagTomorrowFollow = "tommorrow_follow" // backend spelling
)

// Caller context sent as "source" on lead queries.
const (
	SourceAdmin      = "admin"
	SourceTeamLeader = "team-leader"
	SourceAssociate  = "associate"
)

const DefaultPageSize = 10

// RoleFromFlags derives the dashboard role from the login flags in priority
// order admin > team leader > staff > freelancer. No flag means superadmin.
func RoleFromFlags(isAdmin, isTeamLeader, isStaff, isFreelancer bool) string {
	switch {
	case isAdmin:
		return RoleAdmin
	case isTeamLeader:
		return RoleTeamLeader
	case isStaff:
		return RoleStaff
	case isFreelancer:
		return RoleFreelancer
	default:
		return RoleSuperAdmin
	}
}

// RolePathSegment maps a role to the path segment the backend uses for it.
func RolePathSegment(role string) string {
	switch role {
	case RoleTeamLeader:
		return "team-leader"
	case RoleITStaff:
		return "it-staff"
	default:
		return role
	}
}

// RoleFromPathSegment is the inverse of RolePathSegment. Role names are
// accepted as they are.
func RoleFromPathSegment(seg string) string {
	switch seg {
	case "team-leader":
		return RoleTeamLeader
	case "it-staff":
		return RoleITStaff
	default:
		return seg
	}
}

// ManagedRoles lists which roles each role may list, create, edit and toggle.
var ManagedRoles = map[string][]string{
	RoleSuperAdmin: {RoleAdmin, RoleTeamLeader, RoleStaff, RoleITStaff, RoleFreelancer},
	RoleAdmin:      {RoleTeamLeader, RoleStaff, RoleITStaff, RoleFreelancer},
	RoleTeamLeader: {RoleStaff},
}

// CanManage reports whether actor may manage users of the target role.
func CanManage(actor, target string) bool {
	for _, r := range ManagedRoles[actor] {
		if r == target {
			return true
		}
	}
	return false
}

// LeadSource returns the "source" a role queries leads with.
func LeadSource(role string) string {
	switch role {
	case RoleTeamLeader:
		return SourceTeamLeader
	case RoleStaff, RoleFreelancer, RoleITStaff:
		return SourceAssociate
	default:
		return SourceAdmin
	}
}
