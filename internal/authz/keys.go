package authz

// Permission keys for the IPR module.
const (
	PermIPRFile    = "ipr_file"
	PermIPRView    = "ipr_view"
	PermIPRReview  = "ipr_review"
	PermIPRApprove = "ipr_approve"
)

// Permission keys for the research contribution module.
const (
	PermResearchFile    = "research_file"
	PermResearchView    = "research_view"
	PermResearchReview  = "research_review"
	PermResearchApprove = "research_approve"
)

// Permission keys for the patent registry module.
const (
	PermPatentView   = "patent_view"
	PermPatentManage = "patent_manage"
)

// Permission keys for platform administration.
const (
	PermUsersView         = "users_view"
	PermPermissionsView   = "permissions_view"
	PermPermissionsManage = "permissions_manage"
	PermModulesManage     = "modules_manage"
	PermAuditView         = "audit_view"
)
