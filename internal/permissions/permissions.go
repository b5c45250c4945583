package permissions

import "encoding/json"

// Resources gated by the permission system.
const (
	ResourceDeals      = "deals"
	ResourceDealers    = "dealers"
	ResourceBackOffice = "backoffice"
	ResourceReports    = "reports"
	ResourceUsers      = "users"
	ResourceSystem     = "system"
)

// Actions evaluated against resources.
const (
	ActionCreate         = "create"
	ActionRead           = "read"
	ActionUpdate         = "update"
	ActionDelete         = "delete"
	ActionViewFinancials = "viewFinancials"
	ActionAccess         = "access"
	ActionManage         = "manage"
	ActionConfigure      = "configure"
)

// Snapshot is a resource -> action -> allowed grant map. It is derived from a
// role, embedded into issued tokens, and evaluated without touching storage.
type Snapshot map[string]map[string]bool

// Allows reports whether the snapshot grants action on resource. Missing
// resources and actions are denied.
func (s Snapshot) Allows(resource, action string) bool {
	if s == nil {
		return false
	}
	actions, ok := s[resource]
	if !ok {
		return false
	}
	return actions[action]
}

// Clone returns a deep copy so callers can never mutate shared grant state.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for resource, actions := range s {
		copied := make(map[string]bool, len(actions))
		for action, allowed := range actions {
			copied[action] = allowed
		}
		out[resource] = copied
	}
	return out
}

// MarshalJSON keeps snapshots stable for embedding in tokens and user rows.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]bool(s))
}

var roleGrants = map[string]Snapshot{
	"admin": {
		ResourceDeals:      {ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true, ActionViewFinancials: true},
		ResourceDealers:    {ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionDelete: true},
		ResourceBackOffice: {ActionAccess: true},
		ResourceReports:    {ActionAccess: true},
		ResourceUsers:      {ActionManage: true},
		ResourceSystem:     {ActionConfigure: true},
	},
	"sales": {
		ResourceDeals:      {ActionCreate: true, ActionRead: true, ActionUpdate: true, ActionViewFinancials: true},
		ResourceDealers:    {ActionCreate: true, ActionRead: true, ActionUpdate: true},
		ResourceBackOffice: {},
		ResourceReports:    {ActionAccess: true},
		ResourceUsers:      {},
		ResourceSystem:     {},
	},
	"finance": {
		ResourceDeals:      {ActionRead: true, ActionUpdate: true, ActionViewFinancials: true},
		ResourceDealers:    {ActionRead: true},
		ResourceBackOffice: {ActionAccess: true},
		ResourceReports:    {ActionAccess: true},
		ResourceUsers:      {},
		ResourceSystem:     {},
	},
	"viewer": {
		ResourceDeals:      {ActionRead: true},
		ResourceDealers:    {ActionRead: true},
		ResourceBackOffice: {},
		ResourceReports:    {ActionAccess: true},
		ResourceUsers:      {},
		ResourceSystem:     {},
	},
}

// Grants returns the full permission snapshot for a role. Unknown roles get
// an empty snapshot that denies everything. The returned value is always a
// fresh copy.
func Grants(role string) Snapshot {
	grants, ok := roleGrants[role]
	if !ok {
		return Snapshot{}
	}
	return grants.Clone()
}

// Roles lists the roles with defined grant sets.
func Roles() []string {
	return []string{"admin", "sales", "finance", "viewer"}
}

// IsValidRole reports whether the role has a defined grant set.
func IsValidRole(role string) bool {
	_, ok := roleGrants[role]
	return ok
}
