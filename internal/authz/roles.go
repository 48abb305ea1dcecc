// Copyright 2026 The Fieldbook Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

// -----------------------------------------------------------------------------
// Role Constants
// System roles are carried on the actor. Project roles are carried on a
// membership row. Both use the same two values.
// -----------------------------------------------------------------------------

// Role is either a company-wide system role or a per-project role.
type Role string

const (
	// RoleOwner may create and archive projects, manage project membership
	// and approve daily reports.
	RoleOwner Role = "OWNER"

	// RoleMember has no company-wide management capabilities.
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// ParseRole converts a wire value into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// -----------------------------------------------------------------------------
// Report Status Constants
// DRAFT -> SUBMITTED -> APPROVED. Transitions never move backwards.
// -----------------------------------------------------------------------------

// ReportStatus is the lifecycle state of a daily report.
type ReportStatus string

const (
	ReportDraft     ReportStatus = "DRAFT"
	ReportSubmitted ReportStatus = "SUBMITTED"
	ReportApproved  ReportStatus = "APPROVED"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID   string
	TenantID string
	Role     Role
}

// Authenticated reports whether the actor carries a usable identity.
func (a Actor) Authenticated() bool {
	return a.UserID != "" && a.TenantID != "" && a.Role.Valid()
}

// ReportState is the part of a daily report the report predicates inspect.
type ReportState struct {
	TenantID string
	Status   ReportStatus
}
