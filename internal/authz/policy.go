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

// Policy predicates are pure: they look only at the actor and, where given,
// a resource snapshot. Project membership is never consulted here; callers
// compose these with the Resolver.

func isOwner(actor Actor) bool {
	return actor.Role == RoleOwner
}

// CanCreateProject reports whether the actor may create projects.
func CanCreateProject(actor Actor) bool {
	return isOwner(actor)
}

// CanArchiveProject reports whether the actor may archive projects.
func CanArchiveProject(actor Actor) bool {
	return isOwner(actor)
}

// CanManageProjectMembers reports whether the actor may add project members.
func CanManageProjectMembers(actor Actor) bool {
	return isOwner(actor)
}

// CanApproveDailyReport reports whether the actor may approve submitted reports.
func CanApproveDailyReport(actor Actor) bool {
	return isOwner(actor)
}

// CanManageCompanyUsers reports whether the actor may provision users in
// its own company.
func CanManageCompanyUsers(actor Actor) bool {
	return isOwner(actor)
}

// CanEditDraftReport reports whether the actor may change the report's text.
// A tenant mismatch is a plain denial; callers surface it as not found.
func CanEditDraftReport(actor Actor, report ReportState) bool {
	return actor.TenantID != "" &&
		actor.TenantID == report.TenantID &&
		report.Status == ReportDraft
}

// CanSubmitReport reports whether the actor may submit the report.
func CanSubmitReport(actor Actor, report ReportState) bool {
	return CanEditDraftReport(actor, report)
}
