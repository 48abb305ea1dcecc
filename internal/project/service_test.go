package project_test

import (
	"context"
	"sync"
	"testing"

	"github.com/fieldbook/fieldbook/internal/audit"
	"github.com/fieldbook/fieldbook/internal/authz"
	"github.com/fieldbook/fieldbook/internal/idempotent"
	"github.com/fieldbook/fieldbook/internal/project"
	"github.com/fieldbook/fieldbook/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner  = authz.Actor{UserID: "owner-1", TenantID: "t1", Role: authz.RoleOwner}
	member = authz.Actor{UserID: "member-1", TenantID: "t1", Role: authz.RoleMember}
)

func newService(t *testing.T, opts project.Options) (*project.Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	st.AddUser("t1", owner.UserID)
	st.AddUser("t1", member.UserID)
	st.AddUser("t2", "outsider")
	svc := project.NewService(st, st, st,
		authz.NewResolver(st),
		audit.NewStoreLogger(st, nil),
		idempotent.NewManager(nil, nil),
		opts,
	)
	return svc, st
}

func TestCreateProject_OwnerBecomesMember(t *testing.T) {
	svc, st := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "  Harbor Tower "})
	require.NoError(t, err)
	assert.Equal(t, "Harbor Tower", p.Name)
	assert.Equal(t, project.StatusActive, p.Status)
	assert.Equal(t, "t1", p.TenantID)

	m, err := st.GetMembership(ctx, "t1", p.ID, owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOwner, m.Role)
	assert.Len(t, st.EventsFor(audit.EntityProject, audit.ActionCreated), 1)
}

func TestCreateProject_Rejections(t *testing.T) {
	svc, st := newService(t, project.Options{})
	ctx := context.Background()

	_, err := svc.CreateProject(ctx, member, project.CreateInput{Name: "x"})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.CreateProject(ctx, owner, project.CreateInput{Name: "   "})
	assert.ErrorIs(t, err, authz.ErrBadRequest)

	_, err = svc.CreateProject(ctx, authz.Actor{}, project.CreateInput{Name: "x"})
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	assert.Zero(t, st.Writes())
}

func TestArchiveProject(t *testing.T) {
	svc, st := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)

	_, err = svc.ArchiveProject(ctx, member, p.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	archived, err := svc.ArchiveProject(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.StatusArchived, archived.Status)
	assert.NotNil(t, archived.ArchivedAt)

	again, err := svc.ArchiveProject(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, project.StatusArchived, again.Status)
	assert.Len(t, st.EventsFor(audit.EntityProject, audit.ActionArchived), 1)
}

// TestPurpose: Validates that project operations from another tenant see the project as missing.
// Scope: Unit Test
// Security: Tenant enumeration prevention
// Expected: NotFound for every operation, never Forbidden.
// Test Case ID: PRJ-01
func TestCrossTenantProjectIsNotFound(t *testing.T) {
	svc, _ := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Private"})
	require.NoError(t, err)

	foreignOwner := authz.Actor{UserID: "outsider", TenantID: "t2", Role: authz.RoleOwner}

	_, err = svc.GetProject(ctx, foreignOwner, p.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
	_, err = svc.ArchiveProject(ctx, foreignOwner, p.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
	_, err = svc.AddMember(ctx, foreignOwner, p.ID, "outsider", authz.RoleMember)
	assert.ErrorIs(t, err, authz.ErrNotFound)
	_, err = svc.ListMembers(ctx, foreignOwner, p.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
}

func TestGetProject_NonMemberForbidden(t *testing.T) {
	svc, _ := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)

	_, err = svc.GetProject(ctx, member, p.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	got, err := svc.GetProject(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestAddMember_Idempotent(t *testing.T) {
	svc, st := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)
	writes := st.Writes()

	first, err := svc.AddMember(ctx, owner, p.ID, member.UserID, authz.RoleMember)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, idempotent.OutcomeCreated, first.Outcome)

	second, err := svc.AddMember(ctx, owner, p.ID, member.UserID, authz.RoleOwner)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Value.ID, second.Value.ID)
	assert.Equal(t, authz.RoleMember, second.Value.Role, "re-add must not change the role")

	assert.Equal(t, writes+1, st.Writes())
	assert.Len(t, st.EventsFor(audit.EntityProjectMember, audit.ActionMemberAdded), 1)

	members, err := svc.ListMembers(ctx, member, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	projects, err := svc.ListProjects(ctx, member)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)
}

func TestAddMember_ReaddUpdatesRoleWhenEnabled(t *testing.T) {
	svc, st := newService(t, project.Options{ReaddUpdatesRole: true})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, owner, p.ID, member.UserID, authz.RoleMember)
	require.NoError(t, err)

	res, err := svc.AddMember(ctx, owner, p.ID, member.UserID, authz.RoleOwner)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, authz.RoleOwner, res.Value.Role)
	assert.Len(t, st.EventsFor(audit.EntityProjectMember, audit.ActionRoleChanged), 1)
}

func TestAddMember_Validation(t *testing.T) {
	svc, _ := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, member, p.ID, member.UserID, authz.RoleMember)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = svc.AddMember(ctx, owner, p.ID, member.UserID, authz.Role("ADMIN"))
	assert.ErrorIs(t, err, authz.ErrBadRequest)

	_, err = svc.AddMember(ctx, owner, p.ID, "outsider", authz.RoleMember)
	assert.ErrorIs(t, err, authz.ErrNotFound, "users of other tenants cannot be added")
}

func TestAddMember_ConcurrentCallsConverge(t *testing.T) {
	svc, st := newService(t, project.Options{})
	ctx := context.Background()

	p, err := svc.CreateProject(ctx, owner, project.CreateInput{Name: "Depot"})
	require.NoError(t, err)

	const n = 16
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.AddMember(ctx, owner, p.ID, member.UserID, authz.RoleMember)
			if assert.NoError(t, err) {
				ids[i] = res.Value.ID
			}
		}(i)
	}
	wg.Wait()

	for _, got := range ids {
		assert.Equal(t, ids[0], got)
	}
	assert.Len(t, st.EventsFor(audit.EntityProjectMember, audit.ActionMemberAdded), 1)
}
