package services

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"micro-crm/backend/projects-service/models"
	"micro-crm/backend/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memProjects struct{ items map[string]models.Project }

func (m *memProjects) Create(_ context.Context, p *models.Project) error {
	p.ID = primitive.NewObjectID()
	m.items[p.ID.Hex()] = *p
	return nil
}

func (m *memProjects) GetByID(_ context.Context, id string) (*models.Project, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, models.ErrProjectNotFound
	}
	return &p, nil
}

func (m *memProjects) List(_ context.Context, page utils.PageRequest) ([]models.Project, int64, error) {
	all := make([]models.Project, 0, len(m.items))
	for _, p := range m.items {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := int64(len(all))
	start := min(page.Skip, total)
	end := min(start+page.Limit, total)
	return all[start:end], total, nil
}

func (m *memProjects) ListByCustomer(_ context.Context, customerID string) ([]models.Project, error) {
	out := []models.Project{}
	for _, p := range m.items {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProjects) Update(_ context.Context, p *models.Project) error {
	m.items[p.ID.Hex()] = *p
	return nil
}

func (m *memProjects) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return models.ErrProjectNotFound
	}
	delete(m.items, id)
	return nil
}

type memMembers struct {
	items map[primitive.ObjectID]models.ProjectMember
}

func (m *memMembers) Create(_ context.Context, member *models.ProjectMember) error {
	member.ID = primitive.NewObjectID()
	m.items[member.ID] = *member
	return nil
}

func (m *memMembers) GetByID(_ context.Context, id string) (*models.ProjectMember, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrMemberNotFound
	}
	member, ok := m.items[oid]
	if !ok {
		return nil, models.ErrMemberNotFound
	}
	return &member, nil
}

func (m *memMembers) Find(_ context.Context, projectID, userID string) (*models.ProjectMember, error) {
	for _, member := range m.items {
		if member.ProjectID == projectID && member.UserID == userID {
			return &member, nil
		}
	}
	return nil, models.ErrMemberNotFound
}

func (m *memMembers) filter(keep func(models.ProjectMember) bool) []models.ProjectMember {
	out := []models.ProjectMember{}
	for _, member := range m.items {
		if keep(member) {
			out = append(out, member)
		}
	}
	return out
}

func (m *memMembers) ListByProject(_ context.Context, projectID string) ([]models.ProjectMember, error) {
	return m.filter(func(pm models.ProjectMember) bool { return pm.ProjectID == projectID }), nil
}

func (m *memMembers) ListByUser(_ context.Context, userID string) ([]models.ProjectMember, error) {
	return m.filter(func(pm models.ProjectMember) bool { return pm.UserID == userID }), nil
}

func (m *memMembers) UpdateRole(_ context.Context, id primitive.ObjectID, roleID string) error {
	member, ok := m.items[id]
	if !ok {
		return models.ErrMemberNotFound
	}
	member.RoleID = roleID
	m.items[id] = member
	return nil
}

func (m *memMembers) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := m.items[id]; !ok {
		return models.ErrMemberNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memMembers) DeleteByProject(_ context.Context, projectID string) (int64, error) {
	var n int64
	for id, member := range m.items {
		if member.ProjectID == projectID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type memRoles struct{ items map[string]models.Role }

func (m *memRoles) Create(_ context.Context, role *models.Role) error {
	role.ID = primitive.NewObjectID()
	m.items[role.ID.Hex()] = *role
	return nil
}

func (m *memRoles) GetByID(_ context.Context, id string) (*models.Role, error) {
	role, ok := m.items[id]
	if !ok {
		return nil, models.ErrRoleNotFound
	}
	return &role, nil
}

func (m *memRoles) FindByName(_ context.Context, name string) (*models.Role, error) {
	for _, role := range m.items {
		if strings.EqualFold(role.Name, name) {
			return &role, nil
		}
	}
	return nil, models.ErrRoleNotFound
}

func (m *memRoles) List(context.Context) ([]models.Role, error) {
	out := []models.Role{}
	for _, role := range m.items {
		out = append(out, role)
	}
	return out, nil
}

func (m *memRoles) Update(_ context.Context, role *models.Role) error {
	m.items[role.ID.Hex()] = *role
	return nil
}

func (m *memRoles) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return models.ErrRoleNotFound
	}
	delete(m.items, id)
	return nil
}

type memCustomers struct{ items map[string]models.Customer }

func (m *memCustomers) Create(_ context.Context, c *models.Customer) error {
	c.ID = primitive.NewObjectID()
	m.items[c.ID.Hex()] = *c
	return nil
}

func (m *memCustomers) GetByID(_ context.Context, id string) (*models.Customer, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, models.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *memCustomers) FindByEmail(_ context.Context, email string) (*models.Customer, error) {
	for _, c := range m.items {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, models.ErrCustomerNotFound
}

func (m *memCustomers) List(context.Context) ([]models.Customer, error) {
	out := []models.Customer{}
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, nil
}

func (m *memCustomers) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return models.ErrCustomerNotFound
	}
	delete(m.items, id)
	return nil
}

type stubUsers map[string]string

func (s stubUsers) GetUser(_ context.Context, id string) (*models.UserSummary, error) {
	name, ok := s[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &models.UserSummary{ID: id, Name: name, Email: strings.ToLower(name) + "@example.com"}, nil
}

type recordingCleaner struct {
	calls []string
	err   error
}

func (r *recordingCleaner) DeleteProjectTasks(_ context.Context, ownerID, projectID string) error {
	r.calls = append(r.calls, ownerID+"/"+projectID)
	return r.err
}

type projectFixture struct {
	service   *ProjectService
	projects  *memProjects
	members   *memMembers
	roles     *memRoles
	customers *memCustomers
	cleaner   *recordingCleaner
}

func newProjectFixture() *projectFixture {
	f := &projectFixture{
		projects:  &memProjects{items: map[string]models.Project{}},
		members:   &memMembers{items: map[primitive.ObjectID]models.ProjectMember{}},
		roles:     &memRoles{items: map[string]models.Role{}},
		customers: &memCustomers{items: map[string]models.Customer{}},
		cleaner:   &recordingCleaner{},
	}
	users := stubUsers{"owner": "Olga", "dev": "Diego", "qa": "Quinn"}
	f.service = NewProjectService(f.projects, f.members, f.roles, f.customers, users, f.cleaner)
	f.service.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *projectFixture) project(t *testing.T, name, customerID string) *models.Project {
	t.Helper()
	req := models.ProjectRequest{Name: ptr(name)}
	if customerID != "" {
		req.CustomerID = ptr(customerID)
	}
	p, err := f.service.CreateProject(context.Background(), "owner", req)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *projectFixture) role(t *testing.T, name string) *models.Role {
	t.Helper()
	role, err := f.service.CreateRole(context.Background(), models.RoleRequest{Name: ptr(name)})
	if err != nil {
		t.Fatalf("create role: %v", err)
	}
	return role
}

func TestParsePageRequest(t *testing.T) {
	page, err := ParsePageRequest(url.Values{"order_by": {"updatedAt"}, "order_dir": {"asc"}})
	if err != nil {
		t.Fatal(err)
	}
	if page.OrderBy != "updatedAt" || !page.Ascending() || page.Limit != utils.DefaultPageLimit {
		t.Errorf("unexpected page %+v", page)
	}

	for _, bad := range []url.Values{{"order_by": {"creatorId"}}, {"limit": {"500"}}} {
		if _, err := ParsePageRequest(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("%v: expected validation error, got %v", bad, err)
		}
	}
}

func TestListProjectsPagination(t *testing.T) {
	f := newProjectFixture()
	for _, name := range []string{"a", "b", "c"} {
		f.project(t, name, "")
	}

	page, err := f.service.ListProjects(context.Background(), utils.PageRequest{Skip: 0, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.Total != 3 || !page.HasMore {
		t.Errorf("first page: %+v", page)
	}

	page, err = f.service.ListProjects(context.Background(), utils.PageRequest{Skip: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 1 || page.HasMore {
		t.Errorf("last page: %+v", page)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	f := newProjectFixture()

	tests := []struct {
		name    string
		userID  string
		req     models.ProjectRequest
		wantErr error
	}{
		{"no user", "", models.ProjectRequest{Name: ptr("x")}, ErrUnauthenticated},
		{"no name", "owner", models.ProjectRequest{}, ErrValidation},
		{"blank name", "owner", models.ProjectRequest{Name: ptr("  ")}, ErrValidation},
		{"negative budget", "owner", models.ProjectRequest{Name: ptr("x"), Budget: ptr(-1.0)}, ErrValidation},
		{"unknown status", "owner", models.ProjectRequest{Name: ptr("x"), Status: ptr(models.ProjectStatus("done"))}, ErrValidation},
		{"unknown customer", "owner", models.ProjectRequest{Name: ptr("x"), CustomerID: ptr(primitive.NewObjectID().Hex())}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.CreateProject(context.Background(), tt.userID, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	p := f.project(t, "  Website  ", "")
	if p.Name != "Website" || p.Status != models.ProjectProspect || p.CreatorID != "owner" {
		t.Errorf("unexpected project %+v", p)
	}
}

func TestUpdateAndDeleteProjectOwnerOnly(t *testing.T) {
	f := newProjectFixture()
	p := f.project(t, "Website", "")

	if _, err := f.service.UpdateProject(context.Background(), "dev", p.ID.Hex(), models.ProjectRequest{Name: ptr("Hijack")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	updated, err := f.service.UpdateProject(context.Background(), "owner", p.ID.Hex(), models.ProjectRequest{Status: ptr(models.ProjectActive)})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.ProjectActive || updated.Name != "Website" {
		t.Errorf("unexpected update %+v", updated)
	}

	if err := f.service.DeleteProject(context.Background(), "dev", p.ID.Hex()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.service.DeleteProject(context.Background(), "owner", p.ID.Hex()); err != nil {
		t.Fatal(err)
	}
	if len(f.cleaner.calls) != 1 || f.cleaner.calls[0] != "owner/"+p.ID.Hex() {
		t.Errorf("tasks cleanup not requested: %v", f.cleaner.calls)
	}
}

func TestDeleteProjectKeepsProjectWhenTaskCleanupFails(t *testing.T) {
	f := newProjectFixture()
	p := f.project(t, "Website", "")
	f.cleaner.err = errors.New("breaker open")

	if err := f.service.DeleteProject(context.Background(), "owner", p.ID.Hex()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := f.service.GetProject(context.Background(), p.ID.Hex()); err != nil {
		t.Errorf("project should still exist: %v", err)
	}
}

func TestAddMember(t *testing.T) {
	f := newProjectFixture()
	p := f.project(t, "Website", "")
	role := f.role(t, "Developer")
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  string
		req     models.CreateMemberRequest
		wantErr error
	}{
		{"not owner", "dev", models.CreateMemberRequest{ProjectID: p.ID.Hex(), UserID: "qa", RoleID: role.ID.Hex()}, ErrForbidden},
		{"creator", "owner", models.CreateMemberRequest{ProjectID: p.ID.Hex(), UserID: "owner", RoleID: role.ID.Hex()}, ErrValidation},
		{"unknown user", "owner", models.CreateMemberRequest{ProjectID: p.ID.Hex(), UserID: "ghost", RoleID: role.ID.Hex()}, ErrValidation},
		{"unknown role", "owner", models.CreateMemberRequest{ProjectID: p.ID.Hex(), UserID: "dev", RoleID: "nope"}, ErrValidation},
		{"unknown project", "owner", models.CreateMemberRequest{ProjectID: "nope", UserID: "dev", RoleID: role.ID.Hex()}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.AddMember(ctx, tt.caller, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	req := models.CreateMemberRequest{ProjectID: p.ID.Hex(), UserID: "dev", RoleID: role.ID.Hex()}
	member, err := f.service.AddMember(ctx, "owner", req)
	if err != nil {
		t.Fatal(err)
	}
	if member.UserName != "Diego" || member.RoleName != "Developer" || member.AddedByName != "Olga" {
		t.Errorf("member not described: %+v", member)
	}
	if _, err := f.service.AddMember(ctx, "owner", req); !errors.Is(err, models.ErrAlreadyMember) {
		t.Fatalf("expected already member, got %v", err)
	}

	access, err := f.service.Access(ctx, p.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if access.CreatorID != "owner" || len(access.MemberIDs) != 1 || access.MemberIDs[0] != "dev" {
		t.Errorf("unexpected access %+v", access)
	}

	if err := f.service.RemoveMember(ctx, "dev", member.ID.Hex()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.service.RemoveMember(ctx, "owner", member.ID.Hex()); err != nil {
		t.Fatal(err)
	}
}

func TestRolesUniqueIgnoringCase(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	dev := f.role(t, "Developer")
	qa := f.role(t, "QA")

	if _, err := f.service.CreateRole(ctx, models.RoleRequest{Name: ptr("developer")}); !errors.Is(err, models.ErrDuplicateRole) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if _, err := f.service.UpdateRole(ctx, qa.ID.Hex(), models.RoleRequest{Name: ptr("DEVELOPER")}); !errors.Is(err, models.ErrDuplicateRole) {
		t.Fatalf("expected duplicate on rename, got %v", err)
	}
	renamed, err := f.service.UpdateRole(ctx, dev.ID.Hex(), models.RoleRequest{Name: ptr("developer")})
	if err != nil {
		t.Fatalf("renaming a role to itself: %v", err)
	}
	if renamed.Name != "developer" {
		t.Errorf("got %q", renamed.Name)
	}
	if _, err := f.service.CreateRole(ctx, models.RoleRequest{Name: ptr(strings.Repeat("r", 51))}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateCustomer(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	if _, err := f.service.CreateCustomer(ctx, models.CustomerRequest{Name: "Acme", Email: "Sales@Acme.io", Phone: "+52 5551234567"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		req     models.CustomerRequest
		wantErr error
	}{
		{"duplicate email ignoring case", models.CustomerRequest{Name: "Other", Email: "sales@acme.IO"}, models.ErrDuplicateEmail},
		{"bad email", models.CustomerRequest{Name: "Other", Email: "sales@acme"}, ErrValidation},
		{"short phone", models.CustomerRequest{Name: "Other", Email: "x@y.z", Phone: "12345"}, ErrValidation},
		{"missing name", models.CustomerRequest{Email: "x@y.z"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.CreateCustomer(ctx, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeleteCustomerCascadesToItsProjects(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	c1, err := f.service.CreateCustomer(ctx, models.CustomerRequest{Name: "C1", Email: "c1@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	c2, err := f.service.CreateCustomer(ctx, models.CustomerRequest{Name: "C2", Email: "c2@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	p1 := f.project(t, "P1", c1.ID.Hex())
	f.project(t, "P2", c1.ID.Hex())
	p3 := f.project(t, "P3", c2.ID.Hex())
	p4 := f.project(t, "P4", "")

	role := f.role(t, "Dev")
	if _, err := f.service.AddMember(ctx, "owner", models.CreateMemberRequest{ProjectID: p1.ID.Hex(), UserID: "dev", RoleID: role.ID.Hex()}); err != nil {
		t.Fatal(err)
	}

	result, err := f.service.DeleteCustomer(ctx, "owner", c1.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if result.DeletedProjects != 2 {
		t.Errorf("expected 2 deleted projects, got %d", result.DeletedProjects)
	}

	remaining := map[string]bool{}
	for id := range f.projects.items {
		remaining[id] = true
	}
	if len(remaining) != 2 || !remaining[p3.ID.Hex()] || !remaining[p4.ID.Hex()] {
		t.Errorf("unexpected remaining projects %v", remaining)
	}
	if len(f.members.items) != 0 {
		t.Errorf("memberships of deleted projects must go too")
	}
	if _, err := f.service.GetCustomer(ctx, c1.ID.Hex()); !errors.Is(err, models.ErrCustomerNotFound) {
		t.Errorf("customer should be gone, got %v", err)
	}
	if _, err := f.service.DeleteCustomer(ctx, "owner", c1.ID.Hex()); !errors.Is(err, models.ErrCustomerNotFound) {
		t.Errorf("second delete: expected not found, got %v", err)
	}
}

func TestDeleteCustomerRefusesProjectsOfOtherUsers(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()

	customer, err := f.service.CreateCustomer(ctx, models.CustomerRequest{Name: "C", Email: "c@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	p := f.project(t, "Owned", customer.ID.Hex())

	if err := f.service.DeleteProject(ctx, "mallory", p.ID.Hex()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden project delete, got %v", err)
	}
	if _, err := f.service.DeleteCustomer(ctx, "mallory", customer.ID.Hex()); !errors.Is(err, models.ErrCustomerInUse) {
		t.Fatalf("expected customer in use, got %v", err)
	}
	if _, err := f.service.DeleteCustomer(ctx, "", customer.ID.Hex()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	if _, ok := f.projects.items[p.ID.Hex()]; !ok {
		t.Error("project of another user must survive")
	}
	if len(f.cleaner.calls) != 0 {
		t.Errorf("tasks must not be cleaned, got %v", f.cleaner.calls)
	}
	if _, err := f.service.GetCustomer(ctx, customer.ID.Hex()); err != nil {
		t.Errorf("customer must survive, got %v", err)
	}
}
