package user_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/launchkit/saas-starter-kit/internal"
	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	permissionPostgres "github.com/launchkit/saas-starter-kit/internal/permission/postgres"
	"github.com/launchkit/saas-starter-kit/internal/role"
	rolePostgres "github.com/launchkit/saas-starter-kit/internal/role/postgres"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/user"
	userPostgres "github.com/launchkit/saas-starter-kit/internal/user/postgres"
	applogger "github.com/launchkit/saas-starter-kit/pkg/logger"
	"github.com/launchkit/saas-starter-kit/pkg/password"
)

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	r.revoked = append(r.revoked, userID)
	return 1, nil
}

type publishedTypes struct {
	mu    sync.Mutex
	names []string
}

func (p *publishedTypes) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, e.EventType())
	return nil
}

func (p *publishedTypes) list() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

var _ = Describe("User Service", func() {
	var (
		ctx         context.Context
		db          *gorm.DB
		roles       *role.Service
		service     *user.Service
		revoker     *recordingRevoker
		published   *publishedTypes
		defaultRole *role.Role
		viewerRole  *role.Role
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		// every pooled connection to :memory: would open its own empty database
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&permissionDatamodel.Permission{}, &roleDatamodel.Role{}, &userDatamodel.User{})).To(Succeed())

		perms := permission.NewService(permissionPostgres.NewPermissionRepository(db), applogger.Discard())
		usersRead, err := perms.Create(ctx, permission.CreatePermissionDTO{Resource: "users", Action: "read"})
		Expect(err).NotTo(HaveOccurred())
		auditRead, err := perms.Create(ctx, permission.CreatePermissionDTO{Resource: "audit", Action: "read"})
		Expect(err).NotTo(HaveOccurred())

		roles = role.NewService(rolePostgres.NewRoleRepository(db), nil, applogger.Discard())
		defaultRole, err = roles.Create(ctx, role.CreateRoleDTO{Name: role.DefaultRoleName, PermissionIDs: []string{usersRead.ID}})
		Expect(err).NotTo(HaveOccurred())
		viewerRole, err = roles.Create(ctx, role.CreateRoleDTO{Name: "viewer", PermissionIDs: []string{auditRead.ID}})
		Expect(err).NotTo(HaveOccurred())

		hasher, err := password.NewArgon2(password.Params{MemoryKB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
		Expect(err).NotTo(HaveOccurred())

		revoker = &recordingRevoker{}
		published = &publishedTypes{}
		service = user.NewService(userPostgres.NewUserRepository(db), roles, hasher, applogger.Discard()).
			WithSessionRevoker(revoker).
			WithPublisher(published)
	})

	createUser := func(n int) *user.User {
		u, err := service.Create(ctx, user.CreateUserDTO{
			Email:    fmt.Sprintf("user%02d@example.com", n),
			Username: fmt.Sprintf("user%02d", n),
			Password: "password123",
		})
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	Describe("Create", func() {
		It("should assign the default role and activate a user with a password", func() {
			u, err := service.Create(ctx, user.CreateUserDTO{
				Email:    "Jane.Doe@Example.com",
				Username: "jane",
				Password: "password123",
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(u.Email).To(Equal("jane.doe@example.com"))
			Expect(u.Status).To(Equal(user.StatusActive))
			Expect(u.PasswordHash).To(HavePrefix("$argon2id$"))
			Expect(u.RoleNames()).To(Equal([]string{role.DefaultRoleName}))
			Expect(user.HasPermission(u, permission.UsersRead)).To(BeTrue())
			Expect(published.list()).To(ContainElement(events.EventTypeUserCreated))
		})

		It("should leave a user without a password pending", func() {
			u, err := service.Create(ctx, user.CreateUserDTO{Email: "pending@example.com", Username: "pending"})

			Expect(err).NotTo(HaveOccurred())
			Expect(u.Status).To(Equal(user.StatusPending))
			Expect(u.PasswordHash).To(BeEmpty())
		})

		It("should use the given roles instead of the default", func() {
			u, err := service.Create(ctx, user.CreateUserDTO{
				Email:    "viewer@example.com",
				Username: "viewer",
				RoleIDs:  []string{viewerRole.ID},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(u.RoleNames()).To(Equal([]string{"viewer"}))
		})

		It("should refuse a duplicate email or username", func() {
			createUser(1)

			_, err := service.Create(ctx, user.CreateUserDTO{Email: "USER01@example.com", Username: "other"})
			Expect(err).To(MatchError(internal.ErrEmailTaken))

			_, err = service.Create(ctx, user.CreateUserDTO{Email: "other@example.com", Username: "user01"})
			Expect(err).To(MatchError(internal.ErrUsernameTaken))
		})

		It("should refuse unknown role ids", func() {
			_, err := service.Create(ctx, user.CreateUserDTO{
				Email:    "ghost@example.com",
				Username: "ghost",
				RoleIDs:  []string{"0b7c6d1e-0a8f-4b1a-8d3c-2e5f6a7b8c9d"},
			})

			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})

		It("should fail when the default role has not been seeded", func() {
			Expect(db.Exec("DELETE FROM role_permissions WHERE role_id = ?", defaultRole.ID).Error).To(Succeed())
			Expect(db.Exec("DELETE FROM roles WHERE id = ?", defaultRole.ID).Error).To(Succeed())

			_, err := service.Create(ctx, user.CreateUserDTO{Email: "late@example.com", Username: "late"})

			Expect(err).To(MatchError(internal.ErrDefaultRoleMissing))
		})
	})

	Describe("ListWithRoles", func() {
		BeforeEach(func() {
			for i := 1; i <= 25; i++ {
				createUser(i)
			}
		})

		It("should page through 25 users", func() {
			first, total, err := service.ListWithRoles(ctx, user.ListOptions{Limit: 20, Offset: 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(HaveLen(20))
			Expect(total).To(Equal(int64(25)))

			second, total, err := service.ListWithRoles(ctx, user.ListOptions{Limit: 20, Offset: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(HaveLen(5))
			Expect(total).To(Equal(int64(25)))

			seen := make(map[string]struct{})
			for _, u := range append(first, second...) {
				seen[u.ID] = struct{}{}
				Expect(u.Roles).To(HaveLen(1))
			}
			Expect(seen).To(HaveLen(25))
		})

		It("should hide deactivated users unless asked", func() {
			page, _, err := service.ListWithRoles(ctx, user.ListOptions{Limit: 1})
			Expect(err).NotTo(HaveOccurred())
			inactive := false
			_, err = service.Update(ctx, page[0].ID, user.UpdateUserDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			_, total, err := service.ListWithRoles(ctx, user.ListOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(24)))

			_, total, err = service.ListWithRoles(ctx, user.ListOptions{IncludeInactive: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(25)))
		})

		It("should serve the page envelope over HTTP", func() {
			handler := user.NewHandler(transport.NewBaseHandler(applogger.Discard()), service)
			w := httptest.NewRecorder()

			handler.GetUsers(w, httptest.NewRequest(http.MethodGet, "/users?limit=20&offset=20", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			var page transport.Paginated[user.User]
			Expect(json.NewDecoder(w.Body).Decode(&page)).To(Succeed())
			Expect(page.Items).To(HaveLen(5))
			Expect(page.Pagination.CurrentPage).To(Equal(2))
			Expect(page.Pagination.TotalPages).To(Equal(2))
			Expect(page.Pagination.HasNextPage).To(BeFalse())
			Expect(page.Pagination.HasPrevPage).To(BeTrue())
		})
	})

	Describe("Update", func() {
		var u *user.User

		BeforeEach(func() {
			u = createUser(1)
			createUser(2)
		})

		It("should patch the profile", func() {
			first := " Ada "

			updated, err := service.Update(ctx, u.ID, user.UpdateUserDTO{FirstName: &first})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.FirstName).To(Equal("Ada"))
			Expect(published.list()).To(ContainElement(events.EventTypeUserUpdated))
		})

		It("should refuse a username held by someone else", func() {
			taken := "user02"

			_, err := service.Update(ctx, u.ID, user.UpdateUserDTO{Username: &taken})

			Expect(err).To(MatchError(internal.ErrUsernameTaken))
		})

		It("should revoke sessions and every permission on deactivation", func() {
			inactive := false

			updated, err := service.Update(ctx, u.ID, user.UpdateUserDTO{IsActive: &inactive})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(user.StatusInactive))
			Expect(revoker.revoked).To(Equal([]string{u.ID}))
			Expect(updated.RoleNames()).To(Equal([]string{role.DefaultRoleName}))
			Expect(user.HasPermission(updated, permission.UsersRead)).To(BeFalse())
		})

		It("should restore the active status on reactivation", func() {
			inactive, active := false, true
			_, err := service.Update(ctx, u.ID, user.UpdateUserDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.Update(ctx, u.ID, user.UpdateUserDTO{IsActive: &active})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(user.StatusActive))
			Expect(user.HasPermission(updated, permission.UsersRead)).To(BeTrue())
		})
	})

	Describe("roles", func() {
		It("should assign idempotently and remove", func() {
			u := createUser(1)

			_, err := service.AssignRole(ctx, u.ID, user.AssignRoleDTO{RoleID: viewerRole.ID})
			Expect(err).NotTo(HaveOccurred())
			assigned, err := service.AssignRole(ctx, u.ID, user.AssignRoleDTO{RoleID: viewerRole.ID})
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned.RoleNames()).To(Equal([]string{role.DefaultRoleName, "viewer"}))
			Expect(user.HasPermission(assigned, permission.AuditRead)).To(BeTrue())

			removed, err := service.RemoveRole(ctx, u.ID, viewerRole.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed.RoleNames()).To(Equal([]string{role.DefaultRoleName}))

			_, err = service.RemoveRole(ctx, u.ID, viewerRole.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should accept a role id in any uuid notation", func() {
			u := createUser(1)

			assigned, err := service.AssignRole(ctx, u.ID, user.AssignRoleDTO{RoleID: "{" + strings.ToUpper(viewerRole.ID) + "}"})

			Expect(err).NotTo(HaveOccurred())
			Expect(assigned.RoleNames()).To(ContainElement("viewer"))
		})

		It("should never duplicate an assignment under concurrent assign and remove", func() {
			u := createUser(1)

			var wg sync.WaitGroup
			errs := make(chan error, 20)
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(assign bool) {
					defer wg.Done()
					defer GinkgoRecover()
					var err error
					if assign {
						_, err = service.AssignRole(ctx, u.ID, user.AssignRoleDTO{RoleID: viewerRole.ID})
					} else {
						_, err = service.RemoveRole(ctx, u.ID, viewerRole.ID)
					}
					errs <- err
				}(i%3 != 0)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			type roleCount struct {
				RoleID string
				Total  int64
			}
			var counts []roleCount
			Expect(db.Model(&userDatamodel.UserRole{}).
				Select("role_id, COUNT(*) AS total").
				Where("user_id = ?", u.ID).
				Group("role_id").
				Scan(&counts).Error).To(Succeed())
			Expect(counts).NotTo(BeEmpty())
			for _, c := range counts {
				Expect(c.Total).To(Equal(int64(1)), "role %s assigned more than once", c.RoleID)
			}
		})

		It("should report unknown users and roles", func() {
			u := createUser(1)

			_, err := service.AssignRole(ctx, u.ID, user.AssignRoleDTO{RoleID: "0b7c6d1e-0a8f-4b1a-8d3c-2e5f6a7b8c9d"})
			Expect(err).To(MatchError(internal.ErrRoleNotFound))

			_, err = service.AssignRole(ctx, "0b7c6d1e-0a8f-4b1a-8d3c-2e5f6a7b8c9d", user.AssignRoleDTO{RoleID: viewerRole.ID})
			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})

		It("should see role deactivation on the next lookup", func() {
			u := createUser(1)
			inactive := false
			_, err := roles.Update(ctx, defaultRole.ID, role.UpdateRoleDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			fresh, err := service.GetByID(ctx, u.ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(user.HasPermission(fresh, permission.UsersRead)).To(BeFalse())
		})
	})

	It("should return nil from FindByEmail for an unknown address", func() {
		u, err := service.FindByEmail(ctx, "nobody@example.com")

		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNil())
	})
})
