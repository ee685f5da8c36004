package role_test

import (
	"context"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/launchkit/saas-starter-kit/internal"
	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/permission"
	permissionPostgres "github.com/launchkit/saas-starter-kit/internal/permission/postgres"
	"github.com/launchkit/saas-starter-kit/internal/role"
	rolePostgres "github.com/launchkit/saas-starter-kit/internal/role/postgres"
	applogger "github.com/launchkit/saas-starter-kit/pkg/logger"
)

var _ = Describe("Role Service", func() {
	var (
		ctx         context.Context
		db          *gorm.DB
		service     *role.Service
		publisher   *recordingPublisher
		usersRead   *permission.Permission
		usersWrite  *permission.Permission
		usersDelete *permission.Permission
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
		Expect(db.AutoMigrate(&permissionDatamodel.Permission{}, &roleDatamodel.Role{})).To(Succeed())

		perms := permission.NewService(permissionPostgres.NewPermissionRepository(db), applogger.Discard())
		usersRead, err = perms.Create(ctx, permission.CreatePermissionDTO{Resource: "users", Action: "read"})
		Expect(err).NotTo(HaveOccurred())
		usersWrite, err = perms.Create(ctx, permission.CreatePermissionDTO{Resource: "users", Action: "update"})
		Expect(err).NotTo(HaveOccurred())
		usersDelete, err = perms.Create(ctx, permission.CreatePermissionDTO{Resource: "users", Action: "delete"})
		Expect(err).NotTo(HaveOccurred())

		publisher = &recordingPublisher{}
		service = role.NewService(rolePostgres.NewRoleRepository(db), publisher, applogger.Discard())
	})

	Describe("Create", func() {
		It("should normalize the name and attach permissions", func() {
			r, err := service.Create(ctx, role.CreateRoleDTO{
				Name:          "Support Agent",
				PermissionIDs: []string{usersRead.ID, usersRead.ID},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Name).To(Equal("support_agent"))
			Expect(r.IsActive).To(BeTrue())
			Expect(r.PermissionNames()).To(Equal([]string{"users:read"}))
			Expect(publisher.types()).To(Equal([]string{events.EventTypeRoleCreated}))
		})

		It("should refuse a name that normalizes onto an existing role", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "support_agent"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "Support Agent"})

			Expect(err).To(MatchError(internal.ErrRoleNameTaken))
		})

		It("should reject unknown permission ids without creating the role", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{
				Name:          "auditor",
				PermissionIDs: []string{"5e0c9c52-5b7a-4a2e-9d7b-5a9c0a6b1d22"},
			})

			Expect(err).To(MatchError(internal.ErrUnknownPermission))
			found, err := service.FindByName(ctx, "auditor")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeNil())
		})

		It("should reject a name with no letters", func() {
			_, err := service.Create(ctx, role.CreateRoleDTO{Name: "___"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Update", func() {
		var support *role.Role

		BeforeEach(func() {
			var err error
			support, err = service.Create(ctx, role.CreateRoleDTO{Name: "support"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.Create(ctx, role.CreateRoleDTO{Name: "billing"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should rename and deactivate", func() {
			name := "Customer Support"
			inactive := false

			updated, err := service.Update(ctx, support.ID, role.UpdateRoleDTO{Name: &name, IsActive: &inactive})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("customer_support"))
			Expect(updated.IsActive).To(BeFalse())
			Expect(publisher.last().EventType()).To(Equal(events.EventTypeRoleUpdated))
		})

		It("should refuse renaming onto another role", func() {
			name := "billing"

			_, err := service.Update(ctx, support.ID, role.UpdateRoleDTO{Name: &name})

			Expect(err).To(MatchError(internal.ErrRoleNameTaken))
		})

		It("should leave inactive roles out of the default listing", func() {
			inactive := false
			_, err := service.Update(ctx, support.ID, role.UpdateRoleDTO{IsActive: &inactive})
			Expect(err).NotTo(HaveOccurred())

			active, err := service.List(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			all, err := service.List(ctx, true)
			Expect(err).NotTo(HaveOccurred())

			Expect(active).To(HaveLen(1))
			Expect(all).To(HaveLen(2))
		})

		It("should report a missing role", func() {
			desc := "x"

			_, err := service.Update(ctx, "5e0c9c52-5b7a-4a2e-9d7b-5a9c0a6b1d22", role.UpdateRoleDTO{Description: &desc})

			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})
	})

	Describe("permissions", func() {
		var support *role.Role

		BeforeEach(func() {
			var err error
			support, err = service.Create(ctx, role.CreateRoleDTO{Name: "support", PermissionIDs: []string{usersRead.ID}})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should replace the whole set", func() {
			updated, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{PermissionIDs: []string{usersWrite.ID}})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PermissionNames()).To(Equal([]string{"users:update"}))
			Expect(publisher.last().EventType()).To(Equal(events.EventTypeRolePermissionsChanged))
		})

		It("should leave no residue of a multi-permission set", func() {
			_, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{PermissionIDs: []string{usersRead.ID, usersWrite.ID}})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{PermissionIDs: []string{usersDelete.ID}})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PermissionNames()).To(Equal([]string{"users:delete"}))
			var rows int64
			Expect(db.Model(&roleDatamodel.RolePermission{}).Where("role_id = ?", support.ID).Count(&rows).Error).To(Succeed())
			Expect(rows).To(Equal(int64(1)))
		})

		It("should accept ids in any uuid notation", func() {
			braced := "{" + strings.ToUpper(usersWrite.ID) + "}"

			updated, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{
				PermissionIDs: []string{braced, "urn:uuid:" + usersWrite.ID},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.PermissionNames()).To(Equal([]string{"users:update"}))
		})

		It("should end with exactly one of the competing sets", func() {
			sets := [][]string{
				{usersRead.ID},
				{usersWrite.ID},
				{usersDelete.ID},
				{usersRead.ID, usersWrite.ID},
				{usersWrite.ID, usersDelete.ID},
				{usersRead.ID, usersWrite.ID, usersDelete.ID},
			}

			var wg sync.WaitGroup
			errs := make([]error, len(sets))
			for i, ids := range sets {
				wg.Add(1)
				go func(i int, ids []string) {
					defer wg.Done()
					defer GinkgoRecover()
					_, errs[i] = service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{PermissionIDs: ids})
				}(i, ids)
			}
			wg.Wait()

			for _, err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			final, err := service.GetByID(ctx, support.ID)
			Expect(err).NotTo(HaveOccurred())
			got := make([]string, 0, len(final.Permissions))
			for _, p := range final.Permissions {
				got = append(got, p.ID)
			}
			candidates := make([]types.GomegaMatcher, 0, len(sets))
			for _, ids := range sets {
				candidates = append(candidates, ConsistOf(ids))
			}
			Expect(got).To(SatisfyAny(candidates...))
		})

		It("should clear the set with an empty list", func() {
			updated, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{PermissionIDs: []string{}})

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Permissions).To(BeEmpty())
		})

		It("should leave the set unchanged when any id is unknown", func() {
			_, err := service.ReplacePermissions(ctx, support.ID, role.ReplacePermissionsDTO{
				PermissionIDs: []string{usersWrite.ID, "5e0c9c52-5b7a-4a2e-9d7b-5a9c0a6b1d22"},
			})

			Expect(err).To(MatchError(internal.ErrUnknownPermission))
			current, err := service.GetByID(ctx, support.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(current.PermissionNames()).To(Equal([]string{"users:read"}))
		})

		It("should add idempotently and remove", func() {
			_, err := service.AddPermission(ctx, support.ID, usersWrite.ID)
			Expect(err).NotTo(HaveOccurred())
			added, err := service.AddPermission(ctx, support.ID, usersWrite.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(added.PermissionNames()).To(Equal([]string{"users:read", "users:update"}))

			removed, err := service.RemovePermission(ctx, support.ID, usersRead.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed.PermissionNames()).To(Equal([]string{"users:update"}))
		})

		It("should report a missing permission on add", func() {
			_, err := service.AddPermission(ctx, support.ID, "5e0c9c52-5b7a-4a2e-9d7b-5a9c0a6b1d22")

			Expect(err).To(MatchError(internal.ErrPermissionNotFound))
		})
	})
})
