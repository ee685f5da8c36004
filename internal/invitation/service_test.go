package invitation_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/launchkit/saas-starter-kit/internal"
	invitationDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/invitation"
	permissionDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/permission"
	roleDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/role"
	userDatamodel "github.com/launchkit/saas-starter-kit/internal/core/datamodel/user"
	"github.com/launchkit/saas-starter-kit/internal/core/events"
	"github.com/launchkit/saas-starter-kit/internal/invitation"
	invitationPostgres "github.com/launchkit/saas-starter-kit/internal/invitation/postgres"
	"github.com/launchkit/saas-starter-kit/internal/role"
	rolePostgres "github.com/launchkit/saas-starter-kit/internal/role/postgres"
	"github.com/launchkit/saas-starter-kit/internal/transport"
	"github.com/launchkit/saas-starter-kit/internal/user"
	userPostgres "github.com/launchkit/saas-starter-kit/internal/user/postgres"
	applogger "github.com/launchkit/saas-starter-kit/pkg/logger"
	"github.com/launchkit/saas-starter-kit/pkg/password"
)

type capturingPublisher struct {
	events []events.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

var _ = Describe("Invitation Service", func() {
	var (
		ctx       context.Context
		db        *gorm.DB
		users     *user.Service
		hasher    *password.Argon2
		publisher *capturingPublisher
		service   *invitation.Service
		inviter   *user.User
		invitee   *user.User
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(
			&permissionDatamodel.Permission{},
			&roleDatamodel.Role{},
			&userDatamodel.User{},
			&invitationDatamodel.Invitation{},
		)).To(Succeed())

		roles := role.NewService(rolePostgres.NewRoleRepository(db), nil, applogger.Discard())
		_, err = roles.Create(ctx, role.CreateRoleDTO{Name: role.DefaultRoleName})
		Expect(err).NotTo(HaveOccurred())

		hasher, err = password.NewArgon2(password.Params{MemoryKB: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
		Expect(err).NotTo(HaveOccurred())

		users = user.NewService(userPostgres.NewUserRepository(db), roles, hasher, applogger.Discard())
		inviter, err = users.Create(ctx, user.CreateUserDTO{
			Email: "owner@example.com", Username: "owner", FirstName: "Olive", LastName: "Owner", Password: "password123",
		})
		Expect(err).NotTo(HaveOccurred())
		invitee, err = users.Create(ctx, user.CreateUserDTO{Email: "new.hire@example.com", Username: "newhire"})
		Expect(err).NotTo(HaveOccurred())

		publisher = &capturingPublisher{}
		service = invitation.NewService(invitationPostgres.NewInvitationRepository(db), users, hasher, publisher, applogger.Discard())
	})

	invite := func() *invitation.Invitation {
		inv, err := service.Create(ctx, invitation.CreateInvitationDTO{UserID: invitee.ID, Email: invitee.Email}, inviter.ID)
		Expect(err).NotTo(HaveOccurred())
		return inv
	}

	backdate := func(inv *invitation.Invitation) {
		Expect(db.Model(&invitationDatamodel.Invitation{}).
			Where("id = ?", inv.ID).
			Update("expires_at", time.Now().Add(-time.Hour)).Error).To(Succeed())
	}

	Describe("Create", func() {
		It("should issue a pending invitation with a random token", func() {
			inv := invite()

			Expect(inv.Status).To(Equal(invitation.StatusPending))
			Expect(invitation.ValidToken(inv.Token)).To(BeTrue())
			Expect(inv.InvitedBy).To(Equal(inviter.ID))
			Expect(inv.ExpiresAt).To(BeTemporally("~", time.Now().Add(invitation.TTL), time.Minute))
		})

		It("should publish the created event with the inviter's name", func() {
			inv := invite()

			Expect(publisher.events).To(HaveLen(1))
			created, ok := publisher.events[0].(*events.InvitationCreatedEvent)
			Expect(ok).To(BeTrue())
			Expect(created.Token).To(Equal(inv.Token))
			Expect(created.Email).To(Equal("new.hire@example.com"))
			Expect(created.InvitedByName).To(Equal("Olive Owner"))
		})

		It("should refuse a second pending invitation for the same email", func() {
			invite()

			_, err := service.Create(ctx, invitation.CreateInvitationDTO{UserID: invitee.ID, Email: "NEW.HIRE@example.com"}, inviter.ID)

			Expect(err).To(MatchError(internal.ErrInvitationPending))
		})

		It("should refuse an unknown user", func() {
			_, err := service.Create(ctx, invitation.CreateInvitationDTO{
				UserID: "3d1f9b7a-2c4e-4f6a-8b0d-1e2f3a4b5c6d",
				Email:  "ghost@example.com",
			}, inviter.ID)

			Expect(err).To(MatchError(internal.ErrUserNotFound))
		})
	})

	Describe("Accept", func() {
		It("should set the password and activate the user", func() {
			inv := invite()

			result, err := service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "brand-new-pass"})

			Expect(err).NotTo(HaveOccurred())
			Expect(result.UserID).To(Equal(invitee.ID))

			activated, err := users.GetByID(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(activated.Status).To(Equal(user.StatusActive))
			Expect(activated.IsVerified).To(BeTrue())
			ok, err := hasher.Verify("brand-new-pass", activated.PasswordHash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			accepted, err := service.GetByToken(ctx, inv.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.Status).To(Equal(invitation.StatusAccepted))
			Expect(publisher.events[len(publisher.events)-1].EventType()).To(Equal(events.EventTypeInvitationAccepted))
		})

		It("should reject a second accept with a conflict", func() {
			inv := invite()
			_, err := service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "brand-new-pass"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "another-pass"})

			Expect(err).To(MatchError(internal.ErrInvitationUsed))
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(http.StatusConflict))
		})

		It("should reject an expired invitation without touching the user", func() {
			inv := invite()
			backdate(inv)

			_, err := service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "brand-new-pass"})

			Expect(err).To(MatchError(internal.ErrInvitationExpired))
			unchanged, err := users.GetByID(ctx, invitee.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(unchanged.PasswordHash).To(BeEmpty())
			Expect(unchanged.Status).To(Equal(user.StatusPending))

			expired, err := service.GetByToken(ctx, inv.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(expired.Status).To(Equal(invitation.StatusExpired))
		})

		It("should validate the password before anything else", func() {
			inv := invite()

			_, err := service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "short"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should not find a malformed token", func() {
			_, err := service.Accept(ctx, "../../etc/passwd", invitation.AcceptInvitationDTO{Password: "brand-new-pass"})

			Expect(err).To(MatchError(internal.ErrInvitationNotFound))
		})
	})

	Describe("Cancel", func() {
		It("should cancel once and then be a no-op", func() {
			inv := invite()

			Expect(service.Cancel(ctx, inv.Token)).To(Succeed())
			Expect(service.Cancel(ctx, inv.Token)).To(Succeed())

			listed, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(listed).To(BeEmpty())

			_, err = service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "brand-new-pass"})
			Expect(err).To(MatchError(internal.ErrInvitationUsed))
		})

		It("should refuse to cancel an accepted invitation", func() {
			inv := invite()
			_, err := service.Accept(ctx, inv.Token, invitation.AcceptInvitationDTO{Password: "brand-new-pass"})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Cancel(ctx, inv.Token)).To(MatchError(internal.ErrInvitationUsed))
		})

		It("should allow a fresh invitation after cancelling", func() {
			inv := invite()
			Expect(service.Cancel(ctx, inv.Token)).To(Succeed())

			again := invite()

			Expect(again.Token).NotTo(Equal(inv.Token))
		})
	})

	Describe("ExpireOverdue", func() {
		It("should expire only overdue pending invitations", func() {
			inv := invite()
			backdate(inv)

			n, err := service.ExpireOverdue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			n, err = service.ExpireOverdue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
		})
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			handler := invitation.NewHandler(transport.NewBaseHandler(applogger.Discard()), service)
			router = chi.NewRouter()
			router.Get("/invitations/{token}", handler.GetInvitation)
			router.Post("/invitations/{token}/accept", handler.AcceptInvitation)
			router.Post("/invitations", handler.CreateInvitation)
		})

		It("should accept through the public route", func() {
			inv := invite()
			req := httptest.NewRequest(http.MethodPost, "/invitations/"+inv.Token+"/accept", bytes.NewBufferString(`{"password":"brand-new-pass"}`))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(invitee.ID))
		})

		It("should answer 404 for an unknown token", func() {
			w := httptest.NewRecorder()

			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/invitations/"+string(bytes.Repeat([]byte("a"), 64)), nil))

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("should require an authenticated inviter to create", func() {
			req := httptest.NewRequest(http.MethodPost, "/invitations", bytes.NewBufferString(`{"userId":"`+invitee.ID+`","email":"new.hire@example.com"}`))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))

			req = httptest.NewRequest(http.MethodPost, "/invitations", bytes.NewBufferString(`{"userId":"`+invitee.ID+`","email":"new.hire@example.com"}`))
			req = req.WithContext(internal.ContextWithUserID(req.Context(), inviter.ID))
			w = httptest.NewRecorder()

			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusCreated))
		})
	})
})
