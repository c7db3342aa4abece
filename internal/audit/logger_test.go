package audit_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/audit"
	auditPostgres "github.com/frahmantamala/school-admin/internal/audit/postgres"
	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
	"github.com/frahmantamala/school-admin/internal/core/events"
	"github.com/frahmantamala/school-admin/internal/core/testdb"
)

type failingWriter struct {
	calls int
}

func (w *failingWriter) Insert(context.Context, *auditDatamodel.AuditLog) error {
	w.calls++
	return errors.New("disk full")
}

var _ = Describe("Audit Logger", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = internal.ContextWithIdentity(context.Background(), &internal.Identity{ID: 5, Role: "admin"})
		ctx = internal.ContextWithClientInfo(ctx, internal.ClientInfo{IPAddress: "172.16.0.4", UserAgent: "curl/8"})
	})

	It("persists events published on the bus with secrets masked", func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo := auditPostgres.NewAuditRepository(db)

		bus := events.NewEventBus(quietLogger)
		audit.NewLogger(repo, quietLogger).Subscribe(bus)

		bus.Notify(ctx, events.NewAuditEvent(ctx, "update", "user", events.ResourceID(9),
			map[string]interface{}{"email": "a@school.test", "password_hash": "$2a$10$abc"},
			map[string]interface{}{"email": "b@school.test", "nested": map[string]interface{}{"token": "t0k"}}))

		rows, total, err := repo.Find(context.Background(), audit.Filter{}, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(BeEquivalentTo(1))

		row := rows[0]
		Expect(*row.UserID).To(BeEquivalentTo(5))
		Expect(*row.ResourceID).To(Equal("9"))
		Expect(row.IPAddress).To(Equal("172.16.0.4"))
		Expect(row.UserAgent).To(Equal("curl/8"))
		Expect(*row.OldValues).To(ContainSubstring(`"password_hash":"[FILTERED]"`))
		Expect(*row.OldValues).NotTo(ContainSubstring("$2a$10$abc"))
		Expect(*row.NewValues).To(ContainSubstring(`"token":"[FILTERED]"`))
	})

	It("leaves nil snapshots null", func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo := auditPostgres.NewAuditRepository(db)

		audit.NewLogger(repo, quietLogger).Record(ctx, events.NewAuditEvent(ctx, "create", "role", nil, nil, map[string]interface{}{"name": "x"}))

		rows, _, err := repo.Find(context.Background(), audit.Filter{}, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].OldValues).To(BeNil())
		Expect(rows[0].ResourceID).To(BeNil())
	})

	It("swallows write failures", func() {
		writer := &failingWriter{}
		bus := events.NewEventBus(quietLogger)
		audit.NewLogger(writer, quietLogger).Subscribe(bus)

		Expect(func() {
			bus.Notify(ctx, events.NewAuditEvent(ctx, "delete", "role", events.ResourceID(1), nil, map[string]interface{}{"deleted": true}))
		}).NotTo(Panic())
		Expect(writer.calls).To(Equal(1))
	})

	It("records system actions without an actor", func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo := auditPostgres.NewAuditRepository(db)

		system := context.Background()
		audit.NewLogger(repo, quietLogger).Record(system, events.NewAuditEvent(system, "cleanup", "sessions", nil, nil, map[string]interface{}{"deleted_count": 0}))

		rows, _, err := repo.Find(context.Background(), audit.Filter{}, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows[0].UserID).To(BeNil())
	})
})
