package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/school-admin/internal"
	"github.com/frahmantamala/school-admin/internal/core/events"
)

func TestEvents(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Events Suite")
}

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("runs handlers in registration order", func() {
		var order []int
		bus.Subscribe(events.EventTypeAudit, func(context.Context, events.Event) error {
			order = append(order, 1)
			return nil
		})
		bus.Subscribe(events.EventTypeAudit, func(context.Context, events.Event) error {
			order = append(order, 2)
			return nil
		})

		bus.Notify(context.Background(), events.NewAuditEvent(context.Background(), "create", "role", nil, nil, nil))

		Expect(order).To(Equal([]int{1, 2}))
	})

	It("keeps going after a handler fails or panics", func() {
		reached := false
		bus.Subscribe(events.EventTypeAudit, func(context.Context, events.Event) error {
			return errors.New("disk full")
		})
		bus.Subscribe(events.EventTypeAudit, func(context.Context, events.Event) error {
			panic("boom")
		})
		bus.Subscribe(events.EventTypeAudit, func(context.Context, events.Event) error {
			reached = true
			return nil
		})

		Expect(func() {
			bus.Notify(context.Background(), events.NewAuditEvent(context.Background(), "create", "role", nil, nil, nil))
		}).NotTo(Panic())
		Expect(reached).To(BeTrue())
	})

	It("ignores events nobody subscribed to", func() {
		Expect(func() {
			bus.Notify(context.Background(), events.NewAuditEvent(context.Background(), "create", "role", nil, nil, nil))
		}).NotTo(Panic())
	})
})

var _ = Describe("NewAuditEvent", func() {
	It("takes the actor and client metadata from the context", func() {
		ctx := internal.ContextWithIdentity(context.Background(), &internal.Identity{ID: 7, Username: "admin", Role: "admin"})
		ctx = internal.ContextWithClientInfo(ctx, internal.ClientInfo{IPAddress: "198.51.100.4", UserAgent: "curl"})

		ev := events.NewAuditEvent(ctx, "delete", "role", events.ResourceID(3), nil, nil)

		Expect(ev.EventType()).To(Equal(events.EventTypeAudit))
		Expect(ev.EventID()).NotTo(BeEmpty())
		Expect(ev.ActorID).NotTo(BeNil())
		Expect(*ev.ActorID).To(Equal(int64(7)))
		Expect(*ev.ResourceID).To(Equal("3"))
		Expect(ev.IPAddress).To(Equal("198.51.100.4"))
		Expect(ev.UserAgent).To(Equal("curl"))
	})

	It("records a system action when no identity is present", func() {
		ev := events.NewAuditEvent(context.Background(), "cleanup", "audit_logs", nil, nil, nil)
		Expect(ev.ActorID).To(BeNil())
	})
})
