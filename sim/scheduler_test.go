package sim

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Scheduler", func() {
	var (
		mockCtrl  *gomock.Controller
		scheduler *Scheduler
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		scheduler = NewScheduler(1)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	expectEvent := func(t VTime, handler Handler) *MockEvent {
		evt := NewMockEvent(mockCtrl)
		evt.EXPECT().Time().Return(t).AnyTimes()
		evt.EXPECT().Priority().Return(PriorityNormal).AnyTimes()
		evt.EXPECT().Handler().Return(handler).AnyTimes()
		return evt
	}

	It("should run events in time order", func() {
		handler1 := NewMockHandler(mockCtrl)
		handler2 := NewMockHandler(mockCtrl)
		evt1 := expectEvent(4.0, handler1)
		evt2 := expectEvent(2.0, handler2)
		evt3 := expectEvent(3.0, handler1)
		evt4 := expectEvent(5.0, handler1)

		handleEvt2 := handler2.EXPECT().Handle(evt2).Do(func(e Event) {
			scheduler.Schedule(evt3)
			scheduler.Schedule(evt4)
		})
		handleEvt3 := handler1.EXPECT().
			Handle(evt3).Do(func(e Event) {}).After(handleEvt2)
		handleEvt1 := handler1.EXPECT().
			Handle(evt1).Do(func(e Event) {}).After(handleEvt3)
		handler1.EXPECT().
			Handle(evt4).Do(func(e Event) {}).After(handleEvt1)

		scheduler.Schedule(evt1)
		scheduler.Schedule(evt2)

		outcome, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(OutcomeCompleted))
		Expect(scheduler.EventCount()).To(Equal(uint64(4)))
	})

	It("should equal the event time while handling", func() {
		handler := NewMockHandler(mockCtrl)
		evt := expectEvent(7.5, handler)

		handler.EXPECT().Handle(evt).Do(func(e Event) {
			Expect(scheduler.CurrentTime()).To(Equal(VTime(7.5)))
		})

		scheduler.Schedule(evt)

		_, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(scheduler.CurrentTime()).To(Equal(VTime(7.5)))
	})

	It("should run deferred events after same-time normal events", func() {
		handler := NewMockHandler(mockCtrl)

		deferred := NewMockEvent(mockCtrl)
		deferred.EXPECT().Time().Return(VTime(2.0)).AnyTimes()
		deferred.EXPECT().Priority().Return(PriorityDeferred).AnyTimes()
		deferred.EXPECT().Handler().Return(handler).AnyTimes()

		normal1 := expectEvent(2.0, handler)
		normal2 := expectEvent(2.0, handler)

		handleNormal1 := handler.EXPECT().Handle(normal1)
		handleNormal2 := handler.EXPECT().Handle(normal2).After(handleNormal1)
		handler.EXPECT().Handle(deferred).After(handleNormal2)

		scheduler.Schedule(deferred)
		scheduler.Schedule(normal1)
		scheduler.Schedule(normal2)

		_, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
	})

	It("should not run a cancelled event", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := expectEvent(1.0, handler)
		evt2 := expectEvent(2.0, handler)

		handle := scheduler.Schedule(evt2)
		scheduler.Schedule(evt1)

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			Expect(scheduler.Cancel(handle)).To(BeTrue())
		})

		outcome, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(OutcomeCompleted))
		Expect(scheduler.EventCount()).To(Equal(uint64(1)))
	})

	It("should exhaust on the event budget", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := expectEvent(1.0, handler)
		evt2 := expectEvent(2.0, handler)

		handler.EXPECT().Handle(evt1)

		scheduler.Schedule(evt1)
		scheduler.Schedule(evt2)
		scheduler.LimitEvents(1)

		outcome, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(OutcomeExhausted))
		Expect(scheduler.CurrentTime()).To(Equal(VTime(1.0)))
		Expect(scheduler.EventCount()).To(Equal(uint64(1)))
	})

	It("should exhaust on the time bound", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := expectEvent(1.0, handler)
		evt2 := expectEvent(10.0, handler)

		handler.EXPECT().Handle(evt1)

		scheduler.Schedule(evt1)
		scheduler.Schedule(evt2)
		scheduler.LimitTime(5.0)

		outcome, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(OutcomeExhausted))
		Expect(scheduler.CurrentTime()).To(Equal(VTime(1.0)))
	})

	It("should complete when the budget is never hit", func() {
		handler := NewMockHandler(mockCtrl)
		evt := expectEvent(1.0, handler)

		handler.EXPECT().Handle(evt)

		scheduler.Schedule(evt)
		scheduler.LimitEvents(1)

		outcome, _ := scheduler.Run(context.Background())

		Expect(outcome).To(Equal(OutcomeCompleted))
	})

	It("should abort on cancellation before the next event", func() {
		handler := NewMockHandler(mockCtrl)
		evt1 := expectEvent(1.0, handler)
		evt2 := expectEvent(2.0, handler)

		ctx, cancel := context.WithCancel(context.Background())

		handler.EXPECT().Handle(evt1).Do(func(e Event) {
			cancel()
		})

		scheduler.Schedule(evt1)
		scheduler.Schedule(evt2)

		outcome, err := scheduler.Run(ctx)

		Expect(outcome).To(Equal(OutcomeAborted))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(scheduler.CurrentTime()).To(Equal(VTime(1.0)))
	})

	It("should run callbacks", func() {
		ran := false

		scheduler.ScheduleCallback(3.0, PriorityNormal, func(now VTime) {
			ran = true
			Expect(now).To(Equal(VTime(3.0)))
		})

		outcome, err := scheduler.Run(context.Background())

		Expect(err).To(BeNil())
		Expect(outcome).To(Equal(OutcomeCompleted))
		Expect(ran).To(BeTrue())
	})

	It("should refuse to run twice", func() {
		_, err := scheduler.Run(context.Background())
		Expect(err).To(BeNil())

		_, err = scheduler.Run(context.Background())
		Expect(err).NotTo(BeNil())
	})
})
