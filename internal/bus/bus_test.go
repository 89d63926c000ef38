package bus

import "testing"

func TestPublishFansOutInSubscriptionOrder(t *testing.T) {
	t.Parallel()
	b := New()
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		b.Subscribe(TopicApplications, func() { order = append(order, i) })
	}
	b.Publish(TopicApplications)
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected handlers in subscription order, got %v", order)
	}
}

func TestPublishInvokesEachHandlerExactlyOnce(t *testing.T) {
	t.Parallel()
	b := New()
	counts := make([]int, 4)
	for i := range counts {
		i := i
		b.Subscribe(TopicInternships, func() { counts[i]++ })
	}
	b.Publish(TopicInternships)
	for i, c := range counts {
		if c != 1 {
			t.Fatalf("handler %d invoked %d times", i, c)
		}
	}
}

func TestPublishWithNoSubscribersIsNoop(t *testing.T) {
	t.Parallel()
	b := New()
	b.Publish(TopicVerifications) // must not panic
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()
	b := New()
	var got int
	unsub := b.Subscribe(TopicApplications, func() { got++ })
	b.Publish(TopicApplications)
	unsub()
	b.Publish(TopicApplications)
	if got != 1 {
		t.Fatalf("expected one delivery before unsubscribe, got %d", got)
	}
	unsub() // second call must be harmless
}

func TestTopicsAreIndependent(t *testing.T) {
	t.Parallel()
	b := New()
	var apps, jobs int
	b.Subscribe(TopicApplications, func() { apps++ })
	b.Subscribe(TopicInternships, func() { jobs++ })
	b.Publish(TopicApplications)
	if apps != 1 || jobs != 0 {
		t.Fatalf("expected only the applications subscriber to fire, got apps=%d jobs=%d", apps, jobs)
	}
}
