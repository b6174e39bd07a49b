package consent

import (
	"testing"
	"time"
)

func TestConsumeIsOneShot(t *testing.T) {
	g := New(time.Minute)
	g.Grant("salary details")

	if !g.Consume("salary details") {
		t.Fatal("first consume should succeed")
	}
	if g.Consume("salary details") {
		t.Error("second consume should fail — tokens are single-use")
	}
}

func TestConsumeWithoutGrant(t *testing.T) {
	g := New(time.Minute)
	if g.Consume("never granted") {
		t.Error("consume without grant should fail")
	}
}

func TestTopicNormalization(t *testing.T) {
	g := New(time.Minute)
	g.Grant("  My Phone Number  ")
	if !g.Consume("my phone number") {
		t.Error("topics should be case-folded and trimmed")
	}
}

func TestExpiry(t *testing.T) {
	g := New(10 * time.Millisecond)
	g.Grant("short lived")
	time.Sleep(25 * time.Millisecond)
	if g.Consume("short lived") {
		t.Error("expired token should not consume")
	}
	// An expired consume still removes the entry.
	if g.Pending("short lived") {
		t.Error("expired token should be gone after consume")
	}
}

func TestDeny(t *testing.T) {
	g := New(time.Minute)
	g.Grant("topic")
	g.Deny("topic")
	if g.Consume("topic") {
		t.Error("denied token should not consume")
	}
}

func TestGrantReplaces(t *testing.T) {
	g := New(time.Minute)
	g.Grant("topic")
	g.Grant("topic")
	if !g.Consume("topic") {
		t.Fatal("re-granted token should consume")
	}
	if g.Consume("topic") {
		t.Error("re-grant must not stack: still single-use")
	}
}
