package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, found, err := c.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, found, err := c.Get(ctx, "k")
	if err != nil || !found || string(got) != "v" {
		t.Fatalf("Get = %q, found %v, err %v", got, found, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("key survived Delete")
	}
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	c.Set(ctx, "k", []byte("v"), 0)

	time.Sleep(10 * time.Millisecond)
	if _, found, _ := c.Get(ctx, "k"); !found {
		t.Error("zero-ttl entry expired")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	c.Set(ctx, "k", []byte("v"), 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	if _, found, _ := c.Get(ctx, "k"); found {
		t.Error("entry outlived its ttl")
	}
}

func TestMemorySetNX(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	ok, err := c.SetNX(ctx, "lock", []byte("1"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, err %v", ok, err)
	}
	ok, err = c.SetNX(ctx, "lock", []byte("2"), time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX = %v, err %v, want refusal", ok, err)
	}
}

func TestMemorySetNXAfterExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	c.SetNX(ctx, "lock", []byte("1"), 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	ok, err := c.SetNX(ctx, "lock", []byte("2"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("SetNX after expiry = %v, err %v, want acquisition", ok, err)
	}
}

func TestMemoryGetCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	c.Set(ctx, "k", []byte("abc"), 0)

	got, _, _ := c.Get(ctx, "k")
	got[0] = 'x'
	again, _, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated through the returned slice: %q", again)
	}
}

func TestKeyLayout(t *testing.T) {
	student := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	test := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	key := CurrentQuestionKey(student, test)
	want := "student_11111111-1111-1111-1111-111111111111_test_22222222-2222-2222-2222-222222222222_current_question"
	if key != want {
		t.Errorf("CurrentQuestionKey = %q, want %q", key, want)
	}
	if lock := CurrentQuestionLockKey(student, test); lock != want+"_lock" {
		t.Errorf("CurrentQuestionLockKey = %q, want %q", lock, want+"_lock")
	}
}
