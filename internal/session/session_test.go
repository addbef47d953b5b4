package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/contact"
	"cardscan/internal/extract"
)

func TestStoreCreateAndGet(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	res := extract.Result{
		Contact: contact.ExtractedContact{Name: "田中太郎"},
		Items:   []contact.UnassignedItem{{Text: "営業", SourceIndex: 0}},
		Raw:     "{...}",
	}
	sess := s.Create(res, []byte{0xFF, 0xD8})

	if sess.Phase != PhaseReview {
		t.Fatalf("phase = %q, want REVIEW", sess.Phase)
	}
	got, err := s.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Engine.Record().Name != "田中太郎" {
		t.Fatalf("record name = %q", got.Engine.Record().Name)
	}
	if len(got.Engine.Record().Photo) != 2 {
		t.Fatalf("photo not retained on record")
	}
}

func TestStoreUnknownSession(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	_, err := s.Get(uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore(10*time.Millisecond, 0, nil)
	sess := s.Create(extract.Result{}, nil)

	time.Sleep(30 * time.Millisecond)
	if _, err := s.Get(sess.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expired session still served, err = %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expired session not evicted, len = %d", s.Len())
	}
}

func TestNewCaptureIsIndependent(t *testing.T) {
	s := NewStore(time.Minute, 0, nil)
	first := s.Create(extract.Result{Contact: contact.ExtractedContact{Name: "A"}}, nil)
	second := s.Create(extract.Result{Contact: contact.ExtractedContact{Name: "B"}}, nil)

	if first.ID == second.ID {
		t.Fatalf("captures must not share a session")
	}
	if second.Engine.Record().Name != "B" || first.Engine.Record().Name != "A" {
		t.Fatalf("captures leaked state into each other")
	}
}
