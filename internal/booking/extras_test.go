package booking

import (
	"context"
	"testing"
	"time"

	"github.com/codr1/courtbook/internal/apperr"
)

func TestCreateAndListInvites(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.book(t, h.player(), h.at(10, 0), h.at(11, 0), PaymentModeDirect)

	invites, err := h.svc.CreateInvites(ctx, h.player(), res.Booking.ID, []string{" Sam@Example.com", "kai@example.com"})
	if err != nil {
		t.Fatalf("create invites: %v", err)
	}
	if len(invites) != 2 {
		t.Fatalf("invites = %d, want 2", len(invites))
	}
	if invites[0].Email != "sam@example.com" || invites[0].Status != InviteStatusPending {
		t.Fatalf("unexpected invite %+v", invites[0])
	}
	if invites[0].Token == "" || invites[0].Token == invites[1].Token {
		t.Fatalf("invite tokens must be unique, got %q and %q", invites[0].Token, invites[1].Token)
	}
	if want := h.clock.Now().Add(InviteTTL); !invites[0].ExpiresAt.Equal(want) {
		t.Fatalf("expires at = %v, want %v", invites[0].ExpiresAt, want)
	}

	list, err := h.svc.ListInvites(ctx, h.player(), res.Booking.ID)
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if len(list) != 2 || list[0].ID != invites[1].ID {
		t.Fatalf("list = %+v, want newest first", list)
	}

	if _, err := h.svc.ListInvites(ctx, h.owner(), res.Booking.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("owner listing invites err = %v, want forbidden", err)
	}
	if _, err := h.svc.CreateInvites(ctx, h.owner(), res.Booking.ID, []string{"x@example.com"}); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("non-booker invite err = %v, want forbidden", err)
	}
	if _, err := h.svc.CreateInvites(ctx, h.player(), res.Booking.ID, nil); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("empty invite err = %v, want validation", err)
	}
	if _, err := h.svc.CreateInvites(ctx, h.player(), 9999, []string{"x@example.com"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("missing booking invite err = %v, want not found", err)
	}
}

func TestCreateInvitesRejectsCancelledBooking(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.book(t, h.player(), h.at(10, 0), h.at(11, 0), PaymentModeDirect)
	if _, err := h.svc.Cancel(ctx, h.player(), res.Booking.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.svc.CreateInvites(ctx, h.player(), res.Booking.ID, []string{"x@example.com"}); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("invite on cancelled booking err = %v, want invalid state", err)
	}
}

func TestRespondInvite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.book(t, h.player(), h.at(10, 0), h.at(11, 0), PaymentModeDirect)
	invites, err := h.svc.CreateInvites(ctx, h.player(), res.Booking.ID, []string{"a@example.com", "b@example.com"})
	if err != nil {
		t.Fatalf("create invites: %v", err)
	}

	accepted, err := h.svc.RespondInvite(ctx, h.owner(), invites[0].Token, InviteActionAccept)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != InviteStatusAccepted || accepted.RespondedAt == nil {
		t.Fatalf("unexpected accepted invite %+v", accepted)
	}
	if _, err := h.svc.RespondInvite(ctx, h.owner(), invites[0].Token, InviteActionDecline); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("second answer err = %v, want invalid state", err)
	}

	declined, err := h.svc.RespondInvite(ctx, h.admin(), invites[1].Token, InviteActionDecline)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != InviteStatusDeclined {
		t.Fatalf("declined status = %s", declined.Status)
	}

	if _, err := h.svc.RespondInvite(ctx, h.owner(), "missing", InviteActionAccept); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown token err = %v, want not found", err)
	}
	if _, err := h.svc.RespondInvite(ctx, h.owner(), invites[1].Token, "MAYBE"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("bad action err = %v, want validation", err)
	}
	if _, err := h.svc.RespondInvite(ctx, nil, invites[1].Token, InviteActionAccept); !apperr.IsKind(err, apperr.KindUnauthenticated) {
		t.Fatalf("anonymous answer err = %v, want unauthenticated", err)
	}
}

func TestRespondInviteAfterExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.book(t, h.player(), h.at(10, 0), h.at(11, 0), PaymentModeDirect)
	invites, err := h.svc.CreateInvites(ctx, h.player(), res.Booking.ID, []string{"late@example.com"})
	if err != nil {
		t.Fatalf("create invites: %v", err)
	}

	h.clock.Advance(InviteTTL + time.Minute)
	if _, err := h.svc.RespondInvite(ctx, h.owner(), invites[0].Token, InviteActionAccept); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("expired answer err = %v, want invalid state", err)
	}

	list, err := h.svc.ListInvites(ctx, h.player(), res.Booking.ID)
	if err != nil {
		t.Fatalf("list invites: %v", err)
	}
	if list[0].Status != InviteStatusExpired {
		t.Fatalf("status after expiry = %s, want EXPIRED", list[0].Status)
	}
	if _, err := h.svc.RespondInvite(ctx, h.owner(), invites[0].Token, InviteActionDecline); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("answer on expired invite err = %v, want invalid state", err)
	}
}

func TestShareLinkIsStableAndPublic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res := h.book(t, h.player(), h.at(10, 0), h.at(11, 0), PaymentModeDirect)

	slug, err := h.svc.ShareLink(ctx, h.player(), res.Booking.ID)
	if err != nil {
		t.Fatalf("share link: %v", err)
	}
	again, err := h.svc.ShareLink(ctx, h.player(), res.Booking.ID)
	if err != nil {
		t.Fatalf("share link again: %v", err)
	}
	if slug == "" || again != slug {
		t.Fatalf("share slugs = %q, %q, want one stable slug", slug, again)
	}
	if _, err := h.svc.ShareLink(ctx, h.owner(), res.Booking.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Fatalf("non-booker share err = %v, want forbidden", err)
	}

	shared, err := h.svc.Shared(ctx, slug)
	if err != nil {
		t.Fatalf("shared: %v", err)
	}
	if shared.ID != res.Booking.ID || shared.CourtID != h.fixture.Court.ID || shared.Facility.ID != h.fixture.Facility.ID {
		t.Fatalf("unexpected shared booking %+v", shared)
	}
	if !shared.StartTime.Equal(h.at(10, 0)) || shared.Status != StatusConfirmed {
		t.Fatalf("unexpected shared window %+v", shared)
	}
	if _, err := h.svc.Shared(ctx, "nope"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("unknown slug err = %v, want not found", err)
	}
}
