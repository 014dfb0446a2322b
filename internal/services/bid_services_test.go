package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

func TestSubmitBid(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted bid increments counter and notifies owner", func(t *testing.T) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs", categoryChairs)

		bid, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{
			TenderID: tender.ID,
			Amount:   decimal.NewNullDecimal(decimal.NewFromInt(500000)),
		})
		if err != nil {
			t.Fatalf("SubmitBid() error = %v", err)
		}
		if bid.Status != models.SubmittedBid || bid.SubmittedBy != seller1.ID {
			t.Errorf("unexpected bid: %+v", bid)
		}
		if bid.Currency != models.DefaultCurrency {
			t.Errorf("currency = %s, want %s", bid.Currency, models.DefaultCurrency)
		}
		if !bid.Amount.Decimal.Equal(decimal.NewFromInt(500000)) {
			t.Errorf("amount = %s", bid.Amount.Decimal)
		}
		if got := f.bidCount(t, tender.ID); got != 1 {
			t.Errorf("bidCount = %d, want 1", got)
		}

		sent := f.notifier.For(buyer.ID)
		if len(sent) != 1 || sent[0].Title != "New Bid Received" {
			t.Fatalf("owner notifications = %+v", sent)
		}
		if got := testutil.ToFloat64(f.metrics.BidsSubmitted); got != 1 {
			t.Errorf("bids submitted = %v, want 1", got)
		}
	})

	t.Run("second bid from same user conflicts", func(t *testing.T) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs")
		if _, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID}); err != nil {
			t.Fatalf("first SubmitBid() error = %v", err)
		}

		_, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
		assertKind(t, err, models.KindConflict)
		if got := f.bidCount(t, tender.ID); got != 1 {
			t.Errorf("bidCount = %d, want 1", got)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		draft := f.createTender(t, buyer, "Draft Tender")
		open := f.openTender(t, buyer, "Open Tender")
		expired := f.openTender(t, buyer, "Expired Tender")
		deadline := f.now.Add(-time.Minute)
		if _, err := f.tenders.EditTender(ctx, buyer, expired.ID, models.TenderUpdate{ResponseDeadline: &deadline}); err != nil {
			t.Fatalf("EditTender() error = %v", err)
		}
		negative := decimal.NewNullDecimal(decimal.NewFromInt(-1))

		tests := []struct {
			name   string
			caller models.Caller
			req    models.BidRequest
			kind   models.ErrorKind
		}{
			{"missing tender id", seller1, models.BidRequest{}, models.KindBadRequest},
			{"invalid tender id", seller1, models.BidRequest{TenderID: "nope"}, models.KindBadRequest},
			{"unknown tender", seller1, models.BidRequest{TenderID: unknownTenderID}, models.KindNotFound},
			{"draft tender", seller1, models.BidRequest{TenderID: draft.ID}, models.KindBadRequest},
			{"own tender", buyer, models.BidRequest{TenderID: open.ID}, models.KindBadRequest},
			{"deadline passed", seller1, models.BidRequest{TenderID: expired.ID}, models.KindBadRequest},
			{"negative amount", seller1, models.BidRequest{TenderID: open.ID, Amount: negative}, models.KindBadRequest},
			{"bad currency", seller1, models.BidRequest{TenderID: open.ID, Currency: "rwf"}, models.KindBadRequest},
			{"too many documents", seller1, models.BidRequest{TenderID: open.ID, Documents: make([]string, models.MaxDocuments+1)}, models.KindBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.bids.SubmitBid(ctx, tt.caller, tt.req)
				assertKind(t, err, tt.kind)
			})
		}

		if got := f.bidCount(t, open.ID); got != 0 {
			t.Errorf("bidCount = %d, want 0", got)
		}
	})

	t.Run("bid at the deadline is rejected", func(t *testing.T) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs")
		deadline := f.now
		if _, err := f.tenders.EditTender(ctx, buyer, tender.ID, models.TenderUpdate{ResponseDeadline: &deadline}); err != nil {
			t.Fatalf("EditTender() error = %v", err)
		}
		_, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
		assertKind(t, err, models.KindBadRequest)
	})
}

func TestSubmitBidConcurrently(t *testing.T) {
	ctx := context.Background()

	t.Run("distinct bidders", func(t *testing.T) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs")

		const n = 25
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				caller := models.Caller{ID: fmt.Sprintf("seller-%02d", i)}
				if _, err := f.bids.SubmitBid(ctx, caller, models.BidRequest{TenderID: tender.ID}); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("SubmitBid() error = %v", err)
		}
		if got := f.bidCount(t, tender.ID); got != n {
			t.Errorf("bidCount = %d, want %d", got, n)
		}
	})

	t.Run("same bidder", func(t *testing.T) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs")

		const n = 10
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				var errResp *models.ErrorResponse
				if !errors.As(err, &errResp) || errResp.Kind != models.KindConflict {
					t.Errorf("expected Conflict, got %v", err)
				}
			}()
		}
		wg.Wait()

		if accepted != 1 {
			t.Errorf("accepted = %d, want 1", accepted)
		}
		if got := f.bidCount(t, tender.ID); got != 1 {
			t.Errorf("bidCount = %d, want 1", got)
		}
	})
}

func TestUpdateBidStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *models.Tender, *models.Bid) {
		f := newFixture(t)
		tender := f.openTender(t, buyer, "Office Chairs")
		bid, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
		if err != nil {
			t.Fatalf("SubmitBid() error = %v", err)
		}
		f.notifier.Reset()
		return f, tender, bid
	}

	t.Run("owner shortlists and bidder is notified", func(t *testing.T) {
		f, _, bid := setup(t)
		updated, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.ShortlistedBid)
		if err != nil {
			t.Fatalf("UpdateBidStatus() error = %v", err)
		}
		if updated.Status != models.ShortlistedBid {
			t.Errorf("status = %s, want shortlisted", updated.Status)
		}
		sent := f.notifier.For(seller1.ID)
		if len(sent) != 1 || sent[0].Title != "Bid Shortlisted" {
			t.Fatalf("bidder notifications = %+v", sent)
		}
	})

	t.Run("shortlisted can be rejected", func(t *testing.T) {
		f, _, bid := setup(t)
		if _, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.ShortlistedBid); err != nil {
			t.Fatalf("shortlist error = %v", err)
		}
		updated, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.RejectedBid)
		if err != nil {
			t.Fatalf("reject error = %v", err)
		}
		if updated.Status != models.RejectedBid {
			t.Errorf("status = %s, want rejected", updated.Status)
		}
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		f, _, bid := setup(t)
		if _, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.RejectedBid); err != nil {
			t.Fatalf("reject error = %v", err)
		}
		_, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.ShortlistedBid)
		assertKind(t, err, models.KindBadRequest)
	})

	t.Run("bidder cannot decide", func(t *testing.T) {
		f, _, bid := setup(t)
		_, err := f.bids.UpdateBidStatus(ctx, seller1, bid.ID, models.ShortlistedBid)
		assertKind(t, err, models.KindForbidden)
		if len(f.notifier.Sent()) != 0 {
			t.Error("forbidden decision must not notify")
		}
	})

	t.Run("only decisions are accepted", func(t *testing.T) {
		f, _, bid := setup(t)
		_, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.WithdrawnBid)
		assertKind(t, err, models.KindBadRequest)
	})

	t.Run("unknown bid", func(t *testing.T) {
		f, _, _ := setup(t)
		_, err := f.bids.UpdateBidStatus(ctx, buyer, unknownTenderID, models.RejectedBid)
		assertKind(t, err, models.KindNotFound)
	})
}

func TestWithdrawBid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.openTender(t, buyer, "Office Chairs")
	bid, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
	if err != nil {
		t.Fatalf("SubmitBid() error = %v", err)
	}
	f.notifier.Reset()

	t.Run("others cannot withdraw", func(t *testing.T) {
		for _, caller := range []models.Caller{buyer, seller2, admin} {
			_, err := f.bids.WithdrawBid(ctx, caller, bid.ID)
			assertKind(t, err, models.KindForbidden)
		}
	})

	t.Run("bidder withdraws and owner is notified", func(t *testing.T) {
		updated, err := f.bids.WithdrawBid(ctx, seller1, bid.ID)
		if err != nil {
			t.Fatalf("WithdrawBid() error = %v", err)
		}
		if updated.Status != models.WithdrawnBid {
			t.Errorf("status = %s, want withdrawn", updated.Status)
		}
		sent := f.notifier.For(buyer.ID)
		if len(sent) != 1 || sent[0].Title != "Bid Withdrawn" {
			t.Fatalf("owner notifications = %+v", sent)
		}
	})

	t.Run("second withdraw is rejected", func(t *testing.T) {
		_, err := f.bids.WithdrawBid(ctx, seller1, bid.ID)
		assertKind(t, err, models.KindBadRequest)
	})

	t.Run("withdrawn bid cannot be decided", func(t *testing.T) {
		_, err := f.bids.UpdateBidStatus(ctx, buyer, bid.ID, models.ShortlistedBid)
		assertKind(t, err, models.KindBadRequest)
	})
}

func TestBidVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.openTender(t, buyer, "Office Chairs")
	bid1, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
	if err != nil {
		t.Fatalf("SubmitBid() error = %v", err)
	}
	f.now = f.now.Add(time.Second)
	if _, err := f.bids.SubmitBid(ctx, seller2, models.BidRequest{TenderID: tender.ID}); err != nil {
		t.Fatalf("SubmitBid() error = %v", err)
	}
	page := models.Page{Limit: 10, Page: 1}

	t.Run("owner lists tender bids", func(t *testing.T) {
		got, err := f.bids.GetTenderBids(ctx, buyer, models.BidQuery{TenderID: tender.ID, Page: page})
		if err != nil {
			t.Fatalf("GetTenderBids() error = %v", err)
		}
		if got.TotalDocs != 2 || got.Docs[0].SubmittedBy != seller2.ID {
			t.Errorf("unexpected page: %+v", got)
		}
	})

	t.Run("bidder cannot list tender bids", func(t *testing.T) {
		_, err := f.bids.GetTenderBids(ctx, seller1, models.BidQuery{TenderID: tender.ID, Page: page})
		assertKind(t, err, models.KindForbidden)
	})

	t.Run("status filter", func(t *testing.T) {
		if _, err := f.bids.UpdateBidStatus(ctx, buyer, bid1.ID, models.ShortlistedBid); err != nil {
			t.Fatalf("shortlist error = %v", err)
		}
		got, err := f.bids.GetTenderBids(ctx, buyer, models.BidQuery{TenderID: tender.ID, Status: models.ShortlistedBid, Page: page})
		if err != nil {
			t.Fatalf("GetTenderBids() error = %v", err)
		}
		if got.TotalDocs != 1 || got.Docs[0].ID != bid1.ID {
			t.Errorf("unexpected page: %+v", got)
		}
	})

	t.Run("user bids", func(t *testing.T) {
		got, err := f.bids.GetUserBids(ctx, seller1, page)
		if err != nil {
			t.Fatalf("GetUserBids() error = %v", err)
		}
		if got.TotalDocs != 1 || got.Docs[0].ID != bid1.ID {
			t.Errorf("unexpected page: %+v", got)
		}
	})

	t.Run("get bid", func(t *testing.T) {
		if _, err := f.bids.GetBid(ctx, seller1, bid1.ID); err != nil {
			t.Errorf("bidder GetBid() error = %v", err)
		}
		if _, err := f.bids.GetBid(ctx, buyer, bid1.ID); err != nil {
			t.Errorf("owner GetBid() error = %v", err)
		}
		_, err := f.bids.GetBid(ctx, seller2, bid1.ID)
		assertKind(t, err, models.KindForbidden)
	})
}

func TestTenderLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tender := f.createTender(t, buyer, "Office Chairs", categoryChairs)
	if _, err := f.tenders.UpdateTenderStatus(ctx, buyer, tender.ID, models.OpenTender); err != nil {
		t.Fatalf("publish error = %v", err)
	}
	if got := recipients(f.notifier.Sent()); got[seller1.ID] == "" || got[seller2.ID] == "" {
		t.Fatalf("publish recipients = %v", got)
	}

	if _, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{
		TenderID: tender.ID,
		Amount:   decimal.NewNullDecimal(decimal.NewFromInt(500000)),
	}); err != nil {
		t.Fatalf("SubmitBid() error = %v", err)
	}
	f.notifier.Reset()

	closed, err := f.tenders.UpdateTenderStatus(ctx, buyer, tender.ID, models.ClosedTender)
	if err != nil {
		t.Fatalf("close error = %v", err)
	}
	if closed.BidCount != 1 {
		t.Errorf("bidCount = %d, want 1", closed.BidCount)
	}

	got := recipients(f.notifier.Sent())
	if len(got) != 1 || got[seller1.ID] != "Tender Closed" {
		t.Errorf("close notifications = %v", got)
	}

	_, err = f.bids.SubmitBid(ctx, seller2, models.BidRequest{TenderID: tender.ID})
	assertKind(t, err, models.KindBadRequest)
}

func TestCloseSkipsWithdrawnBidders(t *testing.T) {
	ctx := context.Background()

	for _, status := range []models.TenderStatus{models.ClosedTender, models.CancelledTender} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			tender := f.openTender(t, buyer, "Office Chairs")

			withdrawn, err := f.bids.SubmitBid(ctx, seller1, models.BidRequest{TenderID: tender.ID})
			if err != nil {
				t.Fatalf("SubmitBid(seller-1) error = %v", err)
			}
			rejected, err := f.bids.SubmitBid(ctx, seller2, models.BidRequest{TenderID: tender.ID})
			if err != nil {
				t.Fatalf("SubmitBid(seller-2) error = %v", err)
			}
			if _, err := f.bids.WithdrawBid(ctx, seller1, withdrawn.ID); err != nil {
				t.Fatalf("WithdrawBid() error = %v", err)
			}
			if _, err := f.bids.UpdateBidStatus(ctx, buyer, rejected.ID, models.RejectedBid); err != nil {
				t.Fatalf("UpdateBidStatus() error = %v", err)
			}
			f.notifier.Reset()

			if _, err := f.tenders.UpdateTenderStatus(ctx, buyer, tender.ID, status); err != nil {
				t.Fatalf("UpdateTenderStatus(%s) error = %v", status, err)
			}

			got := recipients(f.notifier.Sent())
			if _, ok := got[seller1.ID]; ok {
				t.Errorf("bidder who withdrew was notified: %v", got)
			}
			if got[seller2.ID] == "" {
				t.Errorf("rejected bidder not notified: %v", got)
			}
		})
	}
}
