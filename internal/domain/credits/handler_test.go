package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/middleware"
	"github.com/coduxa/coduxa-api/internal/pkg/response"
)

type fakeCreditsService struct {
	transactions []Transaction
}

func (f *fakeCreditsService) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(f.transactions), nil
}

func (f *fakeCreditsService) Add(ctx context.Context, userID uuid.UUID, amount int, txType TxType, meta TransactionMeta) error {
	return nil
}

func (f *fakeCreditsService) Spend(ctx context.Context, userID uuid.UUID, amount int, meta TransactionMeta) error {
	return nil
}

func (f *fakeCreditsService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if offset >= len(f.transactions) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.transactions) {
		end = len(f.transactions)
	}
	return f.transactions[offset:end], nil
}

func (f *fakeCreditsService) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	return f.transactions, nil
}

func listTransactions(t *testing.T, h *Handler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/transactions"+query, nil)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uuid.New())
	rec := httptest.NewRecorder()
	h.ListTransactions(rec, req.WithContext(ctx))
	return rec
}

func TestListTransactionsMeta(t *testing.T) {
	svc := &fakeCreditsService{}
	for i := 0; i < 5; i++ {
		svc.transactions = append(svc.transactions, Transaction{ID: uuid.NewString(), AmountDelta: 10})
	}
	h := NewHandler(svc)

	rec := listTransactions(t, h, "?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data []Transaction  `json:"data"`
		Meta *response.Meta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(resp.Data))
	}
	if resp.Meta == nil {
		t.Fatal("expected meta in list response")
	}
	if resp.Meta.Limit != 2 || resp.Meta.Offset != 0 || resp.Meta.Count != 2 {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
	if !resp.Meta.HasNext {
		t.Fatal("full window should report has_next")
	}

	rec = listTransactions(t, h, "?limit=10&offset=4")
	var last struct {
		Meta *response.Meta `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if last.Meta == nil || last.Meta.Count != 1 || last.Meta.HasNext {
		t.Fatalf("partial window should not report has_next: %+v", last.Meta)
	}
}
