package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/data-steve/rowcol-sub001/pkg/ledgerwire"
)

// UpsertEntity marshals a normalized entity and applies the monotonicity
// guard generically across every sync-tokened entity kind, so callers in
// pkg/syncservice never hand-roll per-entity-kind upsert plumbing.
func UpsertEntity[T ledgerwire.Entity](ctx context.Context, s *Store, exec Execer, kind Kind, tenantID uuid.UUID, e T) (applied bool, err error) {
	data, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("marshaling %s for mirror storage: %w", kind, err)
	}
	return s.Upsert(ctx, exec, kind, tenantID, e.EntityKey(), e.EntityToken(), data)
}

// GetBill retrieves and unmarshals a single bill row.
func GetBill(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Bill, error) {
	return getTyped[ledgerwire.Bill](ctx, s, KindBill, tenantID, externalID)
}

// ListBills retrieves every active bill row for a tenant.
func ListBills(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Bill, error) {
	return listTyped[ledgerwire.Bill](ctx, s, KindBill, tenantID)
}

// GetInvoice retrieves and unmarshals a single invoice row.
func GetInvoice(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Invoice, error) {
	return getTyped[ledgerwire.Invoice](ctx, s, KindInvoice, tenantID, externalID)
}

// ListInvoices retrieves every active invoice row for a tenant.
func ListInvoices(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Invoice, error) {
	return listTyped[ledgerwire.Invoice](ctx, s, KindInvoice, tenantID)
}

// GetVendor retrieves and unmarshals a single vendor row.
func GetVendor(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Vendor, error) {
	return getTyped[ledgerwire.Vendor](ctx, s, KindVendor, tenantID, externalID)
}

// ListVendors retrieves every active vendor row for a tenant.
func ListVendors(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Vendor, error) {
	return listTyped[ledgerwire.Vendor](ctx, s, KindVendor, tenantID)
}

// GetCustomer retrieves and unmarshals a single customer row.
func GetCustomer(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Customer, error) {
	return getTyped[ledgerwire.Customer](ctx, s, KindCustomer, tenantID, externalID)
}

// ListCustomers retrieves every active customer row for a tenant.
func ListCustomers(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Customer, error) {
	return listTyped[ledgerwire.Customer](ctx, s, KindCustomer, tenantID)
}

// GetPayment retrieves and unmarshals a single payment row.
func GetPayment(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Payment, error) {
	return getTyped[ledgerwire.Payment](ctx, s, KindPayment, tenantID, externalID)
}

// ListPayments retrieves every active payment row for a tenant.
func ListPayments(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Payment, error) {
	return listTyped[ledgerwire.Payment](ctx, s, KindPayment, tenantID)
}

// GetAccount retrieves and unmarshals a single account row.
func GetAccount(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.Account, error) {
	return getTyped[ledgerwire.Account](ctx, s, KindAccount, tenantID, externalID)
}

// ListAccounts retrieves every active account row for a tenant.
func ListAccounts(ctx context.Context, s *Store, tenantID uuid.UUID) ([]*ledgerwire.Account, error) {
	return listTyped[ledgerwire.Account](ctx, s, KindAccount, tenantID)
}

// GetCompanyInfo retrieves and unmarshals the tenant's company info row.
func GetCompanyInfo(ctx context.Context, s *Store, tenantID uuid.UUID, externalID string) (*ledgerwire.CompanyInfo, error) {
	return getTyped[ledgerwire.CompanyInfo](ctx, s, KindCompanyInfo, tenantID, externalID)
}

func getTyped[T any](ctx context.Context, s *Store, kind Kind, tenantID uuid.UUID, externalID string) (*T, error) {
	row, err := s.Get(ctx, kind, tenantID, externalID)
	if err != nil {
		return nil, err
	}
	var e T
	if err := json.Unmarshal(row.Fields, &e); err != nil {
		return nil, fmt.Errorf("unmarshaling %s %s: %w", kind, externalID, err)
	}
	return &e, nil
}

func listTyped[T any](ctx context.Context, s *Store, kind Kind, tenantID uuid.UUID) ([]*T, error) {
	rows, err := s.List(ctx, kind, tenantID, false)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		var e T
		if err := json.Unmarshal(row.Fields, &e); err != nil {
			return nil, fmt.Errorf("unmarshaling %s row: %w", kind, err)
		}
		out = append(out, &e)
	}
	return out, nil
}
