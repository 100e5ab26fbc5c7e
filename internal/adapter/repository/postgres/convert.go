package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/casinowallet/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func decimalPtrToNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(*d)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func numericToDecimalPtr(n pgtype.Numeric) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := numericToDecimal(n)
	return &d
}

// refArgs splits an optional principal into its type and id columns.
func refArgs(ref *domain.PrincipalRef) (*string, *string) {
	if ref == nil {
		return nil, nil
	}
	typ := string(ref.Type)
	id := ref.ID
	return &typ, &id
}

func refFromColumns(typ, id *string) *domain.PrincipalRef {
	if typ == nil || id == nil {
		return nil
	}
	return &domain.PrincipalRef{Type: domain.PrincipalType(*typ), ID: *id}
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
